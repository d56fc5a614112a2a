package naming

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFolderName(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		topic string
		want  string
	}{
		{"plain", "Team Meeting", "Team Meeting 2024-01-01 at 10-00"},
		{"colon and slash", "Q1: plan/review", "Q1- plan-review 2024-01-01 at 10-00"},
		{"backslash and brackets", `a\b <c> d|e`, "a-b -c- d-e 2024-01-01 at 10-00"},
		{"question mark", "Why?", "WhyQ 2024-01-01 at 10-00"},
		{"asterisk", "5* review", "5asterisk review 2024-01-01 at 10-00"},
		{"surrounding whitespace", "  Standup  ", "Standup   2024-01-01 at 10-00"},
		{"empty topic", "", "2024-01-01 at 10-00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FolderName(tt.topic, start))
		})
	}
}

func TestFolderName_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	start := time.Date(2024, 1, 1, 12, 30, 0, 0, loc)
	assert.Equal(t, "Sync 2024-01-01 at 10-30", FolderName("Sync", start))
}

func TestFolderName_IsPureAndSafe(t *testing.T) {
	start := time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC)
	topics := []string{
		"Team Meeting",
		`all/of:the\reserved<chars>|here?*`,
		"  leading and trailing  ",
		"Café weekly",
		"",
	}

	for _, topic := range topics {
		first := FolderName(topic, start)
		second := FolderName(topic, start)
		assert.Equal(t, first, second)
		assert.False(t, strings.ContainsAny(first, Reserved), "folder %q contains a reserved character", first)
		assert.Equal(t, strings.TrimSpace(first), first)
	}
}

func TestFolderName_KeepsTopicBytes(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "Cafe\u0301 2024-05-01 at 09-00", FolderName("Cafe\u0301", start))
	assert.Equal(t, "Caf\u00e9 2024-05-01 at 09-00", FolderName("Caf\u00e9", start))
}

func TestFileName(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name          string
		recordingType string
		extension     string
		end           time.Time
		want          string
	}{
		{"whole minutes", "shared_screen_with_speaker_view", "MP4", start.Add(45 * time.Minute), "shared_screen_with_speaker_view_duration_45_minutes.mp4"},
		{"floors seconds", "audio_only", "M4A", start.Add(45*time.Minute + 59*time.Second), "audio_only_duration_45_minutes.m4a"},
		{"spaces become underscores", "audio transcript", "VTT", start.Add(90 * time.Second), "audio_transcript_duration_1_minutes.vtt"},
		{"under a minute", "chat_file", "TXT", start.Add(30 * time.Second), "chat_file_duration_0_minutes.txt"},
		{"end before start", "chat_file", "TXT", start.Add(-time.Minute), "chat_file_duration_0_minutes.txt"},
		{"dotted extension", "timeline", ".json", start.Add(2 * time.Minute), "timeline_duration_2_minutes.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.recordingType, tt.extension, start, tt.end))
		})
	}
}

func TestDurationMinutes_MissingInstants(t *testing.T) {
	assert.Equal(t, 0, DurationMinutes(time.Time{}, time.Now()))
	assert.Equal(t, 0, DurationMinutes(time.Now(), time.Time{}))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Team Meeting 2024-01-01 at 10-00", "teammeeting20240101at1000"},
		{"Q1- plan-review", "q1planreview"},
		{"Café ☕ 42", "caf42"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}
