package zoom

import (
	"encoding/json"
	"strings"
	"time"
)

// Credential is the Zoom OAuth client identity and current token pair.
// It is owned by a TokenManager; everything else works on copies.
type Credential struct {
	ClientID     string    `yaml:"client_id"`
	ClientSecret string    `yaml:"client_secret"`
	AccessToken  string    `yaml:"access_token"`
	RefreshToken string    `yaml:"refresh_token"`
	IssuedAt     time.Time `yaml:"issued_at,omitempty"`
}

// Meeting is one meeting with cloud recordings.
type Meeting struct {
	UUID      string
	ID        string
	Topic     string
	StartTime time.Time
	Files     []RecordingFile
}

// RecordingFile is one downloadable artifact of a meeting recording.
type RecordingFile struct {
	ID             string
	RecordingType  string
	FileType       string
	FileExtension  string
	FileSize       int64
	DownloadURL    string
	RecordingStart time.Time
	RecordingEnd   time.Time
	Status         string
}

// RateLimits reports the Zoom API rate-limit headers of a single response.
type RateLimits struct {
	Limit     string
	Remaining string
	Reset     string
}

// recordingsPage is the wire shape of GET /users/{userId}/recordings.
type recordingsPage struct {
	From          string        `json:"from"`
	To            string        `json:"to"`
	PageSize      int           `json:"page_size"`
	TotalRecords  int           `json:"total_records"`
	NextPageToken string        `json:"next_page_token"`
	Meetings      []meetingWire `json:"meetings"`
}

type meetingWire struct {
	UUID           string              `json:"uuid"`
	ID             json.Number         `json:"id"`
	Topic          string              `json:"topic"`
	StartTime      string              `json:"start_time"`
	RecordingFiles []recordingFileWire `json:"recording_files"`
}

type recordingFileWire struct {
	ID             string `json:"id"`
	RecordingType  string `json:"recording_type"`
	FileType       string `json:"file_type"`
	FileExtension  string `json:"file_extension"`
	FileSize       int64  `json:"file_size"`
	DownloadURL    string `json:"download_url"`
	RecordingStart string `json:"recording_start"`
	RecordingEnd   string `json:"recording_end"`
	Status         string `json:"status"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

// parseTime accepts the RFC 3339 timestamps Zoom returns. Unparsable or
// empty values yield the zero time.
func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func convertMeeting(w meetingWire) Meeting {
	m := Meeting{
		UUID:      w.UUID,
		ID:        w.ID.String(),
		Topic:     w.Topic,
		StartTime: parseTime(w.StartTime),
		Files:     make([]RecordingFile, 0, len(w.RecordingFiles)),
	}
	for _, f := range w.RecordingFiles {
		m.Files = append(m.Files, RecordingFile{
			ID:             f.ID,
			RecordingType:  f.RecordingType,
			FileType:       f.FileType,
			FileExtension:  f.FileExtension,
			FileSize:       f.FileSize,
			DownloadURL:    f.DownloadURL,
			RecordingStart: parseTime(f.RecordingStart),
			RecordingEnd:   parseTime(f.RecordingEnd),
			Status:         f.Status,
		})
	}
	return m
}
