package naming

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// folderNameReplacer replaces characters that are reserved on common
// filesystems. The substitutions are part of the on-disk layout: changing
// them orphans every previously mirrored folder.
var folderNameReplacer = strings.NewReplacer(
	":", "-",
	"/", "-",
	"\\", "-",
	"<", "-",
	">", "-",
	"|", "-",
	"?", "Q",
	"*", "asterisk",
)

// Reserved lists the characters FolderName never emits.
const Reserved = `:/\<>|?*`

// FolderName returns the local folder name for a meeting:
// "{topic} {YYYY-MM-DD} at {HH-MM}" in UTC, with reserved characters replaced
// and surrounding whitespace trimmed.
func FolderName(topic string, start time.Time) string {
	name := topic + " " + start.UTC().Format("2006-01-02") + " at " + start.UTC().Format("15-04")
	return strings.TrimSpace(folderNameReplacer.Replace(name))
}

// FileName returns the local file name for a recording file:
// "{recording_type}_duration_{N}_minutes.{ext}" where spaces in the
// recording type become underscores and N is the whole number of minutes
// between start and end.
func FileName(recordingType, extension string, start, end time.Time) string {
	recordingType = strings.ReplaceAll(strings.TrimSpace(recordingType), " ", "_")
	ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(extension), "."))
	return recordingType + "_duration_" + strconv.Itoa(DurationMinutes(start, end)) + "_minutes." + ext
}

// DurationMinutes returns floor((end-start) seconds / 60), or 0 when either
// instant is missing or end precedes start.
func DurationMinutes(start, end time.Time) int {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return 0
	}
	return int(math.Floor(end.Sub(start).Seconds() / 60))
}

// Normalize reduces s to lowercase ASCII letters and digits. Normalized names
// are the keys used to match remote meetings to local folders.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
		}
	}
	return b.String()
}
