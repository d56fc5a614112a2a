package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/phyninja/zoom-recordings-backup/internal/naming"
	"github.com/phyninja/zoom-recordings-backup/internal/scan"
	"github.com/phyninja/zoom-recordings-backup/internal/zoom"
)

const (
	// DefaultMargin is the relative size tolerance between a remote file and
	// its local copy.
	DefaultMargin = 0.01

	// DefaultThreshold is the minimum Ratio for two folder names to match.
	DefaultThreshold = 99
)

// trackedTypes are the file types whose sizes are checked.
var trackedTypes = map[string]bool{"mp4": true, "m4a": true}

// FileEntry is one remote file reduced to what verification needs.
type FileEntry struct {
	Type string
	Size int64
}

// Report lists what the local mirror is missing.
type Report struct {
	MissingFolders  []string
	MismatchedFiles []string
}

// Verified reports whether the mirror is complete.
func (r Report) Verified() bool {
	return len(r.MissingFolders) == 0 && len(r.MismatchedFiles) == 0
}

// Options tunes Verify.
type Options struct {
	Margin    float64
	Threshold int
}

// DefaultOptions returns the standard tolerances.
func DefaultOptions() Options {
	return Options{Margin: DefaultMargin, Threshold: DefaultThreshold}
}

// RemoteIndex keys each meeting's files by the normalized name of the
// folder the mirror stores it in. Later meetings with the same key replace
// earlier ones.
func RemoteIndex(meetings []zoom.Meeting) map[string][]FileEntry {
	index := make(map[string][]FileEntry, len(meetings))
	for _, m := range meetings {
		key := naming.Normalize(naming.FolderName(m.Topic, m.StartTime))
		files := make([]FileEntry, 0, len(m.Files))
		for _, f := range m.Files {
			files = append(files, FileEntry{Type: f.FileType, Size: f.FileSize})
		}
		index[key] = files
	}
	return index
}

// ClosestMatch returns the local name most similar to name. The first name
// in sorted order wins ties. ok is false when the best score is below
// threshold.
func ClosestMatch(name string, local map[string]scan.Folder, threshold int) (match string, ok bool) {
	best := 0
	for _, candidate := range sortedKeys(local) {
		if score := Ratio(name, candidate); score > best {
			best = score
			match = candidate
		}
	}
	if match == "" || best < threshold {
		return "", false
	}
	return match, true
}

// Verify compares the remote inventory against a local scan. Remote folders
// are visited in sorted order.
//
// Within a matched folder, each remote mp4 or m4a file consumes the first
// local file of the same type whose size is within opts.Margin of the
// remote size. Matching is greedy first-fit, so a local file satisfies at
// most one remote file but the assignment is not globally optimal.
func Verify(remote map[string][]FileEntry, local map[string]scan.Folder, opts Options) Report {
	report := Report{}

	for _, folder := range sortedKeys(remote) {
		match, ok := ClosestMatch(folder, local, opts.Threshold)
		if !ok {
			report.MissingFolders = append(report.MissingFolders, folder)
			continue
		}

		available := make(map[string][]int64)
		for _, f := range local[match].Files {
			ext := strings.ToLower(f.Extension)
			available[ext] = append(available[ext], f.Size)
		}

		for _, rf := range remote[folder] {
			fileType := strings.ToLower(rf.Type)
			if !trackedTypes[fileType] {
				continue
			}
			sizes, ok := available[fileType]
			if !ok {
				report.MismatchedFiles = append(report.MismatchedFiles,
					fmt.Sprintf("%s not found in local folder %s", fileType, match))
				continue
			}
			idx := firstWithin(sizes, rf.Size, opts.Margin)
			if idx < 0 {
				report.MismatchedFiles = append(report.MismatchedFiles,
					fmt.Sprintf("%s %s size mismatch: Zoom size %d, No matching local file", match, fileType, rf.Size))
				continue
			}
			available[fileType] = append(sizes[:idx], sizes[idx+1:]...)
		}
	}
	return report
}

// firstWithin returns the index of the first size within margin of want,
// or -1. A zero want only matches a zero size.
func firstWithin(sizes []int64, want int64, margin float64) int {
	for i, size := range sizes {
		if want == 0 {
			if size == 0 {
				return i
			}
			continue
		}
		diff := want - size
		if diff < 0 {
			diff = -diff
		}
		if float64(diff)/float64(want) <= margin {
			return i
		}
	}
	return -1
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
