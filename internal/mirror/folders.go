package mirror

import (
	"os"
	"path/filepath"

	"golang.org/x/text/unicode/norm"
)

// localFolder returns the directory that holds a meeting's files. The exact
// name is preferred; otherwise an existing sibling whose name is equal under
// NFC is reused, so a folder written by a filesystem that stores decomposed
// names is not mirrored a second time.
func localFolder(baseDir, name string) string {
	exact := filepath.Join(baseDir, name)
	if _, err := os.Stat(exact); err == nil {
		return exact
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return exact
	}
	want := norm.NFC.String(name)
	for _, e := range entries {
		if e.IsDir() && e.Name() != name && norm.NFC.String(e.Name()) == want {
			return filepath.Join(baseDir, e.Name())
		}
	}
	return exact
}
