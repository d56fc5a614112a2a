// Package scan inventories the local mirror: one entry per directory, keyed
// by its normalized name, listing the extension and size of every file
// directly inside it.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/phyninja/zoom-recordings-backup/internal/naming"
)

// File is one regular file found directly inside a scanned directory.
type File struct {
	// Extension is lowercased, without the leading dot.
	Extension string
	Size      int64
}

// Folder is the inventory of one directory.
type Folder struct {
	// Name is the directory base name as found on disk.
	Name  string
	Path  string
	Files []File
}

// Scan walks baseDir, base included. Directories whose names normalize to
// the same key overwrite each other in walk order (lexical); the last one
// wins. Sizes are read at scan time.
func Scan(baseDir string) (map[string]Folder, error) {
	folders := make(map[string]Folder)

	err := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		entries, err := readFiles(path)
		if err != nil {
			return err
		}
		folders[naming.Normalize(d.Name())] = Folder{
			Name:  d.Name(),
			Path:  path,
			Files: entries,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", baseDir, err)
	}
	return folders, nil
}

func readFiles(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		files = append(files, File{
			Extension: strings.ToLower(strings.TrimPrefix(filepath.Ext(entry.Name()), ".")),
			Size:      info.Size(),
		})
	}
	return files, nil
}
