// Package ingest locates log archives, decompresses them and turns them into
// one merged entry collection.
package ingest

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions are the archive extensions picked up when walking a
// directory.
var DefaultExtensions = []string{".gz"}

// ExpandSources expands a list of file paths, directories and glob patterns
// into a deduplicated, sorted list of archive paths.
//
// Directories are walked recursively and contribute every file whose name
// ends with one of extensions. Patterns that match nothing are returned
// as-is so the read step can report them as failed sources.
func ExpandSources(patterns []string, extensions []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	seen := make(map[string]bool)
	var result []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			result = append(result, path)
		}
	}

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}

		if len(matches) == 0 {
			add(pattern)
			continue
		}

		for _, match := range matches {
			for _, f := range walkArchives(match, extensions) {
				add(f)
			}
		}
	}

	sort.Strings(result)

	return result, nil
}

// walkDir is filepath.WalkDir, replaceable in tests.
var walkDir = filepath.WalkDir

// walkArchives returns root itself when it is a file, or every archive
// below it when it is a directory. A path the walk cannot enter is returned
// as-is so the read step reports it as a failed source while the rest of
// the tree is still collected.
func walkArchives(root string, extensions []string) []string {
	var files []string
	_ = walkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			files = append(files, path)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if path == root || hasExtension(path, extensions) {
			files = append(files, path)
		}
		return nil
	})
	return files
}

func hasExtension(path string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
