package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/filare/internal/errs"
)

// ResolvePath locates name. Absolute names are used as-is; relative names
// are tried against the working directory first and then against each of
// searchDirs in order. The error lists every candidate tried.
func ResolvePath(name string, searchDirs ...string) (string, error) {
	var candidates []string
	if filepath.IsAbs(name) {
		candidates = []string{name}
	} else {
		candidates = append(candidates, name)
		for _, dir := range searchDirs {
			if dir == "" {
				continue
			}
			candidates = append(candidates, filepath.Join(dir, name))
		}
	}

	tried := make([]string, 0, len(candidates))
	seen := make(map[string]bool)
	for _, c := range candidates {
		abs, err := filepath.Abs(c)
		if err != nil {
			abs = c
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		tried = append(tried, abs)

		info, err := os.Stat(abs)
		if err == nil && !info.IsDir() {
			return abs, nil
		}
	}
	return "", errs.FileNotFound(name, tried)
}

// readResolved resolves and reads each of paths.
func readResolved(paths []string, searchDirs []string) ([][]byte, []string, error) {
	contents := make([][]byte, 0, len(paths))
	resolved := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := ResolvePath(p, searchDirs...)
		if err != nil {
			return nil, nil, err
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", abs, err)
		}
		contents = append(contents, data)
		resolved = append(resolved, abs)
	}
	return contents, resolved, nil
}

// ParseMergeFiles loads each file and merges the results left to right.
// No paths yields an empty Map.
func ParseMergeFiles(paths []string, searchDirs ...string) (*Map, error) {
	contents, resolved, err := readResolved(paths, searchDirs)
	if err != nil {
		return nil, err
	}
	out := NewMap()
	for i, data := range contents {
		doc, err := parseMerge(data, resolved[i])
		if err != nil {
			return nil, err
		}
		out = MergeContent(out, doc)
	}
	return out, nil
}

// ParseConcatMergeFiles joins the concat files textually and parses them as
// one stream, so anchors defined in an earlier file can be referenced in a
// later one. Top-level keys repeated across those files are merged. The
// result is then merged with each of mergePaths.
func ParseConcatMergeFiles(concatPaths, mergePaths []string, searchDirs ...string) (*Map, error) {
	contents, resolved, err := readResolved(concatPaths, searchDirs)
	if err != nil {
		return nil, err
	}

	out := NewMap()
	if len(contents) > 0 {
		text := bytes.Join(contents, []byte("\n"))
		source := resolved[len(resolved)-1]
		docs, err := parser{mergeTopLevel: true}.documents(text, source)
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			out = MergeContent(out, doc)
		}
	}

	merged, err := ParseMergeFiles(mergePaths, searchDirs...)
	if err != nil {
		return nil, err
	}
	return MergeContent(out, merged), nil
}
