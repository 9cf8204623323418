package cmd

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// resolveLogFile turns the log-file argument into a concrete path. A plain
// path passes through untouched (it may not exist yet; the tailer polls for
// it). A glob pattern resolves to the most recently modified match; a
// pattern with no matches is kept literally so tailing starts once a file
// appears at that name.
func resolveLogFile(pattern string) (string, error) {
	if !hasGlobMeta(pattern) {
		return pattern, nil
	}

	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return pattern, nil
	}

	newest := matches[0]
	var newestMod int64
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); mod > newestMod {
			newest = m
			newestMod = mod
		}
	}
	return filepath.Clean(newest), nil
}

func hasGlobMeta(pattern string) bool {
	for _, r := range pattern {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
