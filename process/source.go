package process

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var nonAlnumFold = regexp.MustCompile(`[^A-Z0-9]+`)

func foldName(s string) string {
	return nonAlnumFold.ReplaceAllString(strings.ToUpper(s), "")
}

// FindSource locates the newest result artifact for a set under dir: a
// result folder, or failing that the batch ZIP from an earlier run. Returns
// SourceNotFoundError when the set has neither.
func FindSource(dir, set string) (path string, isZip bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false, err
	}

	want := foldName(set)
	var bestDir, bestZip string
	var bestDirTime, bestZipTime int64

	for _, entry := range entries {
		name := entry.Name()
		if !strings.Contains(foldName(strings.TrimSuffix(name, ".zip")), want) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		mod := info.ModTime().UnixNano()
		switch {
		case entry.IsDir():
			if mod > bestDirTime {
				bestDir, bestDirTime = name, mod
			}
		case strings.EqualFold(filepath.Ext(name), ".zip"):
			if mod > bestZipTime {
				bestZip, bestZipTime = name, mod
			}
		}
	}

	switch {
	case bestDir != "":
		return filepath.Join(dir, bestDir), false, nil
	case bestZip != "":
		return filepath.Join(dir, bestZip), true, nil
	default:
		return "", false, &SourceNotFoundError{Set: set, Dir: dir}
	}
}
