// Package packaging bundles a finished batch folder into a verified ZIP so
// every artifact of a (set, timestamp) run travels as one file.
package packaging

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// ZipFolder zips dir into dir+".zip", verifies the archive, and removes the
// folder only after verification succeeds. Returns the ZIP path.
func ZipFolder(dir string) (string, error) {
	zipPath := strings.TrimSuffix(dir, string(os.PathSeparator)) + ".zip"
	if err := writeZip(dir, zipPath); err != nil {
		os.Remove(zipPath)
		return "", err
	}
	if err := Verify(zipPath); err != nil {
		os.Remove(zipPath)
		return "", err
	}
	if err := os.RemoveAll(dir); err != nil {
		// The ZIP is already good; a lingering folder is only clutter.
		log.Printf("packaging: could not remove %s after zipping: %v", dir, err)
	}
	return zipPath, nil
}

func writeZip(dir, zipPath string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	defer zw.Close()

	root := filepath.Clean(dir)
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(w, in)
		return err
	})
}

// Verify reopens a ZIP and checks it holds at least one readable entry.
func Verify(zipPath string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("verifying %s: %w", zipPath, err)
	}
	defer r.Close()
	if len(r.File) == 0 {
		return fmt.Errorf("verifying %s: archive has no entries", zipPath)
	}
	rc, err := r.File[0].Open()
	if err != nil {
		return fmt.Errorf("verifying %s: %w", zipPath, err)
	}
	rc.Close()
	return nil
}

// Unzip extracts an archive into destDir, refusing entries that would land
// outside it.
func Unzip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		target := filepath.Join(destDir, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("unzip %s: entry %q escapes destination", zipPath, f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
