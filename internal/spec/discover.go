// Package spec finds SLO spec files on disk and splits them into raw documents.
package spec

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var DefaultExtensions = []string{".yaml", ".yml"}

// Discovery lists the files a run reads and the files it ignores because of
// their extension.
type Discovery struct {
	Files   []string
	Ignored []string
}

// Discover resolves src into spec files. A directory contributes its own files
// and those of its immediate subdirectories. A single file goes through the
// same extension filter.
func Discover(src string, exts []string) (Discovery, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	info, err := os.Stat(src)
	if err != nil {
		return Discovery{}, fmt.Errorf("read source: %w", err)
	}
	var out Discovery
	if !info.IsDir() {
		out.add(src, exts)
		return out, nil
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return Discovery{}, fmt.Errorf("read source: %w", err)
	}
	for _, entry := range entries {
		path := filepath.Join(src, entry.Name())
		if !entry.IsDir() {
			out.add(path, exts)
			continue
		}
		nested, err := os.ReadDir(path)
		if err != nil {
			return Discovery{}, fmt.Errorf("read source: %w", err)
		}
		for _, child := range nested {
			if child.IsDir() {
				continue
			}
			out.add(filepath.Join(path, child.Name()), exts)
		}
	}
	sort.Strings(out.Files)
	sort.Strings(out.Ignored)
	return out, nil
}

func (d *Discovery) add(path string, exts []string) {
	if hasExtension(path, exts) {
		d.Files = append(d.Files, path)
		return
	}
	d.Ignored = append(d.Ignored, path)
}

func hasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range exts {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}
