package archive

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Summary describes one save found by Discover.
type Summary struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Kind     string    `json:"kind"`
	Modified time.Time `json:"last_modified"`
	Size     int64     `json:"size"`
}

// Discover lists saves directly under each root: `*.ntwtf` folders and
// `*.ntwtf.zip` files, newest first. Roots that cannot be read are skipped.
func Discover(roots []string) []Summary {
	var out []Summary
	seen := map[string]bool{}
	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			full := filepath.Join(root, name)
			var kind Kind
			switch {
			case e.IsDir() && strings.HasSuffix(name, ".ntwtf"):
				kind = KindFolder
			case e.Type().IsRegular() && strings.HasSuffix(name, ".ntwtf.zip"):
				kind = KindZip
			default:
				continue
			}
			if seen[full] {
				continue
			}
			seen[full] = true
			fi, err := e.Info()
			if err != nil {
				continue
			}
			size := fi.Size()
			if kind == KindFolder {
				size = dirSize(full)
			}
			out = append(out, Summary{
				Name:     BaseName(name),
				Path:     full,
				Kind:     kind.String(),
				Modified: fi.ModTime(),
				Size:     size,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Modified.Equal(out[j].Modified) {
			return out[i].Modified.After(out[j].Modified)
		}
		return out[i].Path < out[j].Path
	})
	return out
}

func dirSize(dir string) int64 {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	var n int64
	for _, e := range entries {
		if fi, err := e.Info(); err == nil && fi.Mode().IsRegular() {
			n += fi.Size()
		}
	}
	return n
}
