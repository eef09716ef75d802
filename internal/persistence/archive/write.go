package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Write persists every payload in b to loc. Folder saves get one temp file
// and rename per payload. Zip saves are rebuilt in a sibling temp archive:
// members that are not payloads in b are copied without recompression, then
// the temp archive is renamed over the original.
func Write(loc Location, b *Bundle) error {
	if loc.IsZip() {
		return writeZip(loc, b)
	}
	return writeFolder(loc, b)
}

func writeFolder(loc Location, b *Bundle) error {
	if err := os.MkdirAll(loc.Path, 0o755); err != nil {
		return fmt.Errorf("archive: mkdir: %w", err)
	}
	for _, p := range Payloads {
		if !b.Has(p) {
			continue
		}
		dst := filepath.Join(loc.Path, p.Member(loc.Base))
		if err := writeFileAtomic(dst, b.Get(p)); err != nil {
			return fmt.Errorf("archive: write %s: %w", p.Member(loc.Base), err)
		}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := matchMode(tmp, path); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// matchMode gives tmp the permission bits of the file it will replace, or
// 0644 when target does not exist yet.
func matchMode(tmp *os.File, target string) error {
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(target); err == nil {
		mode = fi.Mode().Perm()
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return tmp.Chmod(mode)
}

func writeZip(loc Location, b *Bundle) error {
	zr, err := zip.OpenReader(loc.Path)
	if err != nil {
		return fmt.Errorf("archive: open zip: %w", err)
	}
	defer zr.Close()
	registerDecompressor(&zr.Reader)

	tmp, err := os.CreateTemp(filepath.Dir(loc.Path), "."+filepath.Base(loc.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("archive: create temp zip: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := rebuildZip(tmp, &zr.Reader, loc.Base, b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := matchMode(tmp, loc.Path); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("archive: chmod temp zip: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("archive: sync temp zip: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("archive: close temp zip: %w", err)
	}
	// Close the reader before replacing the file it reads from.
	_ = zr.Close()
	if err := os.Rename(tmpName, loc.Path); err != nil {
		return fmt.Errorf("archive: replace zip: %w", err)
	}
	return nil
}

func rebuildZip(w io.Writer, zr *zip.Reader, base string, b *Bundle) error {
	zw := zip.NewWriter(w)
	registerCompressor(zw)

	replace := map[string]Payload{}
	for _, p := range Payloads {
		if b.Has(p) {
			replace[p.Member(base)] = p
		}
	}
	now := time.Now()
	written := map[Payload]bool{}
	for _, f := range zr.File {
		p, ok := replace[f.Name]
		if !ok || written[p] {
			if err := zw.Copy(f); err != nil {
				return fmt.Errorf("archive: copy member %s: %w", f.Name, err)
			}
			continue
		}
		hdr := &zip.FileHeader{Name: f.Name, Method: f.Method, Comment: f.Comment, Modified: now}
		if err := putMember(zw, hdr, b.Get(p)); err != nil {
			return err
		}
		written[p] = true
	}
	for _, p := range Payloads {
		if !b.Has(p) || written[p] {
			continue
		}
		hdr := &zip.FileHeader{Name: p.Member(base), Method: zip.Deflate, Modified: now}
		if err := putMember(zw, hdr, b.Get(p)); err != nil {
			return err
		}
	}
	if err := zw.SetComment(zr.Comment); err != nil {
		return fmt.Errorf("archive: zip comment: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("archive: finish zip: %w", err)
	}
	return nil
}

func putMember(zw *zip.Writer, hdr *zip.FileHeader, data []byte) error {
	mw, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("archive: create member %s: %w", hdr.Name, err)
	}
	if _, err := mw.Write(data); err != nil {
		return fmt.Errorf("archive: write member %s: %w", hdr.Name, err)
	}
	return nil
}
