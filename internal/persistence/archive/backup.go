package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// BackupPath names generation n of the backups of path: `<path>.backup` for
// n == 1 and `<path>.backup.<n>` after that.
func BackupPath(path string, n int) string {
	if n <= 1 {
		return path + ".backup"
	}
	return fmt.Sprintf("%s.backup.%d", path, n)
}

// Rotation reports what RotateBackups did. Warnings are cleanup steps that
// failed without stopping the backup.
type Rotation struct {
	Backup   string
	Warnings []error
}

// RotateBackups shifts existing backups of loc one generation older, drops the
// oldest, and copies the live save into generation 1. Folder saves copy their
// top-level files only. Only a failure of that final copy is returned as an
// error. generations < 1 disables backups.
func RotateBackups(loc Location, generations int) (Rotation, error) {
	var rot Rotation
	if generations < 1 {
		return rot, nil
	}
	oldest := BackupPath(loc.Path, generations)
	if _, err := os.Lstat(oldest); err == nil {
		if err := os.RemoveAll(oldest); err != nil {
			rot.Warnings = append(rot.Warnings, fmt.Errorf("remove %s: %w", oldest, err))
		}
	}
	for n := generations - 1; n >= 1; n-- {
		src := BackupPath(loc.Path, n)
		if _, err := os.Lstat(src); err != nil {
			continue
		}
		if err := os.Rename(src, BackupPath(loc.Path, n+1)); err != nil {
			rot.Warnings = append(rot.Warnings, fmt.Errorf("rotate %s: %w", src, err))
		}
	}

	dst := BackupPath(loc.Path, 1)
	var err error
	if loc.IsZip() {
		err = copyFile(loc.Path, dst)
	} else {
		err = copyTopLevel(loc.Path, dst)
	}
	if err != nil {
		return rot, fmt.Errorf("archive: backup %s: %w", loc.Path, err)
	}
	rot.Backup = dst
	return rot, nil
}

func copyTopLevel(srcDir, dstDir string) error {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := copyFile(filepath.Join(srcDir, e.Name()), filepath.Join(dstDir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
