package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const fileSuffix = ".snap.zst"

var ErrNotFound = errors.New("snapshot: not found")

// Store keeps restore points under dir/<base name>/, newest `keep` per save.
type Store struct {
	dir  string
	keep int
}

// Entry is a stored snapshot header and the file holding it.
type Entry struct {
	Header
	Path string `json:"path"`
}

func NewStore(dir string, keep int) *Store {
	return &Store{dir: dir, keep: keep}
}

func (s *Store) Dir() string { return s.dir }

// Put writes snap and prunes older snapshots of the same base name. It
// returns the new file's path.
func (s *Store) Put(snap BundleV1) (string, error) {
	if snap.Header.ID == "" {
		return "", fmt.Errorf("snapshot: missing id")
	}
	name := fmt.Sprintf("%s-%s%s", snap.Header.CreatedAt.UTC().Format("20060102T150405.000000000Z"), snap.Header.ID, fileSuffix)
	path := filepath.Join(s.dir, safeDir(snap.Header.BaseName), name)
	if err := WriteSnapshot(path, snap); err != nil {
		return "", err
	}
	if s.keep > 0 {
		if err := s.prune(snap.Header.BaseName); err != nil {
			return path, err
		}
	}
	return path, nil
}

// List returns the snapshots of base, newest first.
func (s *Store) List(base string) ([]Entry, error) {
	dir := filepath.Join(s.dir, safeDir(base))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		h, err := ReadHeader(path)
		if err != nil {
			continue
		}
		out = append(out, Entry{Header: h, Path: path})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Find loads the snapshot of base with the given id. An id prefix is
// accepted when it is unambiguous.
func (s *Store) Find(base, id string) (BundleV1, error) {
	if id == "" {
		return BundleV1{}, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	list, err := s.List(base)
	if err != nil {
		return BundleV1{}, err
	}
	var match *Entry
	for i := range list {
		if list[i].ID == id {
			match = &list[i]
			break
		}
		if strings.HasPrefix(list[i].ID, id) {
			if match != nil {
				return BundleV1{}, fmt.Errorf("snapshot: id %q is ambiguous", id)
			}
			match = &list[i]
		}
	}
	if match == nil {
		return BundleV1{}, fmt.Errorf("%w: %s/%s", ErrNotFound, base, id)
	}
	return ReadSnapshot(match.Path)
}

func (s *Store) prune(base string) error {
	list, err := s.List(base)
	if err != nil {
		return err
	}
	var errs []error
	for i := s.keep; i < len(list); i++ {
		if err := os.Remove(list[i].Path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func safeDir(base string) string {
	base = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, base)
	if base == "" || base == "." || base == ".." {
		return "_"
	}
	return base
}
