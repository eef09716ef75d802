// Package snapshot stores restore points: the payload bytes of a save as they
// were before an edit, zstd compressed.
//
// File layout: one JSON header line, then a gob-encoded BundleV1.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"ntwtf.ai/internal/persistence/archive"
)

const Version = 1

type Header struct {
	Version   int       `json:"version"`
	ID        string    `json:"id"`
	SavePath  string    `json:"save_path"`
	BaseName  string    `json:"base_name"`
	Kind      string    `json:"kind"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
}

type BundleV1 struct {
	Header Header
	// Files is keyed by archive.Payload.String().
	Files map[string][]byte
}

// FromBundle captures b. The payload slices are shared, not copied.
func FromBundle(h Header, b *archive.Bundle) BundleV1 {
	snap := BundleV1{Header: h, Files: map[string][]byte{}}
	snap.Header.Version = Version
	snap.Header.BaseName = b.Base
	snap.Header.Size = b.Size()
	for p, data := range b.Files {
		snap.Files[p.String()] = data
	}
	return snap
}

// Bundle converts the snapshot back. Unknown payload names are dropped.
func (s BundleV1) Bundle() *archive.Bundle {
	b := archive.NewBundle(s.Header.BaseName)
	for name, data := range s.Files {
		if p, ok := archive.PayloadByName(name); ok {
			b.Put(p, data)
		}
	}
	return b
}

func WriteSnapshot(path string, snap BundleV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp) }()

	if err := encode(f, snap); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func encode(f *os.File, snap BundleV1) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (BundleV1, error) {
	var snap BundleV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is duplicated inside the gob body.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader decodes only the leading header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}
