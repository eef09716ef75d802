package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
)

// Bundle holds the raw bytes of whichever payloads a save carries. A payload
// absent from Files was not present (on read) or is not to be written.
type Bundle struct {
	Base  string
	Files map[Payload][]byte
}

func NewBundle(base string) *Bundle {
	return &Bundle{Base: base, Files: map[Payload][]byte{}}
}

func (b *Bundle) Has(p Payload) bool {
	_, ok := b.Files[p]
	return ok
}

func (b *Bundle) Get(p Payload) []byte { return b.Files[p] }

func (b *Bundle) Put(p Payload, data []byte) { b.Files[p] = data }

// Size is the total byte count of all payloads.
func (b *Bundle) Size() int64 {
	var n int64
	for _, data := range b.Files {
		n += int64(len(data))
	}
	return n
}

// Read loads every payload present at loc. Missing payloads are not an error.
func Read(loc Location) (*Bundle, error) {
	if loc.IsZip() {
		return readZip(loc)
	}
	return readFolder(loc)
}

func readFolder(loc Location) (*Bundle, error) {
	b := NewBundle(loc.Base)
	for _, p := range Payloads {
		data, err := os.ReadFile(filepath.Join(loc.Path, p.Member(loc.Base)))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("archive: read %s: %w", p.Member(loc.Base), err)
		}
		b.Put(p, data)
	}
	return b, nil
}

func readZip(loc Location) (*Bundle, error) {
	zr, err := zip.OpenReader(loc.Path)
	if err != nil {
		return nil, fmt.Errorf("archive: open zip: %w", err)
	}
	defer zr.Close()
	registerDecompressor(&zr.Reader)

	byName := map[string]Payload{}
	for _, p := range Payloads {
		byName[p.Member(loc.Base)] = p
	}
	b := NewBundle(loc.Base)
	for _, f := range zr.File {
		p, ok := byName[f.Name]
		if !ok {
			continue
		}
		data, err := readMember(f)
		if err != nil {
			return nil, fmt.Errorf("archive: read member %s: %w", f.Name, err)
		}
		b.Put(p, data)
	}
	return b, nil
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func registerDecompressor(zr *zip.Reader) {
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
}

func registerCompressor(zw *zip.Writer) {
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})
}
