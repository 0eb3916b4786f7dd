// Package archive reads Ragnarok Online GRF archives, where RSM models are
// usually shipped.
package archive

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/Faultbox/rigview/internal/encoding"
)

// GRF archive errors.
var (
	ErrInvalidMagic       = errors.New("invalid GRF magic")
	ErrUnsupportedVersion = errors.New("unsupported GRF version")
	ErrCorrupt            = errors.New("corrupt GRF archive")
	ErrEncrypted          = errors.New("encrypted GRF entries are not supported")
)

const (
	grfMagic      = "Master of Magic"
	grfVersion    = 0x200
	headerSize    = 46
	entryTailSize = 17

	flagFile      = 0x01
	flagEncrypted = 0x02 | 0x04

	// maxEntrySize bounds allocations driven by table values.
	maxEntrySize = 1 << 30
)

// Header is the fixed GRF header.
type Header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Entry is a file stored in the archive.
type Entry struct {
	Name             string
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Archive is an opened GRF archive. It is safe for concurrent reads.
type Archive struct {
	r       io.ReaderAt
	closer  io.Closer
	header  Header
	entries map[string]*Entry
}

// Open opens a GRF archive on disk.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	a, err := NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.closer = f
	return a, nil
}

// NewReader reads the header and file table of a GRF archive of size bytes.
func NewReader(r io.ReaderAt, size int64) (*Archive, error) {
	a := &Archive{r: r, entries: make(map[string]*Entry)}
	if err := a.readHeader(size); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if err := a.readFileTable(size); err != nil {
		return nil, fmt.Errorf("reading file table: %w", err)
	}
	return a, nil
}

// Close closes the underlying file, if any.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

func (a *Archive) readHeader(size int64) error {
	if size < headerSize {
		return fmt.Errorf("%w: file too small", ErrCorrupt)
	}
	sr := io.NewSectionReader(a.r, 0, headerSize)
	if err := binary.Read(sr, binary.LittleEndian, &a.header); err != nil {
		return err
	}
	if string(a.header.Magic[:]) != grfMagic {
		return ErrInvalidMagic
	}
	if a.header.Version != grfVersion {
		return fmt.Errorf("%w: 0x%x", ErrUnsupportedVersion, a.header.Version)
	}
	return nil
}

func (a *Archive) readFileTable(size int64) error {
	tableOffset := int64(a.header.TableOffset) + headerSize
	if tableOffset+8 > size {
		return fmt.Errorf("%w: table offset %d past end of file", ErrCorrupt, tableOffset)
	}

	var sizes [2]uint32 // compressed, uncompressed
	if err := binary.Read(io.NewSectionReader(a.r, tableOffset, 8), binary.LittleEndian, &sizes); err != nil {
		return err
	}
	if int64(sizes[0]) > size-tableOffset-8 || sizes[1] > maxEntrySize {
		return fmt.Errorf("%w: file table sizes %d/%d", ErrCorrupt, sizes[0], sizes[1])
	}

	table, err := inflate(io.NewSectionReader(a.r, tableOffset+8, int64(sizes[0])), sizes[1])
	if err != nil {
		return fmt.Errorf("%w: file table: %v", ErrCorrupt, err)
	}

	count := int64(a.header.FileCount) - int64(a.header.Seed) - 7
	for i := int64(0); i < count && len(table) > 0; i++ {
		end := bytes.IndexByte(table, 0)
		if end < 0 || end+1+entryTailSize > len(table) {
			return fmt.Errorf("%w: entry %d truncated", ErrCorrupt, i)
		}
		name := encoding.DecodeName(table[:end])
		tail := table[end+1:]
		table = tail[entryTailSize:]

		e := &Entry{
			Name:             normalizePath(name),
			CompressedSize:   binary.LittleEndian.Uint32(tail[0:]),
			AlignedSize:      binary.LittleEndian.Uint32(tail[4:]),
			UncompressedSize: binary.LittleEndian.Uint32(tail[8:]),
			Flags:            tail[12],
			Offset:           binary.LittleEndian.Uint32(tail[13:]),
		}
		// Directory entries have no file flag.
		if e.Flags&flagFile != 0 {
			a.entries[e.Name] = e
		}
	}
	return nil
}

// List returns all file paths in the archive, sorted.
func (a *Archive) List() []string {
	names := make([]string, 0, len(a.entries))
	for name := range a.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Contains reports whether the archive holds path. Lookups ignore case and
// accept either slash direction.
func (a *Archive) Contains(path string) bool {
	_, ok := a.entries[normalizePath(path)]
	return ok
}

// Stat returns the entry for path.
func (a *Archive) Stat(path string) (*Entry, bool) {
	e, ok := a.entries[normalizePath(path)]
	return e, ok
}

// ReadFile returns the uncompressed contents of path. Missing files give an
// error matching fs.ErrNotExist.
func (a *Archive) ReadFile(path string) ([]byte, error) {
	e, ok := a.entries[normalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	}
	if e.Flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEncrypted)
	}
	if e.UncompressedSize > maxEntrySize || e.CompressedSize > e.AlignedSize {
		return nil, fmt.Errorf("%s: %w: entry sizes", path, ErrCorrupt)
	}

	section := io.NewSectionReader(a.r, int64(e.Offset)+headerSize, int64(e.AlignedSize))
	if e.CompressedSize == e.UncompressedSize {
		data := make([]byte, e.UncompressedSize)
		if _, err := io.ReadFull(section, data); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", path, ErrCorrupt, err)
		}
		return data, nil
	}

	data, err := inflate(io.NewSectionReader(section, 0, int64(e.CompressedSize)), e.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrCorrupt, err)
	}
	return data, nil
}

func inflate(r io.Reader, size uint32) ([]byte, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.ToLower(path)
}
