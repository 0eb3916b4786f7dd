package archive

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/Faultbox/rigview/internal/encoding"
)

// File is an archive entry to write.
type File struct {
	Name string
	Data []byte
}

// Write writes a version 0x200 archive holding files, all zlib compressed.
// Names are stored EUC-KR encoded with backslashes as the game client
// expects.
func Write(w io.Writer, files []File) error {
	var body, table bytes.Buffer
	for _, f := range files {
		packed, err := deflate(f.Data)
		if err != nil {
			return fmt.Errorf("compressing %s: %w", f.Name, err)
		}
		// Equal sizes mark a stored entry.
		if len(packed) == len(f.Data) {
			packed = f.Data
		}
		offset := uint32(body.Len())
		body.Write(packed)

		table.Write(toArchiveName(f.Name))
		table.WriteByte(0)
		var tail [entryTailSize]byte
		binary.LittleEndian.PutUint32(tail[0:], uint32(len(packed)))
		binary.LittleEndian.PutUint32(tail[4:], uint32(len(packed)))
		binary.LittleEndian.PutUint32(tail[8:], uint32(len(f.Data)))
		tail[12] = flagFile
		binary.LittleEndian.PutUint32(tail[13:], offset)
		table.Write(tail[:])
	}

	packedTable, err := deflate(table.Bytes())
	if err != nil {
		return fmt.Errorf("compressing file table: %w", err)
	}

	header := Header{
		TableOffset: uint32(body.Len()),
		FileCount:   uint32(len(files)) + 7,
		Version:     grfVersion,
	}
	copy(header.Magic[:], grfMagic)

	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return err
	}
	sizes := [2]uint32{uint32(len(packedTable)), uint32(table.Len())}
	if err := binary.Write(w, binary.LittleEndian, sizes); err != nil {
		return err
	}
	_, err = w.Write(packedTable)
	return err
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toArchiveName(name string) []byte {
	return encoding.EncodeName(strings.ReplaceAll(name, "/", "\\"))
}
