package datafile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/roach88/spotview/internal/record"
)

const (
	sidecarMagic   uint32 = 0x53505449 // "SPTI"
	sidecarVersion uint16 = 1

	sidecarHeaderSize = 4 + 2 + 2 + 4 + 8
	sidecarEntrySize  = 4 + 8 + 8
)

// errStaleSidecar marks a sidecar that does not describe the data file.
var errStaleSidecar = errors.New("index sidecar does not match data file")

// SidecarPath returns the path of the index sidecar for a data file.
func SidecarPath(path string) string {
	return path + ".idx"
}

// WriteSidecar persists ix next to the data file, zstd-compressed.
func WriteSidecar(path string, hdr Header, dataSize int64, ix *Index) error {
	tmp := SidecarPath(path) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create sidecar: %w", err)
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("create zstd encoder: %w", err)
	}

	buf := make([]byte, 0, sidecarHeaderSize)
	buf = binary.LittleEndian.AppendUint32(buf, sidecarMagic)
	buf = binary.LittleEndian.AppendUint16(buf, sidecarVersion)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(hdr.Kind))
	buf = binary.LittleEndian.AppendUint32(buf, hdr.Count)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(dataSize))
	_, werr := enc.Write(buf)

	eb := make([]byte, 0, sidecarEntrySize)
	for _, e := range ix.Entries() {
		if werr != nil {
			break
		}
		eb = eb[:0]
		eb = binary.LittleEndian.AppendUint32(eb, uint32(e.ID))
		eb = binary.LittleEndian.AppendUint64(eb, uint64(e.Offset))
		eb = binary.LittleEndian.AppendUint64(eb, uint64(e.Length))
		_, werr = enc.Write(eb)
	}

	if cerr := enc.Close(); werr == nil {
		werr = cerr
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(tmp)
		return fmt.Errorf("write sidecar: %w", werr)
	}
	return os.Rename(tmp, SidecarPath(path))
}

// LoadSidecar reads the index sidecar of a data file. It returns
// (nil, nil) when there is no sidecar and errStaleSidecar when the sidecar
// does not describe a file with the given header and size.
func LoadSidecar(path string, hdr Header, dataSize int64) (*Index, error) {
	f, err := os.Open(SidecarPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	hb := make([]byte, sidecarHeaderSize)
	if _, err := io.ReadFull(dec, hb); err != nil {
		return nil, fmt.Errorf("%w: %v", errStaleSidecar, err)
	}
	if binary.LittleEndian.Uint32(hb[0:4]) != sidecarMagic ||
		binary.LittleEndian.Uint16(hb[4:6]) != sidecarVersion ||
		record.Kind(binary.LittleEndian.Uint16(hb[6:8])) != hdr.Kind ||
		binary.LittleEndian.Uint32(hb[8:12]) != hdr.Count ||
		int64(binary.LittleEndian.Uint64(hb[12:20])) != dataSize {
		return nil, errStaleSidecar
	}

	entries := make([]Entry, 0, min(int64(hdr.Count), dataSize/minRecordLength+1))
	eb := make([]byte, sidecarEntrySize)
	var next int64
	for i := uint32(0); i < hdr.Count; i++ {
		if _, err := io.ReadFull(dec, eb); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", errStaleSidecar, i, err)
		}
		e := Entry{
			ID:     record.ID(int32(binary.LittleEndian.Uint32(eb[0:4]))),
			Offset: int64(binary.LittleEndian.Uint64(eb[4:12])),
			Length: int64(binary.LittleEndian.Uint64(eb[12:20])),
		}
		// Entries must tile the body exactly, in file order.
		if e.Offset != next || e.Length < minRecordLength {
			return nil, fmt.Errorf("%w: entry %d is not contiguous", errStaleSidecar, i)
		}
		next = e.End()
		entries = append(entries, e)
	}
	if next != dataSize-HeaderSize {
		return nil, fmt.Errorf("%w: entries cover %d of %d body bytes", errStaleSidecar, next, dataSize-HeaderSize)
	}

	ix, err := NewIndex(entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errStaleSidecar, err)
	}
	return ix, nil
}

// IsStaleSidecar reports whether err came from a sidecar that could not be
// trusted.
func IsStaleSidecar(err error) bool {
	return errors.Is(err, errStaleSidecar)
}
