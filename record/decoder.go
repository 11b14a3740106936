// ABOUTME: Decoder for the TES4-family plugin format shared by Bethesda games
// ABOUTME: Reads the file header and, on request, every group and record header

package record

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/prateek/esplens/game"
)

const (
	typeHeader = "TES4"
	typeGroup  = "GRUP"

	subrecordHeaderSize = 6

	// maxHeaderDataSize guards allocation for the file header's data
	maxHeaderDataSize = 1 << 24
)

// Decoder decodes plugins of one record header layout
type Decoder struct {
	// HeaderSize is the size of record and group headers: 20 for Oblivion, 24 for later games
	HeaderSize int
}

// NewDecoder returns a decoder for the game's header layout
func NewDecoder(id game.ID) *Decoder {
	return &Decoder{HeaderSize: id.Rules().RecordHeaderSize}
}

// Decode reads a plugin and returns its decoded state.
// On failure the returned error is a *DecodeError unless the reader itself failed.
func (d *Decoder) Decode(r io.Reader, opts ParseOptions) (*State, error) {
	state := &State{HeaderOnly: opts.LoadHeaderOnly}
	if !opts.LoadHeaderOnly {
		state.FormIDs = make([]FormID, 0)
	}

	err := d.Walk(r, opts, Callbacks{
		OnHeader: func(h Header) error {
			state.Header = h
			return nil
		},
		OnGroup: func(GroupHeader) error {
			state.Groups++
			return nil
		},
		OnRecord: func(rh RecordHeader) error {
			state.Records++
			state.FormIDs = append(state.FormIDs, rh.FormID)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// reader tracks the byte offset of a buffered stream
type reader struct {
	r   *bufio.Reader
	pos int64
}

func newReader(r io.Reader) *reader {
	return &reader{r: bufio.NewReaderSize(r, 64*1024)}
}

// readFull fills buf. A stream that ends early yields a truncation error;
// other read failures are returned as they are.
func (rd *reader) readFull(buf []byte, what string) error {
	n, err := io.ReadFull(rd.r, buf)
	rd.pos += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return newDecodeError(KindTruncated, rd.pos, "reading %s: got %d of %d bytes", what, n, len(buf))
		}
		return fmt.Errorf("reading %s at offset %d: %w", what, rd.pos, err)
	}
	return nil
}

// discard skips n bytes of record data
func (rd *reader) discard(n int64, what string) error {
	for n > 0 {
		chunk := n
		if chunk > math.MaxInt32 {
			chunk = math.MaxInt32
		}
		skipped, err := rd.r.Discard(int(chunk))
		rd.pos += int64(skipped)
		n -= int64(skipped)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return newDecodeError(KindTruncated, rd.pos, "skipping %s: %d bytes missing", what, n)
			}
			return fmt.Errorf("skipping %s at offset %d: %w", what, rd.pos, err)
		}
	}
	return nil
}

// atEOF reports whether the stream has no more bytes
func (rd *reader) atEOF() (bool, error) {
	_, err := rd.r.Peek(1)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, fmt.Errorf("reading at offset %d: %w", rd.pos, err)
}

// readHeader decodes the TES4 record that starts every plugin
func (d *Decoder) readHeader(rd *reader) (Header, error) {
	var h Header

	buf := make([]byte, d.HeaderSize)
	if err := rd.readFull(buf, "file header"); err != nil {
		return h, err
	}
	if string(buf[0:4]) != typeHeader {
		return h, newDecodeError(KindMalformedHeader, 0, "expected %s record, found %q", typeHeader, buf[0:4])
	}

	dataSize := binary.LittleEndian.Uint32(buf[4:8])
	h.Flags = binary.LittleEndian.Uint32(buf[8:12])
	if dataSize > maxHeaderDataSize {
		return h, newDecodeError(KindMalformedHeader, 4, "header data size %d too large", dataSize)
	}

	data := make([]byte, dataSize)
	if err := rd.readFull(data, "file header data"); err != nil {
		return h, err
	}
	if err := parseHeaderSubrecords(&h, data, int64(d.HeaderSize)); err != nil {
		return h, err
	}
	return h, nil
}

// parseHeaderSubrecords fills h from the subrecords of the file header
func parseHeaderSubrecords(h *Header, data []byte, base int64) error {
	var (
		offset       int64
		extendedSize uint32
		haveExtended bool
	)

	for len(data) > 0 {
		if len(data) < subrecordHeaderSize {
			return newDecodeError(KindMalformedHeader, base+offset, "subrecord header needs %d bytes, %d left", subrecordHeaderSize, len(data))
		}
		typ := string(data[0:4])
		size := uint32(binary.LittleEndian.Uint16(data[4:6]))
		if haveExtended {
			size = extendedSize
			haveExtended = false
		}
		data = data[subrecordHeaderSize:]
		offset += subrecordHeaderSize

		if uint64(size) > uint64(len(data)) {
			return newDecodeError(KindMalformedHeader, base+offset, "subrecord %s size %d exceeds remaining %d bytes", typ, size, len(data))
		}
		payload := data[:size]

		switch typ {
		case "XXXX":
			if size != 4 {
				return newDecodeError(KindMalformedHeader, base+offset, "XXXX subrecord has size %d", size)
			}
			extendedSize = binary.LittleEndian.Uint32(payload)
			haveExtended = true
		case "HEDR":
			if size < 12 {
				return newDecodeError(KindMalformedHeader, base+offset, "HEDR subrecord has size %d", size)
			}
			h.Version = math.Float32frombits(binary.LittleEndian.Uint32(payload[0:4]))
			h.RecordCount = binary.LittleEndian.Uint32(payload[4:8])
			h.NextObjectID = binary.LittleEndian.Uint32(payload[8:12])
		case "CNAM":
			h.Author = cString(payload)
		case "SNAM":
			h.Description = cString(payload)
		case "MAST":
			h.Masters = append(h.Masters, cString(payload))
		}

		data = data[size:]
		offset += int64(size)
	}

	if haveExtended {
		return newDecodeError(KindMalformedHeader, base+offset, "XXXX subrecord not followed by a subrecord")
	}
	return nil
}

// cString trims a NUL-terminated string
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// validType reports whether a record type is four characters of [A-Z0-9_]
func validType(t []byte) bool {
	for _, c := range t {
		if !(c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	return true
}
