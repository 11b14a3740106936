// ABOUTME: Streaming walk over a plugin's groups and records with callbacks
// ABOUTME: Record data is skipped, so memory stays bounded by the buffer size

package record

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Callbacks receive decode events in file order. Returning an error from a
// callback stops the walk and returns that error.
type Callbacks struct {
	// OnHeader is called once with the decoded file header
	OnHeader func(h Header) error

	// OnGroup is called for each group, nested ones included
	OnGroup func(g GroupHeader) error

	// OnRecord is called for each record inside a group
	OnRecord func(r RecordHeader) error

	// OnProgress is called after each top-level group
	OnProgress func(bytesRead int64, recordsProcessed int64)
}

// walker holds the state of one walk
type walker struct {
	d       *Decoder
	rd      *reader
	cb      Callbacks
	buf     []byte
	records int64
}

// Walk streams a plugin through cb. With a header-only option the walk stops
// after OnHeader and reads nothing past the file header.
func (d *Decoder) Walk(r io.Reader, opts ParseOptions, cb Callbacks) error {
	if d.HeaderSize != 20 && d.HeaderSize != 24 {
		return fmt.Errorf("unsupported record header size %d", d.HeaderSize)
	}

	w := &walker{
		d:   d,
		rd:  newReader(r),
		cb:  cb,
		buf: make([]byte, d.HeaderSize),
	}

	if ok, err := w.rd.atEOF(); err != nil {
		return err
	} else if ok {
		return newDecodeError(KindTruncated, 0, "empty input")
	}

	h, err := d.readHeader(w.rd)
	if err != nil {
		return err
	}
	if cb.OnHeader != nil {
		if err := cb.OnHeader(h); err != nil {
			return err
		}
	}
	if opts.LoadHeaderOnly {
		return nil
	}

	for {
		done, err := w.rd.atEOF()
		if err != nil {
			return err
		}
		if done {
			break
		}

		start := w.rd.pos
		if err := w.rd.readFull(w.buf, "top-level group header"); err != nil {
			return err
		}
		if string(w.buf[0:4]) != typeGroup {
			return newDecodeError(KindMalformedRecord, start, "expected top-level %s, found %q", typeGroup, w.buf[0:4])
		}
		if err := w.group(start, 0, -1); err != nil {
			return err
		}

		if cb.OnProgress != nil {
			cb.OnProgress(w.rd.pos, w.records)
		}
	}

	return nil
}

// group handles a group whose header is in w.buf. parentEnd is -1 for
// top-level groups, which are bounded only by the input.
func (w *walker) group(start int64, depth int, parentEnd int64) error {
	g := GroupHeader{
		Offset:    start,
		Size:      binary.LittleEndian.Uint32(w.buf[4:8]),
		GroupType: int32(binary.LittleEndian.Uint32(w.buf[12:16])),
		Depth:     depth,
	}
	copy(g.Label[:], w.buf[8:12])

	if int64(g.Size) < int64(w.d.HeaderSize) {
		return newDecodeError(KindMalformedRecord, start, "group size %d smaller than its header", g.Size)
	}
	end := start + int64(g.Size)
	if parentEnd >= 0 && end > parentEnd {
		return newDecodeError(KindMalformedRecord, start, "group ends at %d past its parent's end %d", end, parentEnd)
	}

	if w.cb.OnGroup != nil {
		if err := w.cb.OnGroup(g); err != nil {
			return err
		}
	}

	for w.rd.pos < end {
		entryStart := w.rd.pos
		if end-entryStart < int64(w.d.HeaderSize) {
			return newDecodeError(KindMalformedRecord, entryStart, "%d bytes left in group, too few for an entry header", end-entryStart)
		}
		if err := w.rd.readFull(w.buf, "entry header"); err != nil {
			return err
		}

		if string(w.buf[0:4]) == typeGroup {
			if err := w.group(entryStart, depth+1, end); err != nil {
				return err
			}
			continue
		}

		if err := w.record(entryStart, end); err != nil {
			return err
		}
	}

	return nil
}

// record handles a record whose header is in w.buf
func (w *walker) record(start int64, groupEnd int64) error {
	var rh RecordHeader
	rh.Offset = start
	copy(rh.Type[:], w.buf[0:4])
	rh.DataSize = binary.LittleEndian.Uint32(w.buf[4:8])
	rh.Flags = binary.LittleEndian.Uint32(w.buf[8:12])
	rh.FormID = FormID(binary.LittleEndian.Uint32(w.buf[12:16]))

	if !validType(rh.Type[:]) {
		return newDecodeError(KindMalformedRecord, start, "invalid record type %q", rh.Type[:])
	}
	if w.rd.pos+int64(rh.DataSize) > groupEnd {
		return newDecodeError(KindMalformedRecord, start, "%s record %s data overruns its group", rh.TypeString(), rh.FormID)
	}

	w.records++
	if w.cb.OnRecord != nil {
		if err := w.cb.OnRecord(rh); err != nil {
			return err
		}
	}

	return w.rd.discard(int64(rh.DataSize), rh.TypeString()+" record data")
}
