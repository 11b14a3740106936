// ABOUTME: Tests for the plugin record decoder
// ABOUTME: Covers header fields, parse depth, truncation, and malformed structure

package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/prateek/esplens/game"
	"github.com/prateek/esplens/record/recordtest"
)

// TestDecodeHeaderFields tests that TES4 subrecords land in Header
func TestDecodeHeaderFields(t *testing.T) {
	b := recordtest.New().WithFlags(0x201).WithVersion(1.71).WithMasters("Skyrim.esm", "Update.esm")
	b.Author = "someone"
	b.Description = "a test plugin"
	b.RecordCount = 7

	state, err := NewDecoder(game.SkyrimSE).Decode(bytes.NewReader(b.Bytes()), HeaderOnly())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	h := state.Header
	if h.Flags != 0x201 {
		t.Errorf("Flags = %#x, want 0x201", h.Flags)
	}
	if h.Version != 1.71 {
		t.Errorf("Version = %v, want 1.71", h.Version)
	}
	if h.RecordCount != 7 {
		t.Errorf("RecordCount = %d, want 7", h.RecordCount)
	}
	if h.Author != "someone" || h.Description != "a test plugin" {
		t.Errorf("Author/Description = %q/%q", h.Author, h.Description)
	}
	if len(h.Masters) != 2 || h.Masters[0] != "Skyrim.esm" || h.Masters[1] != "Update.esm" {
		t.Errorf("Masters = %v", h.Masters)
	}
	if !state.HeaderOnly {
		t.Error("HeaderOnly should be set")
	}
	if state.FormIDs != nil {
		t.Errorf("FormIDs should be nil after header-only decode, got %v", state.FormIDs)
	}
}

// TestDecodeWholePlugin tests that every record's form ID is collected
func TestDecodeWholePlugin(t *testing.T) {
	b := recordtest.New().WithMasters("Fallout4.esm")
	b.Groups = []recordtest.Group{
		{
			Label: "WEAP",
			Records: []recordtest.Record{
				{Type: "WEAP", FormID: 0x00000801, Data: []byte("abc")},
				{Type: "WEAP", FormID: 0x01000802},
			},
		},
		{
			Label: "CELL",
			Groups: []recordtest.Group{
				{
					Type:    2,
					Records: []recordtest.Record{{Type: "CELL", FormID: 0x01000900, Data: make([]byte, 40)}},
					Groups: []recordtest.Group{
						{Type: 8, Records: []recordtest.Record{{Type: "REFR", FormID: 0x01000901}}},
					},
				},
			},
		},
	}

	state, err := NewDecoder(game.Fallout4).Decode(bytes.NewReader(b.Bytes()), WholePlugin())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	want := []FormID{0x00000801, 0x01000802, 0x01000900, 0x01000901}
	if len(state.FormIDs) != len(want) {
		t.Fatalf("FormIDs = %v, want %v", state.FormIDs, want)
	}
	for i := range want {
		if state.FormIDs[i] != want[i] {
			t.Errorf("FormIDs[%d] = %s, want %s", i, state.FormIDs[i], want[i])
		}
	}
	if state.Records != 4 {
		t.Errorf("Records = %d, want 4", state.Records)
	}
	if state.Groups != 4 {
		t.Errorf("Groups = %d, want 4", state.Groups)
	}
}

// TestDecodeEmptyPlugin tests a plugin with a header and no groups
func TestDecodeEmptyPlugin(t *testing.T) {
	data := recordtest.New().Bytes()

	state, err := NewDecoder(game.Starfield).Decode(bytes.NewReader(data), WholePlugin())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if state.FormIDs == nil || len(state.FormIDs) != 0 {
		t.Errorf("FormIDs = %v, want empty non-nil", state.FormIDs)
	}
}

// TestDecodeOblivionLayout tests 20-byte record headers
func TestDecodeOblivionLayout(t *testing.T) {
	b := recordtest.New().WithMasters("Oblivion.esm").WithRecords("NPC_", 0x01000ABC, 0x00000123)
	b.HeaderSize = 20

	state, err := NewDecoder(game.Oblivion).Decode(bytes.NewReader(b.Bytes()), WholePlugin())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(state.FormIDs) != 2 || state.FormIDs[0] != 0x01000ABC {
		t.Errorf("FormIDs = %v", state.FormIDs)
	}

	// The same bytes read with the wrong layout must not decode cleanly
	if _, err := NewDecoder(game.Skyrim).Decode(bytes.NewReader(b.Bytes()), WholePlugin()); err == nil {
		t.Error("expected error decoding 20-byte headers as 24-byte headers")
	}
}

// TestHeaderOnlyTruncation tests that header-only decoding needs exactly the header bytes
func TestHeaderOnlyTruncation(t *testing.T) {
	b := recordtest.New().WithMasters("Skyrim.esm").WithRecords("WEAP", 0x01000800)
	header := b.Header()
	full := b.Bytes()
	d := NewDecoder(game.SkyrimSE)

	if _, err := d.Decode(bytes.NewReader(full[:len(header)]), HeaderOnly()); err != nil {
		t.Fatalf("Decode() of exact header length error = %v", err)
	}

	_, err := d.Decode(bytes.NewReader(full[:len(header)-1]), HeaderOnly())
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("Decode() one byte short error = %v, want ErrTruncated", err)
	}
}

// TestDecodeErrors tests the error kind reported for broken input
func TestDecodeErrors(t *testing.T) {
	valid := recordtest.New().WithRecords("WEAP", 0x00000800, 0x00000801).Bytes()
	header := recordtest.New().Header()

	badType := append([]byte(nil), valid...)
	copy(badType[0:4], "TES3")

	notGroup := append([]byte(nil), header...)
	notGroup = append(notGroup, []byte("WEAP")...)
	notGroup = append(notGroup, make([]byte, 20)...)

	// A group whose size claims less than its own header
	tinyGroup := append([]byte(nil), header...)
	g := make([]byte, 24)
	copy(g, "GRUP")
	binary.LittleEndian.PutUint32(g[4:8], 10)
	tinyGroup = append(tinyGroup, g...)

	// A record whose data runs past its group
	overrun := append([]byte(nil), valid...)
	firstRecord := len(header) + 24
	binary.LittleEndian.PutUint32(overrun[firstRecord+4:firstRecord+8], 1000)

	badRecordType := append([]byte(nil), valid...)
	copy(badRecordType[firstRecord:firstRecord+4], "we@p")

	// HEDR declared with a short payload
	shortHedr := append([]byte(nil), header...)
	binary.LittleEndian.PutUint16(shortHedr[24+4:24+6], 4)

	tests := []struct {
		name string
		data []byte
		opts ParseOptions
		want error
	}{
		{"empty input", nil, HeaderOnly(), ErrTruncated},
		{"empty input whole", []byte{}, WholePlugin(), ErrTruncated},
		{"partial record header", header[:10], HeaderOnly(), ErrTruncated},
		{"wrong header type", badType, HeaderOnly(), ErrMalformedHeader},
		{"short HEDR", shortHedr, HeaderOnly(), ErrMalformedHeader},
		{"top-level record", notGroup, WholePlugin(), ErrMalformedRecord},
		{"group smaller than header", tinyGroup, WholePlugin(), ErrMalformedRecord},
		{"record overruns group", overrun, WholePlugin(), ErrMalformedRecord},
		{"invalid record type", badRecordType, WholePlugin(), ErrMalformedRecord},
		{"truncated group", valid[:len(valid)-2], WholePlugin(), ErrTruncated},
		{"truncated group header", valid[:len(header)+10], WholePlugin(), ErrTruncated},
	}

	d := NewDecoder(game.SkyrimSE)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Decode(bytes.NewReader(tt.data), tt.opts)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Errorf("error %T is not a *DecodeError", err)
			}
		})
	}
}

// TestNestedGroupOverrunsParent tests bound checking of nested groups
func TestNestedGroupOverrunsParent(t *testing.T) {
	b := recordtest.New()
	data := b.Header()
	inner := b.EncodeGroup(recordtest.Group{Records: []recordtest.Record{{Type: "REFR", FormID: 1}}})
	outer := b.EncodeGroup(recordtest.Group{Label: "CELL"})

	// Declare the outer group as containing the inner one, then inflate the inner size
	binary.LittleEndian.PutUint32(outer[4:8], uint32(len(outer)+len(inner)))
	binary.LittleEndian.PutUint32(inner[4:8], uint32(len(inner)+8))
	data = append(data, outer...)
	data = append(data, inner...)
	data = append(data, make([]byte, 8)...)

	_, err := NewDecoder(game.Skyrim).Decode(bytes.NewReader(data), WholePlugin())
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("error = %v, want ErrMalformedRecord", err)
	}
}

// TestExtendedSubrecordSize tests XXXX handling in the header
func TestExtendedSubrecordSize(t *testing.T) {
	var data bytes.Buffer
	hedr := recordtest.New().Header()[24:]
	data.Write(hedr)

	// XXXX announces the size of the following MAST subrecord
	data.WriteString("XXXX")
	data.Write([]byte{4, 0})
	data.Write([]byte{11, 0, 0, 0})
	data.WriteString("MAST")
	data.Write([]byte{0, 0})
	data.WriteString("Master.esm\x00")

	var h Header
	if err := parseHeaderSubrecords(&h, data.Bytes(), 24); err != nil {
		t.Fatalf("parseHeaderSubrecords() error = %v", err)
	}
	if len(h.Masters) != 1 || h.Masters[0] != "Master.esm" {
		t.Errorf("Masters = %v, want [Master.esm]", h.Masters)
	}

	dangling := append(append([]byte(nil), hedr...), []byte("XXXX\x04\x00\x0b\x00\x00\x00")...)
	if err := parseHeaderSubrecords(&h, dangling, 24); !errors.Is(err, ErrMalformedHeader) {
		t.Errorf("dangling XXXX error = %v, want ErrMalformedHeader", err)
	}
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

// TestReaderFailureIsNotDecodeError tests that I/O failures pass through unchanged
func TestReaderFailureIsNotDecodeError(t *testing.T) {
	ioErr := errors.New("disk on fire")
	r := &failingReader{data: recordtest.New().Header()[:30], err: ioErr}

	_, err := NewDecoder(game.Fallout4).Decode(r, HeaderOnly())
	if !errors.Is(err, ioErr) {
		t.Fatalf("error = %v, want wrapped %v", err, ioErr)
	}
	if KindOf(err) != 0 {
		t.Errorf("KindOf() = %v, want 0", KindOf(err))
	}
}

// TestUnsupportedHeaderSize tests decoders built for invalid games
func TestUnsupportedHeaderSize(t *testing.T) {
	d := NewDecoder(game.ID(0))
	if _, err := d.Decode(bytes.NewReader(recordtest.New().Bytes()), WholePlugin()); err == nil {
		t.Error("expected error for zero header size")
	}
}

// TestHeaderOnlyDoesNotNeedBody tests that header-only parsing ignores a broken body
func TestHeaderOnlyDoesNotNeedBody(t *testing.T) {
	data := append(recordtest.New().WithFlags(0x200).Header(), []byte("garbage that is not a group")...)

	state, err := NewDecoder(game.Fallout4).Decode(io.MultiReader(bytes.NewReader(data)), HeaderOnly())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if state.Header.Flags != 0x200 {
		t.Errorf("Flags = %#x, want 0x200", state.Header.Flags)
	}
}

func TestFormIDParts(t *testing.T) {
	f := FormID(0x02ABCDEF)
	if f.ModIndex() != 0x02 {
		t.Errorf("ModIndex() = %#x", f.ModIndex())
	}
	if f.ObjectIndex() != 0xABCDEF {
		t.Errorf("ObjectIndex() = %#x", f.ObjectIndex())
	}
	if !f.IsOverride(3) || f.IsOverride(2) {
		t.Error("IsOverride() wrong for mod index 2")
	}
	if f.String() != "02ABCDEF" {
		t.Errorf("String() = %q", f.String())
	}
}
