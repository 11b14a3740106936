// ABOUTME: Builds synthetic plugin files for tests across packages
// ABOUTME: Produces TES4 headers, groups, and records in either header layout

package recordtest

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Record is one record to place in a group
type Record struct {
	Type   string
	FormID uint32
	Data   []byte
}

// Group is a group of records and nested groups
type Group struct {
	Label   string
	Type    int32
	Records []Record
	Groups  []Group
}

// Builder assembles a plugin file
type Builder struct {
	HeaderSize  int
	Flags       uint32
	Version     float32
	RecordCount uint32
	Author      string
	Description string
	Masters     []string
	Groups      []Group
}

// New returns a builder with 24-byte headers and version 1.0
func New() *Builder {
	return &Builder{HeaderSize: 24, Version: 1.0}
}

// WithFlags sets the file header flags
func (b *Builder) WithFlags(flags uint32) *Builder {
	b.Flags = flags
	return b
}

// WithVersion sets the HEDR version
func (b *Builder) WithVersion(v float32) *Builder {
	b.Version = v
	return b
}

// WithMasters sets the master list
func (b *Builder) WithMasters(masters ...string) *Builder {
	b.Masters = masters
	return b
}

// WithRecords adds a top-level group holding one record per form ID
func (b *Builder) WithRecords(typ string, formIDs ...uint32) *Builder {
	g := Group{Label: typ}
	for _, id := range formIDs {
		g.Records = append(g.Records, Record{Type: typ, FormID: id, Data: []byte{1, 2, 3, 4}})
	}
	b.Groups = append(b.Groups, g)
	return b
}

// Header encodes just the TES4 record
func (b *Builder) Header() []byte {
	var data bytes.Buffer

	hedr := make([]byte, 12)
	binary.LittleEndian.PutUint32(hedr[0:4], math.Float32bits(b.Version))
	binary.LittleEndian.PutUint32(hedr[4:8], b.RecordCount)
	binary.LittleEndian.PutUint32(hedr[8:12], 0x800)
	writeSubrecord(&data, "HEDR", hedr)

	if b.Author != "" {
		writeSubrecord(&data, "CNAM", cString(b.Author))
	}
	if b.Description != "" {
		writeSubrecord(&data, "SNAM", cString(b.Description))
	}
	for _, m := range b.Masters {
		writeSubrecord(&data, "MAST", cString(m))
		writeSubrecord(&data, "DATA", make([]byte, 8))
	}

	var out bytes.Buffer
	b.writeRecordHeader(&out, "TES4", uint32(data.Len()), b.Flags, 0)
	out.Write(data.Bytes())
	return out.Bytes()
}

// Bytes encodes the whole plugin
func (b *Builder) Bytes() []byte {
	var out bytes.Buffer
	out.Write(b.Header())
	for _, g := range b.Groups {
		out.Write(b.EncodeGroup(g))
	}
	return out.Bytes()
}

// EncodeGroup encodes a group with its contents
func (b *Builder) EncodeGroup(g Group) []byte {
	var body bytes.Buffer
	for _, r := range g.Records {
		b.writeRecordHeader(&body, r.Type, uint32(len(r.Data)), 0, r.FormID)
		body.Write(r.Data)
	}
	for _, child := range g.Groups {
		body.Write(b.EncodeGroup(child))
	}

	var out bytes.Buffer
	out.WriteString("GRUP")
	writeUint32(&out, uint32(b.HeaderSize+body.Len()))
	out.Write(label(g.Label))
	writeUint32(&out, uint32(g.Type))
	out.Write(make([]byte, b.HeaderSize-16))
	out.Write(body.Bytes())
	return out.Bytes()
}

func (b *Builder) writeRecordHeader(w *bytes.Buffer, typ string, size, flags, formID uint32) {
	w.Write(label(typ))
	writeUint32(w, size)
	writeUint32(w, flags)
	writeUint32(w, formID)
	w.Write(make([]byte, b.HeaderSize-16))
}

func writeSubrecord(w *bytes.Buffer, typ string, payload []byte) {
	w.Write(label(typ))
	var size [2]byte
	binary.LittleEndian.PutUint16(size[:], uint16(len(payload)))
	w.Write(size[:])
	w.Write(payload)
}

func writeUint32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func label(s string) []byte {
	out := make([]byte, 4)
	copy(out, s)
	return out
}

func cString(s string) []byte {
	return append([]byte(s), 0)
}
