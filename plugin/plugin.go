// ABOUTME: Plugin aggregate binding a game and a source to decoded plugin state
// ABOUTME: Parses from memory, readers, or its own path and commits state only on success

// Package plugin classifies Bethesda plugin files against per-game rules.
//
// A Plugin starts unparsed. Parse, ParseReader, and ParseFile decode into a
// staging value and replace the previous state only when decoding succeeds,
// so a failed parse never disturbs what an earlier parse produced. A Plugin
// is not safe for concurrent use; independent Plugins share nothing.
package plugin

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prateek/esplens/game"
	"github.com/prateek/esplens/record"
)

// ParseOptions selects header-only or whole-plugin decoding
type ParseOptions = record.ParseOptions

// HeaderOnly decodes just enough to read header flags, version, counts and masters
func HeaderOnly() ParseOptions {
	return record.HeaderOnly()
}

// WholePlugin decodes every record so validity checks can run
func WholePlugin() ParseOptions {
	return record.WholePlugin()
}

// Decoder turns plugin bytes into decoded state
type Decoder interface {
	Decode(r io.Reader, opts ParseOptions) (*record.State, error)
}

// Ensure the record decoder satisfies Decoder
var _ Decoder = (*record.Decoder)(nil)

// ParseState is how much of the plugin the last successful parse decoded
type ParseState int

const (
	Unparsed ParseState = iota
	HeaderParsed
	FullyParsed
)

func (s ParseState) String() string {
	switch s {
	case HeaderParsed:
		return "header-parsed"
	case FullyParsed:
		return "fully-parsed"
	default:
		return "unparsed"
	}
}

// Option configures a Plugin
type Option func(*Plugin)

// WithDecoder replaces the record decoder chosen from the game's rules
func WithDecoder(d Decoder) Option {
	return func(p *Plugin) {
		p.decoder = d
	}
}

// Plugin is a single plugin file and whatever its last successful parse decoded
type Plugin struct {
	game    game.ID
	path    string
	decoder Decoder
	data    *record.State
}

// New creates an unparsed plugin for a supported game
func New(id game.ID, path string, opts ...Option) (*Plugin, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidGame, id)
	}

	p := &Plugin{
		game:    id,
		path:    path,
		decoder: record.NewDecoder(id),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewFromName creates an unparsed plugin from a game's canonical name
func NewFromName(gameName, path string, opts ...Option) (*Plugin, error) {
	id, err := game.Parse(gameName)
	if err != nil {
		return nil, err
	}
	return New(id, path, opts...)
}

// Parse decodes an in-memory plugin
func (p *Plugin) Parse(data []byte, opts ParseOptions) error {
	return p.ParseReader(bytes.NewReader(data), opts)
}

// ParseReader decodes a plugin from r. Decode failures are returned as
// *ParseError and reader failures as *IOError.
func (p *Plugin) ParseReader(r io.Reader, opts ParseOptions) error {
	tr := &trackingReader{r: r}

	staged, err := p.decoder.Decode(tr, opts)
	if err != nil {
		return classify(p.path, err, tr.err)
	}
	if staged == nil {
		return &ParseError{Path: p.path, Err: errors.New("decoder returned no state")}
	}
	if !opts.LoadHeaderOnly && staged.FormIDs == nil {
		staged.FormIDs = []record.FormID{}
	}
	staged.HeaderOnly = opts.LoadHeaderOnly

	p.data = staged
	return nil
}

// ParseFile decodes the plugin at the Plugin's path
func (p *Plugin) ParseFile(opts ParseOptions) error {
	f, err := os.Open(p.path)
	if err != nil {
		return &IOError{Path: p.path, Op: "open", Err: err}
	}
	defer f.Close()

	return p.ParseReader(f, opts)
}

// Game returns the game the plugin is classified against
func (p *Plugin) Game() game.ID {
	return p.game
}

// Path returns the plugin's source path
func (p *Plugin) Path() string {
	return p.path
}

// Filename returns the last element of the plugin's path
func (p *Plugin) Filename() string {
	return filepath.Base(p.path)
}

// State reports the depth of the last successful parse
func (p *Plugin) State() ParseState {
	switch {
	case p.data == nil:
		return Unparsed
	case p.data.HeaderOnly:
		return HeaderParsed
	default:
		return FullyParsed
	}
}

// Masters returns the plugin's master filenames in declaration order
func (p *Plugin) Masters() []string {
	if p.data == nil {
		return nil
	}
	return append([]string(nil), p.data.Header.Masters...)
}

// IsMasterFile reports whether the header's master flag is set
func (p *Plugin) IsMasterFile() bool {
	return p.data != nil && p.data.Header.HasFlag(game.MasterFlag)
}

// HeaderVersion returns the HEDR version, or 0 when unparsed
func (p *Plugin) HeaderVersion() float32 {
	if p.data == nil {
		return 0
	}
	return p.data.Header.Version
}

// RecordCount returns the record and group count the header declares
func (p *Plugin) RecordCount() uint32 {
	if p.data == nil {
		return 0
	}
	return p.data.Header.RecordCount
}

// Author returns the header's author field
func (p *Plugin) Author() string {
	if p.data == nil {
		return ""
	}
	return p.data.Header.Author
}

// Description returns the header's description field
func (p *Plugin) Description() string {
	if p.data == nil {
		return ""
	}
	return p.data.Header.Description
}

// FormIDs returns the form ID of every record, or nil without a whole-plugin parse
func (p *Plugin) FormIDs() []record.FormID {
	if p.State() != FullyParsed {
		return nil
	}
	return append([]record.FormID(nil), p.data.FormIDs...)
}

// trackingReader remembers the first failure of the underlying reader
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(b []byte) (int, error) {
	n, err := t.r.Read(b)
	if err != nil && !errors.Is(err, io.EOF) && t.err == nil {
		t.err = err
	}
	return n, err
}
