// ABOUTME: Known-dirty plugin releases, matched by file name and CRC32
// ABOUTME: Lists are YAML in the masterlist layout; later lists amend earlier ones

package checker

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DirtyEntry describes one release of a plugin that needs cleaning.
// The counts are nil when the list does not give them.
type DirtyEntry struct {
	CRC    uint32 `json:"crc" yaml:"crc"`
	Util   string `json:"util,omitempty" yaml:"util,omitempty"`
	ITM    *int   `json:"itm,omitempty" yaml:"itm,omitempty"`
	UDR    *int   `json:"udr,omitempty" yaml:"udr,omitempty"`
	NAV    *int   `json:"nav,omitempty" yaml:"nav,omitempty"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

type dirtyFile struct {
	Plugins []struct {
		Name  string       `yaml:"name"`
		Dirty []DirtyEntry `yaml:"dirty"`
	} `yaml:"plugins"`
}

// DirtyList indexes dirty releases by lower-cased plugin name
type DirtyList struct {
	plugins map[string][]DirtyEntry
}

// NewDirtyList returns an empty list
func NewDirtyList() *DirtyList {
	return &DirtyList{plugins: make(map[string][]DirtyEntry)}
}

// LoadDirtyList reads and merges the lists at paths, in order
func LoadDirtyList(paths ...string) (*DirtyList, error) {
	list := NewDirtyList()
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open dirty list: %w", err)
		}
		err = list.Read(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return list, nil
}

// Read merges a YAML list into l. An entry whose CRC is already listed for
// the plugin replaces the existing one.
func (l *DirtyList) Read(r io.Reader) error {
	var doc dirtyFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode dirty list: %w", err)
	}

	for _, p := range doc.Plugins {
		if p.Name == "" {
			return fmt.Errorf("dirty list entry has no plugin name")
		}
		for _, entry := range p.Dirty {
			l.Add(p.Name, entry)
		}
	}
	return nil
}

// Add records entry as a dirty release of the named plugin
func (l *DirtyList) Add(name string, entry DirtyEntry) {
	key := strings.ToLower(name)
	entries := l.plugins[key]
	for i := range entries {
		if entries[i].CRC == entry.CRC {
			entries[i] = entry
			return
		}
	}
	l.plugins[key] = append(entries, entry)
}

// Lookup returns the entry for the plugin release with the given CRC.
// Plugin names match case-insensitively. A nil list matches nothing.
func (l *DirtyList) Lookup(name string, crc uint32) (DirtyEntry, bool) {
	if l == nil {
		return DirtyEntry{}, false
	}
	for _, entry := range l.plugins[strings.ToLower(name)] {
		if entry.CRC == crc {
			return entry, true
		}
	}
	return DirtyEntry{}, false
}

// Len returns the number of listed releases
func (l *DirtyList) Len() int {
	if l == nil {
		return 0
	}
	n := 0
	for _, entries := range l.plugins {
		n += len(entries)
	}
	return n
}
