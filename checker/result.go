// ABOUTME: Per-plugin check results and the warnings a check can raise
// ABOUTME: Turns a parsed plugin into claimed subtypes, counts, and warnings

package checker

import (
	"path/filepath"
	"strings"

	"github.com/prateek/esplens/plugin"
)

// Warning names a problem found in a plugin
type Warning string

const (
	// WarnLightOutOfRange is raised for light plugins with records outside the light range
	WarnLightOutOfRange Warning = "light-out-of-range"

	// WarnMediumOutOfRange is raised for medium plugins with records outside the medium range
	WarnMediumOutOfRange Warning = "medium-out-of-range"

	// WarnUpdateAddsRecords is raised for update plugins that define records of their own
	WarnUpdateAddsRecords Warning = "update-adds-records"

	// WarnCouldBeLight is raised for full plugins whose records would all fit a light plugin
	WarnCouldBeLight Warning = "could-be-light"

	// WarnParseError is raised when the plugin could not be decoded
	WarnParseError Warning = "parse-error"

	// WarnUnreadable is raised when the plugin file could not be read
	WarnUnreadable Warning = "unreadable"

	// WarnDirty is raised when the plugin's name and CRC32 match a known dirty release
	WarnDirty Warning = "dirty"
)

// Result is the outcome of checking one plugin file
type Result struct {
	Path            string      `json:"path" yaml:"path"`
	Name            string      `json:"name" yaml:"name"`
	Size            int64       `json:"size" yaml:"size"`
	CRC32           uint32      `json:"crc32" yaml:"crc32"`
	Master          bool        `json:"master" yaml:"master"`
	Light           bool        `json:"light" yaml:"light"`
	Medium          bool        `json:"medium" yaml:"medium"`
	Update          bool        `json:"update" yaml:"update"`
	Masters         []string    `json:"masters,omitempty" yaml:"masters,omitempty"`
	NewRecords      int         `json:"new_records" yaml:"new_records"`
	OverrideRecords int         `json:"override_records" yaml:"override_records"`
	Warnings        []Warning   `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Dirty           *DirtyEntry `json:"dirty,omitempty" yaml:"dirty,omitempty"`
	Error           string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// HasWarning reports whether w was raised for the plugin
func (r *Result) HasWarning(w Warning) bool {
	for _, got := range r.Warnings {
		if got == w {
			return true
		}
	}
	return false
}

// isLightExtension reports whether the game loads the file as light by name alone
func isLightExtension(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".esl")
}

// evaluate fills r from a plugin that has been parsed whole
func evaluate(r *Result, p *plugin.Plugin) error {
	esl := isLightExtension(p.Path())
	supportsLight := p.Game().SupportsLightPlugins()

	r.Master = p.IsMasterFile()
	r.Masters = p.Masters()
	r.Light = p.IsLightPlugin() || (esl && supportsLight)
	r.Medium = !esl && p.IsMediumPlugin()
	r.Update = !esl && p.IsUpdatePlugin()

	var err error
	if r.NewRecords, err = p.NewRecordCount(); err != nil {
		return err
	}
	if r.OverrideRecords, err = p.OverrideRecordCount(); err != nil {
		return err
	}

	validLight, err := p.IsValidAsLightPlugin()
	if err != nil {
		return err
	}
	validMedium, err := p.IsValidAsMediumPlugin()
	if err != nil {
		return err
	}
	validUpdate, err := p.IsValidAsUpdatePlugin()
	if err != nil {
		return err
	}

	if r.Light && !validLight {
		r.Warnings = append(r.Warnings, WarnLightOutOfRange)
	}
	if r.Medium && !validMedium {
		r.Warnings = append(r.Warnings, WarnMediumOutOfRange)
	}
	if r.Update && !validUpdate {
		r.Warnings = append(r.Warnings, WarnUpdateAddsRecords)
	}
	if !r.Light && !r.Medium && !r.Update && supportsLight && validLight && r.NewRecords > 0 {
		r.Warnings = append(r.Warnings, WarnCouldBeLight)
	}
	return nil
}
