// ABOUTME: Flag and validity predicates for light, medium, and update plugins
// ABOUTME: Flags read the header; validity proves identifier-space compliance

package plugin

import (
	"github.com/prateek/esplens/game"
	"github.com/prateek/esplens/record"
)

// IsLightPlugin reports whether the header carries the game's light flag.
// It is false before any parse and for games without light plugins.
func (p *Plugin) IsLightPlugin() bool {
	return p.data != nil && p.data.Header.HasFlag(p.game.Rules().LightFlag)
}

// IsMediumPlugin reports whether the header carries the game's medium flag.
// A plugin that is also light flagged loads as light, so it reports false.
func (p *Plugin) IsMediumPlugin() bool {
	return p.data != nil && p.data.Header.HasFlag(p.game.Rules().MediumFlag) && !p.IsLightPlugin()
}

// IsUpdatePlugin reports whether the header carries the game's update flag.
// The game ignores that flag on plugins without masters and on light or
// medium plugins, so those report false.
func (p *Plugin) IsUpdatePlugin() bool {
	if p.data == nil || !p.data.Header.HasFlag(p.game.Rules().UpdateFlag) {
		return false
	}
	return len(p.data.Header.Masters) > 0 && !p.IsLightPlugin() && !p.IsMediumPlugin()
}

// IsValidAsLightPlugin reports whether every record the plugin defines fits
// the game's light plugin range, whether or not the light flag is set
func (p *Plugin) IsValidAsLightPlugin() (bool, error) {
	s, err := p.wholeState("light plugin validation")
	if err != nil {
		return false, err
	}
	rules := p.game.Rules()
	if rules.LightFlag == 0 {
		return false, nil
	}
	return newRecordsWithin(s, rules.LightRangeFor(s.Header.Version)), nil
}

// IsValidAsMediumPlugin reports whether every record the plugin defines fits
// the game's medium plugin range
func (p *Plugin) IsValidAsMediumPlugin() (bool, error) {
	s, err := p.wholeState("medium plugin validation")
	if err != nil {
		return false, err
	}
	rules := p.game.Rules()
	if rules.MediumFlag == 0 {
		return false, nil
	}
	return newRecordsWithin(s, rules.MediumRange), nil
}

// IsValidAsUpdatePlugin reports whether every record overrides a master's
// record. A new record in an update plugin would land in its first master's
// identifier space.
func (p *Plugin) IsValidAsUpdatePlugin() (bool, error) {
	s, err := p.wholeState("update plugin validation")
	if err != nil {
		return false, err
	}
	if !p.game.SupportsUpdatePlugins() {
		return false, nil
	}
	masters := len(s.Header.Masters)
	for _, id := range s.FormIDs {
		if !id.IsOverride(masters) {
			return false, nil
		}
	}
	return true, nil
}

// NewRecordCount returns how many records the plugin defines itself
func (p *Plugin) NewRecordCount() (int, error) {
	s, err := p.wholeState("new record count")
	if err != nil {
		return 0, err
	}
	return countNew(s), nil
}

// OverrideRecordCount returns how many records override a master's record
func (p *Plugin) OverrideRecordCount() (int, error) {
	s, err := p.wholeState("override record count")
	if err != nil {
		return 0, err
	}
	return len(s.FormIDs) - countNew(s), nil
}

func (p *Plugin) wholeState(check string) (*record.State, error) {
	if p.State() != FullyParsed {
		return nil, newNotParsedError(p.path, check)
	}
	return p.data, nil
}

// newRecordsWithin checks that new records' object indices lie in rng and
// that there are no more of them than rng can hold
func newRecordsWithin(s *record.State, rng game.Range) bool {
	masters := len(s.Header.Masters)
	count := 0
	for _, id := range s.FormIDs {
		if id.IsOverride(masters) {
			continue
		}
		if !rng.Contains(id.ObjectIndex()) {
			return false
		}
		count++
	}
	return count <= rng.Capacity()
}

func countNew(s *record.State) int {
	masters := len(s.Header.Masters)
	n := 0
	for _, id := range s.FormIDs {
		if !id.IsOverride(masters) {
			n++
		}
	}
	return n
}
