// ABOUTME: Closed enumeration of the games whose plugin formats are supported
// ABOUTME: Converts between external game names and IDs

package game

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGame is returned when a game name is not one of the supported set
	ErrInvalidGame = errors.New("invalid game")
)

// ID identifies a supported game. The zero value is not a valid game.
type ID int

const (
	Oblivion ID = iota + 1
	Skyrim
	SkyrimSE
	SkyrimVR
	Fallout3
	FalloutNV
	Fallout4
	Fallout4VR
	Starfield
)

var names = map[ID]string{
	Oblivion:   "Oblivion",
	Skyrim:     "Skyrim",
	SkyrimSE:   "SkyrimSE",
	SkyrimVR:   "SkyrimVR",
	Fallout3:   "Fallout3",
	FalloutNV:  "FalloutNV",
	Fallout4:   "Fallout4",
	Fallout4VR: "Fallout4VR",
	Starfield:  "Starfield",
}

// String returns the canonical name accepted by Parse
func (id ID) String() string {
	if name, ok := names[id]; ok {
		return name
	}
	return fmt.Sprintf("ID(%d)", int(id))
}

// Valid reports whether id is one of the supported games
func (id ID) Valid() bool {
	_, ok := names[id]
	return ok
}

// Parse converts a canonical game name into an ID
func Parse(name string) (ID, error) {
	for id, n := range names {
		if n == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidGame, name)
}

// All returns every supported game in declaration order
func All() []ID {
	ids := make([]ID, 0, len(names))
	for id := Oblivion; id <= Starfield; id++ {
		ids = append(ids, id)
	}
	return ids
}

// MarshalText encodes the game as its canonical name
func (id ID) MarshalText() ([]byte, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGame, int(id))
	}
	return []byte(id.String()), nil
}

// UnmarshalText decodes a canonical game name
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
