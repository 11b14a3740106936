// ABOUTME: Tests for game identifiers and the per-game rules table
// ABOUTME: Covers name parsing, subtype support, and light range selection

package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTripsEveryGame(t *testing.T) {
	for _, id := range All() {
		t.Run(id.String(), func(t *testing.T) {
			got, err := Parse(id.String())
			require.NoError(t, err)
			assert.Equal(t, id, got)
		})
	}
}

func TestParseRejectsUnknownNames(t *testing.T) {
	tests := []string{"", "Morrowind", "skyrimse", "Fallout 4", "Starfield ", "OpenMW"}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(name)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidGame))
		})
	}
}

func TestAllIsClosed(t *testing.T) {
	ids := All()
	assert.Len(t, ids, 9)
	for _, id := range ids {
		assert.True(t, id.Valid())
		assert.NotZero(t, id.Rules().RecordHeaderSize)
	}
	assert.False(t, ID(0).Valid())
	assert.False(t, ID(42).Valid())
	assert.Equal(t, "ID(42)", ID(42).String())
}

func TestSubtypeSupport(t *testing.T) {
	tests := []struct {
		id     ID
		light  bool
		medium bool
		update bool
	}{
		{Oblivion, false, false, false},
		{Skyrim, false, false, false},
		{SkyrimSE, true, false, false},
		{SkyrimVR, true, false, false},
		{Fallout3, false, false, false},
		{FalloutNV, false, false, false},
		{Fallout4, true, false, false},
		{Fallout4VR, true, false, false},
		{Starfield, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			assert.Equal(t, tt.light, tt.id.SupportsLightPlugins())
			assert.Equal(t, tt.medium, tt.id.SupportsMediumPlugins())
			assert.Equal(t, tt.update, tt.id.SupportsUpdatePlugins())
		})
	}
}

func TestLightRangeFor(t *testing.T) {
	tests := []struct {
		name    string
		id      ID
		version float32
		want    Range
	}{
		{"SkyrimSE legacy header", SkyrimSE, 1.7, Range{0x800, 0xFFF}},
		{"SkyrimSE 1.71 header", SkyrimSE, 1.71, Range{0x000, 0xFFF}},
		{"Fallout4 pre-1.0 header", Fallout4, 0.95, Range{0x800, 0xFFF}},
		{"Fallout4 1.0 header", Fallout4, 1.0, Range{0x001, 0xFFF}},
		{"SkyrimVR ignores version", SkyrimVR, 1.71, Range{0x800, 0xFFF}},
		{"Starfield", Starfield, 0.96, Range{0x000, 0xFFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.id.Rules().LightRangeFor(tt.version))
		})
	}
}

func TestRange(t *testing.T) {
	r := Range{Min: 0x800, Max: 0xFFF}
	assert.True(t, r.Contains(0x800))
	assert.True(t, r.Contains(0xFFF))
	assert.False(t, r.Contains(0x7FF))
	assert.False(t, r.Contains(0x1000))
	assert.Equal(t, 2048, r.Capacity())
	assert.Equal(t, 65536, Range{Max: 0xFFFF}.Capacity())
	assert.Equal(t, 0, Range{Min: 2, Max: 1}.Capacity())
}

func TestTextMarshalling(t *testing.T) {
	text, err := Fallout4.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Fallout4", string(text))

	var id ID
	require.NoError(t, id.UnmarshalText([]byte("Starfield")))
	assert.Equal(t, Starfield, id)

	assert.ErrorIs(t, id.UnmarshalText([]byte("Daggerfall")), ErrInvalidGame)
	_, err = ID(0).MarshalText()
	assert.ErrorIs(t, err, ErrInvalidGame)
}
