// ABOUTME: Tests for turning a parsed plugin into a check result
// ABOUTME: Covers the .esl extension rule and evaluation before a whole parse

package checker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prateek/esplens/game"
	"github.com/prateek/esplens/plugin"
	"github.com/prateek/esplens/record/recordtest"
)

func TestIsLightExtension(t *testing.T) {
	assert.True(t, isLightExtension("Data/Mod.esl"))
	assert.True(t, isLightExtension("Mod.ESL"))
	assert.False(t, isLightExtension("Mod.esp"))
	assert.False(t, isLightExtension("Mod.esl.esp"))
}

func TestEvaluateNeedsWholeParse(t *testing.T) {
	p, err := plugin.New(game.Fallout4, "Header.esp")
	require.NoError(t, err)
	require.NoError(t, p.Parse(recordtest.New().WithRecords("MISC", 0x900).Bytes(), plugin.HeaderOnly()))

	var r Result
	err = evaluate(&r, p)
	assert.True(t, plugin.IsNotParsedError(err))
}

func TestEvaluateExtensionOverridesSubtypes(t *testing.T) {
	// 0x200 is the update flag in Starfield; .esl plugins are never update or medium plugins
	p, err := plugin.New(game.Starfield, "Named.esl")
	require.NoError(t, err)
	data := recordtest.New().WithFlags(0x600).WithMasters("Starfield.esm").WithRecords("MISC", 0x01000010).Bytes()
	require.NoError(t, p.Parse(data, plugin.WholePlugin()))

	var r Result
	require.NoError(t, evaluate(&r, p))
	assert.True(t, r.Light)
	assert.False(t, r.Medium)
	assert.False(t, r.Update)
	assert.Empty(t, r.Warnings)
	assert.Equal(t, 1, r.NewRecords)
}

func TestHasWarning(t *testing.T) {
	r := Result{Warnings: []Warning{WarnParseError}}
	assert.True(t, r.HasWarning(WarnParseError))
	assert.False(t, r.HasWarning(WarnCouldBeLight))
}
