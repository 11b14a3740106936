// ABOUTME: Fuzz tests for the plugin record decoder
// ABOUTME: Uses native fuzzing to check the decoder never panics and reports structured errors

package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/prateek/esplens/game"
	"github.com/prateek/esplens/record/recordtest"
)

// FuzzDecode tests the decoder with arbitrary input
func FuzzDecode(f *testing.F) {
	f.Add(recordtest.New().Bytes(), false)
	f.Add(recordtest.New().WithMasters("A.esm").WithRecords("WEAP", 0x01000800, 0x00000001).Bytes(), false)
	f.Add(nestedPlugin(), true)
	f.Add(createCorruptedGroupSeed(), false)
	f.Add([]byte("TES4"), true)

	d := NewDecoder(game.SkyrimSE)
	f.Fuzz(func(t *testing.T, data []byte, headerOnly bool) {
		opts := WholePlugin()
		if headerOnly {
			opts = HeaderOnly()
		}

		state, err := d.Decode(bytes.NewReader(data), opts)
		if err != nil {
			// Reading from memory can only fail structurally
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("non-structural error from in-memory input: %v", err)
			}
			if state != nil {
				t.Fatal("state returned alongside an error")
			}
			return
		}

		if headerOnly && state.FormIDs != nil {
			t.Error("header-only decode produced form IDs")
		}
		if !headerOnly && len(state.FormIDs) != state.Records {
			t.Errorf("collected %d form IDs for %d records", len(state.FormIDs), state.Records)
		}
	})
}

func createCorruptedGroupSeed() []byte {
	data := recordtest.New().WithRecords("ARMO", 0x800, 0x801).Bytes()
	groupStart := len(recordtest.New().Header())
	binary.LittleEndian.PutUint32(data[groupStart+4:], 0xFFFFFFFF)
	return data
}
