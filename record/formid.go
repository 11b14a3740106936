// ABOUTME: Form identifier type used by plugin records
// ABOUTME: Splits an identifier into its mod index and object index

package record

import "fmt"

// FormID is the 32-bit identifier a record carries in its header.
// The top byte is a mod index into the plugin's master list; an index past
// the end of that list refers to the plugin itself.
type FormID uint32

// ModIndex returns the top byte of the identifier
func (f FormID) ModIndex() uint8 {
	return uint8(f >> 24)
}

// ObjectIndex returns the low 24 bits of the identifier
func (f FormID) ObjectIndex() uint32 {
	return uint32(f) & 0x00FFFFFF
}

// IsOverride reports whether the record overrides one defined by a master,
// given the number of masters the plugin declares
func (f FormID) IsOverride(masterCount int) bool {
	return int(f.ModIndex()) < masterCount
}

func (f FormID) String() string {
	return fmt.Sprintf("%08X", uint32(f))
}
