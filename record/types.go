// ABOUTME: Decoded forms of the plugin file header, groups, and record headers
// ABOUTME: State is what a decode pass hands back to its caller

package record

type (
	// Header holds the file header record (TES4) and the fields of its subrecords
	Header struct {
		Flags        uint32
		Version      float32 // HEDR version
		RecordCount  uint32  // HEDR declared number of records and groups
		NextObjectID uint32
		Author       string   // CNAM
		Description  string   // SNAM
		Masters      []string // MAST, in declaration order
	}

	// GroupHeader is the header of a GRUP entry. Size includes the header itself.
	GroupHeader struct {
		Offset    int64
		Size      uint32
		Label     [4]byte
		GroupType int32
		Depth     int
	}

	// RecordHeader is the header of a record inside a group
	RecordHeader struct {
		Offset   int64
		Type     [4]byte
		DataSize uint32
		Flags    uint32
		FormID   FormID
	}

	// State is the result of one decode pass
	State struct {
		Header     Header
		HeaderOnly bool

		// FormIDs holds the identifier of every record in file order.
		// It is nil after a header-only decode.
		FormIDs []FormID

		Records int
		Groups  int
	}
)

// TypeString returns the record type as text
func (h RecordHeader) TypeString() string {
	return string(h.Type[:])
}

// HasFlag reports whether any bit of flag is set in the header flags
func (h Header) HasFlag(flag uint32) bool {
	return flag != 0 && h.Flags&flag != 0
}
