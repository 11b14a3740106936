// ABOUTME: Parse depth selection for the record decoder
// ABOUTME: Header-only scans stop after the file header; whole-plugin scans walk every record

package record

// ParseOptions selects how much of a plugin the decoder reads
type ParseOptions struct {
	// LoadHeaderOnly stops decoding after the file header record
	LoadHeaderOnly bool
}

// HeaderOnly decodes just the file header: flags, version, record count and masters
func HeaderOnly() ParseOptions {
	return ParseOptions{LoadHeaderOnly: true}
}

// WholePlugin decodes every group and record and collects their form IDs
func WholePlugin() ParseOptions {
	return ParseOptions{}
}

func (o ParseOptions) String() string {
	if o.LoadHeaderOnly {
		return "header-only"
	}
	return "whole-plugin"
}
