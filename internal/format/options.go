package format

// Options is the per-document formatting configuration used when rendering
// positions and prototype strings. It never participates in structural
// resolution; a stale Options value can produce a stale column, never a
// wrong node.
type Options struct {
	TabSize            uint32
	NewlineStyle       string
	InsertFinalNewline bool
}

const (
	NewlineLF   = "lf"
	NewlineCRLF = "crlf"
)

// DefaultOptions returns the configuration used when no provider answered.
func DefaultOptions() Options {
	return Options{
		TabSize:      4,
		NewlineStyle: NewlineLF,
	}
}

// Newline returns the newline sequence selected by the options.
func (o Options) Newline() string {
	if o.NewlineStyle == NewlineCRLF {
		return "\r\n"
	}
	return "\n"
}
