package report

import "fmt"

// TextSpan represents a range or "span" of source text.  Text spans are
// inclusive on both sides: the starting position is the position of the first
// character in the span and the ending position is the position of the last
// character in the span.  The line and column numbers are zero-indexed.
type TextSpan struct {
	// The line and column beginning the text span.
	StartLine, StartCol int

	// The line and column ending the text span.
	EndLine, EndCol int
}

// NewSpanOver returns a new text span which spans over and between the two
// given text spans.
func NewSpanOver(start, end *TextSpan) *TextSpan {
	return &TextSpan{
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

// -----------------------------------------------------------------------------

// FatalError is the panic payload used to abandon an evaluation whose errors
// have already been reported.
type FatalError struct{}

func (FatalError) Error() string {
	return "aborting due to previous errors"
}

// ExplicitBug is the panic payload used to abandon an evaluation after an
// internal error has been reported with ReportBug.
type ExplicitBug struct {
	Message string
}

func (eb ExplicitBug) Error() string {
	return "internal error: " + eb.Message
}

// IsAlreadyReported returns whether a panic payload is one of the fault kinds
// whose diagnostic was emitted before the panic was raised.
func IsAlreadyReported(payload interface{}) bool {
	switch payload.(type) {
	case FatalError, *FatalError, ExplicitBug, *ExplicitBug:
		return true
	}

	return false
}

// AbortIfErrors abandons the running evaluation with a FatalError if any
// errors were reported since the last call to ResetErrors.
func AbortIfErrors() {
	if AnyErrors() {
		panic(FatalError{})
	}
}

// ReportBug reports an internal error and abandons the running evaluation.
func ReportBug(message string, args ...interface{}) {
	msg := fmt.Sprintf(message, args...)
	ReportICE("%s", msg)

	panic(ExplicitBug{Message: msg})
}
