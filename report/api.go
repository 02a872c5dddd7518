package report

import (
	"fmt"
	"os"

	"github.com/kr/pretty"
)

// ReportCompileError reports a compilation error: ie. erroneous input code.
// The reprPath is the path the source is displayed under.  The src is the
// source text the span refers to: it is passed explicitly since the source of
// an evaluation may only exist in memory.  The span may be nil in which case
// no position information will be printed.
func ReportCompileError(reprPath, src string, span *TextSpan, message string, args ...interface{}) {
	rep.m.Lock()
	rep.errorCount++
	rep.m.Unlock()

	rep.write(LogLevelError, renderCompileMessage("error", reprPath, src, span, fmt.Sprintf(message, args...)))
}

// ReportCompileWarning reports a compilation warning.  The arguments are of the
// same form as those to ReportCompileError.
func ReportCompileWarning(reprPath, src string, span *TextSpan, message string, args ...interface{}) {
	rep.write(LogLevelWarn, renderCompileMessage("warning", reprPath, src, span, fmt.Sprintf(message, args...)))
}

// ReportToolchainOutput reports the verbatim output of the external compiler
// after it rejected an evaluation.
func ReportToolchainOutput(output string) {
	rep.write(LogLevelError, renderToolchainOutput(output))
}

// ReportICE reports an internal error.  These are errors that specifically
// result from a bug or an unexpected condition inside the engine: they are not
// intended to ever happen.  Unlike the compiler this reporter is modelled on,
// the session continues afterwards.
func ReportICE(message string, args ...interface{}) {
	rep.m.Lock()
	rep.errorCount++
	rep.m.Unlock()

	rep.write(LogLevelError, renderICE(fmt.Sprintf(message, args...)))
}

// ReportUnexpectedPanic reports a panic payload that did not originate from
// one of the already reported fault kinds.
func ReportUnexpectedPanic(payload interface{}) {
	ReportICE("unexpected panic: %v", payload)
}

// ReportFatal reports a fatal error and exits.  These are expected errors that
// generally result from invalid configuration of some form: missing compiler,
// unreadable configuration file, etc.
func ReportFatal(message string, args ...interface{}) {
	rep.write(LogLevelError, renderFatal(fmt.Sprintf(message, args...)))

	os.Exit(1)
}

// ReportInfo displays an informational message with a tag.
func ReportInfo(tag, message string) {
	rep.write(LogLevelError, renderInfo(tag, message))
}

// ReportVerbose displays a progress message in verbose mode.
func ReportVerbose(message string, args ...interface{}) {
	rep.write(LogLevelVerbose, renderNote(fmt.Sprintf(message, args...)))
}

// ReportDebug displays a debug message.  Any values are pretty printed after
// the message.
func ReportDebug(message string, values ...interface{}) {
	text := message
	for _, v := range values {
		text += "\n" + pretty.Sprint(v)
	}

	rep.write(LogLevelDebug, renderDebug(text))
}
