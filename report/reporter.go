package report

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Reporter is responsible for reporting errors, warnings, and other kinds of
// messages to the user during a session.  The reporter respects the set log
// level and is synchronized: its methods can be safely called from multiple
// goroutines.
type Reporter struct {
	// The mutex used to synchonize different report calls.
	m *sync.Mutex

	// The selected log level of the reporter.  This must be one of the
	// enumerated log levels below.
	logLevel int

	// out is the current diagnostic sink.  It is swapped out for an in-memory
	// buffer while an evaluation is running (see Capture).
	out io.Writer

	// errorCount is the number of errors reported since the last call to
	// ResetErrors.
	errorCount int
}

// Enumeration of the different possible log levels.
const (
	LogLevelSilent  = iota // Displays no output.
	LogLevelError          // Displays only errors to the user.
	LogLevelWarn           // Displays only warnings and errors to the user.
	LogLevelVerbose        // Displays all messages to the user (default).
	LogLevelDebug          // Displays everything and disables output capture.
)

// logLevelNames maps the log level names accepted on the command line and in
// configuration files to log levels.
var logLevelNames = map[string]int{
	"silent":  LogLevelSilent,
	"error":   LogLevelError,
	"warn":    LogLevelWarn,
	"verbose": LogLevelVerbose,
	"debug":   LogLevelDebug,
}

// LogLevelNames returns the accepted log level names in increasing order of
// verbosity.
func LogLevelNames() []string {
	return []string{"silent", "error", "warn", "verbose", "debug"}
}

// ParseLogLevel converts a log level name into a log level.
func ParseLogLevel(name string) (int, error) {
	if level, ok := logLevelNames[strings.ToLower(name)]; ok {
		return level, nil
	}

	return 0, errors.Errorf("invalid log level `%s`", name)
}

// rep is the global reporter instance.
var rep = newReporter(LogLevelVerbose, os.Stderr)

func newReporter(logLevel int, out io.Writer) *Reporter {
	return &Reporter{
		m:        &sync.Mutex{},
		logLevel: logLevel,
		out:      out,
	}
}

// InitReporter initializes the global reporter to the given log level and
// user-visible output.  A nil output selects standard error.
func InitReporter(logLevel int, out io.Writer) {
	if out == nil {
		out = os.Stderr
	}

	rep = newReporter(logLevel, out)
}

// LogLevel returns the log level of the global reporter.
func LogLevel() int {
	rep.m.Lock()
	defer rep.m.Unlock()

	return rep.logLevel
}

// AnyErrors returns whether or not any errors were reported since the last
// call to ResetErrors.
func AnyErrors() bool {
	rep.m.Lock()
	defer rep.m.Unlock()

	return rep.errorCount > 0
}

// ResetErrors clears the error count.  It is called at the start of every
// evaluation.
func ResetErrors() {
	rep.m.Lock()
	defer rep.m.Unlock()

	rep.errorCount = 0
}

// write writes a fully rendered message to the current sink if the reporter
// is at least at the given log level.  It returns whether the message was
// written.
func (r *Reporter) write(level int, text string) bool {
	r.m.Lock()
	defer r.m.Unlock()

	if r.logLevel < level {
		return false
	}

	io.WriteString(r.out, text)
	return true
}
