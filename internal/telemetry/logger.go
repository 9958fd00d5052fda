package telemetry

import (
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// LogLevel parses a level name; unknown names fall back to info.
func LogLevel(l string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(l))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// NewLogger returns a prefixed text logger writing to out.
func NewLogger(out io.Writer, level string) *logrus.Logger {
	logger := logrus.New()
	logger.Out = out
	logger.Level = LogLevel(level)
	logger.Formatter = new(prefixed.TextFormatter)
	return logger
}

// Component tags entries with the subsystem that wrote them.
func Component(logger *logrus.Logger, prefix string) *logrus.Entry {
	return logger.WithField("prefix", prefix)
}

// Discard is a logger for callers that do not care about output.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.Out = io.Discard
	return logrus.NewEntry(logger)
}

// This can be used as the destination for a logger and it'll
// map them into calls to testing.T.Log, so that you only see
// the logging for failed tests.
type testLoggerAdapter struct {
	t      testing.TB
	prefix string
}

func (a *testLoggerAdapter) Write(d []byte) (int, error) {
	n := len(d)
	if n > 0 && d[n-1] == '\n' {
		d = d[:n-1]
	}
	if a.prefix != "" {
		a.t.Log(a.prefix + ": " + string(d))
		return n, nil
	}
	a.t.Log(string(d))
	return n, nil
}

func NewTestLogger(t testing.TB, prefix string) *logrus.Entry {
	logger := logrus.New()
	logger.Out = &testLoggerAdapter{t: t, prefix: prefix}
	logger.Level = logrus.DebugLevel
	return logrus.NewEntry(logger)
}
