package history

import (
	"log"
	"os"
)

// Logger is used by the reconciler to report gaps and progress.
type Logger interface {
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

type stdLog struct {
	logger *log.Logger
	warn   bool
}

var _ Logger = (*stdLog)(nil)

func (s *stdLog) Infof(format string, v ...interface{}) {
	// dropped: plug in a levelled logger to see progress
}

func (s *stdLog) Warnf(format string, v ...interface{}) {
	if s.warn {
		s.logger.Printf("WARN "+format, v...)
	}
}

func (s *stdLog) Errorf(format string, v ...interface{}) {
	s.logger.Printf("ERROR "+format, v...)
}

var (
	defaultLogger   Logger = &stdLog{logger: log.New(os.Stderr, "", log.LstdFlags), warn: true}
	errorOnlyLogger Logger = &stdLog{logger: log.New(os.Stderr, "", log.LstdFlags)}
)

// DefaultLogger prints warnings and errors to stderr.
func DefaultLogger() Logger { return defaultLogger }

// ErrorOnlyLogger prints only errors to stderr.
func ErrorOnlyLogger() Logger { return errorOnlyLogger }

type nopLog struct{}

func (nopLog) Infof(string, ...interface{})  {}
func (nopLog) Warnf(string, ...interface{})  {}
func (nopLog) Errorf(string, ...interface{}) {}

// NopLogger discards everything.
func NopLogger() Logger { return nopLog{} }
