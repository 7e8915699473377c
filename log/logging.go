// SPDX-License-Identifier: GPL-3.0-or-later
package log

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	LOG_MAIN        = "MA"
	LOG_SEARCH      = "SE"
	LOG_MIGRATION   = "MI"
	LOG_WALKER      = "WA"
	LOG_HANDLER     = "HA"
	LOG_PERSISTENCE = "PI"
	LOG_IMAP        = "IM"
)

var components = []string{
	LOG_MAIN,
	LOG_SEARCH,
	LOG_MIGRATION,
	LOG_WALKER,
	LOG_HANDLER,
	LOG_PERSISTENCE,
	LOG_IMAP,
}

var (
	mu      sync.Mutex
	loggers map[string]*logrus.Logger
)

// PrefixLogger puts the component prefix in front of every text formatted
// line.
type PrefixLogger struct {
	formatter logrus.Formatter
	prefix    []byte
}

func NewPrefixLogger(prefix string) *PrefixLogger {
	return &PrefixLogger{
		formatter: &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
			DisableColors:   runtime.GOOS == "windows",
		},
		prefix: []byte(fmt.Sprintf("%s:\t", prefix)),
	}
}

func (f *PrefixLogger) Format(entry *logrus.Entry) ([]byte, error) {
	text, err := f.formatter.Format(entry)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, f.prefix...), text...), nil
}

// ParseLevel falls back to info for unknown names.
func ParseLevel(loglevel string) (logrus.Level, bool) {
	level, err := logrus.ParseLevel(strings.TrimSpace(loglevel))
	if err != nil {
		return logrus.InfoLevel, false
	}
	return level, true
}

// InitLogging replaces all component loggers. They write to stderr so that
// stdout only carries command output.
func InitLogging(loglevel string) {
	mu.Lock()
	defer mu.Unlock()
	initLogging(loglevel, os.Stderr)
}

func initLogging(loglevel string, out io.Writer) {
	level, ok := ParseLevel(loglevel)

	loggers = make(map[string]*logrus.Logger, len(components))
	for _, prefix := range components {
		l := logrus.New()
		l.Out = out
		l.Level = level
		l.Formatter = NewPrefixLogger(prefix)
		loggers[prefix] = l
	}

	if !ok {
		loggers[LOG_MAIN].WithField("loglevel", loglevel).Warn("Unknown log level, using info")
	}
}

func SetLogLevel(loglevel string) {
	mu.Lock()
	defer mu.Unlock()
	if loggers == nil {
		initLogging(loglevel, os.Stderr)
		return
	}

	level, ok := ParseLevel(loglevel)
	if !ok {
		loggers[LOG_MAIN].WithField("loglevel", loglevel).Warn("Unknown log level, using info")
	}
	for _, l := range loggers {
		l.SetLevel(level)
	}
}

func Logger(component string) *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	if loggers == nil {
		initLogging("info", os.Stderr)
	}

	l, ok := loggers[component]
	if !ok {
		panic("Logger " + component + " unknown")
	}
	return l
}
