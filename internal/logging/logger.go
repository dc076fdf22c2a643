// Package logging provides the default types.Logger implementation used
// by every task in the process, backed by github.com/sirupsen/logrus
// with terminal level tags colored via github.com/fatih/color.
package logging

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

// Verbose is the 0..7 verbosity knob from the configuration surface.
// 0 means "log everything", 7 means "only fatal".
type Verbose int

const (
	VerboseAll   Verbose = 0
	VerboseDebug Verbose = 1
	VerboseInfo  Verbose = 2
	VerboseNotice Verbose = 3
	VerboseDefault Verbose = 4
	VerboseWarn  Verbose = 5
	VerboseError Verbose = 6
	VerboseFatal Verbose = 7
)

// allows reports whether a message at the given logrus level passes the
// verbosity filter v.
func (v Verbose) allows(level logrus.Level) bool {
	switch {
	case v <= VerboseDebug:
		return true
	case v <= VerboseInfo:
		return level <= logrus.InfoLevel
	case v <= VerboseNotice, v <= VerboseDefault:
		return level <= logrus.InfoLevel
	case v <= VerboseWarn:
		return level <= logrus.WarnLevel
	case v <= VerboseError:
		return level <= logrus.ErrorLevel
	default:
		return level <= logrus.FatalLevel
	}
}

// DefaultLogger backs types.Logger with a logrus.Logger, colorizing the
// level tag when writing to a terminal.
type DefaultLogger struct {
	entry   *logrus.Logger
	verbose Verbose
	name    string
}

// NewDefaultLogger builds a logger writing to w (os.Stderr if nil) at the
// given verbosity, tagged with name (typically the host name).
func NewDefaultLogger(name string, verbose Verbose, w io.Writer) *DefaultLogger {
	if w == nil {
		w = os.Stderr
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &DefaultLogger{entry: l, verbose: verbose, name: name}
}

func (d *DefaultLogger) tag(level logrus.Level, label string) string {
	if !d.verbose.allows(level) {
		return ""
	}
	switch level {
	case logrus.ErrorLevel, logrus.FatalLevel:
		return color.RedString("[%s:%s]", d.name, label)
	case logrus.WarnLevel:
		return color.YellowString("[%s:%s]", d.name, label)
	case logrus.DebugLevel:
		return color.CyanString("[%s:%s]", d.name, label)
	default:
		return color.GreenString("[%s:%s]", d.name, label)
	}
}

func (d *DefaultLogger) Info(v ...interface{}) {
	if t := d.tag(logrus.InfoLevel, "INFO"); t != "" {
		d.entry.Info(append([]interface{}{t, " "}, v...)...)
	}
}

func (d *DefaultLogger) Infof(format string, v ...interface{}) {
	if t := d.tag(logrus.InfoLevel, "INFO"); t != "" {
		d.entry.Infof(t+" "+format, v...)
	}
}

func (d *DefaultLogger) Notice(v ...interface{}) {
	if t := d.tag(logrus.InfoLevel, "NOTICE"); t != "" {
		d.entry.Info(append([]interface{}{t, " "}, v...)...)
	}
}

func (d *DefaultLogger) Noticef(format string, v ...interface{}) {
	if t := d.tag(logrus.InfoLevel, "NOTICE"); t != "" {
		d.entry.Infof(t+" "+format, v...)
	}
}

func (d *DefaultLogger) Warn(v ...interface{}) {
	if t := d.tag(logrus.WarnLevel, "WARN"); t != "" {
		d.entry.Warn(append([]interface{}{t, " "}, v...)...)
	}
}

func (d *DefaultLogger) Warnf(format string, v ...interface{}) {
	if t := d.tag(logrus.WarnLevel, "WARN"); t != "" {
		d.entry.Warnf(t+" "+format, v...)
	}
}

func (d *DefaultLogger) Error(v ...interface{}) {
	if t := d.tag(logrus.ErrorLevel, "ERROR"); t != "" {
		d.entry.Error(append([]interface{}{t, " "}, v...)...)
	}
}

func (d *DefaultLogger) Errorf(format string, v ...interface{}) {
	if t := d.tag(logrus.ErrorLevel, "ERROR"); t != "" {
		d.entry.Errorf(t+" "+format, v...)
	}
}

func (d *DefaultLogger) Debug(v ...interface{}) {
	if t := d.tag(logrus.DebugLevel, "DEBUG"); t != "" {
		d.entry.Debug(append([]interface{}{t, " "}, v...)...)
	}
}

func (d *DefaultLogger) Debugf(format string, v ...interface{}) {
	if t := d.tag(logrus.DebugLevel, "DEBUG"); t != "" {
		d.entry.Debugf(t+" "+format, v...)
	}
}

func (d *DefaultLogger) Fatal(v ...interface{}) {
	d.entry.Fatal(v...)
}

func (d *DefaultLogger) Fatalf(format string, v ...interface{}) {
	d.entry.Fatalf(format, v...)
}

var _ types.Logger = (*DefaultLogger)(nil)
