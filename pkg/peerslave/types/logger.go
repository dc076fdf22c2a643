package types

// Logger is the leveled logging interface consumed across the module,
// so every task (registry, presence, intake, slave loop, supervisor)
// depends on this interface rather than a concrete logging library;
// internal/logging provides the real, logrus-backed implementation.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Notice(v ...interface{})
	Noticef(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
}
