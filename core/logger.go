package core

// Logger is any service that can log messages at the usual levels.
// Implementations may extract extra context (a user.User, an error with a
// stack trace, arbitrary maps) from args.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
