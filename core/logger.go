package core

// Logger is any service that can log messages and report errors.
// args may contain errors, maps of extras and the user.User being served.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
