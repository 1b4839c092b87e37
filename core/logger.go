package core

// Logger logs messages and reports them to an error tracker.
// expected args: error, map[string]interface{}, user.User (the person concerned)
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
