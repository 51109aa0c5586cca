package core

// Logger is the app-wide structured logger.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// DiscardLogger drops everything; handy in tests.
type DiscardLogger struct{}

var _ Logger = (*DiscardLogger)(nil)

func (DiscardLogger) Debug(string, ...interface{}) {}
func (DiscardLogger) Info(string, ...interface{})  {}
func (DiscardLogger) Warn(string, ...interface{})  {}
func (DiscardLogger) Error(string, ...interface{}) {}
func (DiscardLogger) Fatal(string, ...interface{}) {}

// LogPerson identifies who an event relates to. Loggers that support it attach it to the entry
// instead of printing it.
type LogPerson struct {
	ID   string
	Name string
}
