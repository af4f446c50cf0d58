package logger

// Logger is the leveled logging surface handed to components that want their
// own component field.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
}
