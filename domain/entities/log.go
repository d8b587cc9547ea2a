package entities

// LogRecord is a guest log line forwarded to the host.
type LogRecord struct {
	Level   string
	Message string
	Attrs   Table
}
