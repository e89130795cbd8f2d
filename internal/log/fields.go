package log

// Canonical field names for structured logging.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldEvent     = "event"

	FieldDirectory = "directory"
	FieldPath      = "path"
	FieldCount     = "count"
	FieldDuration  = "duration"
)
