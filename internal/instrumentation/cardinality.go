package instrumentation

// Helpers that collapse unbounded label values before they reach the
// metrics backend. Calendar ids are the main offender: they are
// user-chosen, email-like strings, and every distinct value becomes a
// separate time series.

// CalendarLabel reduces a calendar id to a low-cardinality label value.
// The well-known "primary" alias passes through; any specific calendar id
// collapses to "custom".
//
// Example:
//
//	CalendarLabel("primary")            // "primary"
//	CalendarLabel("team@example.com")   // "custom"
//	CalendarLabel("")                   // "unknown"
func CalendarLabel(calendarID string) string {
	switch calendarID {
	case "":
		return "unknown"
	case "primary":
		return "primary"
	default:
		return "custom"
	}
}

// Common operation types for calendar API metrics.
// Status and auth result constants are defined in config.go.
const (
	OperationList   = "list"
	OperationGet    = "get"
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)
