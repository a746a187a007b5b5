package models

// EventKind tags a decoded inbound frame.
type EventKind int

const (
	// EventRaw is a frame that was not a JSON object; its text is shown verbatim.
	EventRaw EventKind = iota
	EventHistory
	EventUpdate
	EventError
	// EventMalformed is valid JSON that could not be interpreted.
	EventMalformed
)

func (k EventKind) String() string {
	switch k {
	case EventRaw:
		return "raw"
	case EventHistory:
		return "history"
	case EventUpdate:
		return "update"
	case EventError:
		return "error"
	case EventMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// ServerEvent is the typed form of one inbound frame. Messages holds the
// conversation entries the frame produces, oldest first.
type ServerEvent struct {
	Kind      EventKind
	Messages  []Message
	IsExpense bool
}
