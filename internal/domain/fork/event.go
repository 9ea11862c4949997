package fork

// EventType names a lifecycle notification.
type EventType string

const (
	// EventUpdate carries a full fork snapshot after any state change.
	EventUpdate EventType = "fork_update"

	// EventOutput carries a single appended status line.
	EventOutput EventType = "fork_output"
)

// Event is published by the lifecycle manager to every subscriber.
// Fork is set for EventUpdate; Line is set for EventOutput.
type Event struct {
	Type   EventType
	ForkID string
	Fork   *Fork
	Line   string
}

// OutputData is the wire payload of an EventOutput.
type OutputData struct {
	ForkID string `json:"forkId"`
	Output string `json:"output"`
}

// Payload returns the value sent as the "data" field on the wire.
func (e Event) Payload() any {
	if e.Type == EventOutput {
		return OutputData{ForkID: e.ForkID, Output: e.Line}
	}
	return e.Fork
}

// UpdateEvent builds an EventUpdate from a snapshot.
func UpdateEvent(f Fork) Event {
	return Event{Type: EventUpdate, ForkID: f.ID, Fork: &f}
}

// OutputEvent builds an EventOutput for one appended line.
func OutputEvent(id, line string) Event {
	return Event{Type: EventOutput, ForkID: id, Line: line}
}
