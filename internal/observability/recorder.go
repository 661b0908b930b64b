package observability

import "time"

// Recorder adapts an EventLog to the engine's audit interface. Write
// failures are swallowed: auditing must never block or fail a workflow
// operation.
type Recorder struct {
	log EventLog
}

// NewRecorder wraps an EventLog. A nil log yields a recorder that drops
// everything.
func NewRecorder(log EventLog) *Recorder {
	return &Recorder{log: log}
}

// Record writes one audit event.
func (r *Recorder) Record(eventType, level, message string, data map[string]any) {
	if r == nil || r.log == nil {
		return
	}
	_ = r.log.Write(Event{
		Time:    time.Now().UTC(),
		Level:   level,
		Type:    eventType,
		Message: message,
		Data:    data,
	})
}
