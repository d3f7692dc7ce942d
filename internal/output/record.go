package output

// Status is a step in a request's lifecycle.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusDropped   Status = "dropped"
	StatusFailed    Status = "failed"
)

// Record is one lifecycle step of a request.
type Record struct {
	Channel  Channel
	Seq      int64
	Priority Priority
	Text     string
	Language string
	Status   Status
	Err      string
}

// Recorder observes request lifecycles. Called on the consumer goroutine.
type Recorder interface {
	RecordOutput(Record)
}

// Recorders fans a record out to several recorders.
type Recorders []Recorder

// RecordOutput implements Recorder.
func (rs Recorders) RecordOutput(r Record) {
	for _, rec := range rs {
		if rec != nil {
			rec.RecordOutput(r)
		}
	}
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(Record)

// RecordOutput implements Recorder.
func (f RecorderFunc) RecordOutput(r Record) { f(r) }
