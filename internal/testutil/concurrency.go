package testutil

import (
	"sync"
	"time"
)

// Recorder records when named pieces of work ran. It is used to assert that
// work was, or was not, executed concurrently.
type Recorder struct {
	mu      sync.Mutex
	records map[string]ExecutionRecord
	done    chan string
}

// NewRecorder creates a recorder. Names of finished runs are sent to done when
// it is not nil; it should be buffered.
func NewRecorder(done chan string) *Recorder {
	return &Recorder{records: make(map[string]ExecutionRecord), done: done}
}

// Run records name around a sleep of d.
func (r *Recorder) Run(name string, d time.Duration) {
	start := time.Now()
	time.Sleep(d)
	end := time.Now()

	r.mu.Lock()
	r.records[name] = ExecutionRecord{Start: start, End: end}
	r.mu.Unlock()
	if r.done != nil {
		r.done <- name
	}
}

// Get returns the record for name.
func (r *Recorder) Get(name string) (ExecutionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[name]
	return rec, ok
}
