package asset

// Waiter is a party suspended on a Monitor.
type Waiter interface {
	// Activate resumes the waiter once the awaited condition holds.
	Activate()
	// Fail resumes the waiter with the reason it can no longer wait.
	Fail(err error)
}

// WaiterFunc adapts a function to a Waiter. The function receives nil on
// activation and the failure otherwise.
type WaiterFunc func(err error)

// Activate implements Waiter.
func (f WaiterFunc) Activate() { f(nil) }

// Fail implements Waiter.
func (f WaiterFunc) Fail(err error) { f(err) }

type activation struct {
	waiter Waiter
	err    error
}

// ActivateSet collects waiters to resume so that resumption happens after the
// collecting code has released its locks. The zero value is ready to use.
type ActivateSet struct {
	entries  []activation
	deferred []func()
}

// Add queues w for activation.
func (s *ActivateSet) Add(w Waiter) {
	s.entries = append(s.entries, activation{waiter: w})
}

// AddFailure queues w to be failed with err.
func (s *ActivateSet) AddFailure(w Waiter, err error) {
	s.entries = append(s.entries, activation{waiter: w, err: err})
}

// Defer queues f to run after all queued waiters have been resumed.
func (s *ActivateSet) Defer(f func()) {
	s.deferred = append(s.deferred, f)
}

// Len returns the number of queued waiters.
func (s *ActivateSet) Len() int {
	return len(s.entries)
}

// Activate resumes the queued waiters in order, then runs deferred functions.
// The set is empty afterwards and may be reused. Work queued while activating
// is processed in the same call.
func (s *ActivateSet) Activate() {
	for len(s.entries) > 0 || len(s.deferred) > 0 {
		entries := s.entries
		s.entries = nil
		for _, e := range entries {
			if e.err != nil {
				e.waiter.Fail(e.err)
			} else {
				e.waiter.Activate()
			}
		}
		deferred := s.deferred
		s.deferred = nil
		for _, f := range deferred {
			f()
		}
	}
}
