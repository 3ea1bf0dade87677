// internal/domain/tracking/deduper.go
package tracking

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type firedKey struct {
	kind    EventKind
	subject string
}

// Deduper guarantees a named event fires at most once per (kind, subject)
// within one observation lifetime. Redundant observers of the same subject
// are safe: the first caller wins, the rest are silent no-ops. Reset starts
// a new lifetime, after which the same events may legitimately fire again.
type Deduper struct {
	mu    sync.Mutex
	fired map[firedKey]struct{}
	log   *logrus.Logger
}

// NewDeduper creates a deduper for one observation lifetime
func NewDeduper(logger *logrus.Logger) *Deduper {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Deduper{
		fired: make(map[firedKey]struct{}),
		log:   logger,
	}
}

// FireOnce emits the event through sink on the first call for this
// (kind, subjectID) in the current lifetime and reports whether it fired.
// A missing or failing sink degrades to a logged no-op; tracking never
// surfaces an error to the caller.
func (d *Deduper) FireOnce(kind EventKind, subjectID string, params Params, sink Sink) bool {
	key := firedKey{kind: kind, subject: subjectID}

	d.mu.Lock()
	if _, seen := d.fired[key]; seen {
		d.mu.Unlock()
		return false
	}
	// Mark before emitting: at-most-once holds even when the sink fails
	d.fired[key] = struct{}{}
	d.mu.Unlock()

	d.emit(kind, subjectID, params, sink)
	return true
}

// Reset starts a fresh lifetime, clearing every fired marker
func (d *Deduper) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fired = make(map[firedKey]struct{})
}

func (d *Deduper) emit(kind EventKind, subjectID string, params Params, sink Sink) {
	defer func() {
		if r := recover(); r != nil {
			d.log.WithFields(logrus.Fields{
				"event":      string(kind),
				"subject_id": subjectID,
				"panic":      r,
			}).Warn("event sink panicked, event dropped")
		}
	}()

	if sink == nil {
		d.log.WithFields(logrus.Fields{
			"event":      string(kind),
			"subject_id": subjectID,
		}).Debug("event sink unavailable, event dropped")
		return
	}

	if err := sink(string(kind), params); err != nil {
		d.log.WithError(err).WithFields(logrus.Fields{
			"event":      string(kind),
			"subject_id": subjectID,
		}).Warn("event sink failed, event dropped")
	}
}
