// Package alert implements the ordered queue of user-facing notifications.
package alert

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Severity selects how an alert is presented.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityPositive Severity = "positive"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is one queued message as seen by the UI.
type Alert struct {
	ID        uint64   `json:"id"`
	Message   string   `json:"message"`
	Severity  Severity `json:"severity"`
	Icon      string   `json:"icon,omitempty"`
	TimeoutMs int64    `json:"timeoutMs,omitempty"`
	Clickable bool     `json:"clickable"`
}

// Option customises an enqueued alert.
type Option func(*entry)

// WithIcon sets the icon reference shown next to the message.
func WithIcon(icon string) Option {
	return func(e *entry) { e.alert.Icon = icon }
}

// WithTimeout makes the alert dismiss itself after d.
func WithTimeout(d time.Duration) Option {
	return func(e *entry) {
		e.timeout = d
		e.alert.TimeoutMs = d.Milliseconds()
	}
}

// WithOnClick registers a handler run by Click.
func WithOnClick(fn func()) Option {
	return func(e *entry) {
		e.onClick = fn
		e.alert.Clickable = fn != nil
	}
}

type entry struct {
	alert   Alert
	timeout time.Duration
	onClick func()
	timer   stopper
}

type stopper interface {
	Stop() bool
}

// Queue keeps alerts in ascending id order. Ids start at zero and are never
// reused. Removing one alert never touches the timers of the others.
type Queue struct {
	mu      sync.Mutex
	entries []*entry
	nextID  uint64
	closed  bool

	afterFunc func(time.Duration, func()) stopper
	logger    zerolog.Logger
}

// NewQueue returns an empty queue.
func NewQueue(logger zerolog.Logger) *Queue {
	return &Queue{
		afterFunc: func(d time.Duration, f func()) stopper { return time.AfterFunc(d, f) },
		logger:    logger.With().Str("component", "alert-queue").Logger(),
	}
}

// Enqueue appends an alert and returns its id.
func (q *Queue) Enqueue(message string, severity Severity, opts ...Option) uint64 {
	e := &entry{alert: Alert{Message: message, Severity: severity}}
	for _, opt := range opts {
		opt(e)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	e.alert.ID = q.nextID
	q.nextID++
	q.entries = append(q.entries, e)

	if e.timeout > 0 && !q.closed {
		id := e.alert.ID
		e.timer = q.afterFunc(e.timeout, func() {
			if q.remove(id) {
				q.logger.Debug().Uint64("alert_id", id).Msg("alert expired")
			}
		})
	}

	q.logger.Debug().
		Uint64("alert_id", e.alert.ID).
		Str("severity", string(severity)).
		Msg("alert enqueued")

	return e.alert.ID
}

// Dismiss removes the alert with id. It reports whether the alert was present.
func (q *Queue) Dismiss(id uint64) bool {
	return q.remove(id)
}

// Click runs the alert's click handler and reports whether the alert exists.
// The handler runs outside the queue lock so it may enqueue or dismiss.
func (q *Queue) Click(id uint64) bool {
	q.mu.Lock()
	i := q.index(id)
	if i < 0 {
		q.mu.Unlock()
		return false
	}
	onClick := q.entries[i].onClick
	q.mu.Unlock()

	if onClick != nil {
		onClick()
	}
	return true
}

// List returns the queued alerts, oldest first.
func (q *Queue) List() []Alert {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Alert, len(q.entries))
	for i, e := range q.entries {
		out[i] = e.alert
	}
	return out
}

// Len returns the number of queued alerts.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close stops every pending auto-dismiss timer. Queued alerts stay listed.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	for _, e := range q.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
}

func (q *Queue) remove(id uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.index(id)
	if i < 0 {
		return false
	}
	if t := q.entries[i].timer; t != nil {
		t.Stop()
	}
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	return true
}

// index finds id by binary search; entries are appended in id order and
// removal keeps the order.
func (q *Queue) index(id uint64) int {
	i := sort.Search(len(q.entries), func(i int) bool {
		return q.entries[i].alert.ID >= id
	})
	if i < len(q.entries) && q.entries[i].alert.ID == id {
		return i
	}
	return -1
}
