// Package quota provides the per-client daily request quota for prompt-relay.
//
// A Tracker holds one UsageRecord per client key. Each record counts the requests
// admitted for that client on the current UTC calendar day; the counter starts
// over the first time the client is seen on a new day.
//
// Basic usage:
//
//	tracker := quota.NewTracker(15)
//
//	if !tracker.TryConsume(clientIP) {
//		// reply 429
//	}
package quota

import (
	"sync"
	"time"
)

// DefaultDailyLimit is the number of admissions per client per UTC day
// when no limit is configured.
const DefaultDailyLimit = 15

// DayFormat is the layout used for UsageRecord.Day.
const DayFormat = "2006-01-02"

// UsageRecord is one client's quota state for a single UTC day.
type UsageRecord struct {
	ClientKey string
	Day       string
	Count     int
}

// Tracker enforces a fixed daily ceiling per client key.
// The whole read-check-increment sequence runs under a single mutex, so concurrent
// requests from the same client can never be admitted past the limit.
type Tracker struct {
	records map[string]*UsageRecord
	now     func() time.Time
	limit   int
	mu      sync.Mutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the wall clock used to determine the current day.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates a tracker admitting at most limit requests per client per day.
// A limit of zero or less falls back to DefaultDailyLimit.
func NewTracker(limit int, opts ...Option) *Tracker {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}

	t := &Tracker{
		records: make(map[string]*UsageRecord),
		now:     time.Now,
		limit:   limit,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// TryConsume admits one request for clientKey if the client has quota left today.
// Returns false without consuming anything once the daily limit is reached.
func (t *Tracker) TryConsume(clientKey string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.current(clientKey)
	if rec.Count >= t.limit {
		return false
	}

	rec.Count++
	return true
}

// Remaining returns how many admissions clientKey has left today.
func (t *Tracker) Remaining(clientKey string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[clientKey]
	if !ok || rec.Day != t.today() {
		return t.limit
	}

	if rec.Count >= t.limit {
		return 0
	}
	return t.limit - rec.Count
}

// Usage returns a copy of the client's record for today.
// The second return value is false if the client has not been seen today.
func (t *Tracker) Usage(clientKey string) (UsageRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[clientKey]
	if !ok || rec.Day != t.today() {
		return UsageRecord{}, false
	}
	return *rec, true
}

// Limit returns the configured daily limit.
func (t *Tracker) Limit() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limit
}

// SetLimit changes the daily limit for hot-reload support.
// Counts already consumed today are kept; a lowered limit takes effect on the next call.
func (t *Tracker) SetLimit(limit int) {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.limit = limit
}

// Sweep deletes records left over from previous days and returns how many were removed.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	today := t.today()
	removed := 0
	for key, rec := range t.records {
		if rec.Day != today {
			delete(t.records, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of records currently held.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// current returns the record for clientKey, creating or resetting it for today.
// Caller must hold t.mu.
func (t *Tracker) current(clientKey string) *UsageRecord {
	today := t.today()

	rec, ok := t.records[clientKey]
	if !ok {
		rec = &UsageRecord{ClientKey: clientKey}
		t.records[clientKey] = rec
	}

	if rec.Day != today {
		rec.Day = today
		rec.Count = 0
	}

	return rec
}

func (t *Tracker) today() string {
	return t.now().UTC().Format(DayFormat)
}
