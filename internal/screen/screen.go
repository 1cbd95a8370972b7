// Package screen holds the state of one schedule lookup screen and the rules
// that mutate it: input filtering, time confirmation and the fetch
// lifecycle.
//
// A Screen is owned by exactly one front end instance (a browser session or
// a terminal program) and must be closed when that owner goes away. Every
// method is safe for concurrent use.
//
// Fetches are split in two halves so callers can run the network call
// wherever suits them: Begin captures the query and a sequence number, and
// Complete applies the outcome. Only the most recently begun request may
// change the displayed state, so overlapping submits resolve to the last one
// the user issued, not the last one to arrive.
package screen

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"github.com/jinzhu/copier"

	"github.com/busfinder/busfinder/internal/logging"
	"github.com/busfinder/busfinder/internal/metrics"
	"github.com/busfinder/busfinder/internal/schedule"
)

// InvalidTimeMessage is the notification shown when a time cannot be
// confirmed.
const InvalidTimeMessage = "Invalid time format. Please enter a valid time (HH:MM)"

// FetchErrorMessage is the user-facing text stored after a failed fetch.
const FetchErrorMessage = "Could not load buses. Please try again."

var (
	ErrInvalidTime = errors.New("invalid time")
	ErrClosed      = errors.New("screen is closed")
	ErrStale       = errors.New("response superseded by a newer request")
)

// Fetcher runs a schedule lookup. *schedule.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, q schedule.Query) ([]schedule.Trip, error)
}

// Notifier shows a transient message to the user.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// FormState is the user input of a screen.
type FormState struct {
	Start         string
	Destination   string
	Hours         string
	Minutes       string
	ConfirmedTime string
}

// Snapshot is a deep copy of a screen's state, safe to render without
// holding any lock.
type Snapshot struct {
	Form       FormState
	Trips      []schedule.Trip
	FetchError string
	Pending    bool
	Closed     bool
}

// Request identifies one begun fetch.
type Request struct {
	Seq   uint64
	Query schedule.Query
}

type Screen struct {
	mu       sync.Mutex
	form     FormState
	trips    []schedule.Trip
	fetchErr string
	seq      uint64
	pending  bool
	closed   bool

	fetcher  Fetcher
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// New opens a screen with the default form values. notifier, logger and m
// may be nil.
func New(fetcher Fetcher, notifier Notifier, logger *slog.Logger, m *metrics.Metrics) *Screen {
	if notifier == nil {
		notifier = NotifierFunc(func(string) {})
	}
	if logger == nil {
		logger = slog.Default()
	}
	m.ScreenOpened()

	return &Screen{
		form: FormState{
			Hours:   "00",
			Minutes: "00",
		},
		trips:    []schedule.Trip{},
		fetcher:  fetcher,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "screen")),
		metrics:  m,
	}
}

func (s *Screen) SetStart(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.Start = v
}

func (s *Screen) SetDestination(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.Destination = v
}

// SetHour stores v as the hour field if it is at most two ASCII digits. It
// reports whether the edit was accepted; rejected edits leave the field
// unchanged.
func (s *Screen) SetHour(v string) bool {
	if !validTimeEdit(v) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.Hours = v
	return true
}

// SetMinute is SetHour for the minute field.
func (s *Screen) SetMinute(v string) bool {
	if !validTimeEdit(v) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.Minutes = v
	return true
}

// validTimeEdit accepts in-progress edits: empty, one or two digits.
func validTimeEdit(v string) bool {
	if len(v) > 2 {
		return false
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return true
}

// Confirm validates the hour and minute fields and stores "<hours>:<minutes>"
// as the confirmed time. The fields are used literally, no padding is added.
// Empty fields are rejected. On failure the notifier receives
// InvalidTimeMessage and ErrInvalidTime is returned.
func (s *Screen) Confirm() error {
	s.mu.Lock()
	hours, minutes := s.form.Hours, s.form.Minutes
	ok := ValidTime(hours, minutes)
	if ok {
		s.form.ConfirmedTime = hours + ":" + minutes
	}
	s.mu.Unlock()

	if !ok {
		s.metrics.InvalidTime()
		s.logger.Debug("rejected time confirmation",
			slog.String("hours", hours),
			slog.String("minutes", minutes))
		s.notifier.Notify(InvalidTimeMessage)
		return ErrInvalidTime
	}
	return nil
}

// ValidTime reports whether hours and minutes would be accepted by Confirm.
func ValidTime(hours, minutes string) bool {
	return validTimeEdit(hours) && validTimeEdit(minutes) &&
		inRange(hours, 23) && inRange(minutes, 59)
}

func inRange(v string, upper int) bool {
	if v == "" {
		return false
	}
	n, err := strconv.Atoi(v)
	return err == nil && n >= 0 && n <= upper
}

// Begin starts a new fetch from the current form and makes it the only
// request whose completion will be applied.
func (s *Screen) Begin() (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Request{}, ErrClosed
	}

	s.seq++
	s.pending = true
	return Request{
		Seq:   s.seq,
		Query: schedule.NewQuery(s.form.Start, s.form.Destination, s.form.ConfirmedTime),
	}, nil
}

// Complete applies the outcome of req. It returns false, changing nothing,
// when req is no longer the latest request or the screen has been closed.
//
// A successful result replaces the stored trips after sorting them by
// arrival time. A failure keeps the previous trips and records
// FetchErrorMessage.
func (s *Screen) Complete(req Request, trips []schedule.Trip, fetchErr error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		s.metrics.DiscardResponse("closed")
		return false
	case req.Seq != s.seq:
		s.metrics.DiscardResponse("stale")
		s.logger.Debug("discarding stale response",
			slog.Uint64("seq", req.Seq),
			slog.Uint64("latest", s.seq))
		return false
	}

	s.pending = false

	if fetchErr != nil {
		logging.LogError(s.logger, "Error fetching schedules", fetchErr,
			slog.String("query", req.Query.Encode()))
		s.fetchErr = FetchErrorMessage
		return true
	}

	sorted := make([]schedule.Trip, len(trips))
	copy(sorted, trips)
	schedule.SortByArrival(sorted)

	s.trips = sorted
	s.fetchErr = ""
	return true
}

// Submit runs a complete fetch for the current form on the calling
// goroutine. It returns the fetch error, ErrStale if a newer request was
// begun meanwhile, or ErrClosed.
func (s *Screen) Submit(ctx context.Context) error {
	req, err := s.Begin()
	if err != nil {
		return err
	}

	trips, fetchErr := s.fetcher.Fetch(ctx, req.Query)
	if !s.Complete(req, trips, fetchErr) {
		if s.Closed() {
			return ErrClosed
		}
		return ErrStale
	}
	return fetchErr
}

// Fetch runs req against the screen's fetcher without touching any state.
// Front ends that fetch on their own goroutine pair it with Complete.
func (s *Screen) Fetch(ctx context.Context, req Request) ([]schedule.Trip, error) {
	return s.fetcher.Fetch(ctx, req.Query)
}

// Snapshot returns a deep copy of the current state.
func (s *Screen) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Form:       s.form,
		FetchError: s.fetchErr,
		Pending:    s.pending,
		Closed:     s.closed,
		Trips:      []schedule.Trip{},
	}
	if err := copier.CopyWithOption(&snap.Trips, &s.trips, copier.Option{DeepCopy: true}); err != nil {
		logging.LogError(s.logger, "failed to copy trips", err)
	}
	return snap
}

// Close tears the screen down. Later completions are discarded. Close is
// idempotent.
func (s *Screen) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.pending = false
	s.metrics.ScreenClosed()
}

func (s *Screen) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
