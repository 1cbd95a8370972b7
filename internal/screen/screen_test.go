package screen

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busfinder/busfinder/internal/logging"
	"github.com/busfinder/busfinder/internal/metrics"
	"github.com/busfinder/busfinder/internal/schedule"
)

type fakeFetcher struct {
	mu      sync.Mutex
	queries []schedule.Query
	trips   []schedule.Trip
	err     error
}

func (f *fakeFetcher) Fetch(_ context.Context, q schedule.Query) ([]schedule.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.trips, f.err
}

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.messages = append(n.messages, message)
}

func trip(vehicle, label, arrival string) schedule.Trip {
	return schedule.Trip{
		VehicleNumber: vehicle,
		Trip:          label,
		Stations: []schedule.Station{
			{Station: "Koramangala", ArrivalTime: arrival, DepartureTime: arrival},
		},
	}
}

func newTestScreen(f Fetcher) (*Screen, *recordingNotifier, *metrics.Metrics) {
	n := &recordingNotifier{}
	m := metrics.New()
	return New(f, n, logging.Discard(), m), n, m
}

func TestNewScreenDefaults(t *testing.T) {
	s, _, m := newTestScreen(&fakeFetcher{})

	snap := s.Snapshot()
	assert.Equal(t, FormState{Hours: "00", Minutes: "00"}, snap.Form)
	assert.Empty(t, snap.Trips)
	assert.Empty(t, snap.FetchError)
	assert.False(t, snap.Pending)
	assert.False(t, snap.Closed)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ActiveScreens))
}

func TestSetHourAndMinute(t *testing.T) {
	tests := []struct {
		input    string
		accepted bool
	}{
		{input: "", accepted: true},
		{input: "0", accepted: true},
		{input: "07", accepted: true},
		{input: "99", accepted: true},
		{input: "123", accepted: false},
		{input: "1a", accepted: false},
		{input: "-1", accepted: false},
		{input: " 1", accepted: false},
		{input: "1.", accepted: false},
		{input: "٣", accepted: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			s, _, _ := newTestScreen(&fakeFetcher{})
			require.True(t, s.SetHour("12"))
			require.True(t, s.SetMinute("34"))

			assert.Equal(t, tt.accepted, s.SetHour(tt.input))
			assert.Equal(t, tt.accepted, s.SetMinute(tt.input))

			form := s.Snapshot().Form
			if tt.accepted {
				assert.Equal(t, tt.input, form.Hours)
				assert.Equal(t, tt.input, form.Minutes)
			} else {
				assert.Equal(t, "12", form.Hours)
				assert.Equal(t, "34", form.Minutes)
			}
		})
	}
}

func TestConfirmAcceptsAllValidTimes(t *testing.T) {
	s, n, _ := newTestScreen(&fakeFetcher{})

	for h := 0; h <= 23; h++ {
		for m := 0; m <= 59; m++ {
			hours := twoDigits(h)
			minutes := twoDigits(m)
			require.True(t, s.SetHour(hours))
			require.True(t, s.SetMinute(minutes))

			require.NoError(t, s.Confirm())
			assert.Equal(t, hours+":"+minutes, s.Snapshot().Form.ConfirmedTime)
		}
	}
	assert.Empty(t, n.messages)
}

func twoDigits(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}

func TestConfirmUsesFieldsLiterally(t *testing.T) {
	s, _, _ := newTestScreen(&fakeFetcher{})
	s.SetHour("8")
	s.SetMinute("5")

	require.NoError(t, s.Confirm())
	assert.Equal(t, "8:5", s.Snapshot().Form.ConfirmedTime)
}

func TestConfirmRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		hours   string
		minutes string
	}{
		{hours: "25", minutes: "00"},
		{hours: "24", minutes: "00"},
		{hours: "12", minutes: "60"},
		{hours: "99", minutes: "99"},
		{hours: "", minutes: ""},
		{hours: "", minutes: "30"},
		{hours: "08", minutes: ""},
	}

	for _, tt := range tests {
		t.Run(tt.hours+":"+tt.minutes, func(t *testing.T) {
			s, n, m := newTestScreen(&fakeFetcher{})
			s.SetHour("08")
			s.SetMinute("30")
			require.NoError(t, s.Confirm())

			s.SetHour(tt.hours)
			s.SetMinute(tt.minutes)
			err := s.Confirm()

			assert.ErrorIs(t, err, ErrInvalidTime)
			assert.Equal(t, "08:30", s.Snapshot().Form.ConfirmedTime, "confirmed time must not change")
			assert.Equal(t, []string{InvalidTimeMessage}, n.messages)
			assert.Equal(t, float64(1), testutil.ToFloat64(m.InvalidTimeConfirmations))
		})
	}
}

func TestConfirmRejectionLeavesEmptyConfirmedTime(t *testing.T) {
	s, n, _ := newTestScreen(&fakeFetcher{})
	s.SetHour("25")
	s.SetMinute("00")

	assert.ErrorIs(t, s.Confirm(), ErrInvalidTime)
	assert.Empty(t, s.Snapshot().Form.ConfirmedTime)
	assert.Len(t, n.messages, 1)
}

func TestSubmitBuildsQuery(t *testing.T) {
	f := &fakeFetcher{trips: []schedule.Trip{}}
	s, _, _ := newTestScreen(f)

	s.SetStart("Koramangala")
	s.SetDestination("Indiranagar ")
	s.SetHour("08")
	s.SetMinute("30")
	require.NoError(t, s.Confirm())

	require.NoError(t, s.Submit(context.Background()))

	require.Len(t, f.queries, 1)
	assert.Equal(t, "departure=koramangala&destination=indiranagar&time=08:30", f.queries[0].Encode())
}

func TestSubmitWithoutConfirmedTimeSendsEmptyTime(t *testing.T) {
	f := &fakeFetcher{trips: []schedule.Trip{}}
	s, _, _ := newTestScreen(f)
	s.SetStart("MG Road")
	s.SetDestination("Silk Board")
	s.SetHour("11")

	require.NoError(t, s.Submit(context.Background()))
	assert.Equal(t, "departure=mg+road&destination=silk+board&time=", f.queries[0].Encode())
}

func TestSubmitStoresSortedTrips(t *testing.T) {
	f := &fakeFetcher{trips: []schedule.Trip{
		trip("v2", "late", "10:00"),
		trip("v1", "early", "07:00"),
	}}
	s, _, _ := newTestScreen(f)

	require.NoError(t, s.Submit(context.Background()))

	snap := s.Snapshot()
	require.Len(t, snap.Trips, 2)
	assert.Equal(t, "early", snap.Trips[0].Trip)
	assert.Equal(t, "late", snap.Trips[1].Trip)
	assert.False(t, snap.Pending)

	// the fetcher's slice is not reordered
	assert.Equal(t, "late", f.trips[0].Trip)
}

func TestSubmitFailureKeepsPreviousTrips(t *testing.T) {
	f := &fakeFetcher{trips: []schedule.Trip{trip("v1", "a", "07:00")}}
	s, _, _ := newTestScreen(f)
	require.NoError(t, s.Submit(context.Background()))

	f.trips = nil
	f.err = errors.New("network unreachable")
	err := s.Submit(context.Background())

	assert.EqualError(t, err, "network unreachable")
	snap := s.Snapshot()
	require.Len(t, snap.Trips, 1)
	assert.Equal(t, "a", snap.Trips[0].Trip)
	assert.Equal(t, FetchErrorMessage, snap.FetchError)

	f.err = nil
	f.trips = []schedule.Trip{}
	require.NoError(t, s.Submit(context.Background()))
	snap = s.Snapshot()
	assert.Empty(t, snap.FetchError)
	assert.Empty(t, snap.Trips)
}

func TestStaleResponsesAreDiscarded(t *testing.T) {
	s, _, m := newTestScreen(&fakeFetcher{})

	first, err := s.Begin()
	require.NoError(t, err)
	second, err := s.Begin()
	require.NoError(t, err)
	assert.Greater(t, second.Seq, first.Seq)

	// the newer request resolves first
	assert.True(t, s.Complete(second, []schedule.Trip{trip("v2", "second", "09:00")}, nil))
	// the older one arrives late and must not overwrite
	assert.False(t, s.Complete(first, []schedule.Trip{trip("v1", "first", "08:00")}, nil))

	snap := s.Snapshot()
	require.Len(t, snap.Trips, 1)
	assert.Equal(t, "second", snap.Trips[0].Trip)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DiscardedResponsesTotal.WithLabelValues("stale")))
}

func TestStaleFailureDoesNotSetError(t *testing.T) {
	s, _, _ := newTestScreen(&fakeFetcher{})

	first, _ := s.Begin()
	second, _ := s.Begin()

	assert.False(t, s.Complete(first, nil, errors.New("timeout")))
	assert.True(t, s.Snapshot().Pending)
	assert.Empty(t, s.Snapshot().FetchError)

	assert.True(t, s.Complete(second, []schedule.Trip{}, nil))
	assert.False(t, s.Snapshot().Pending)
}

func TestCloseDiscardsLateCompletions(t *testing.T) {
	s, _, m := newTestScreen(&fakeFetcher{})

	req, err := s.Begin()
	require.NoError(t, err)

	s.Close()
	s.Close()

	assert.False(t, s.Complete(req, []schedule.Trip{trip("v", "t", "08:00")}, nil))
	assert.Empty(t, s.Snapshot().Trips)
	assert.True(t, s.Closed())

	_, err = s.Begin()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Submit(context.Background()), ErrClosed)

	assert.Equal(t, float64(0), testutil.ToFloat64(m.ActiveScreens))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DiscardedResponsesTotal.WithLabelValues("closed")))
}

type closingFetcher struct {
	screen *Screen
}

func (f *closingFetcher) Fetch(context.Context, schedule.Query) ([]schedule.Trip, error) {
	f.screen.Close()
	return []schedule.Trip{}, nil
}

func TestSubmitReportsCloseDuringFetch(t *testing.T) {
	f := &closingFetcher{}
	s, _, _ := newTestScreen(f)
	f.screen = s

	assert.ErrorIs(t, s.Submit(context.Background()), ErrClosed)
}

type supersedingFetcher struct {
	screen *Screen
}

func (f *supersedingFetcher) Fetch(context.Context, schedule.Query) ([]schedule.Trip, error) {
	_, _ = f.screen.Begin()
	return []schedule.Trip{}, nil
}

func TestSubmitReportsStale(t *testing.T) {
	f := &supersedingFetcher{}
	s, _, _ := newTestScreen(f)
	f.screen = s

	assert.ErrorIs(t, s.Submit(context.Background()), ErrStale)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	f := &fakeFetcher{trips: []schedule.Trip{trip("v1", "a", "07:00")}}
	s, _, _ := newTestScreen(f)
	require.NoError(t, s.Submit(context.Background()))

	snap := s.Snapshot()
	snap.Trips[0].Trip = "mutated"
	snap.Trips[0].Stations[0].Station = "mutated"

	again := s.Snapshot()
	assert.Equal(t, "a", again.Trips[0].Trip)
	assert.Equal(t, "Koramangala", again.Trips[0].Stations[0].Station)
}

func TestConcurrentUse(t *testing.T) {
	f := &fakeFetcher{trips: []schedule.Trip{trip("v1", "a", "07:00")}}
	s, _, _ := newTestScreen(f)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_ = s.Submit(context.Background())
		}()
		go func() {
			defer wg.Done()
			s.SetHour("09")
			_ = s.Confirm()
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Len(t, snap.Trips, 1)
	assert.False(t, snap.Pending)
}

func TestNilCollaborators(t *testing.T) {
	s := New(&fakeFetcher{}, nil, nil, nil)
	s.SetHour("77")

	assert.NotPanics(t, func() {
		assert.ErrorIs(t, s.Confirm(), ErrInvalidTime)
		s.Close()
	})
}
