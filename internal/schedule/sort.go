package schedule

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SortByArrival orders trips by the arrival time of their first station,
// falling back to its departure time when arrival is blank. The sort is
// stable; trips without a parseable time keep their relative order after
// all the others.
func SortByArrival(trips []Trip) {
	keyed := make([]keyedTrip, len(trips))
	for i, t := range trips {
		key := tripSortKey(t)
		if key < 0 {
			key = math.MaxInt
		}
		keyed[i] = keyedTrip{key: key, trip: t}
	}

	sort.SliceStable(keyed, func(a, b int) bool {
		return keyed[a].key < keyed[b].key
	})

	for i := range keyed {
		trips[i] = keyed[i].trip
	}
}

type keyedTrip struct {
	key  int
	trip Trip
}

// tripSortKey returns seconds since midnight, or -1 when unknown.
func tripSortKey(t Trip) int {
	if len(t.Stations) == 0 {
		return -1
	}
	first := t.Stations[0]
	if s := strings.TrimSpace(first.ArrivalTime); s != "" {
		return ParseClock(s)
	}
	return ParseClock(first.DepartureTime)
}

// ParseClock converts "H:MM", "HH:MM", "HH:MM:SS", a 12-hour "3:04 PM" or an
// RFC 3339 timestamp to seconds since midnight. Hours past 23 are allowed
// for services running after midnight. It returns -1 for anything else.
func ParseClock(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return -1
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Hour()*3600 + t.Minute()*60 + t.Second()
	}
	if t, err := time.Parse("3:04 PM", strings.ToUpper(s)); err == nil {
		return t.Hour()*3600 + t.Minute()*60
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return -1
	}

	var values [3]int
	for i, p := range parts {
		if p == "" || (i > 0 && len(p) != 2) || !allDigits(p) {
			return -1
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return -1
		}
		values[i] = n
	}
	if values[1] > 59 || values[2] > 59 {
		return -1
	}
	return values[0]*3600 + values[1]*60 + values[2]
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
