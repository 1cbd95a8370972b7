// Package render projects stored trips into display cards and draws them as
// plain text. The web templates and the terminal view consume the same cards.
package render

import (
	"strconv"

	"github.com/busfinder/busfinder/internal/schedule"
)

// Card is the display form of one trip.
type Card struct {
	Key      string
	Title    string
	Subtitle string
	Rows     []Row
}

// Row is the display form of one station stop.
type Row struct {
	Station string
	Times   string
}

// TripKey identifies a trip by vehicle number and trip label.
func TripKey(t schedule.Trip) string {
	return t.VehicleNumber + "/" + t.Trip
}

// Cards builds one card per trip in the given order. Keys are derived from
// TripKey; repeated keys get a "#2", "#3"... suffix in order of appearance so
// that every card key is unique.
func Cards(trips []schedule.Trip) []Card {
	if len(trips) == 0 {
		return nil
	}

	seen := make(map[string]int, len(trips))
	cards := make([]Card, 0, len(trips))
	for _, t := range trips {
		key := TripKey(t)
		seen[key]++
		if n := seen[key]; n > 1 {
			key += "#" + strconv.Itoa(n)
		}

		card := Card{
			Key:      key,
			Title:    "Vehicle: " + t.VehicleNumber,
			Subtitle: "Trip: " + t.Trip,
			Rows:     make([]Row, 0, len(t.Stations)),
		}
		for _, st := range t.Stations {
			card.Rows = append(card.Rows, Row{
				Station: st.Station,
				Times:   "Arrival: " + st.ArrivalTime + " | Departure: " + st.DepartureTime,
			})
		}
		cards = append(cards, card)
	}
	return cards
}

// SelectedTime is the label shown under the time inputs, empty when no time
// has been confirmed.
func SelectedTime(confirmed string) string {
	if confirmed == "" {
		return ""
	}
	return "Selected Time: " + confirmed
}
