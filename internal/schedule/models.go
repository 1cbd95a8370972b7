// Package schedule is the client side of the remote bus schedule API: the
// response model, the query builder and the HTTP fetcher.
package schedule

// Trip is one scheduled vehicle run as returned by the schedule API.
type Trip struct {
	VehicleNumber string    `json:"vehicle_number"`
	Trip          string    `json:"trip"`
	Stations      []Station `json:"stations"`
}

// Station is a single stop of a Trip. Times are passed through verbatim.
type Station struct {
	Station       string `json:"station"`
	ArrivalTime   string `json:"arrivalTime"`
	DepartureTime string `json:"departureTime"`
}
