// Package busobs records polled vehicle observations to the database
package busobs

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bustrust/bustrust/business/data/bustime"
)

// Observation is one polled vehicle location tagged with the poll metadata.
// Rows are appended, never updated.
type Observation struct {
	VehicleId       string    `db:"vehicle_id" json:"vehicle_id"`
	ReportedAt      string    `db:"reported_at" json:"reported_at"`
	Latitude        string    `db:"latitude" json:"latitude"`
	Longitude       string    `db:"longitude" json:"longitude"`
	Heading         string    `db:"heading" json:"heading"`
	PatternId       int       `db:"pattern_id" json:"pattern_id"`
	PatternDistance int       `db:"pattern_distance" json:"pattern_distance"`
	RouteId         string    `db:"route_id" json:"route_id"`
	Destination     string    `db:"destination" json:"destination"`
	Delayed         bool      `db:"delayed" json:"delayed"`
	TripId          string    `db:"trip_id" json:"trip_id"`
	BlockId         string    `db:"block_id" json:"block_id"`
	PulledAt        time.Time `db:"pulled_at" json:"pulled_at"`
	RouteGroup      string    `db:"route_group" json:"route_group"`
	//ServiceDay classifies the service schedule in effect when the
	//observation was pulled: weekday, saturday, sunday or holiday
	ServiceDay string    `db:"service_day" json:"service_day"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// MakeObservation builds an Observation from a polled vehicle and the sweep
// metadata it was pulled with
func MakeObservation(vehicle *bustime.Vehicle, pulledAt time.Time, routeGroup string, serviceDay string) Observation {
	return Observation{
		VehicleId:       vehicle.Id,
		ReportedAt:      vehicle.Timestamp,
		Latitude:        vehicle.Latitude,
		Longitude:       vehicle.Longitude,
		Heading:         vehicle.Heading,
		PatternId:       vehicle.PatternId,
		PatternDistance: vehicle.PatternDistance,
		RouteId:         vehicle.RouteId,
		Destination:     vehicle.Destination,
		Delayed:         vehicle.Delayed,
		TripId:          vehicle.TripId,
		BlockId:         vehicle.BlockId,
		PulledAt:        pulledAt,
		RouteGroup:      routeGroup,
		ServiceDay:      serviceDay,
	}
}

// RecordObservation saves one Observation into the database
func RecordObservation(observation *Observation, db *sqlx.DB) error {

	observation.CreatedAt = time.Now()

	statementString := "insert into vehicle_observation " +
		"(vehicle_id, " +
		"reported_at, " +
		"latitude, " +
		"longitude, " +
		"heading, " +
		"pattern_id, " +
		"pattern_distance, " +
		"route_id, " +
		"destination, " +
		"delayed, " +
		"trip_id, " +
		"block_id, " +
		"pulled_at, " +
		"route_group, " +
		"service_day, " +
		"created_at) " +
		"values " +
		"(:vehicle_id, " +
		":reported_at, " +
		":latitude, " +
		":longitude, " +
		":heading, " +
		":pattern_id, " +
		":pattern_distance, " +
		":route_id, " +
		":destination, " +
		":delayed, " +
		":trip_id, " +
		":block_id, " +
		":pulled_at, " +
		":route_group, " +
		":service_day, " +
		":created_at)"
	statementString = db.Rebind(statementString)
	_, err := db.NamedExec(statementString, observation)
	return err
}
