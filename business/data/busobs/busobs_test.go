package busobs

import (
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/bustrust/bustrust/business/data/bustime"
)

func Test_MakeObservation(t *testing.T) {
	is := is.New(t)
	pulledAt := time.Date(2024, 1, 19, 11, 42, 5, 0, time.UTC)
	vehicle := bustime.Vehicle{
		Id:              "4387",
		Timestamp:       "20240119 11:42",
		Latitude:        "41.87243",
		Longitude:       "-87.63920",
		Heading:         "359",
		PatternId:       5342,
		PatternDistance: 12934,
		RouteId:         "22",
		Destination:     "Howard",
		Delayed:         true,
		TripId:          "1007686",
		BlockId:         "22 -712",
	}

	observation := MakeObservation(&vehicle, pulledAt, "22,36,146", "weekday")

	is.Equal(observation.VehicleId, "4387")
	is.Equal(observation.ReportedAt, "20240119 11:42")
	is.Equal(observation.Latitude, "41.87243")
	is.Equal(observation.Longitude, "-87.63920")
	is.Equal(observation.Heading, "359")
	is.Equal(observation.PatternId, 5342)
	is.Equal(observation.PatternDistance, 12934)
	is.Equal(observation.RouteId, "22")
	is.Equal(observation.Destination, "Howard")
	is.Equal(observation.Delayed, true)
	is.Equal(observation.TripId, "1007686")
	is.Equal(observation.BlockId, "22 -712")
	is.Equal(observation.PulledAt, pulledAt)
	is.Equal(observation.RouteGroup, "22,36,146")
	is.Equal(observation.ServiceDay, "weekday")
	is.True(observation.CreatedAt.IsZero()) // set when the row is recorded
}
