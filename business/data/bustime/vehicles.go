package bustime

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/bustrust/bustrust/foundation/httpclient"
)

// Vehicle contains fields read from one getvehicles entry.
// Numeric-looking fields the api serves as strings stay strings so rows can
// be written back out without reformatting surprises.
type Vehicle struct {
	Id              string `json:"vid"`
	Timestamp       string `json:"tmstmp"`
	Latitude        string `json:"lat"`
	Longitude       string `json:"lon"`
	Heading         string `json:"hdg"`
	PatternId       int    `json:"pid"`
	PatternDistance int    `json:"pdist"`
	RouteId         string `json:"rt"`
	Destination     string `json:"des"`
	Delayed         bool   `json:"dly"`
	SpeedMph        int    `json:"spd"`
	TripId          string `json:"tatripid"`
	OriginalTripNo  string `json:"origtatripno"`
	BlockId         string `json:"tablockid"`
	Zone            string `json:"zone"`
	PassengerLoad   string `json:"psgld"`
}

// vehiclesResponse is the bustime-response envelope for getvehicles
type vehiclesResponse struct {
	Envelope struct {
		Vehicles []Vehicle  `json:"vehicle"`
		Errors   []apiError `json:"error"`
	} `json:"bustime-response"`
}

// GetVehicles retrieves current vehicle locations for the routes named in
// routeIds. An empty result is normal: the api reports routes with no active
// vehicles in the envelope's error list, which is not a failure.
func (c *Client) GetVehicles(routeIds []string) ([]Vehicle, error) {
	params := make(url.Values)
	params.Set("rt", strings.Join(routeIds, ","))

	body, err := httpclient.Get(c.log, c.http, c.endpointURL("getvehicles", params))
	if err != nil {
		return nil, fmt.Errorf("retrieving vehicles: %w", err)
	}

	var response vehiclesResponse
	if err = json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("unmarshaling getvehicles response: %w", err)
	}

	if len(response.Envelope.Vehicles) == 0 && len(response.Envelope.Errors) > 0 {
		c.log.Printf("no vehicles for rt=%s: %s\n",
			strings.Join(routeIds, ","), joinAPIErrors(response.Envelope.Errors))
	}
	return response.Envelope.Vehicles, nil
}

// VehicleCSVHeader lists the upstream columns in the order CSVRow writes them
var VehicleCSVHeader = []string{
	"vid", "tmstmp", "lat", "lon", "hdg", "pid", "pdist", "rt", "des",
	"dly", "spd", "tatripid", "origtatripno", "tablockid", "zone", "psgld",
}

// CSVRow renders the vehicle as one csv record matching VehicleCSVHeader
func (v *Vehicle) CSVRow() []string {
	return []string{
		v.Id,
		v.Timestamp,
		v.Latitude,
		v.Longitude,
		v.Heading,
		strconv.Itoa(v.PatternId),
		strconv.Itoa(v.PatternDistance),
		v.RouteId,
		v.Destination,
		strconv.FormatBool(v.Delayed),
		strconv.Itoa(v.SpeedMph),
		v.TripId,
		v.OriginalTripNo,
		v.BlockId,
		v.Zone,
		v.PassengerLoad,
	}
}
