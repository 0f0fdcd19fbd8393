package bustime

import (
	"net/http"
	"reflect"
	"testing"
)

func Test_GetVehicles(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
		want    []Vehicle
	}{
		{
			name:   "one vehicle",
			status: http.StatusOK,
			body: `{"bustime-response": {"vehicle": [{` +
				`"vid": "4387", "tmstmp": "20240119 11:42", "lat": "41.87243", "lon": "-87.63920",` +
				`"hdg": "359", "pid": 5342, "pdist": 12934, "rt": "22", "des": "Howard",` +
				`"dly": false, "spd": 24, "tatripid": "1007686", "origtatripno": "259615897",` +
				`"tablockid": "22 -712", "zone": "", "psgld": "HALF_EMPTY"}]}}`,
			want: []Vehicle{
				{
					Id:              "4387",
					Timestamp:       "20240119 11:42",
					Latitude:        "41.87243",
					Longitude:       "-87.63920",
					Heading:         "359",
					PatternId:       5342,
					PatternDistance: 12934,
					RouteId:         "22",
					Destination:     "Howard",
					Delayed:         false,
					SpeedMph:        24,
					TripId:          "1007686",
					OriginalTripNo:  "259615897",
					BlockId:         "22 -712",
					Zone:            "",
					PassengerLoad:   "HALF_EMPTY",
				},
			},
		},
		{
			name:   "no vehicles on routes is not an error",
			status: http.StatusOK,
			body: `{"bustime-response": {"error": [` +
				`{"rt": "1", "msg": "No data found for parameter"}]}}`,
			want: nil,
		},
		{
			name:    "http failure",
			status:  http.StatusBadGateway,
			body:    "",
			wantErr: true,
		},
		{
			name:    "malformed json",
			status:  http.StatusOK,
			body:    `{"bustime-response": {"vehicle": [`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testServer(t, tt.status, tt.body, nil)
			defer server.Close()
			client := NewClient(testLogger(), server.Client(), server.URL, "test-key")
			got, err := client.GetVehicles([]string{"1", "22"})
			if (err != nil) != tt.wantErr {
				t.Errorf("GetVehicles() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GetVehicles() got = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func Test_GetVehicles_requestNamesRoutes(t *testing.T) {
	var requests []*http.Request
	server := testServer(t, http.StatusOK, `{"bustime-response": {"vehicle": []}}`, &requests)
	defer server.Close()

	client := NewClient(testLogger(), server.Client(), server.URL, "test-key")
	_, err := client.GetVehicles([]string{"1", "3", "X9"})
	if err != nil {
		t.Fatalf("GetVehicles() unexpected error: %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(requests))
	}
	request := requests[0]
	if request.URL.Path != "/getvehicles" {
		t.Errorf("expected path /getvehicles, got %s", request.URL.Path)
	}
	if got := request.URL.Query().Get("rt"); got != "1,3,X9" {
		t.Errorf("expected rt=1,3,X9, got %q", got)
	}
}

func Test_CSVRow(t *testing.T) {
	vehicle := Vehicle{
		Id:              "1310",
		Timestamp:       "20240119 11:42",
		Latitude:        "41.95041",
		Longitude:       "-87.71352",
		Heading:         "90",
		PatternId:       3123,
		PatternDistance: 401,
		RouteId:         "80",
		Destination:     "Cumberland",
		Delayed:         true,
		SpeedMph:        0,
		TripId:          "1001922",
		OriginalTripNo:  "259401111",
		BlockId:         "80 -403",
		Zone:            "Bay 1",
		PassengerLoad:   "FULL",
	}
	row := vehicle.CSVRow()
	if len(row) != len(VehicleCSVHeader) {
		t.Fatalf("CSVRow() has %d fields, header has %d", len(row), len(VehicleCSVHeader))
	}
	want := []string{
		"1310", "20240119 11:42", "41.95041", "-87.71352", "90", "3123", "401",
		"80", "Cumberland", "true", "0", "1001922", "259401111", "80 -403", "Bay 1", "FULL",
	}
	if !reflect.DeepEqual(row, want) {
		t.Errorf("CSVRow() = %v, want %v", row, want)
	}
}
