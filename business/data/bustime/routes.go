package bustime

import (
	"encoding/json"
	"fmt"

	"github.com/bustrust/bustrust/foundation/httpclient"
)

// Route is one tracked route from the getroutes operation
type Route struct {
	Id    string `json:"rt"`
	Name  string `json:"rtnm"`
	Color string `json:"rtclr"`
}

// routesResponse is the bustime-response envelope for getroutes
type routesResponse struct {
	Envelope struct {
		Routes []Route    `json:"routes"`
		Errors []apiError `json:"error"`
	} `json:"bustime-response"`
}

// GetRoutes retrieves the full list of tracked routes. An empty route list is
// an error: the caller cannot poll anything without it.
func (c *Client) GetRoutes() ([]Route, error) {
	body, err := httpclient.Get(c.log, c.http, c.endpointURL("getroutes", nil))
	if err != nil {
		return nil, fmt.Errorf("retrieving routes: %w", err)
	}

	var response routesResponse
	if err = json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("unmarshaling getroutes response: %w", err)
	}

	routes := make([]Route, 0, len(response.Envelope.Routes))
	for _, route := range response.Envelope.Routes {
		if route.Id == "" {
			continue
		}
		routes = append(routes, route)
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("no routes returned. error: %s", joinAPIErrors(response.Envelope.Errors))
	}
	return routes, nil
}

// RouteIds returns the identifiers of routes in their original order
func RouteIds(routes []Route) []string {
	ids := make([]string, 0, len(routes))
	for _, route := range routes {
		ids = append(ids, route.Id)
	}
	return ids
}

// GroupRouteIds partitions ids into groups of at most size identifiers,
// preserving order. The api limits how many routes one request may name.
func GroupRouteIds(ids []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	var groups [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		groups = append(groups, ids[start:end])
	}
	return groups
}
