// Package bustime retrieves routes and vehicle locations from a BusTime
// vehicle-tracking API and loads them into plain structs.
package bustime

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL points at the CTA BusTime v3 api
const DefaultBaseURL = "https://www.ctabustracker.com/bustime/api/v3"

// Client issues requests against one BusTime api instance
type Client struct {
	log     *log.Logger
	http    *http.Client
	baseURL string
	key     string
}

// NewClient creates a Client for the api at baseURL authenticated with key
func NewClient(log *log.Logger, httpClient *http.Client, baseURL string, key string) *Client {
	return &Client{
		log:     log,
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
	}
}

// endpointURL builds the full url for an api operation with the key and json
// format parameters always present
func (c *Client) endpointURL(operation string, params url.Values) string {
	values := make(url.Values)
	for name, value := range params {
		values[name] = value
	}
	values.Set("key", c.key)
	values.Set("format", "json")
	return fmt.Sprintf("%s/%s?%s", c.baseURL, operation, values.Encode())
}

// apiError is one error entry in a bustime-response envelope
type apiError struct {
	Route   string `json:"rt"`
	Message string `json:"msg"`
}

func (e *apiError) String() string {
	if e.Route == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (rt=%s)", e.Message, e.Route)
}

// joinAPIErrors formats all error entries from an envelope for logging
func joinAPIErrors(errors []apiError) string {
	messages := make([]string, 0, len(errors))
	for i := range errors {
		messages = append(messages, errors[i].String())
	}
	return strings.Join(messages, "; ")
}
