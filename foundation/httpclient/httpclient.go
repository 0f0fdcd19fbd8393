// Package httpclient provides basic http functions
package httpclient

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"time"
)

// New creates a http.Client with a request timeout. A zero timeout produces a
// client that waits indefinitely.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// Get pulls bytes from url using a simple GET request.
// A non-2xx status is returned as an error; the body is not read in that case.
func Get(log *log.Logger, client *http.Client, url string) ([]byte, error) {

	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer func() {
		innerErr := resp.Body.Close()
		if innerErr != nil {
			log.Printf("error closing http response body. error: %v\n", innerErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("request failed (status=%d) for %s", resp.StatusCode, resp.Request.URL.Host)
	}

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
