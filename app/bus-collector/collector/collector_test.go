package collector

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/bustrust/bustrust/business/data/bustime"
)

// busTimeFake serves a fixed route list and one vehicle per getvehicles
// request, optionally failing requests for one route group
type busTimeFake struct {
	mu            sync.Mutex
	routeCount    int
	failGroupWith string
	vehicleCalls  int
	failedCalls   int
	rowsServed    int
}

func (f *busTimeFake) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/getroutes":
			routes := make([]string, 0, f.routeCount)
			for i := 0; i < f.routeCount; i++ {
				routes = append(routes, fmt.Sprintf(`{"rt": "r%d"}`, i))
			}
			_, _ = fmt.Fprintf(w, `{"bustime-response": {"routes": [%s]}}`, strings.Join(routes, ","))
		case "/getvehicles":
			f.mu.Lock()
			defer f.mu.Unlock()
			f.vehicleCalls++
			if f.failGroupWith != "" && strings.Contains(r.URL.Query().Get("rt"), f.failGroupWith) {
				f.failedCalls++
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			f.rowsServed++
			_, _ = fmt.Fprintf(w, `{"bustime-response": {"vehicle": [`+
				`{"vid": "%d", "tmstmp": "20240119 11:42", "lat": "41.8", "lon": "-87.6", "rt": "22"}]}}`,
				4000+f.vehicleCalls)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func runTestLoop(t *testing.T, fake *busTimeFake, outDir string) {
	t.Helper()
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := bustime.NewClient(testChunkLogger(), server.Client(), server.URL, "test-key")
	shutdown := make(chan os.Signal, 1)

	err := RunCollectorLoop(testChunkLogger(), client, nil, nil, nil, Config{
		GroupSize:     10,
		Runtime:       250 * time.Millisecond,
		GroupSleep:    5 * time.Millisecond,
		SweepSleep:    10 * time.Millisecond,
		ChunkDuration: time.Hour,
		ChunkPolicy:   ChunkRetain,
		OutDir:        outDir,
		DisableUpload: true,
		StatusPort:    0,
	}, shutdown)
	if err != nil {
		t.Fatalf("RunCollectorLoop() unexpected error: %v", err)
	}
}

func countChunkRows(t *testing.T, outDir string) int {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(outDir, "bus_data_*.csv"))
	if err != nil {
		t.Fatalf("unable to list chunk files: %v", err)
	}
	rows := 0
	for _, path := range paths {
		records := readChunkFile(t, path)
		rows += len(records) - 1 // drop the header
	}
	return rows
}

func Test_RunCollectorLoop_rowsMatchSuccessfulFetches(t *testing.T) {
	is := is.New(t)
	fake := &busTimeFake{routeCount: 23}
	outDir := t.TempDir()

	runTestLoop(t, fake, outDir)

	is.True(fake.vehicleCalls > 0)
	// rows written equal the rows returned by successful fetches
	is.Equal(countChunkRows(t, outDir), fake.rowsServed)
}

func Test_RunCollectorLoop_failedGroupIsSkipped(t *testing.T) {
	is := is.New(t)
	// 23 routes in groups of 10: the third group is r20,r21,r22
	fake := &busTimeFake{routeCount: 23, failGroupWith: "r20"}
	outDir := t.TempDir()

	runTestLoop(t, fake, outDir)

	// a failing group never aborts the run and contributes no rows
	is.True(fake.failedCalls > 0)
	is.True(fake.vehicleCalls > fake.failedCalls)
	is.Equal(countChunkRows(t, outDir), fake.rowsServed)
}

func Test_RunCollectorLoop_routeDiscoveryFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"bustime-response": {"routes": []}}`))
	}))
	defer server.Close()

	client := bustime.NewClient(testChunkLogger(), server.Client(), server.URL, "test-key")
	shutdown := make(chan os.Signal, 1)
	err := RunCollectorLoop(testChunkLogger(), client, nil, nil, nil, Config{
		GroupSize:     10,
		Runtime:       time.Second,
		ChunkDuration: time.Hour,
		ChunkPolicy:   ChunkRetain,
		OutDir:        t.TempDir(),
		DisableUpload: true,
	}, shutdown)
	if err == nil {
		t.Fatalf("expected error when route discovery returns no routes")
	}
}
