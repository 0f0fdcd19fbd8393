// Package collector polls a BusTime vehicle feed on a fixed cadence,
// accumulates rows into time-bounded csv chunk files and uploads finished
// chunks to the object store.
package collector

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"

	"github.com/bustrust/bustrust/business/data/bustime"
	"github.com/bustrust/bustrust/foundation/objectstore"
)

// pulledAtFormat is the timestamp layout written into the pulled_at column
const pulledAtFormat = "2006-01-02 15:04:05 MST"

// collectionTimeZone anchors chunk file names and pull timestamps
const collectionTimeZone = "America/Chicago"

// Config holds the knobs for one collection run
type Config struct {
	GroupSize        int
	Runtime          time.Duration
	GroupSleep       time.Duration
	SweepSleep       time.Duration
	ChunkDuration    time.Duration
	ChunkPolicy      ChunkPolicy
	OutDir           string
	DisableUpload    bool
	NatsSubject      string
	PublishOverNats  bool
	RecordToDatabase bool
	StatusPort       int
}

// RunCollectorLoop discovers the tracked routes once, then sweeps all route
// groups on a fixed cadence until the runtime budget is spent or a shutdown
// signal arrives, appending every successful fetch to the open chunk file.
// The loop is single threaded; sleeps are its only suspension points.
func RunCollectorLoop(log *log.Logger,
	client *bustime.Client,
	store *objectstore.Store,
	db *sqlx.DB,
	natsConnection *nats.Conn,
	cfg Config,
	shutdownSignal chan os.Signal) error {

	location, err := time.LoadLocation(collectionTimeZone)
	if err != nil {
		return fmt.Errorf("loading %s time zone: %w", collectionTimeZone, err)
	}

	// route discovery failure is fatal: there is nothing to poll without it
	routes, err := client.GetRoutes()
	if err != nil {
		return fmt.Errorf("discovering routes: %w", err)
	}
	groups := bustime.GroupRouteIds(bustime.RouteIds(routes), cfg.GroupSize)
	log.Printf("found %d routes -> %d groups\n", len(routes), len(groups))

	counters := newRunCounters()
	publisher := makeObservationPublisher(log, db, natsConnection, cfg.NatsSubject,
		cfg.RecordToDatabase, cfg.PublishOverNats)

	var up uploader
	if store != nil && !cfg.DisableUpload {
		up = &storeUploader{store: store}
		log.Printf("upload enabled -> %s/%s\n", store.Bucket(), objectKeyPrefix)
	} else {
		log.Printf("upload disabled\n")
	}

	writer, err := makeChunkWriter(log, cfg.OutDir, cfg.ChunkDuration, cfg.ChunkPolicy,
		location, up, counters, time.Now())
	if err != nil {
		return err
	}
	log.Printf("chunk policy %s, current chunk file: %s\n", cfg.ChunkPolicy, writer.path)
	log.Printf("group sleep: %s | sweep sleep: %s | runtime: %s\n",
		cfg.GroupSleep, cfg.SweepSleep, cfg.Runtime)

	webShutdown := make(chan bool)
	wg := sync.WaitGroup{}
	go runStatusWebService(log, &wg, counters, cfg.StatusPort, webShutdown)

	endAt := time.Now().Add(cfg.Runtime)
	interrupted := false

	for !interrupted && time.Now().Before(endAt) {

		writer.maybeRollover(time.Now())
		sweep := counters.startSweep()
		log.Printf("--- sweep %d @ %s ---\n", sweep, time.Now().In(location).Format(pulledAtFormat))

		for i, group := range groups {
			if !time.Now().Before(endAt) {
				break
			}
			// check the boundary inside the sweep too, a slow sweep must not
			// skip a rollover
			writer.maybeRollover(time.Now())

			routeGroup := strings.Join(group, ",")
			pulledAt := time.Now().In(location)

			vehicles, fetchErr := client.GetVehicles(group)
			if fetchErr != nil {
				call := counters.recordFailedCall()
				log.Printf("[call %d] group %d/%d error: %v\n", call, i+1, len(groups), fetchErr)
			} else {
				rows, appendErr := writer.appendVehicles(vehicles, pulledAt.Format(pulledAtFormat), routeGroup)
				if appendErr != nil {
					log.Printf("error appending rows to chunk file: %v\n", appendErr)
				}
				call, total := counters.recordCall(rows)
				log.Printf("[call %d] group %d/%d: appended %d rows (total %d) -> %s\n",
					call, i+1, len(groups), rows, total, filepath.Base(writer.path))
				publisher.publish(vehicles, pulledAt, routeGroup)
			}

			interrupted = sleepInterruptible(boundedSleep(cfg.GroupSleep, endAt), shutdownSignal)
			if interrupted {
				break
			}
		}

		if interrupted || !time.Now().Before(endAt) {
			break
		}
		sleepNow := boundedSleep(cfg.SweepSleep, endAt)
		log.Printf("--- sweep %d complete. sleeping %s ---\n", sweep, sleepNow.Round(time.Second))
		interrupted = sleepInterruptible(sleepNow, shutdownSignal)
	}

	if interrupted {
		log.Printf("exiting on shutdown signal\n")
	}

	// one final upload of the last, possibly partial, chunk
	writer.finalize()

	webShutdown <- true
	wg.Wait()

	report := counters.snapshot()
	log.Printf("done. sweeps: %d, calls: %d (%d failed), total rows written: %d\n",
		report.Sweeps, report.Calls, report.FailedCalls, report.RowsWritten)
	return nil
}

// boundedSleep trims d so a sleep never runs past the runtime budget
func boundedSleep(d time.Duration, endAt time.Time) time.Duration {
	remaining := time.Until(endAt)
	if remaining < 0 {
		return 0
	}
	if d > remaining {
		return remaining
	}
	return d
}

// sleepInterruptible sleeps for d unless a shutdown signal arrives first,
// reporting true when it did
func sleepInterruptible(d time.Duration, shutdownSignal chan os.Signal) bool {
	if d <= 0 {
		select {
		case <-shutdownSignal:
			return true
		default:
			return false
		}
	}
	sleepChan := make(chan bool, 1)
	go func() {
		time.Sleep(d)
		sleepChan <- true
	}()
	select {
	case <-shutdownSignal:
		return true
	case <-sleepChan:
		return false
	}
}
