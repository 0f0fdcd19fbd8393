package collector

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bustrust/bustrust/business/data/bustime"
	"github.com/bustrust/bustrust/foundation/objectstore"
)

// objectKeyPrefix is the folder all chunk files are uploaded under
const objectKeyPrefix = "data_collection"

// fileStampFormat is the timestamp layout used in chunk file names
const fileStampFormat = "2006-01-02_15-04-05"

// ChunkPolicy selects how local chunk files are rolled and disposed of
type ChunkPolicy int

const (
	// ChunkRetain rolls to a new file every window and keeps uploaded files locally
	ChunkRetain ChunkPolicy = iota
	// ChunkDelete keeps a single live file which is deleted after a successful
	// upload; a failed upload blocks window advancement so no data is lost locally
	ChunkDelete
	// ChunkNone accumulates the entire run into one file, uploaded once at shutdown
	ChunkNone
)

// ParseChunkPolicy converts a configuration value to a ChunkPolicy
func ParseChunkPolicy(name string) (ChunkPolicy, error) {
	switch strings.ToLower(name) {
	case "retain":
		return ChunkRetain, nil
	case "delete":
		return ChunkDelete, nil
	case "none":
		return ChunkNone, nil
	}
	return ChunkRetain, fmt.Errorf("unknown chunk policy %q, expected retain, delete or none", name)
}

// String - Stringer interface for ChunkPolicy
func (p ChunkPolicy) String() string {
	switch p {
	case ChunkRetain:
		return "retain"
	case ChunkDelete:
		return "delete"
	case ChunkNone:
		return "none"
	}
	return "unknown"
}

// uploader sends a finished local file to the remote object store
type uploader interface {
	upload(localPath string, key string) (string, error)
}

// storeUploader implements uploader against foundation/objectstore
type storeUploader struct {
	store *objectstore.Store
}

func (s *storeUploader) upload(localPath string, key string) (string, error) {
	return s.store.UploadFile(context.Background(), localPath, key)
}

// chunkWriter accumulates polled rows into the single open chunk file and
// owns the window rollover state machine. It is used by exactly one
// goroutine; the only suspension points around it are the loop sleeps.
type chunkWriter struct {
	log      *log.Logger
	dir      string
	duration time.Duration
	policy   ChunkPolicy
	location *time.Location
	uploader uploader
	counters *runCounters

	windowStart time.Time
	boundary    time.Time
	path        string
	file        *os.File
	csvWriter   *csv.Writer
}

// makeChunkWriter creates a chunkWriter whose first window starts at now.
// Windows are anchored at process start, not aligned to clock boundaries.
func makeChunkWriter(log *log.Logger,
	dir string,
	duration time.Duration,
	policy ChunkPolicy,
	location *time.Location,
	up uploader,
	counters *runCounters,
	now time.Time) (*chunkWriter, error) {

	if policy != ChunkNone && duration <= 0 {
		return nil, fmt.Errorf("chunk duration must be positive, got %s", duration)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	w := &chunkWriter{
		log:         log,
		dir:         dir,
		duration:    duration,
		policy:      policy,
		location:    location,
		uploader:    up,
		counters:    counters,
		windowStart: now,
		boundary:    now.Add(duration),
	}
	w.path = w.chunkFilePath(now)
	counters.setCurrentChunk(w.path)
	return w, nil
}

// chunkFilePath names the file for a window starting at start. The unchunked
// policy has no window end to put in the name.
func (w *chunkWriter) chunkFilePath(start time.Time) string {
	startStamp := start.In(w.location).Format(fileStampFormat)
	if w.policy == ChunkNone {
		return filepath.Join(w.dir, fmt.Sprintf("bus_data_%s_chicago.csv", startStamp))
	}
	endStamp := start.Add(w.duration).In(w.location).Format(fileStampFormat)
	return filepath.Join(w.dir, fmt.Sprintf("bus_data_%s_to_%s_chicago.csv", startStamp, endStamp))
}

// appendVehicles writes one csv row per vehicle, tagged with the pull time
// and the route group that produced it. The file is created on first use so
// an empty window leaves nothing behind.
func (w *chunkWriter) appendVehicles(vehicles []bustime.Vehicle, pulledAt string, routeGroup string) (int, error) {
	if len(vehicles) == 0 {
		return 0, nil
	}
	if w.file == nil {
		if err := w.openFile(); err != nil {
			return 0, err
		}
	}
	for i := range vehicles {
		record := append(vehicles[i].CSVRow(), pulledAt, routeGroup)
		if err := w.csvWriter.Write(record); err != nil {
			return 0, fmt.Errorf("writing row to %s: %w", w.path, err)
		}
	}
	w.csvWriter.Flush()
	if err := w.csvWriter.Error(); err != nil {
		return 0, fmt.Errorf("flushing rows to %s: %w", w.path, err)
	}
	return len(vehicles), nil
}

// openFile opens the current chunk file in append mode, writing the header
// only when the file is empty. A rollover blocked by a failed upload reopens
// an already-populated file and must not repeat the header.
func (w *chunkWriter) openFile() error {
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening chunk file %s: %w", w.path, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("stat chunk file %s: %w", w.path, err)
	}
	w.file = file
	w.csvWriter = csv.NewWriter(file)
	if info.Size() == 0 {
		header := append(append([]string{}, bustime.VehicleCSVHeader...), "pulled_at", "rt_chunk")
		if err = w.csvWriter.Write(header); err != nil {
			return fmt.Errorf("writing header to %s: %w", w.path, err)
		}
		w.csvWriter.Flush()
		if err = w.csvWriter.Error(); err != nil {
			return fmt.Errorf("flushing header to %s: %w", w.path, err)
		}
	}
	return nil
}

// maybeRollover closes and uploads the current chunk when now has crossed the
// window boundary. Callers check at the top of every sweep and before every
// group fetch so a long sweep cannot skip a boundary.
func (w *chunkWriter) maybeRollover(now time.Time) {
	if w.policy == ChunkNone {
		return
	}
	if now.Before(w.boundary) {
		return
	}

	w.closeFile()
	released := w.uploadCurrent("rollover")

	if w.policy == ChunkDelete {
		if !released {
			// the window does not advance until its data has made it to the
			// object store; rows keep accumulating into the same file and the
			// next attempt waits a full window so failures are not hammered
			w.boundary = now.Add(w.duration)
			return
		}
		if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
			w.log.Printf("error removing uploaded chunk file %s: %v\n", w.path, err)
		}
	}
	w.advanceWindow(now)
}

// finalize closes the open chunk and attempts one last upload of whatever
// remains, regardless of where the window boundary sits.
func (w *chunkWriter) finalize() {
	w.closeFile()
	w.uploadCurrent("final")
}

// uploadCurrent attempts one upload of the current chunk file. The return
// value reports whether the local copy no longer needs to be kept: true on a
// successful upload or when there is no file to upload, false on upload
// failure or when uploads are disabled.
func (w *chunkWriter) uploadCurrent(reason string) bool {
	if _, err := os.Stat(w.path); os.IsNotExist(err) {
		return true
	}
	if w.uploader == nil {
		return false
	}
	key := fmt.Sprintf("%s/%s", objectKeyPrefix, filepath.Base(w.path))
	destination, err := w.uploader.upload(w.path, key)
	w.counters.recordUploadAttempt(err)
	if err != nil {
		w.log.Printf("upload error (%s) for %s: %v\n", reason, w.path, err)
		return false
	}
	w.log.Printf("uploaded (%s) -> %s\n", reason, destination)
	return true
}

// advanceWindow opens the next window at now
func (w *chunkWriter) advanceWindow(now time.Time) {
	w.windowStart = now
	w.boundary = now.Add(w.duration)
	w.path = w.chunkFilePath(now)
	w.counters.setCurrentChunk(w.path)
	w.log.Printf("--- rolled over to new chunk file: %s\n", w.path)
}

// closeFile flushes and closes the open chunk file if there is one
func (w *chunkWriter) closeFile() {
	if w.file == nil {
		return
	}
	w.csvWriter.Flush()
	if err := w.csvWriter.Error(); err != nil {
		w.log.Printf("error flushing chunk file %s: %v\n", w.path, err)
	}
	if err := w.file.Close(); err != nil {
		w.log.Printf("error closing chunk file %s: %v\n", w.path, err)
	}
	w.file = nil
	w.csvWriter = nil
}
