package collector

import (
	"sync"
	"time"
)

// runCounters holds the loop counters for one collection run. The poll loop
// is the only writer; the status web service reads snapshots concurrently.
type runCounters struct {
	mu               sync.RWMutex
	startedAt        time.Time
	sweeps           int
	calls            int
	failedCalls      int
	rowsWritten      int
	uploadAttempts   int
	uploadFailures   int
	currentChunkFile string
}

func newRunCounters() *runCounters {
	return &runCounters{startedAt: time.Now()}
}

// startSweep increments the sweep counter and returns the new sweep number
func (c *runCounters) startSweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweeps++
	return c.sweeps
}

// recordCall counts one successful fetch and the rows it appended,
// returning the running call number and row total
func (c *runCounters) recordCall(rows int) (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.rowsWritten += rows
	return c.calls, c.rowsWritten
}

// recordFailedCall counts one failed fetch, returning the running call number
func (c *runCounters) recordFailedCall() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.failedCalls++
	return c.calls
}

func (c *runCounters) recordUploadAttempt(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploadAttempts++
	if err != nil {
		c.uploadFailures++
	}
}

func (c *runCounters) setCurrentChunk(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentChunkFile = path
}

// statusReport is the json shape served by the status web service
type statusReport struct {
	StartedAt        time.Time `json:"started_at"`
	Sweeps           int       `json:"sweeps"`
	Calls            int       `json:"calls"`
	FailedCalls      int       `json:"failed_calls"`
	RowsWritten      int       `json:"rows_written"`
	UploadAttempts   int       `json:"upload_attempts"`
	UploadFailures   int       `json:"upload_failures"`
	CurrentChunkFile string    `json:"current_chunk_file"`
}

func (c *runCounters) snapshot() statusReport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return statusReport{
		StartedAt:        c.startedAt,
		Sweeps:           c.sweeps,
		Calls:            c.calls,
		FailedCalls:      c.failedCalls,
		RowsWritten:      c.rowsWritten,
		UploadAttempts:   c.uploadAttempts,
		UploadFailures:   c.uploadFailures,
		CurrentChunkFile: c.currentChunkFile,
	}
}
