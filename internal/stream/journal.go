// Package stream implements the duplex ingestion channel and the rotating
// append-only log artifact it feeds.
package stream

import (
	"fmt"
	"sync"
	"time"

	"github.com/starford/hypnos/internal/storage"
)

// DefaultMaxLogSize is the rotation threshold for the ingest log.
const DefaultMaxLogSize = 5 << 20 // 5 MiB

// Journal manages the process-wide rotating ingest log. The current file
// name and the check-size-then-rotate decision are guarded by one lock so
// two concurrent writers can never rotate to two different files.
type Journal struct {
	mu      sync.Mutex
	logs    storage.Provider
	current string
	maxSize int64
	seq     uint64
}

// NewJournal creates a journal writing into the given artifact store.
func NewJournal(logs storage.Provider, maxSize int64) *Journal {
	if maxSize <= 0 {
		maxSize = DefaultMaxLogSize
	}
	j := &Journal{logs: logs, maxSize: maxSize}
	j.current = j.nextName()
	return j
}

func (j *Journal) nextName() string {
	j.seq++
	return fmt.Sprintf("eeg_data_%s_%04d.txt", time.Now().Format("20060102_150405"), j.seq)
}

// Append writes one line to the current log, rotating first when the file
// exceeds the size threshold. The whole decision is one critical section.
func (j *Journal) Append(line string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	size, err := j.logs.Size(j.current)
	if err != nil {
		return fmt.Errorf("stream: journal size: %w", err)
	}
	if size > j.maxSize {
		j.current = j.nextName()
	}
	return j.logs.Append(j.current, []byte(line+"\n"))
}

// Snapshot returns the current log's name, absolute path, and size without
// rotating it. Callers analyse the returned path outside the journal lock.
func (j *Journal) Snapshot() (name, abs string, size int64, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	size, err = j.logs.Size(j.current)
	if err != nil {
		return "", "", 0, fmt.Errorf("stream: journal size: %w", err)
	}
	abs, err = j.logs.Abs(j.current)
	if err != nil {
		return "", "", 0, err
	}
	return j.current, abs, size, nil
}

// Rotate switches to a fresh log file and returns its name.
func (j *Journal) Rotate() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.current = j.nextName()
	return j.current
}

// Current returns the current log file's name.
func (j *Journal) Current() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.current
}
