// Package session implements the single-slot recording state machine.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/starford/hypnos/internal/apperr"
	"github.com/starford/hypnos/internal/band"
	"github.com/starford/hypnos/internal/store"
)

// Manager owns the process-wide active-recording slot. The state is either
// idle or exactly one active recording; all transitions and sample writes
// are serialized through a single lock so that a sample can never be
// attributed to a recording that has already been stopped.
type Manager struct {
	mu     sync.Mutex
	db     store.RecordingStore
	active *store.Recording
}

// NewManager creates a session manager in the idle state.
func NewManager(db store.RecordingStore) *Manager {
	return &Manager{db: db}
}

// Start begins a new recording and returns its identity. Fails with
// apperr.ErrAlreadyRecording when a recording is active. Identity
// assignment is delegated to the store's create transaction, so two
// concurrent starts never observe the same maximum.
func (m *Manager) Start(_ context.Context, name, description string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return 0, apperr.ErrAlreadyRecording
	}

	now := time.Now()
	if name == "" {
		name = "EEG_Recording_" + now.Format("20060102_150405")
	}
	if description == "" {
		description = "EEG data recording"
	}

	rec := &store.Recording{
		Name:        name,
		Description: description,
		StartTime:   now,
		EndTime:     now, // end time mirrors start until stopped
	}
	if err := m.db.CreateRecording(rec); err != nil {
		return 0, fmt.Errorf("session: create recording: %w", err)
	}
	m.active = rec
	return rec.ID, nil
}

// Stop ends the active recording, persists its end time, and returns the
// stopped identity. Fails with apperr.ErrNotRecording when idle.
func (m *Manager) Stop(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return 0, apperr.ErrNotRecording
	}

	m.active.EndTime = time.Now()
	if err := m.db.SaveRecording(m.active); err != nil {
		return 0, fmt.Errorf("session: save recording: %w", err)
	}
	id := m.active.ID
	m.active = nil
	return id, nil
}

// Record persists a sample tied to the active recording and increments its
// data-point count. A no-op when idle.
func (m *Manager) Record(_ context.Context, v band.Vector, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil
	}

	if err := m.db.AppendSample(SampleFromVector(m.active.ID, v, ts)); err != nil {
		return fmt.Errorf("session: append sample: %w", err)
	}
	m.active.DataCount++
	return nil
}

// Active returns the active recording's identity, or false when idle.
func (m *Manager) Active() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return 0, false
	}
	return m.active.ID, true
}

// SampleFromVector builds a persistable sample from a band vector. Flat
// band values populate both low and high splits; explicit splits win.
func SampleFromVector(recordingID int64, v band.Vector, ts time.Time) store.Sample {
	lowAlpha, highAlpha := v.Split(band.Alpha)
	lowBeta, highBeta := v.Split(band.Beta)
	lowGamma, highGamma := v.Split(band.Gamma)
	return store.Sample{
		RecordingID:   recordingID,
		Time:          ts,
		Delta:         v.Flat(band.Delta),
		Theta:         v.Flat(band.Theta),
		LowAlpha:      lowAlpha,
		HighAlpha:     highAlpha,
		LowBeta:       lowBeta,
		HighBeta:      highBeta,
		LowGamma:      lowGamma,
		HighGamma:     highGamma,
		Attention:     v.Band("Attention"),
		Meditation:    v.Band("Meditation"),
		SignalQuality: v.Band("SignalQuality"),
	}
}
