// Package storage persists strategy order books and the routed signal
// table as JSON files so a restart resumes where the previous run left
// off.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/topgrade691028/binkiller/internal/signal"
	"github.com/topgrade691028/binkiller/internal/strategy"
)

const (
	stateFile   = "data.json"
	signalsFile = "signals.json"
)

// Store reads and writes the persistent snapshot under a single
// directory.
type Store struct {
	log zerolog.Logger
	dir string
}

// NewStore creates the data directory if needed.
func NewStore(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
	}
	return &Store{dir: dir, log: log.With().Str("component", "storage").Logger()}, nil
}

// LoadState reads the per-strategy order books. A missing file is not
// an error: the bot simply starts cold.
func (s *Store) LoadState() (strategy.State, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, stateFile))
	if errors.Is(err, fs.ErrNotExist) {
		return strategy.State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", stateFile, err)
	}
	var state strategy.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode %s: %w", stateFile, err)
	}
	return state, nil
}

// SaveState writes the per-strategy order books atomically.
func (s *Store) SaveState(state strategy.State) error {
	return s.writeJSON(stateFile, state)
}

// LoadSignals reads the routed signal table keyed by signal id.
func (s *Store) LoadSignals() (map[string]*signal.Signal, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, signalsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]*signal.Signal{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", signalsFile, err)
	}
	var signals map[string]*signal.Signal
	if err := json.Unmarshal(raw, &signals); err != nil {
		return nil, fmt.Errorf("decode %s: %w", signalsFile, err)
	}
	return signals, nil
}

// SaveSignals writes the routed signal table atomically.
func (s *Store) SaveSignals(signals map[string]*signal.Signal) error {
	return s.writeJSON(signalsFile, signals)
}

// writeJSON stages into a temp file in the same directory and renames
// over the target so readers never observe a partial write.
func (s *Store) writeJSON(name string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("stage %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("stage %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// StateSource is the live state the autosaver snapshots.
type StateSource interface {
	ExportState() strategy.State
}

// SignalSource is the live signal table the autosaver snapshots.
type SignalSource interface {
	Signals() map[string]*signal.Signal
}

// AutoSave snapshots on a ticker until ctx is done, then takes one
// final snapshot so shutdown never loses the last interval.
func (s *Store) AutoSave(ctx context.Context, interval time.Duration, states StateSource, signals SignalSource) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.snapshot(states, signals)
			return
		case <-ticker.C:
			s.snapshot(states, signals)
		}
	}
}

func (s *Store) snapshot(states StateSource, signals SignalSource) {
	if err := s.SaveState(states.ExportState()); err != nil {
		s.log.Error().Err(err).Msg("failed to save strategy state")
		return
	}
	if err := s.SaveSignals(signals.Signals()); err != nil {
		s.log.Error().Err(err).Msg("failed to save signal table")
		return
	}
	s.log.Debug().Msg("snapshot written")
}
