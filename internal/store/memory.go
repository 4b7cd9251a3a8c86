package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var (
	// ErrNotFound is returned when no snapshot matches a query.
	ErrNotFound = errors.New("no weather data")
)

// Reading is one station's measurements at the time of a snapshot.
type Reading struct {
	FetchedAt time.Time       `json:"fetchedAt"`
	Station   weather.Station `json:"station"`
}

// MemoryStore is a concurrency-safe, time-ordered history of feed snapshots.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots []weather.Snapshot

	// retention configuration
	maxHistory int           // max number of snapshots kept
	maxAge     time.Duration // optional max age for snapshots

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// SaveSnapshot appends a snapshot and enforces retention. The newest snapshot
// is always kept.
func (s *MemoryStore) SaveSnapshot(snapshot weather.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots = append(s.snapshots, snapshot)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.snapshots) > s.maxHistory {
		over := len(s.snapshots) - s.maxHistory
		s.snapshots = s.snapshots[over:]
	}

	// Enforce retention by age.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.snapshots)-1; i++ {
			if !s.snapshots[i].FetchedAt.Before(cutoff) {
				break
			}
		}
		s.snapshots = s.snapshots[i:]
	}
}

// GetLatest returns the most recent snapshot.
func (s *MemoryStore) GetLatest() (weather.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.snapshots) == 0 {
		return weather.Snapshot{}, ErrNotFound
	}
	return s.snapshots[len(s.snapshots)-1], nil
}

// GetRange returns all snapshots fetched between from and to (inclusive).
func (s *MemoryStore) GetRange(from, to time.Time) ([]weather.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []weather.Snapshot
	for _, snap := range s.snapshots {
		if inRange(snap.FetchedAt, from, to) {
			result = append(result, snap)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// StationHistory returns a station's readings between from and to
// (inclusive), oldest first. Snapshots without the station are skipped.
func (s *MemoryStore) StationHistory(stationID int, from, to time.Time) ([]Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Reading
	for _, snap := range s.snapshots {
		if !inRange(snap.FetchedAt, from, to) {
			continue
		}
		if st, ok := weather.FindStation(snap.Stations, stationID); ok {
			result = append(result, Reading{FetchedAt: snap.FetchedAt, Station: st})
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// Len reports the number of snapshots held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

func inRange(ts, from, to time.Time) bool {
	return !ts.Before(from) && !ts.After(to)
}
