package store

import (
	"errors"
	"testing"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

var base = time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)

func snapshotAt(minutes int, temps map[int]float64) weather.Snapshot {
	snap := weather.Snapshot{FetchedAt: base.Add(time.Duration(minutes) * time.Minute)}
	for id, v := range temps {
		snap.Stations = append(snap.Stations, weather.Station{StationID: id, Temperature: weather.Float(v)})
	}
	return snap
}

func TestGetLatestEmpty(t *testing.T) {
	s := NewMemoryStore(0, 0)
	if _, err := s.GetLatest(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRetentionByCount(t *testing.T) {
	s := NewMemoryStore(2, 0)
	for i := 0; i < 5; i++ {
		s.SaveSnapshot(snapshotAt(i, nil))
	}

	if s.Len() != 2 {
		t.Fatalf("expected 2 snapshots, got %d", s.Len())
	}
	latest, err := s.GetLatest()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !latest.FetchedAt.Equal(base.Add(4 * time.Minute)) {
		t.Fatalf("unexpected latest snapshot time %v", latest.FetchedAt)
	}
}

func TestRetentionByAgeKeepsNewest(t *testing.T) {
	s := NewMemoryStore(0, 10*time.Minute)
	s.now = func() time.Time { return base.Add(time.Hour) }

	s.SaveSnapshot(snapshotAt(0, nil))
	if s.Len() != 1 {
		t.Fatalf("expected the newest snapshot to be kept even when expired, got %d", s.Len())
	}

	s.SaveSnapshot(snapshotAt(55, nil))
	if s.Len() != 1 {
		t.Fatalf("expected the expired snapshot to be dropped, got %d", s.Len())
	}

	s.SaveSnapshot(snapshotAt(58, nil))
	if s.Len() != 2 {
		t.Fatalf("expected 2 snapshots, got %d", s.Len())
	}
}

func TestGetRangeInclusive(t *testing.T) {
	s := NewMemoryStore(0, 0)
	for i := 0; i < 4; i++ {
		s.SaveSnapshot(snapshotAt(i*10, nil))
	}

	got, err := s.GetRange(base.Add(10*time.Minute), base.Add(20*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(got))
	}

	if _, err := s.GetRange(base.Add(time.Hour), base.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStationHistory(t *testing.T) {
	s := NewMemoryStore(0, 0)
	s.SaveSnapshot(snapshotAt(0, map[int]float64{1: 10, 2: 4}))
	s.SaveSnapshot(snapshotAt(10, map[int]float64{2: 5}))
	s.SaveSnapshot(snapshotAt(20, map[int]float64{1: 12}))

	got, err := s.StationHistory(1, base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(got))
	}
	if *got[1].Station.Temperature != 12 {
		t.Fatalf("expected latest reading 12, got %v", *got[1].Station.Temperature)
	}

	if _, err := s.StationHistory(3, base, base.Add(time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown station, got %v", err)
	}
}
