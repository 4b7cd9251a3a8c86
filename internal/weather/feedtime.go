package weather

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// The feed publishes local Dutch time, mostly without a zone designator.
var feedLocation = mustLoadLocation("Europe/Amsterdam")

var feedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// FeedTime decodes the feed's timestamp variants.
type FeedTime struct {
	time.Time
}

func (t *FeedTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range feedLayouts {
		if ts, err := time.ParseInLocation(layout, s, feedLocation); err == nil {
			t.Time = ts
			return nil
		}
	}
	return fmt.Errorf("invalid feed timestamp %q", s)
}

func (t FeedTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
