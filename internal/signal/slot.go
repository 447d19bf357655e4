package signal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/calebmsmith/vrpdesk/models"
)

// Slot is the single-slot signal handoff between the signal job and the
// trade job: one JSON file, overwritten on every signal run. The writer
// and reader run on disjoint cron schedules; the rename below keeps a
// reader that does overlap from seeing a torn write.
type Slot struct {
	Path string
}

// Write replaces the slot contents with rec.
func (s Slot) Write(rec models.SignalRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("creating signal dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding signal: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing signal: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("publishing signal: %w", err)
	}
	return nil
}

// Read returns the current slot contents. A missing file is not an
// error: ok is false and the caller treats it as "no trade". A record
// older than maxAge is rejected with models.ErrStaleSignal so a missed
// signal run can never trigger an entry on yesterday's numbers.
func (s Slot) Read(now time.Time, maxAge time.Duration) (rec models.SignalRecord, ok bool, err error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.SignalRecord{}, false, nil
		}
		return models.SignalRecord{}, false, fmt.Errorf("reading signal slot: %w", err)
	}

	if err := json.Unmarshal(data, &rec); err != nil {
		return models.SignalRecord{}, false, fmt.Errorf("parsing signal slot: %w", err)
	}

	if age := now.Sub(rec.Timestamp); age > maxAge {
		return models.SignalRecord{}, false, fmt.Errorf("signal from %s is %s old (max %s): %w",
			rec.Timestamp.Format(time.RFC3339), age.Round(time.Minute), maxAge, models.ErrStaleSignal)
	}
	return rec, true, nil
}
