// Package dataset loads the published exam list and manifest and keeps the
// current snapshot for readers.
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	appLog "examsync/internal/log"
	"examsync/internal/model"
)

// Dataset is one wholesale snapshot of the published data.
type Dataset struct {
	Exams []model.Exam
	// Manifest is nil when the summary document is missing or unreadable.
	Manifest *model.Manifest
	LoadedAt time.Time
}

// Sources names where the two documents live.
type Sources struct {
	Exams   string
	Summary string
}

// Load fetches and decodes both documents. A failing manifest is logged
// and tolerated; a failing exam list is an error.
func Load(ctx context.Context, f *Fetcher, src Sources) (Dataset, error) {
	res, err := f.Fetch(ctx, src.Exams)
	if err != nil {
		return Dataset{}, fmt.Errorf("load exams: %w", err)
	}
	exams, err := DecodeExams(res.Body)
	if err != nil {
		return Dataset{}, fmt.Errorf("decode exams: %w", err)
	}

	ds := Dataset{Exams: exams, LoadedAt: time.Now()}

	if src.Summary != "" {
		if m, err := loadManifest(ctx, f, src.Summary); err != nil {
			appLog.Warn("manifest unavailable", "source", src.Summary, "err", err)
		} else {
			ds.Manifest = m
		}
	}
	return ds, nil
}

func loadManifest(ctx context.Context, f *Fetcher, src string) (*model.Manifest, error) {
	res, err := f.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	var m model.Manifest
	if err := json.Unmarshal(res.Body, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DecodeExams parses the exam list and orders it for display.
func DecodeExams(body []byte) ([]model.Exam, error) {
	var exams []model.Exam
	if err := json.Unmarshal(body, &exams); err != nil {
		return nil, err
	}
	SortByStart(exams)
	return exams, nil
}

// SortByStart orders timed exams by their start string ascending and puts
// time-pending exams last. The sort is stable.
func SortByStart(exams []model.Exam) {
	sort.SliceStable(exams, func(i, j int) bool {
		a, b := exams[i], exams[j]
		switch {
		case a.HasStartTime() && b.HasStartTime():
			return a.StartTimestamp < b.StartTimestamp
		case a.HasStartTime():
			return true
		default:
			return false
		}
	})
}

// Store holds the current Dataset. Refresh replaces it wholesale.
type Store struct {
	fetcher *Fetcher
	sources Sources

	mu      sync.RWMutex
	current Dataset
}

func NewStore(f *Fetcher, src Sources) *Store {
	return &Store{fetcher: f, sources: src}
}

// Snapshot returns the current dataset. Callers must not mutate it.
func (s *Store) Snapshot() Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set installs a dataset directly, e.g. in tests.
func (s *Store) Set(ds Dataset) {
	s.mu.Lock()
	s.current = ds
	s.mu.Unlock()
}

// Refresh reloads both documents. On failure the previous snapshot stays
// in place.
func (s *Store) Refresh(ctx context.Context) error {
	ds, err := Load(ctx, s.fetcher, s.sources)
	if err != nil {
		return err
	}
	s.Set(ds)
	appLog.Info("dataset refreshed", "exams", len(ds.Exams), "manifest", ds.Manifest != nil)
	return nil
}
