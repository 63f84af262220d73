package memstore

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"

	"demandcast/internal/domain"
	"demandcast/internal/port"
)

// Snapshot is the read-only candidate store: catalog items in load order and
// each item's history sorted by date. It is built once and never mutated, so
// concurrent readers need no locking.
type Snapshot struct {
	items  []domain.CatalogItem
	byID   map[string]int
	series map[string][]domain.Observation
}

// SeriesLoader is implemented by sources that can return every series at once.
type SeriesLoader interface {
	AllSeries(ctx context.Context) (map[string][]domain.Observation, error)
}

// NewSnapshot normalizes ids, drops duplicate ids (first wins) and sorts each
// series chronologically.
func NewSnapshot(items []domain.CatalogItem, series map[string][]domain.Observation) *Snapshot {
	s := &Snapshot{
		items:  make([]domain.CatalogItem, 0, len(items)),
		byID:   make(map[string]int, len(items)),
		series: make(map[string][]domain.Observation, len(series)),
	}

	for _, item := range items {
		item.ID = domain.NormalizeID(item.ID)
		if item.ID == "" {
			continue
		}
		if _, dup := s.byID[item.ID]; dup {
			continue
		}
		s.byID[item.ID] = len(s.items)
		s.items = append(s.items, item)
	}

	for id, obs := range series {
		key := domain.NormalizeID(id)
		merged := append(append([]domain.Observation(nil), s.series[key]...), obs...)
		sort.SliceStable(merged, func(i, j int) bool {
			return merged[i].Date.Before(merged[j].Date)
		})
		s.series[key] = merged
	}

	return s
}

// Load builds a snapshot from a source. Sources implementing SeriesLoader are
// read in one call; others are asked once per catalog item.
func Load(ctx context.Context, src port.Source) (*Snapshot, error) {
	items, err := src.Items(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}

	var series map[string][]domain.Observation
	if bulk, ok := src.(SeriesLoader); ok {
		series, err = bulk.AllSeries(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "load history")
		}
	} else {
		series = make(map[string][]domain.Observation, len(items))
		for _, item := range items {
			obs, err := src.Series(ctx, item.ID)
			if err != nil {
				return nil, errors.Wrapf(err, "load history for %s", item.ID)
			}
			if len(obs) > 0 {
				series[item.ID] = obs
			}
		}
	}

	return NewSnapshot(items, series), nil
}

// Items returns the catalog in load order. The slice is shared; callers must
// not modify it.
func (s *Snapshot) Items(_ context.Context) ([]domain.CatalogItem, error) {
	return s.items, nil
}

// Lookup finds an item by id, normalizing the id first.
func (s *Snapshot) Lookup(id string) (domain.CatalogItem, bool) {
	i, ok := s.byID[domain.NormalizeID(id)]
	if !ok {
		return domain.CatalogItem{}, false
	}
	return s.items[i], true
}

// Series returns the chronologically sorted history for id, or nil.
func (s *Snapshot) Series(_ context.Context, id string) ([]domain.Observation, error) {
	return s.series[domain.NormalizeID(id)], nil
}

func (s *Snapshot) Len() int {
	return len(s.items)
}
