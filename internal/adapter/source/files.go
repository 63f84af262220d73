// Package source loads the inventory catalog and daily history from data
// files or from the inventory database.
package source

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"demandcast/internal/domain"
	"demandcast/internal/logger"
	"demandcast/internal/port"
)

// Files is a catalog and history source read once from CSV and XLSX files.
// Items keep first-seen order across files in walk order.
type Files struct {
	items  []domain.CatalogItem
	series map[string][]domain.Observation
}

// LoadFiles walks dir and reads every matching data file.
func LoadFiles(dir string, walker port.FileWalker, log *zap.SugaredLogger) (*Files, error) {
	log = logger.OrNop(log)

	found, err := walker.Walk(dir)
	if err != nil {
		return nil, err
	}

	t := newTable()
	read := 0
	for _, f := range found {
		switch strings.ToLower(filepath.Ext(f.Path)) {
		case ".csv":
			err = readCSV(f.Path, t, log)
		case ".xlsx", ".xlsm":
			err = readXLSX(f.Path, t, log)
		default:
			log.Debugw("Ignoring file with unknown extension", logger.FieldFile, f.Path)
			continue
		}
		if err != nil {
			return nil, err
		}
		read++
	}
	if read == 0 {
		return nil, errors.WithHint(
			errors.Newf("no data files found in %s", dir),
			"Check catalog.dir and catalog.includes in demandcast.yaml.",
		)
	}

	log.Infow("Loaded data files",
		logger.FieldCount, read,
		logger.FieldItems, len(t.items),
	)
	return &Files{items: t.items, series: t.series}, nil
}

func (f *Files) Items(ctx context.Context) ([]domain.CatalogItem, error) {
	out := make([]domain.CatalogItem, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *Files) Series(ctx context.Context, id string) ([]domain.Observation, error) {
	return f.series[domain.NormalizeID(id)], nil
}

// AllSeries returns every item's history keyed by id.
func (f *Files) AllSeries(ctx context.Context) (map[string][]domain.Observation, error) {
	return f.series, nil
}
