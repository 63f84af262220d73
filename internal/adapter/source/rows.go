package source

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"demandcast/internal/domain"
)

// Column keys after header normalization (lowercase, separators removed).
const (
	colDate              = "date"
	colInventoryID       = "inventoryid"
	colItemName          = "itemname"
	colOpeningStock      = "openingstock"
	colClosingStock      = "closingstock"
	colQuantityConsumed  = "quantityconsumed"
	colQuantityRestocked = "quantityrestocked"
	colLeadTimeDays      = "leadtimedays"
	colMinStockLimit     = "minstocklimit"
	colMaxCapacity       = "maxcapacity"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
}

// rowParser maps one header row to column positions. A column may appear more
// than once (Lead_Time_Days and lead_time_days); the first non-empty cell wins.
type rowParser struct {
	cols map[string][]int
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(h)
}

func newRowParser(header []string) (*rowParser, error) {
	p := &rowParser{cols: make(map[string][]int)}
	for i, h := range header {
		key := normalizeHeader(h)
		p.cols[key] = append(p.cols[key], i)
	}
	for _, required := range []string{colDate, colInventoryID} {
		if _, ok := p.cols[required]; !ok {
			return nil, errors.Newf("missing required column %q", required)
		}
	}
	return p, nil
}

func (p *rowParser) cell(row []string, key string) string {
	for _, i := range p.cols[key] {
		if i < len(row) {
			if v := strings.TrimSpace(row[i]); v != "" {
				return v
			}
		}
	}
	return ""
}

func (p *rowParser) number(row []string, key string) (*float64, error) {
	raw := p.cell(row, key)
	if raw == "" || strings.EqualFold(raw, "nan") || strings.EqualFold(raw, "null") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "column %s", key)
	}
	if math.IsNaN(v) {
		return nil, nil
	}
	return &v, nil
}

// parse returns the row's id, display name and observation. A blank id yields
// an empty id and no error; callers skip such rows.
func (p *rowParser) parse(row []string) (string, string, domain.Observation, error) {
	var obs domain.Observation

	id := domain.NormalizeID(p.cell(row, colInventoryID))
	if id == "" {
		return "", "", obs, nil
	}
	name := p.cell(row, colItemName)

	date, err := parseDate(p.cell(row, colDate))
	if err != nil {
		return "", "", obs, err
	}
	obs.Date = date

	fields := []struct {
		key string
		dst **float64
	}{
		{colOpeningStock, &obs.OpeningStock},
		{colClosingStock, &obs.ClosingStock},
		{colQuantityConsumed, &obs.QuantityConsumed},
		{colQuantityRestocked, &obs.QuantityRestocked},
		{colLeadTimeDays, &obs.LeadTimeDays},
		{colMinStockLimit, &obs.MinStockLimit},
		{colMaxCapacity, &obs.MaxCapacity},
	}
	for _, fld := range fields {
		v, err := p.number(row, fld.key)
		if err != nil {
			return "", "", obs, err
		}
		*fld.dst = v
	}

	return id, name, obs, nil
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, errors.Newf("unrecognized date %q", raw)
}

// table accumulates parsed rows into a catalog and per-item series.
type table struct {
	items  []domain.CatalogItem
	index  map[string]int
	series map[string][]domain.Observation
}

func newTable() *table {
	return &table{
		index:  make(map[string]int),
		series: make(map[string][]domain.Observation),
	}
}

// add records one row. The first non-blank name seen for an id becomes its
// display name.
func (t *table) add(id, name string, obs domain.Observation) {
	i, ok := t.index[id]
	if !ok {
		t.index[id] = len(t.items)
		t.items = append(t.items, domain.CatalogItem{ID: id, DisplayName: name})
	} else if t.items[i].DisplayName == "" {
		t.items[i].DisplayName = name
	}
	t.series[id] = append(t.series[id], obs)
}
