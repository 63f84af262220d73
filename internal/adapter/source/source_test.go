package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"demandcast/internal/adapter/fs"
)

const historyCSV = `Date,Inventory_ID,Item_Name,Opening_Stock,Closing_Stock,Quantity_Consumed,Quantity_Restocked,Lead_Time_Days,min_stock_limit,max_capacity
2024-01-01,inv 001,Surgical Gloves,100,90,10,0,3,10,500
2024-01-02,INV001,Surgical Gloves,90,85,5,,3,10,500
2024-01-01,inv002,Face Masks,50,40,10,0,,,
not-a-date,INV003,Broken Row,1,1,1,0,1,1,1
2024-01-01,,Orphan,1,1,1,0,1,1,1
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadFiles_CSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "history.csv", historyCSV)

	src, err := LoadFiles(dir, fs.NewWalker([]string{"**/*.csv"}, nil), nil)
	require.NoError(t, err)

	items, err := src.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "INV001", items[0].ID)
	assert.Equal(t, "Surgical Gloves", items[0].DisplayName)
	assert.Equal(t, "INV002", items[1].ID)

	series, err := src.Series(context.Background(), "inv001")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), series[1].Date)
	require.NotNil(t, series[1].QuantityConsumed)
	assert.Equal(t, 5.0, *series[1].QuantityConsumed)
	assert.Nil(t, series[1].QuantityRestocked)

	masks, err := src.Series(context.Background(), "INV002")
	require.NoError(t, err)
	require.Len(t, masks, 1)
	assert.Nil(t, masks[0].LeadTimeDays)
	assert.Nil(t, masks[0].MaxCapacity)
}

func TestLoadFiles_LowercaseLeadTimeColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "h.csv", "date,inventory_id,item_name,Lead_Time_Days,lead_time_days\n2024-03-01,A1,Item,,6\n")

	src, err := LoadFiles(dir, fs.NewWalker([]string{"**/*.csv"}, nil), nil)
	require.NoError(t, err)

	series, err := src.Series(context.Background(), "A1")
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.NotNil(t, series[0].LeadTimeDays)
	assert.Equal(t, 6.0, *series[0].LeadTimeDays)
}

func TestLoadFiles_NameFromLaterRow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "h.csv", "Date,Inventory_ID,Item_Name\n2024-03-01,A1,\n2024-03-02,A1,Nitrile Gloves\n2024-03-03,A1,Gloves (old)\n")

	src, err := LoadFiles(dir, fs.NewWalker([]string{"**/*.csv"}, nil), nil)
	require.NoError(t, err)

	items, err := src.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Nitrile Gloves", items[0].DisplayName)
}

func TestLoadFiles_MissingColumns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.csv", "Item_Name,Quantity_Consumed\nGloves,3\n")

	_, err := LoadFiles(dir, fs.NewWalker([]string{"**/*.csv"}, nil), nil)
	assert.Error(t, err)
}

func TestLoadFiles_NoFiles(t *testing.T) {
	_, err := LoadFiles(t.TempDir(), fs.NewWalker([]string{"**/*.csv"}, nil), nil)
	assert.Error(t, err)
}

func TestLoadFiles_XLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.xlsx")

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Date", "Inventory_ID", "Item_Name", "Quantity_Consumed"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"2024-02-01", "x9", "Syringes", "4"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"2024-02-02", "x9", "Syringes", "6"}))
	_, err := f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Notes", "A1", &[]any{"free text"}))
	require.NoError(t, f.SaveAs(path))

	src, err := LoadFiles(dir, fs.NewWalker([]string{"**/*.xlsx"}, nil), nil)
	require.NoError(t, err)

	items, err := src.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "X9", items[0].ID)

	all, err := src.AllSeries(context.Background())
	require.NoError(t, err)
	require.Len(t, all["X9"], 2)
	assert.Equal(t, 6.0, *all["X9"][1].QuantityConsumed)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-05-06", time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), true},
		{"2024-05-06 13:45:00", time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), true},
		{"05/06/2024", time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"yesterday", time.Time{}, false},
	}
	for _, tt := range tests {
		got, err := parseDate(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), tt.in)
	}
}

func TestPostgres_Integration(t *testing.T) {
	url := os.Getenv("DEMANDCAST_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DEMANDCAST_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := Connect(ctx, url)
	require.NoError(t, err)
	pg := NewPostgres(pool)
	defer pg.Close()

	items, err := pg.Items(ctx)
	require.NoError(t, err)
	if len(items) == 0 {
		t.Skip("inventory_master is empty")
	}

	d, err := pg.Details(ctx, items[0].ID)
	require.NoError(t, err)
	assert.NotNil(t, d.Master)
}

func TestConnect_EmptyURL(t *testing.T) {
	_, err := Connect(context.Background(), "")
	assert.Error(t, err)
}
