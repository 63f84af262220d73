package source

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"demandcast/internal/logger"
)

// readCSV appends every row of a CSV file to t. Rows with unparsable values are
// logged and skipped; a missing id or date column fails the whole file.
func readCSV(path string, t *table, log *zap.SugaredLogger) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "read header of %s", path)
	}
	p, err := newRowParser(header)
	if err != nil {
		return errors.Wrapf(err, "%s", path)
	}

	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		id, name, obs, err := p.parse(row)
		if err != nil {
			log.Warnw("Skipping row", logger.FieldFile, path, logger.FieldRow, line, logger.FieldError, err)
			continue
		}
		if id == "" {
			continue
		}
		t.add(id, name, obs)
	}
}
