package source

import (
	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"demandcast/internal/logger"
)

// readXLSX appends the rows of every sheet whose header carries the id and
// date columns. Other sheets are ignored.
func readXLSX(path string, t *table, log *zap.SugaredLogger) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return errors.Wrapf(err, "read sheet %s of %s", sheet, path)
		}
		if len(rows) == 0 {
			continue
		}
		p, err := newRowParser(rows[0])
		if err != nil {
			log.Debugw("Ignoring sheet", logger.FieldFile, path, logger.FieldSheet, sheet, logger.FieldError, err)
			continue
		}
		for i, row := range rows[1:] {
			id, name, obs, err := p.parse(row)
			if err != nil {
				log.Warnw("Skipping row", logger.FieldFile, path, logger.FieldSheet, sheet, logger.FieldRow, i+2, logger.FieldError, err)
				continue
			}
			if id == "" {
				continue
			}
			t.add(id, name, obs)
		}
	}
	return nil
}
