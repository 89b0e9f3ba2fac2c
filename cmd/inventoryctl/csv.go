package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fekuna/omnipos-inventory-service/internal/stock/dto"
)

// parseBulkCSV reads sku,warehouse_code,qty_change[,reason] rows. A first
// row whose first cell is "sku" is treated as a header.
func parseBulkCSV(r io.Reader) ([]dto.BulkAdjustRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var rows []dto.BulkAdjustRow
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line++
		if line == 1 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "sku") {
			continue
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("line %d: want at least 3 columns, got %d", line, len(rec))
		}

		qty, err := strconv.ParseInt(strings.TrimSpace(rec[2]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: qty_change %q: %w", line, rec[2], err)
		}
		row := dto.BulkAdjustRow{
			SKU:           strings.TrimSpace(rec[0]),
			WarehouseCode: strings.TrimSpace(rec[1]),
			QtyChange:     qty,
		}
		if len(rec) > 3 {
			row.Reason = strings.TrimSpace(rec[3])
		}
		rows = append(rows, row)
	}
	return rows, nil
}
