package links

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{"URL", "Makler", "Gefunden am"}

const sheetName = "Links"

func exportRow(link Link) []string {
	return []string{
		link.URL,
		strings.Join(link.AgencyNames, ", "),
		FormatTimestamp(link.ScrapedAt),
	}
}

// WriteCSV writes links as CSV with a header row.
func WriteCSV(w io.Writer, links []Link) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, link := range links {
		if err := writer.Write(exportRow(link)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// WriteXLSX writes the same table as WriteCSV into a single-sheet workbook.
func WriteXLSX(w io.Writer, links []Link) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	rows := make([][]string, 0, len(links)+1)
	rows = append(rows, exportHeader)
	for _, link := range links {
		rows = append(rows, exportRow(link))
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+1, err)
		}

		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}

		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if err := f.SetColWidth(sheetName, "A", "A", 80); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}
	if err := f.SetColWidth(sheetName, "B", "C", 24); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
