package links

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

var exportLinks = []Link{
	{URL: "https://www.kleinanzeigen.de/s-anzeige/a/1", ScrapedAt: "2025-06-15T14:30:05.123456", AgencyNames: []string{"Alpha", "Beta, Co"}},
	{URL: "https://www.kleinanzeigen.de/s-anzeige/b/2", ScrapedAt: "irgendwann", AgencyNames: []string{}},
	{URL: "https://www.kleinanzeigen.de/s-anzeige/c/3", ScrapedAt: ""},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer

	if err := WriteCSV(&buf, exportLinks); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	expected := "URL,Makler,Gefunden am\n" +
		"https://www.kleinanzeigen.de/s-anzeige/a/1,\"Alpha, Beta, Co\",15.06.2025 14:30:05\n" +
		"https://www.kleinanzeigen.de/s-anzeige/b/2,,irgendwann\n" +
		"https://www.kleinanzeigen.de/s-anzeige/c/3,,\n"

	if buf.String() != expected {
		t.Errorf("Unexpected CSV:\n%s\nexpected:\n%s", buf.String(), expected)
	}
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer

	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	if buf.String() != "URL,Makler,Gefunden am\n" {
		t.Errorf("Expected header only, got %q", buf.String())
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer

	if err := WriteXLSX(&buf, exportLinks); err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("Failed to read rows: %v", err)
	}

	if len(rows) != 4 {
		t.Fatalf("Expected header and 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "URL" || rows[0][2] != "Gefunden am" {
		t.Errorf("Unexpected header: %v", rows[0])
	}
	if rows[1][1] != "Alpha, Beta, Co" || rows[1][2] != "15.06.2025 14:30:05" {
		t.Errorf("Unexpected first row: %v", rows[1])
	}
	if rows[2][2] != "irgendwann" {
		t.Errorf("Expected raw unreadable timestamp, got %v", rows[2])
	}
}
