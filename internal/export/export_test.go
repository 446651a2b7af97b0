package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ramonehamilton/swu-binder/internal/ledger"
)

func testReport() ledger.MissingReport {
	return ledger.MissingReport{
		SetKey: "SOR",
		Rows: []ledger.MissingRow{
			{BaseNumber: 3, Name: "Ahsoka Tano", Have: 2, Quota: 3, Needed: 1, UnitPrice: 2.5, LineCost: 2.5},
			{BaseNumber: 10, Name: "Darth Vader", Subtitle: "Dark Lord of the Sith", Quota: 1, Needed: 1},
		},
		TotalNeeded: 2,
		TotalCost:   2.5,
	}
}

func TestWriteTCGList(t *testing.T) {
	var buf bytes.Buffer
	other := ledger.MissingReport{SetKey: "SHD", Rows: []ledger.MissingRow{{Name: "HK-47", Needed: 3}}}

	if err := WriteTCGList(&buf, testReport(), other); err != nil {
		t.Fatalf("WriteTCGList failed: %v", err)
	}

	want := "1 Ahsoka Tano [SOR]\n1 Darth Vader - Dark Lord of the Sith [SOR]\n3 HK-47 [SHD]\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWrite_CSVMissingReport(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, testReport(), false); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "number,name,subtitle,type,rarity,have,quota,needed,unit_price,line_cost" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if lines[1] != "3,Ahsoka Tano,,,,2,3,1,2.50,2.50" {
		t.Errorf("unexpected row: %s", lines[1])
	}
}

func TestWrite_CSVRejectsNonSlices(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatCSV, map[string]int{}, false); err == nil {
		t.Error("expected error for non-slice data")
	}
	if err := Write(&buf, FormatCSV, []int{1}, false); err == nil {
		t.Error("expected error for slice of non-structs")
	}
	if err := Write(&buf, FormatTCG, "nope", false); err == nil {
		t.Error("expected error for TCG export of non-report data")
	}
	if err := Write(&buf, Format("xml"), nil, false); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestSaveSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backups", "ledger.json")
	snap := ledger.Snapshot{Version: 1, Sets: map[string]map[string]int{"SOR": {"3": 2}}}

	if err := SaveSnapshot(path, snap, false); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}
	var got ledger.Snapshot
	if err := json.Unmarshal(content, &got); err != nil {
		t.Fatalf("failed to unmarshal snapshot: %v", err)
	}
	if got.Sets["SOR"]["3"] != 2 {
		t.Errorf("unexpected snapshot %+v", got)
	}

	if err := SaveSnapshot(path, snap, false); err == nil {
		t.Error("expected error when file exists and overwrite is false")
	}
	if err := SaveSnapshot(path, snap, true); err != nil {
		t.Errorf("overwrite failed: %v", err)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected no temporary files left behind, got %d entries", len(entries))
	}
}

func TestGenerateFilename(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	if got := GenerateFilename("missing", FormatTCG, now); got != "missing_20261018_093000.txt" {
		t.Errorf("GenerateFilename() = %s", got)
	}
	if got := GenerateFilename("ledger", FormatJSON, now); got != "ledger_20261018_093000.json" {
		t.Errorf("GenerateFilename() = %s", got)
	}
}
