package importer

import (
	"errors"
	"strings"
	"testing"

	"github.com/ramonehamilton/swu-binder/internal/ledger"
)

func TestParse_FormatA(t *testing.T) {
	data := "\ufeffSet,CardNumber,Count\nSOR,3,2\nsor,003,1\nSHD,47,1\n,5,1\nSOR,abc,1\nSOR,9,0\n\n"

	res, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if res.Format != FormatA {
		t.Errorf("Format = %s, want %s", res.Format, FormatA)
	}
	if got := res.Data["SOR"][3]; got != 3 {
		t.Errorf("SOR #3 = %d, want 3 (rows summed across set key case)", got)
	}
	if got := res.Data["SHD"][47]; got != 1 {
		t.Errorf("SHD #47 = %d, want 1", got)
	}
	if _, ok := res.Data["SOR"][9]; ok {
		t.Error("zero counts should not be recorded")
	}
	if res.Rows != 6 || res.Skipped != 2 {
		t.Errorf("Rows=%d Skipped=%d, want 6 and 2", res.Rows, res.Skipped)
	}
	if res.Cards() != 4 {
		t.Errorf("Cards() = %d, want 4", res.Cards())
	}
}

func TestParse_FormatB(t *testing.T) {
	data := strings.Join([]string{
		"Set;Base Card Id;Name;Normal;Foil;Hyperspace",
		"SOR;SOR_010;Darth Vader;1;1;",
		"SOR;SOR_040;Marine;2;;1",
		"TWI;TWI-001;Clone;;;",
	}, "\n")

	res, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if res.Format != FormatB {
		t.Errorf("Format = %s, want %s", res.Format, FormatB)
	}
	want := map[string]ledger.Counts{"SOR": {10: 2, 40: 3}}
	if len(res.Data) != 1 || res.Data["SOR"][10] != want["SOR"][10] || res.Data["SOR"][40] != want["SOR"][40] {
		t.Errorf("Data = %v, want %v", res.Data, want)
	}
}

func TestParse_HeaderCaseAndWhitespace(t *testing.T) {
	res, err := Parse([]byte("  set ,CARD NUMBER,count\nSOR,1,1\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if res.Format != FormatA || res.Data["SOR"][1] != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestParse_Snapshot(t *testing.T) {
	res, err := Parse([]byte(`{"version":1,"sets":{"SOR":{"3":2,"10":1},"SHD":{}}}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if res.Format != FormatSnapshot {
		t.Errorf("Format = %s", res.Format)
	}
	if res.Data["SOR"][3] != 2 || res.Data["SOR"][10] != 1 {
		t.Errorf("Data = %v", res.Data)
	}
	if _, ok := res.Data["SHD"]; !ok {
		t.Error("empty sets in a snapshot should still be present so replace clears them")
	}
}

func TestParse_Unrecognized(t *testing.T) {
	inputs := []string{
		"",
		"Name,Quantity\nLuke,1\n",
		`{"version":2,"sets":{}}`,
		`{"hello":"world"}`,
		`{not json`,
	}
	for _, in := range inputs {
		if _, err := Parse([]byte(in)); !errors.Is(err, ErrUnrecognizedFormat) {
			t.Errorf("Parse(%q) error = %v, want ErrUnrecognizedFormat", in, err)
		}
	}
}

func TestParseCardNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"47", 47, true},
		{"047", 47, true},
		{"SOR_047", 47, true},
		{"SOR-047", 47, true},
		{"0", 0, false},
		{"x", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseCardNumber(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseCardNumber(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
