package levels

import (
	"strings"
	"testing"

	"github.com/banshee-data/tkal/internal/detid"
)

func TestObjectID_Names(t *testing.T) {
	tests := []struct {
		id     ObjectID
		name   string
		short  string
		family detid.SubDetector
	}{
		{TPBLadder, "TPBLadder", "Ladder", detid.PixelBarrel},
		{TPEHalfCylinder, "TPEHalfCylinder", "HalfCylinder", detid.PixelEndcap},
		{TIBSurface, "TIBSurface", "Surface", detid.TIB},
		{TIDSide, "TIDSide", "Side", detid.TID},
		{TOBRod, "TOBRod", "Rod", detid.TOB},
		{TECPetal, "TECPetal", "Petal", detid.TEC},
	}
	for _, tt := range tests {
		if got := tt.id.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
		if got := tt.id.Short(); got != tt.short {
			t.Errorf("%s.Short() = %q, want %q", tt.name, got, tt.short)
		}
		if got := tt.id.Family(); got != tt.family {
			t.Errorf("%s.Family() = %v, want %v", tt.name, got, tt.family)
		}
	}

	if InvalidObject.String() != "INVALID" || ObjectID(999).Short() != "INVALID" {
		t.Error("unknown object ids should render as INVALID")
	}
}

func TestLevel_String(t *testing.T) {
	if got := (Level{TOBRod, 74, true}).String(); got != "TOBRod(74, mixed)" {
		t.Errorf("got %q", got)
	}
	if got := (Level{TOBBarrel, 1, false}).String(); got != "TOBBarrel(1)" {
		t.Errorf("got %q", got)
	}
}

func TestResult_Table(t *testing.T) {
	res := mustBuild(t, []detid.DetID{testEnc.MustTID(1, 1, 2, 3)}, DefaultOptions())
	table := res.Table()

	lines := strings.Split(strings.TrimSpace(table), "\n")
	if len(lines) != 1+5 {
		t.Fatalf("expected header and 5 rows, got %d lines:\n%s", len(lines), table)
	}
	if !strings.HasPrefix(lines[0], "FAMILY") {
		t.Errorf("missing header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "TIDModule") || !strings.Contains(lines[5], "TIDEndcap") {
		t.Errorf("rows out of order:\n%s", table)
	}
}
