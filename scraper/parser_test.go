package scraper

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gewnthar/gnss-archiver/models"
)

func sp3Fixture(start time.Time, epochs int, step time.Duration, comment string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "#dP%4d %2d %2d %2d %2d %11.8f     %3d ORBIT IGb20 HLM  IGS\n",
		start.Year(), int(start.Month()), start.Day(), start.Hour(), start.Minute(), 0.0, epochs)
	b.WriteString("## 2304 432000.00000000   900.00000000 60376 0.0000000000000\n")
	b.WriteString("+   32   G01G02G03G04G05G06G07G08G09G10G11G12G13G14G15G16G17\n")
	if comment != "" {
		b.WriteString("/* " + comment + "\n")
	}
	for i := 0; i < epochs; i++ {
		ts := start.Add(time.Duration(i) * step)
		fmt.Fprintf(&b, "*  %4d %2d %2d %2d %2d %11.8f\n",
			ts.Year(), int(ts.Month()), ts.Day(), ts.Hour(), ts.Minute(), 0.0)
		b.WriteString("PG01  -9435.420812 -13277.212512 -20739.658023    -99.370588\n")
	}
	b.WriteString("EOF\n")
	return []byte(b.String())
}

func ionexFixture(first, last string) []byte {
	lines := []string{
		fmt.Sprintf("%-60s%s", "     1.0            IONOSPHERE MAPS     GPS", "IONEX VERSION / TYPE"),
		fmt.Sprintf("%-60s%s", "IGSIONO             IGS                 08-MAR-24 10:12", "PGM / RUN BY / DATE"),
		fmt.Sprintf("%-60s%s", first, "EPOCH OF FIRST MAP"),
		fmt.Sprintf("%-60s%s", last, "EPOCH OF LAST MAP"),
		fmt.Sprintf("%-60s%s", "  7200", "INTERVAL"),
		fmt.Sprintf("%-60s%s", "", "END OF HEADER"),
		fmt.Sprintf("%-60s%s", "     1", "START OF TEC MAP"),
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

func TestParseSP3CoverageAndIdentifier(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	content := sp3Fixture(start, 8, 6*time.Hour, "igu23045_00 ultra-rapid combination")

	meta, err := ParseSP3("IGS0OPSULT_20240680000_02D_15M_ORB.SP3", content)
	if err != nil {
		t.Fatalf("ParseSP3 error: %v", err)
	}
	if meta.ProductID != "23045_00" {
		t.Fatalf("product id = %q", meta.ProductID)
	}
	if !meta.CoverageStart.Equal(start) {
		t.Fatalf("coverage start = %v", meta.CoverageStart)
	}
	wantEnd := time.Date(2024, 3, 8, 18, 0, 0, 0, time.UTC)
	if !meta.CoverageEnd.Equal(wantEnd) {
		t.Fatalf("coverage end = %v, want %v", meta.CoverageEnd, wantEnd)
	}
	if meta.SourceFile != "IGS0OPSULT_20240680000_02D_15M_ORB.SP3" {
		t.Fatalf("source file = %q", meta.SourceFile)
	}
}

func TestParseSP3UnorderedEpochsUseMinMax(t *testing.T) {
	t.Parallel()

	content := []byte(strings.Join([]string{
		"/* igu23046_12",
		"*  2024  3  8 12  0  0.00000000",
		"*  2024  3  7  6 15  0.00000000",
		"*  2024  3  9  0  0  0.00000000",
	}, "\n"))
	meta, err := ParseSP3("x.sp3", content)
	if err != nil {
		t.Fatalf("ParseSP3 error: %v", err)
	}
	if meta.CoverageStart != time.Date(2024, 3, 7, 6, 15, 0, 0, time.UTC) {
		t.Fatalf("start = %v", meta.CoverageStart)
	}
	if meta.CoverageEnd != time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("end = %v", meta.CoverageEnd)
	}
}

func TestParseSP3Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"no epochs", "/* igu23045_00\nPG01 1 2 3\n"},
		{"no identifier", "*  2024  3  7  0  0  0.00000000\n"},
		{"bad epoch", "/* igu23045_00\n*  20x4  3  7  0  0  0.00000000\n"},
		{"short epoch", "/* igu23045_00\n* 2024\n"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSP3("f.sp3", []byte(tt.content))
			if !errors.Is(err, models.ErrParseFailure) {
				t.Fatalf("expected ErrParseFailure, got %v", err)
			}
		})
	}
}

func TestParseIONEXFixedLines(t *testing.T) {
	t.Parallel()

	content := ionexFixture("  2024     3     7     0     0     0", "  2024     3     8     0     0     0")
	meta, err := ParseIONEX("igsg0670.24i", content, DefaultIonexLayout())
	if err != nil {
		t.Fatalf("ParseIONEX error: %v", err)
	}
	if meta.ProductID != "1.0 IONOSPHERE MAPS GPS" {
		t.Fatalf("product id = %q", meta.ProductID)
	}
	if meta.CoverageStart != time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("start = %v", meta.CoverageStart)
	}
	if meta.CoverageEnd != time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("end = %v", meta.CoverageEnd)
	}
}

func TestParseIONEXDescriptionShiftsLines(t *testing.T) {
	t.Parallel()

	content := ionexFixture("  2024     3     7     0     0     0", "  2024     3     7    23     0     0")
	lines := strings.Split(string(content), "\n")
	desc := fmt.Sprintf("%-60s%s", "Global Ionosphere Maps rapid combination", "DESCRIPTION")
	shifted := append([]string{lines[0], lines[1], desc, desc}, lines[2:]...)

	meta, err := ParseIONEX("shifted.inx", []byte(strings.Join(shifted, "\n")), DefaultIonexLayout())
	if err != nil {
		t.Fatalf("ParseIONEX error: %v", err)
	}
	if meta.CoverageEnd != time.Date(2024, 3, 7, 23, 0, 0, 0, time.UTC) {
		t.Fatalf("end = %v", meta.CoverageEnd)
	}
}

func TestParseIONEXFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content []byte
	}{
		{"too short", []byte("     1.0 IONOSPHERE MAPS\n")},
		{"non numeric", ionexFixture("  2024   MAR     7", "  2024     3     7")},
		{"missing fields", ionexFixture("  2024     3", "  2024     3     7")},
		{"missing label", []byte(strings.Repeat("x\n", 6))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIONEX("f.inx", tt.content, DefaultIonexLayout())
			if !errors.Is(err, models.ErrParseFailure) {
				t.Fatalf("expected ErrParseFailure, got %v", err)
			}
		})
	}
}

func TestMetadataParserDispatch(t *testing.T) {
	t.Parallel()

	p := NewMetadataParser(IonexLayout{})
	if p.Ionex != DefaultIonexLayout() {
		t.Fatalf("zero layout should fall back to default")
	}

	sp3 := sp3Fixture(time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), 2, time.Hour, "igu23045_00")
	if _, err := p.Parse(models.ProductOrbit, "a.sp3", sp3); err != nil {
		t.Fatalf("orbit parse: %v", err)
	}
	if _, err := p.Parse(models.ProductIonosphere, "a.sp3", sp3); !errors.Is(err, models.ErrParseFailure) {
		t.Fatalf("sp3 content parsed as ionex should fail, got %v", err)
	}
	if _, err := p.Parse(models.ProductKind(99), "a", sp3); err == nil {
		t.Fatalf("unknown kind should fail")
	}
}
