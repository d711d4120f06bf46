package scraper

import (
	"reflect"
	"testing"
	"time"
)

func TestSelectReports(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	names := []string{
		"0226RSGA.txt",
		"0227RSGA.txt",
		"0228RSGA.txt",
		"0229RSGA.txt",
		"0301RSGA.txt",
		"0302RSGA.txt",
		"0302RSGA.bak",
		"README",
	}

	tests := []struct {
		name   string
		window int
		want   []string
	}{
		{"default window crosses leap day", 4, []string{"0302RSGA.txt", "0301RSGA.txt", "0229RSGA.txt", "0228RSGA.txt"}},
		{"today only", 1, []string{"0302RSGA.txt"}},
		{"non-positive window means today", 0, []string{"0302RSGA.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectReports(names, now, tt.window, "RSGA.txt")
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("SelectReports() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectReportsNoMatches(t *testing.T) {
	t.Parallel()

	got := SelectReports([]string{"0101RSGA.txt"}, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 4, "RSGA.txt")
	if len(got) != 0 {
		t.Fatalf("expected no reports, got %v", got)
	}
}
