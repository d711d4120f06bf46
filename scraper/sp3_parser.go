// scraper/sp3_parser.go
package scraper

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gewnthar/gnss-archiver/models"
)

// productIDRegex matches the week+day and hour token of an ultra-rapid product, e.g. "23045_06".
var productIDRegex = regexp.MustCompile(`\d{5}_\d{2}`)

// ParseSP3 collects every "*" epoch record for the coverage range and takes the first
// week/hour token anywhere in the file as the product identifier.
func ParseSP3(sourceFile string, content []byte) (*models.ParsedMetadata, error) {
	var (
		first, last time.Time
		epochs      int
		productID   string
	)

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		line := scanner.Text()
		lineNo++

		if productID == "" {
			productID = productIDRegex.FindString(line)
		}

		if !strings.HasPrefix(line, "*") {
			continue
		}
		ts, err := parseSP3Epoch(line)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w: %v", sourceFile, lineNo, models.ErrParseFailure, err)
		}
		if epochs == 0 || ts.Before(first) {
			first = ts
		}
		if epochs == 0 || ts.After(last) {
			last = ts
		}
		epochs++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", sourceFile, models.ErrParseFailure, err)
	}

	if epochs == 0 {
		return nil, fmt.Errorf("%s: %w: no epoch records", sourceFile, models.ErrParseFailure)
	}
	if productID == "" {
		return nil, fmt.Errorf("%s: %w: no product identifier", sourceFile, models.ErrParseFailure)
	}

	return &models.ParsedMetadata{
		SourceFile:    sourceFile,
		ProductID:     productID,
		CoverageStart: first,
		CoverageEnd:   last,
	}, nil
}

// parseSP3Epoch reads "*  YYYY MM DD hh mm ss.ssssssss" using the fixed SP3 columns.
func parseSP3Epoch(line string) (time.Time, error) {
	if len(line) < 19 {
		return time.Time{}, fmt.Errorf("epoch record too short: %q", line)
	}
	fields := [5]string{line[3:7], line[8:10], line[11:13], line[14:16], line[17:19]}
	var v [5]int
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return time.Time{}, fmt.Errorf("epoch field %d %q: %w", i, f, err)
		}
		v[i] = n
	}
	if v[1] < 1 || v[1] > 12 || v[2] < 1 || v[2] > 31 {
		return time.Time{}, fmt.Errorf("epoch date out of range: %q", line)
	}
	return time.Date(v[0], time.Month(v[1]), v[2], v[3], v[4], 0, 0, time.UTC), nil
}
