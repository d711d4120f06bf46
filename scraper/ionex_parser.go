// scraper/ionex_parser.go
package scraper

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gewnthar/gnss-archiver/models"
)

const (
	ionexFirstMapLabel = "EPOCH OF FIRST MAP"
	ionexLastMapLabel  = "EPOCH OF LAST MAP"
	ionexEndOfHeader   = "END OF HEADER"
	ionexLabelColumn   = 60
)

// IonexLayout gives the zero-based header lines that carry the map epochs.
type IonexLayout struct {
	FirstMapLine   int
	LastMapLine    int
	MinHeaderLines int
}

// DefaultIonexLayout is the compact header written by the rapid GIM combination.
func DefaultIonexLayout() IonexLayout {
	return IonexLayout{FirstMapLine: 2, LastMapLine: 3, MinHeaderLines: 4}
}

// ParseIONEX reads the identifier from line 0 and the first/last map epochs from their
// fixed header lines. When a fixed line does not carry the expected label the rest of the
// header is searched for it, since some producers insert DESCRIPTION records first.
func ParseIONEX(sourceFile string, content []byte, layout IonexLayout) (*models.ParsedMetadata, error) {
	header := ionexHeader(content)
	if len(header) < layout.MinHeaderLines {
		return nil, fmt.Errorf("%s: %w: header has %d lines, need %d",
			sourceFile, models.ErrParseFailure, len(header), layout.MinHeaderLines)
	}

	productID := strings.Join(strings.Fields(ionexValue(header[0], "")), " ")
	if productID == "" {
		return nil, fmt.Errorf("%s: %w: empty identifier line", sourceFile, models.ErrParseFailure)
	}

	start, err := ionexEpoch(header, layout.FirstMapLine, ionexFirstMapLabel)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", sourceFile, models.ErrParseFailure, err)
	}
	end, err := ionexEpoch(header, layout.LastMapLine, ionexLastMapLabel)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", sourceFile, models.ErrParseFailure, err)
	}

	return &models.ParsedMetadata{
		SourceFile:    sourceFile,
		ProductID:     productID,
		CoverageStart: start,
		CoverageEnd:   end,
	}, nil
}

func ionexHeader(content []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		lines = append(lines, line)
		if strings.Contains(line, ionexEndOfHeader) {
			break
		}
	}
	return lines
}

func ionexEpoch(header []string, index int, label string) (time.Time, error) {
	line := ""
	if index >= 0 && index < len(header) && strings.Contains(header[index], label) {
		line = header[index]
	} else {
		for _, l := range header {
			if strings.Contains(l, label) {
				line = l
				break
			}
		}
	}
	if line == "" {
		return time.Time{}, fmt.Errorf("%q record not found", label)
	}

	fields := strings.Fields(ionexValue(line, label))
	if len(fields) < 3 {
		return time.Time{}, fmt.Errorf("%q needs year month day, got %q", label, line)
	}
	var v [6]int
	for i := 0; i < len(fields) && i < len(v); i++ {
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			if i < 3 {
				return time.Time{}, fmt.Errorf("%q field %d %q is not numeric", label, i, fields[i])
			}
			break
		}
		v[i] = n
	}
	if v[1] < 1 || v[1] > 12 || v[2] < 1 || v[2] > 31 {
		return time.Time{}, fmt.Errorf("%q date out of range: %v", label, v[:3])
	}
	return time.Date(v[0], time.Month(v[1]), v[2], v[3], v[4], v[5], 0, time.UTC), nil
}

// ionexValue strips the label part of a header record.
func ionexValue(line, label string) string {
	if label != "" {
		if i := strings.Index(line, label); i >= 0 {
			return line[:i]
		}
	}
	if len(line) > ionexLabelColumn {
		return line[:ionexLabelColumn]
	}
	return line
}
