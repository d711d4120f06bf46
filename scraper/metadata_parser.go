// scraper/metadata_parser.go
package scraper

import (
	"fmt"

	"github.com/gewnthar/gnss-archiver/models"
)

// MetadataParser picks the header format for a product.
type MetadataParser struct {
	Ionex IonexLayout
}

// NewMetadataParser returns a parser with the given IONEX layout; a zero layout uses the default.
func NewMetadataParser(layout IonexLayout) MetadataParser {
	if layout.MinHeaderLines <= 0 {
		layout = DefaultIonexLayout()
	}
	return MetadataParser{Ionex: layout}
}

// Parse extracts the embedded identifier and coverage range.
func (p MetadataParser) Parse(kind models.ProductKind, sourceFile string, content []byte) (*models.ParsedMetadata, error) {
	switch kind {
	case models.ProductOrbit:
		return ParseSP3(sourceFile, content)
	case models.ProductIonosphere:
		return ParseIONEX(sourceFile, content, p.Ionex)
	default:
		return nil, fmt.Errorf("no header parser for %s", kind)
	}
}
