// models/product.go
package models

import (
	"fmt"
	"strings"
)

// ProductKind selects how a downloaded file is parsed, named and stored.
type ProductKind int

const (
	ProductOrbit ProductKind = iota + 1
	ProductIonosphere
)

// String returns the short name used for archive folders, logs and the run log.
func (k ProductKind) String() string {
	switch k {
	case ProductOrbit:
		return "orbit"
	case ProductIonosphere:
		return "ionex"
	default:
		return fmt.Sprintf("product(%d)", int(k))
	}
}

// ParseProductKind maps "orbit"/"igu" and "ionex"/"ionosphere" to a ProductKind.
func ParseProductKind(name string) (ProductKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "orbit", "igu", "sp3":
		return ProductOrbit, nil
	case "ionex", "ionosphere", "gim":
		return ProductIonosphere, nil
	}
	return 0, fmt.Errorf("unknown product kind %q", name)
}

// BulletinClass is one of the IERS Earth-orientation bulletin series.
type BulletinClass string

const (
	BulletinA BulletinClass = "A"
	BulletinB BulletinClass = "B"
	BulletinC BulletinClass = "C"
	BulletinD BulletinClass = "D"
)

// AllBulletinClasses lists the series in publication order.
var AllBulletinClasses = []BulletinClass{BulletinA, BulletinB, BulletinC, BulletinD}

// ParseBulletinClass accepts upper or lower case letters.
func ParseBulletinClass(s string) (BulletinClass, error) {
	c := BulletinClass(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllBulletinClasses {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown bulletin class %q", s)
}
