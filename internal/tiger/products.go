// Package tiger downloads Census TIGER/Line shapefiles and reads tract and
// ZCTA boundaries from them. It backs the TIGERweb service when that is
// unavailable and supplies true ZIP outlines for polygon maps.
package tiger

import (
	"fmt"
	"strings"
)

// Product describes a TIGER/Line boundary shapefile.
type Product struct {
	Name      string // directory under TIGER<year>, e.g. "TRACT"
	File      string // file suffix, e.g. "tract"
	National  bool   // one national file rather than one per state
	IDField   string
	NameField string
	AreaField string // land area in square meters
}

// Supported products.
var (
	Tract = Product{
		Name:      "TRACT",
		File:      "tract",
		IDField:   "GEOID",
		NameField: "NAMELSAD",
		AreaField: "ALAND",
	}
	ZCTA = Product{
		Name:      "ZCTA520",
		File:      "zcta520",
		National:  true,
		IDField:   "ZCTA5CE20",
		AreaField: "ALAND20",
	}
)

// DownloadURL builds the shapefile ZIP URL for a product. stateFIPS is
// ignored for national products.
func DownloadURL(baseURL string, p Product, year int, stateFIPS string) string {
	scope := stateFIPS
	if p.National {
		scope = "us"
	}
	return fmt.Sprintf("%s/TIGER%d/%s/tl_%d_%s_%s.zip",
		strings.TrimRight(baseURL, "/"), year, p.Name, year, scope, p.File)
}
