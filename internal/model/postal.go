package model

// PostalCode is one ZIP code from the gazetteer with its representative
// point and administrative names.
type PostalCode struct {
	ZIP        string  `json:"zip"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	County     string  `json:"county"`
	CountyFIPS string  `json:"county_fips"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	// Accuracy is the GeoNames accuracy code: 1 estimated, 4 geonameid,
	// 6 centroid of addresses or shape.
	Accuracy int `json:"accuracy"`
}

// CountyKey identifies the ZIP's county within its state.
func (p PostalCode) CountyKey() string { return CountyKey(p.State, p.County) }
