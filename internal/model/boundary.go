package model

import "github.com/twpayne/go-geom"

// Boundary is a polygon for one tract or ZCTA as published by the Census
// Bureau, keyed by its identifier.
type Boundary struct {
	ID       string
	Name     string
	Geometry geom.T
	AreaSqMi float64
}
