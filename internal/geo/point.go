// Package geo encodes establishment coordinates for the destination
// geometry columns.
package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRID is the spatial reference of stored geometries (WGS 84).
const SRID = 4326

// PointEWKB encodes a latitude/longitude pair as a little-endian EWKB point
// with SRID 4326, x being the longitude.
func PointEWKB(lat, lon float64) ([]byte, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, eris.Errorf("geo: coordinates out of range: %f, %f", lat, lon)
	}
	p := geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(SRID)
	data, err := ewkb.Marshal(p, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode point")
	}
	return data, nil
}

// DecodePoint reads back a point written by PointEWKB.
func DecodePoint(data []byte) (lat, lon float64, err error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return 0, 0, eris.Wrap(err, "geo: decode point")
	}
	p, ok := g.(*geom.Point)
	if !ok {
		return 0, 0, eris.Errorf("geo: expected point, got %T", g)
	}
	return p.Y(), p.X(), nil
}
