package geo

import "math"

const earthRadiusMeters = 6371008.8

// MetersPerKm converts the API's kilometres to the store's native unit.
const MetersPerKm = 1000.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat, Lng float64
}

// DistanceMeters is the haversine great-circle distance between a and b.
func DistanceMeters(a, b Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Range is a closed longitude interval with Min <= Max.
type Range struct {
	Min, Max float64
}

// Box is a lat/lng bounding box, used to prefilter rows in SQL before the
// exact distance check. A box crossing the antimeridian has two longitude
// ranges; a point is inside when it falls in any of them.
type Box struct {
	MinLat, MaxLat float64
	Lng            []Range
}

// Contains reports whether p lies inside the box.
func (b Box) Contains(p Point) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	for _, r := range b.Lng {
		if p.Lng >= r.Min && p.Lng <= r.Max {
			return true
		}
	}
	return false
}

// BoundingBox returns a box containing every point within radius meters of
// center. Near the poles the longitude span is widened to the full range.
func BoundingBox(center Point, radius float64) Box {
	dLat := degrees(radius / earthRadiusMeters)
	box := Box{
		MinLat: math.Max(-90, center.Lat-dLat),
		MaxLat: math.Min(90, center.Lat+dLat),
		Lng:    []Range{{Min: -180, Max: 180}},
	}

	cosLat := math.Cos(radians(center.Lat))
	if cosLat <= 1e-9 {
		return box
	}
	dLng := degrees(radius / (earthRadiusMeters * cosLat))
	if dLng >= 180 {
		return box
	}

	lo, hi := center.Lng-dLng, center.Lng+dLng
	switch {
	case lo < -180:
		box.Lng = []Range{{Min: lo + 360, Max: 180}, {Min: -180, Max: hi}}
	case hi > 180:
		box.Lng = []Range{{Min: lo, Max: 180}, {Min: -180, Max: hi - 360}}
	default:
		box.Lng = []Range{{Min: lo, Max: hi}}
	}
	return box
}

func radians(d float64) float64 { return d * math.Pi / 180 }
func degrees(r float64) float64 { return r * 180 / math.Pi }
