package utils

// Point is a WGS84 coordinate. Lat is treated as the x axis and Lng as the y axis.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// IsInside reports whether point lies inside polygon using the even-odd ray casting rule.
// The polygon is an ordered vertex list; the closing edge is implicit.
// Points exactly on an edge or vertex may land on either side.
func IsInside(point Point, polygon []Point) bool {
	n := len(polygon)
	if n < 3 {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := polygon[i].Lat, polygon[i].Lng
		xj, yj := polygon[j].Lat, polygon[j].Lng

		if (yi > point.Lng) != (yj > point.Lng) &&
			point.Lat < (xj-xi)*(point.Lng-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
