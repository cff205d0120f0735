package geo

import (
	"math"

	"github.com/lintang-b-s/graphextract/pkg/util"
)

/*
BearingTo. menghitung sudut initial bearing untuk edge (p1,p2).
https://www.movable-type.co.uk/scripts/latlong.html
*/
func BearingTo(p1Lat, p1Lon, p2Lat, p2Lon float64) float64 {

	dLon := util.DegreeToRadians(p2Lon - p1Lon)

	lat1 := util.DegreeToRadians(p1Lat)
	lat2 := util.DegreeToRadians(p2Lat)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) -
		math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	brng := math.Mod(util.RadiansToDegree(math.Atan2(y, x))+360, 360.0)

	return brng
}

// QuantizeBearing buckets a 0-360 degree bearing into one of n equal-width
// sectors, used by the edge-based graph factory to derive BearingClass ids.
func QuantizeBearing(bearingDegrees float64, n int) int {
	sector := 360.0 / float64(n)
	idx := int(math.Mod(bearingDegrees+sector/2, 360) / sector)
	if idx < 0 {
		idx += n
	}
	return idx
}
