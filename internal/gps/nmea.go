package gps

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ggaFields is the minimum field count for a GGA sentence carrying position
// and altitude (talker, time, lat, NS, lon, EW, quality, sats, hdop, alt).
const ggaFields = 10

// ggaReading is the useful subset of one GGA sentence.
type ggaReading struct {
	Latitude  float64
	Longitude float64
	Altitude  *float64 // meters, nil when the altitude field is empty
}

// parseGGA extracts position and altitude from a raw GGA sentence.
// Returns (nil, nil) for sentences of other types; a malformed GGA sentence
// is an error the caller logs and skips.
func parseGGA(raw string) (*ggaReading, error) {
	// Strip trailing checksum, e.g. "*47"
	if i := strings.IndexByte(raw, '*'); i >= 0 {
		raw = raw[:i]
	}
	fields := strings.Split(raw, ",")
	switch fields[0] {
	case "$GPGGA", "$GNGGA":
	default:
		return nil, nil
	}
	if len(fields) < ggaFields {
		return nil, fmt.Errorf("GGA sentence too short: %d fields", len(fields))
	}

	latRaw, latDir := fields[2], fields[3]
	lonRaw, lonDir := fields[4], fields[5]
	if latRaw == "" || latDir == "" || lonRaw == "" || lonDir == "" {
		return nil, fmt.Errorf("GGA sentence has no position fix")
	}

	lat, err := parseCoordinate(latRaw, 2)
	if err != nil {
		return nil, fmt.Errorf("latitude %q: %w", latRaw, err)
	}
	if latDir == "S" {
		lat = -lat
	}

	lon, err := parseCoordinate(lonRaw, 3)
	if err != nil {
		return nil, fmt.Errorf("longitude %q: %w", lonRaw, err)
	}
	if lonDir == "W" {
		lon = -lon
	}

	reading := &ggaReading{Latitude: lat, Longitude: lon}
	if fields[9] != "" {
		alt, err := strconv.ParseFloat(fields[9], 64)
		if err != nil {
			return nil, fmt.Errorf("altitude %q: %w", fields[9], err)
		}
		reading.Altitude = &alt
	}
	return reading, nil
}

// parseCoordinate converts a degrees-minutes value ("ddmm.mmmm" for latitude,
// "dddmm.mmmm" for longitude) to decimal degrees.
func parseCoordinate(raw string, degDigits int) (float64, error) {
	if len(raw) <= degDigits {
		return 0, fmt.Errorf("too short for degrees-minutes encoding")
	}
	deg, err := strconv.ParseFloat(raw[:degDigits], 64)
	if err != nil {
		return 0, err
	}
	min, err := strconv.ParseFloat(raw[degDigits:], 64)
	if err != nil {
		return 0, err
	}
	return deg + min/60, nil
}

// earthRadiusMeters is the mean Earth radius used by the haversine distance.
const earthRadiusMeters = 6371000

// haversineMeters is the great-circle distance between two fixes.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// initialBearing is the forward azimuth from the first fix to the second,
// in degrees true north, normalized into [0, 360).
func initialBearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	x := math.Sin(dLambda) * math.Cos(phi2)
	y := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	bearing := math.Atan2(x, y) * 180 / math.Pi
	return math.Mod(bearing+360, 360)
}

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
