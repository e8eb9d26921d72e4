package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// WalkingThresholdMeters is the distance under which a segment must be walked.
const WalkingThresholdMeters = 150

// A comma followed by groups of exactly three digits separates thousands;
// any other comma is a decimal mark.
var (
	thousandsRe = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)
	distanceRe  = regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:[.,]\d+)?)\s*(km|kms|kilometers?|kilometres?|m|meters?|metres?|mi|miles?|ft|feet)\b`)
)

// ParseDistanceMeters extracts the first "<number><unit>" pair from a display
// string such as "120m", "0.4 km" or "about 80 meters" and converts it to meters.
func ParseDistanceMeters(s string) (float64, bool) {
	m := distanceRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	num := m[1]
	if thousandsRe.MatchString(num) {
		num = strings.ReplaceAll(num, ",", "")
	} else {
		num = strings.ReplaceAll(num, ",", ".")
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	unit := strings.ToLower(m[2])
	switch {
	case strings.HasPrefix(unit, "k"):
		v *= 1000
	case unit == "mi" || strings.HasPrefix(unit, "mile"):
		v *= 1609.344
	case unit == "ft" || unit == "feet":
		v *= 0.3048
	}
	return v, true
}
