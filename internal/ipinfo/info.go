package ipinfo

import (
	"fmt"
	"strconv"
	"strings"
)

// Info is the public IP record returned by the geolocation API
type Info struct {
	IP           string `json:"ip"`
	City         string `json:"city"`
	Region       string `json:"region"`
	Country      string `json:"country"`
	Loc          string `json:"loc"`
	Organization string `json:"org"`
	Timezone     string `json:"timezone"`
}

// Location is a latitude/longitude pair
type Location struct {
	Latitude  float64
	Longitude float64
}

// Location parses the "lat,lon" string. The second return value is false when
// the coordinates are missing or malformed.
func (i *Info) Location() (Location, bool) {
	parts := strings.Split(i.Loc, ",")
	if len(parts) < 2 {
		return Location{}, false
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Location{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Location{}, false
	}

	return Location{Latitude: lat, Longitude: lon}, true
}

// String renders the record one field per line
func (i *Info) String() string {
	var b strings.Builder
	b.WriteString("IP Information:\n")
	fmt.Fprintf(&b, "  IP Address: %s\n", i.IP)
	fmt.Fprintf(&b, "  City: %s\n", i.City)
	fmt.Fprintf(&b, "  Region: %s\n", i.Region)
	fmt.Fprintf(&b, "  Country: %s\n", i.Country)
	if loc, ok := i.Location(); ok {
		fmt.Fprintf(&b, "  Location: Latitude=%s, Longitude=%s\n", formatCoord(loc.Latitude), formatCoord(loc.Longitude))
	}
	fmt.Fprintf(&b, "  Organization: %s\n", i.Organization)
	fmt.Fprintf(&b, "  Timezone: %s\n", i.Timezone)
	return b.String()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
