package catalog

import (
	"sort"
	"strings"
)

// Group indexes access points by location. Within a location, names are
// unique and the original catalog order is kept.
type Group struct {
	byLocation map[string][]AccessPoint
}

// NewGroup builds a Group. When a name repeats within a location the first
// record wins.
func NewGroup(points []AccessPoint) Group {
	g := Group{byLocation: make(map[string][]AccessPoint)}
	seen := make(map[string]map[string]struct{})
	for _, ap := range points {
		names, ok := seen[ap.Location]
		if !ok {
			names = make(map[string]struct{})
			seen[ap.Location] = names
		}
		if _, dup := names[ap.Name]; dup {
			continue
		}
		names[ap.Name] = struct{}{}
		g.byLocation[ap.Location] = append(g.byLocation[ap.Location], ap)
	}
	return g
}

// Locations lists location names in sorted order.
func (g Group) Locations() []string {
	out := make([]string, 0, len(g.byLocation))
	for loc := range g.byLocation {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// AccessPoints returns a copy of the access points in location.
func (g Group) AccessPoints(location string) []AccessPoint {
	src := g.byLocation[location]
	out := make([]AccessPoint, len(src))
	copy(out, src)
	return out
}

// Search filters a location by case-insensitive name substring. An empty
// query returns the whole location.
func (g Group) Search(location, query string) []AccessPoint {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return g.AccessPoints(location)
	}
	out := make([]AccessPoint, 0)
	for _, ap := range g.byLocation[location] {
		if strings.Contains(strings.ToLower(ap.Name), query) {
			out = append(out, ap)
		}
	}
	return out
}

// Find looks up an access point by location and name.
func (g Group) Find(location, name string) (AccessPoint, bool) {
	for _, ap := range g.byLocation[location] {
		if ap.Name == name {
			return ap, true
		}
	}
	return AccessPoint{}, false
}

// HasLocation reports whether location has at least one access point.
func (g Group) HasLocation(location string) bool {
	return len(g.byLocation[location]) > 0
}
