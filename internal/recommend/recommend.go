// Package recommend picks the access point to highlight for a location.
package recommend

import "github.com/greenhatah/hotspot_pay/internal/catalog"

// Preferred is the user's last successful choice, held by name only. It may
// be stale, so it is always resolved against the live candidates.
type Preferred struct {
	Name string `json:"name"`
}

// Recommend selects one access point from candidates.
//
// A preferred name present in candidates wins regardless of its health or
// capacity, and the live candidate is returned, not the stored reference.
// Otherwise the reachable candidate with the highest capacity is returned;
// ties go to the earliest candidate. The boolean is false when nothing
// qualifies.
func Recommend(candidates []catalog.AccessPoint, preferred *Preferred) (catalog.AccessPoint, bool) {
	if preferred != nil && preferred.Name != "" {
		for _, ap := range candidates {
			if ap.Name == preferred.Name {
				return ap, true
			}
		}
	}

	best := -1
	for i, ap := range candidates {
		if !ap.Reachable() {
			continue
		}
		// strictly greater keeps the earliest of equal capacities
		if best < 0 || ap.Capacity > candidates[best].Capacity {
			best = i
		}
	}
	if best < 0 {
		return catalog.AccessPoint{}, false
	}
	return candidates[best], true
}
