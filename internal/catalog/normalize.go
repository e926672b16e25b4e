package catalog

import (
	"fmt"
	"math"
	"strings"
)

// Normalize maps raw catalog records to AccessPoints, applying defaults at
// the ingestion boundary:
//   - missing capacity becomes DefaultCapacity, out-of-range values are clamped
//   - missing or unrecognized health is unreachable
//   - missing coordinates fall back to a fixed point offset by record index
//   - missing location is UnknownLocation
//   - the credential seed is the MAC, or the IP when no MAC is sent
//
// Records without a name are dropped since nothing can reference them.
func Normalize(records []RawAccessPoint) []AccessPoint {
	out := make([]AccessPoint, 0, len(records))
	for idx, r := range records {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}

		ap := AccessPoint{
			ID:             formatID(r.ID),
			Name:           name,
			Location:       UnknownLocation,
			Health:         normalizeHealth(r.Health, r.Online),
			Capacity:       normalizeCapacity(r.Capacity),
			Latitude:       fallbackLatitude + float64(idx)*fallbackStep,
			Longitude:      fallbackLongitude + float64(idx)*fallbackStep,
			CredentialSeed: strings.TrimSpace(r.MAC),
		}
		if r.Location != nil && strings.TrimSpace(*r.Location) != "" {
			ap.Location = strings.TrimSpace(*r.Location)
		}
		if r.Latitude != nil {
			ap.Latitude = *r.Latitude
		}
		if r.Longitude != nil {
			ap.Longitude = *r.Longitude
		}
		if ap.CredentialSeed == "" {
			ap.CredentialSeed = strings.TrimSpace(r.IP)
		}

		out = append(out, ap)
	}
	return out
}

func normalizeHealth(health, online *RawHealth) Health {
	flag := health
	if flag == nil || *flag == "" {
		flag = online
	}
	if flag == nil {
		return HealthUnreachable
	}
	switch strings.ToLower(strings.TrimSpace(string(*flag))) {
	case "true", "ok", "online", "up", "reachable", "healthy", "1":
		return HealthReachable
	default:
		return HealthUnreachable
	}
}

func normalizeCapacity(capacity *float64) int {
	if capacity == nil || math.IsNaN(*capacity) {
		return DefaultCapacity
	}
	c := int(math.Round(*capacity))
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	default:
		return c
	}
}

func formatID(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == math.Trunc(v) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}
