package catalog

import (
	"bytes"
	"fmt"
	"strconv"
)

// Health is the normalized reachability of an access point.
type Health string

const (
	HealthReachable   Health = "reachable"
	HealthUnreachable Health = "unreachable"
)

const (
	// DefaultCapacity is assumed when a record omits capacity.
	DefaultCapacity = 50
	// UnknownLocation groups records that carry no location.
	UnknownLocation = "Unknown"

	fallbackLatitude  = 5.345
	fallbackLongitude = -4.012
	fallbackStep      = 0.001
)

// AccessPoint is one candidate wireless router offering paid access.
type AccessPoint struct {
	ID             string  `json:"id,omitempty"`
	Name           string  `json:"name"`
	Location       string  `json:"location"`
	Health         Health  `json:"health"`
	Capacity       int     `json:"capacity"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	CredentialSeed string  `json:"credential_seed,omitempty"`
}

// Reachable reports whether the access point can currently serve clients.
func (a AccessPoint) Reachable() bool {
	return a.Health == HealthReachable
}

// RawHealth holds a health or online flag as the catalog source sent it.
// Sources disagree on the encoding (true/false, "ok", "online", ...), so the
// value is kept as text and interpreted by Normalize.
type RawHealth string

// UnmarshalJSON accepts JSON booleans, strings and numbers.
func (h *RawHealth) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*h = ""
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*h = RawHealth(data)
	case len(data) > 0 && data[0] == '"':
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("decode health: %w", err)
		}
		*h = RawHealth(s)
	default:
		*h = RawHealth(data)
	}
	return nil
}

// RawAccessPoint is a catalog record before normalization. Every field may be
// missing.
type RawAccessPoint struct {
	ID        any        `json:"id"`
	Name      string     `json:"name"`
	Location  *string    `json:"location"`
	Health    *RawHealth `json:"health"`
	Online    *RawHealth `json:"online"`
	Capacity  *float64   `json:"capacity"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	MAC       string     `json:"mac"`
	IP        string     `json:"ip"`
}
