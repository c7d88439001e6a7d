// README: Common value objects shared across modules.
package types

// ID is an opaque entity identifier (UUID string in persistence).
type ID string

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}
