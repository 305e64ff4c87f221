// README: Common identifiers and value objects used across modules.
package types

// ID is an opaque actor or record identifier. Actor IDs come from the
// identity provider and are never parsed or validated here.
type ID string

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}
