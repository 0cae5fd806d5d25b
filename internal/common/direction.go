package common

import "fmt"

// Direction selects the viewing angle of a capture. DirDown is the
// standard straight-down tile addressing; the four cardinal directions
// address the 45°-oblique namespaces keyed by the same (z, x, y). This is
// a closed set of five cases, dispatched at the fetcher boundary.
type Direction int

const (
	DirDown Direction = iota
	DirNorth
	DirEast
	DirSouth
	DirWest
)

// Oblique reports whether the direction uses the 45° namespace.
func (d Direction) Oblique() bool {
	return d != DirDown
}

// Degrees returns the azimuth parameter for the oblique namespaces.
// DirDown has no degree parameter; callers must check Oblique first.
func (d Direction) Degrees() int {
	switch d {
	case DirNorth:
		return 0
	case DirEast:
		return 90
	case DirSouth:
		return 180
	case DirWest:
		return 270
	}
	return 0
}

func (d Direction) String() string {
	switch d {
	case DirDown:
		return "down"
	case DirNorth:
		return "north"
	case DirEast:
		return "east"
	case DirSouth:
		return "south"
	case DirWest:
		return "west"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// ParseDirection maps a config string onto a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "down":
		return DirDown, nil
	case "north":
		return DirNorth, nil
	case "east":
		return DirEast, nil
	case "south":
		return DirSouth, nil
	case "west":
		return DirWest, nil
	}
	return DirDown, fmt.Errorf("unknown direction %q (must be down, north, east, south or west)", s)
}
