package common

import "strconv"

// Version identifies one imagery capture/publication epoch on the tile
// endpoint. Ids are issued monotonically, so higher means newer. The
// provider retains only a trailing window of the history and evicts the
// oldest ids over time; whether a given id is still retrievable can only
// be learned by probing it.
type Version int

func (v Version) String() string {
	return strconv.Itoa(int(v))
}

// Valid reports whether the id is in the non-negative id space.
func (v Version) Valid() bool {
	return v >= 0
}
