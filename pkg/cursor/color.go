package cursor

import "slices"

// Color classifies a file by how its change relates to the previous commit.
type Color string

// Colour classes.
const (
	// ColorNew marks a file changed here but not by the previous commit.
	ColorNew Color = "new"
	// ColorOngoing marks a file changed here and by the previous commit.
	ColorOngoing Color = "ongoing"
	// ColorUnchanged marks every other file.
	ColorUnchanged Color = "unchanged"
)

// Coloring maps changed paths to their colour. Absent paths are unchanged.
type Coloring map[string]Color

// Of returns the colour of path.
func (c Coloring) Of(path string) Color {
	if color, ok := c[path]; ok {
		return color
	}

	return ColorUnchanged
}

// Classify colours the files changed at a position given the sorted change
// sets of that position and of its predecessor. prev is nil at position 0,
// where every changed file is new.
func Classify(prev, cur []string) Coloring {
	coloring := make(Coloring, len(cur))

	for _, path := range cur {
		if _, found := slices.BinarySearch(prev, path); found {
			coloring[path] = ColorOngoing
		} else {
			coloring[path] = ColorNew
		}
	}

	return coloring
}
