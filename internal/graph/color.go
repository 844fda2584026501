package graph

// TaintedColor is the placeholder drawn for a speculative lane wherever the
// row being drawn is not the lane's target commit.
const TaintedColor Color = "#808080"

// Branch topology palettes, one per theme. Lane colors are always taken
// from the active palette in order of least use.
var (
	LightPalette = []Color{
		"#c62828", // red
		"#ef6c00", // orange
		"#f9a825", // yellow
		"#2e7d32", // green
		"#00838f", // teal
		"#0277bd", // blue
		"#283593", // indigo
		"#6a1b9a", // violet
	}
	DarkPalette = []Color{
		"#ef5350",
		"#ffa726",
		"#ffee58",
		"#66bb6a",
		"#4dd0e1",
		"#42a5f5",
		"#7986cb",
		"#ab47bc",
	}
)

// nextColor returns the first palette color whose usage count across the
// given lanes equals the global minimum, scanning usage levels upward from
// zero. Deterministic for identical lane state.
func nextColor(palette []Color, lanes []Lane) Color {
	counts := make(map[Color]int, len(lanes))
	for _, lane := range lanes {
		counts[lane.Color]++
	}
	for usage := 0; ; usage++ {
		for _, color := range palette {
			if counts[color] == usage {
				return color
			}
		}
	}
}
