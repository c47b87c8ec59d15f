package output

import (
	"fmt"
	"math"
)

// Axis selects the hemisphere letters used by DMS.
type Axis int

const (
	Latitude Axis = iota
	Longitude
)

// DMS renders a decimal coordinate as "d.m.sH", for example -23.55 on the
// latitude axis becomes "23.33.0S". Seconds are rounded half-to-even and a
// rounded value of 60 carries into the minutes, and from there into the
// degrees.
func DMS(decimal float64, axis Axis) string {
	dir := "N"
	switch {
	case axis == Latitude && decimal < 0:
		dir = "S"
	case axis == Longitude && decimal >= 0:
		dir = "E"
	case axis == Longitude:
		dir = "W"
	}

	decimal = math.Abs(decimal)
	degrees := int(decimal)
	minutesDecimal := (decimal - float64(degrees)) * 60
	minutes := int(minutesDecimal)
	seconds := int(math.RoundToEven((minutesDecimal - float64(minutes)) * 60))

	if seconds == 60 {
		minutes++
		seconds = 0
		if minutes == 60 {
			degrees++
			minutes = 0
		}
	}
	return fmt.Sprintf("%d.%d.%d%s", degrees, minutes, seconds, dir)
}
