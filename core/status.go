package core

import "keysense/hall"

// RGB is a status pixel colour.
type RGB struct {
	R, G, B uint8
}

var (
	ColorOK       = RGB{0, 24, 0}
	ColorSettling = RGB{24, 12, 0}
	ColorFault    = RGB{24, 0, 0}
)

// StatusColor summarizes a sensor group's health: fault if any sensor is
// missing, broken or reversed, settling while any is not yet detected, and
// OK otherwise. A nil group is OK.
func StatusColor(s *hall.Sensors) RGB {
	if s == nil {
		return ColorOK
	}
	color := ColorOK
	for i := 0; i < s.Len(); i++ {
		st := s.Status(i)
		if st.Fault() {
			return ColorFault
		}
		if st != hall.MagnetDetected {
			color = ColorSettling
		}
	}
	return color
}
