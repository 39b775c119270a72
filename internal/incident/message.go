package incident

import (
	"fmt"
	"time"
)

// RenderMessage produces the alert body sent to every contact. The body is
// rendered once per dispatch; all contacts receive identical text. A nil
// location renders as unavailable rather than blocking on a fix.
func RenderMessage(loc *Location, at time.Time) string {
	return fmt.Sprintf(
		"[EMERGENCY ALERT]\nUser may be in danger.\nLocation: %s\nTime: %s",
		locationLine(loc),
		at.Format(time.RFC3339),
	)
}

func locationLine(loc *Location) string {
	if loc == nil {
		return "Location unavailable"
	}
	return fmt.Sprintf("https://maps.google.com/?q=%.6f,%.6f", loc.Latitude, loc.Longitude)
}
