package services

import "time"

// Clock lets tests pin timestamps.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
