package feed

import (
	"time"

	"communityBoard/internal/models"
)

// UnknownDate is shown in place of a missing post timestamp.
const UnknownDate = "Unknown Date"

const (
	feedTimeLayout  = "1/2/2006, 3:04 PM"
	shortDateLayout = "1/2/2006"
)

// FormatFeedTime renders a post timestamp as "M/D/YYYY, h:mm AM".
func FormatFeedTime(ts *models.Timestamp, loc *time.Location) string {
	if !ts.Valid() {
		return UnknownDate
	}
	return ts.Time().In(location(loc)).Format(feedTimeLayout)
}

// FormatShortDate renders only the calendar date, or "" when missing.
func FormatShortDate(ts *models.Timestamp, loc *time.Location) string {
	if !ts.Valid() {
		return ""
	}
	return ts.Time().In(location(loc)).Format(shortDateLayout)
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
