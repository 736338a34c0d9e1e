package service

import (
	"context"
	"sort"
	"time"

	"communityBoard/internal/feed"
	"communityBoard/internal/models"
)

const clockLayout = "03:04 PM"

// attendance keys seen in user documents
var attendanceDateLayouts = []string{"2006-01-02", time.RFC3339, "1/2/2006"}

type AttendanceService interface {
	Log(ctx context.Context, s *feed.Session) ([]models.AttendanceRow, error)
}

type attendanceService struct{}

func NewAttendanceService() AttendanceService {
	return &attendanceService{}
}

// Log returns the signed-in user's check-ins, most recent date first.
func (a *attendanceService) Log(ctx context.Context, s *feed.Session) ([]models.AttendanceRow, error) {
	user, err := s.User()
	if err != nil {
		return nil, err
	}

	return attendanceRows(user.Attendance, s.Location()), nil
}

type attendanceDay struct {
	key    string
	date   time.Time
	parsed bool
	entry  models.AttendanceEntry
}

func attendanceRows(log map[string]models.AttendanceEntry, loc *time.Location) []models.AttendanceRow {
	days := make([]attendanceDay, 0, len(log))
	for key, entry := range log {
		date, ok := parseAttendanceDate(key)
		days = append(days, attendanceDay{key: key, date: date, parsed: ok, entry: entry})
	}

	// unparsable keys go last, by key
	sort.Slice(days, func(i, j int) bool {
		a, b := days[i], days[j]
		if a.parsed != b.parsed {
			return a.parsed
		}
		if a.parsed && !a.date.Equal(b.date) {
			return a.date.After(b.date)
		}
		return a.key > b.key
	})

	rows := make([]models.AttendanceRow, 0, len(days))
	for _, day := range days {
		row := models.AttendanceRow{
			Date:   day.key,
			LogIn:  clock(day.entry.CheckIn, loc),
			LogOut: clock(day.entry.CheckOut, loc),
		}
		if day.parsed {
			row.Day = day.date.Format("Mon")
			row.Date = day.date.Format("1/2/2006")
		}
		rows = append(rows, row)
	}
	return rows
}

func parseAttendanceDate(key string) (time.Time, bool) {
	for _, layout := range attendanceDateLayouts {
		if t, err := time.Parse(layout, key); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func clock(i models.Instant, loc *time.Location) string {
	if !i.Set {
		return models.NotAvailable
	}
	return i.Time.In(loc).Format(clockLayout)
}
