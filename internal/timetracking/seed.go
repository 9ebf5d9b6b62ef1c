package timetracking

import "time"

func at(loc *time.Location, value string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", value, loc)
	if err != nil {
		panic(err)
	}
	return t
}

// SeedSessions returns the opening attendance sheet placed in loc.
func SeedSessions(loc *time.Location) []Session {
	if loc == nil {
		loc = time.UTC
	}
	left := at(loc, "2026-01-07 15:30")
	return []Session{
		{ID: "pt-001", UserID: "usr-002", Day: "2026-01-07", ArrivedAt: at(loc, "2026-01-07 07:02"), LeftAt: &left, Status: StatusDeparted, WorkedMinutes: 508},
		{ID: "pt-002", UserID: "usr-003", Day: "2026-01-07", ArrivedAt: at(loc, "2026-01-07 08:15"), Late: true, Status: StatusLate},
	}
}
