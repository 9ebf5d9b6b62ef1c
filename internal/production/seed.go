package production

import "time"

func day(value string) time.Time {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		panic(err)
	}
	return t
}

func seedEntry(id, date string, team Team, shift Shift, grams, purity float64) Entry {
	d := day(date)
	return Entry{ID: id, Date: d, Team: team, Shift: shift, Quantity: grams, Purity: purity, Grade: GradeOf(purity), Status: StatusValid, CreatedAt: d}
}

// SeedEntries returns the production log of the first week of January.
func SeedEntries() []Entry {
	return []Entry{
		seedEntry("prod-001", "2026-01-07", TeamA, ShiftMorning, 222, 94),
		seedEntry("prod-002", "2026-01-06", TeamB, ShiftDay, 185, 91),
		seedEntry("prod-003", "2026-01-05", TeamA, ShiftEvening, 165, 88),
		seedEntry("prod-004", "2026-01-04", TeamB, ShiftMorning, 195, 92),
		seedEntry("prod-005", "2026-01-03", TeamA, ShiftDay, 210, 83),
		seedEntry("prod-006", "2026-01-02", TeamB, ShiftEvening, 178, 96),
	}
}
