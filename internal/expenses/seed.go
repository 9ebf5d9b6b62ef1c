package expenses

import "time"

func day(value string) time.Time {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		panic(err)
	}
	return t
}

// SeedExpenses returns the opening expense ledger of the site.
func SeedExpenses() []Expense {
	return []Expense{
		{ID: "exp-001", Category: CategoryFuel, Amount: 450, Description: "Diesel générateur principal", Date: day("2026-01-07"), Status: StatusApproved},
		{ID: "exp-002", Category: CategoryEquipment, Amount: 220, Description: "Pièces détachées foreuse A", Date: day("2026-01-06"), Status: StatusApproved},
		{ID: "exp-003", Category: CategoryMaterials, Amount: 180, Description: "Explosifs extraction mine", Date: day("2026-01-05"), Status: StatusApproved},
		{ID: "exp-004", Category: CategoryTransport, Amount: 150, Description: "Évacuation minerai Jan", Date: day("2026-01-04"), Status: StatusApproved},
	}
}
