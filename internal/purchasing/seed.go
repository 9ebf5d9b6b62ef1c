package purchasing

import "time"

func day(value string) time.Time {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		panic(err)
	}
	return t
}

// SeedPurchases returns the opening purchase book of the site.
func SeedPurchases() []Purchase {
	return []Purchase{
		{ID: "ach-001", Item: "Diesel 2000L", Supplier: "Total Congo", Category: CategoryFuel, Amount: 1800, Date: day("2026-01-05"), Status: StatusDelivered},
		{ID: "ach-002", Item: "Pièces Foreuse", Supplier: "Caterpillar SAV", Category: CategoryParts, Amount: 1250, Date: day("2026-01-03"), Status: StatusInProgress},
		{ID: "ach-003", Item: "Explosifs Mining", Supplier: "Orica Mining", Category: CategoryMaterials, Amount: 2200, Date: day("2026-01-02"), Status: StatusDelivered},
		{ID: "ach-004", Item: "Transport minerai", Supplier: "TransCongo SARL", Category: CategoryTransport, Amount: 850, Date: day("2026-01-06"), Status: StatusInProgress},
		{ID: "ach-005", Item: "Génératrice 50kVA", Supplier: "CAT Power", Category: CategoryEquipment, Amount: 15000, Date: day("2026-01-07"), Status: StatusOrdered},
	}
}
