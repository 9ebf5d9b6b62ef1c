package inventory

import "time"

func day(value string) time.Time {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		panic(err)
	}
	return t
}

// SeedEquipment returns the opening fleet of the site.
func SeedEquipment() []Equipment {
	return []Equipment{
		{ID: "eq-001", Name: "Foreuse A", Kind: KindDrill, Status: StatusOperational, TotalHours: 1200, Location: "Zone Nord", NextMaintenance: day("2026-01-15")},
		{ID: "eq-002", Name: "Foreuse B", Kind: KindDrill, Status: StatusMaintenance, TotalHours: 980, Location: "Zone Sud", NextMaintenance: day("2026-01-20"), Reason: "Révision 500h"},
		{ID: "eq-003", Name: "Concasseur Principal", Kind: KindCrusher, Status: StatusOperational, TotalHours: 2500, Location: "Secteur Central", NextMaintenance: day("2026-02-01")},
		{ID: "eq-004", Name: "Générateur Alpha", Kind: KindGenerator, Status: StatusBroken, TotalHours: 3200, Location: "Base Camp", NextMaintenance: day("2026-01-10"), Reason: "Fuite hydraulique"},
		{ID: "eq-005", Name: "Pompe d'exhaure", Kind: KindPump, Status: StatusOperational, TotalHours: 1800, Location: "Zone Inondable", NextMaintenance: day("2026-01-25")},
		{ID: "eq-006", Name: "Camion Benne", Kind: KindVehicle, Status: StatusBroken, TotalHours: 4500, Location: "Parking", NextMaintenance: day("2026-01-08"), Reason: "Pneu crevé"},
		{ID: "eq-007", Name: "Pick-up Toyota", Kind: KindVehicle, Status: StatusMaintenance, TotalHours: 2800, Location: "Garage", NextMaintenance: day("2026-01-12"), Reason: "Vidange programmée"},
	}
}
