package models

// Predefined scenario catalog. Scenarios are edited in place through the
// API (price fields recalculated) and filtered from view rather than
// deleted.
var DefaultScenarios = []Scenario{
	{
		ID:          "mass-price-cut",
		Name:        "Mass tier price cut",
		Description: "Lower the ad-supported price from $24 to $22",
		Category:    CategoryPriceChange,
		ModelType:   ModelAcquisition,
		Config: ScenarioConfig{
			Tier:           TierAdSupported,
			CurrentPrice:   24.00,
			NewPrice:       22.00,
			PriceChangePct: -8.333333333333334,
		},
		Constraints: ScenarioConstraints{MinPrice: 15, MaxPrice: 35},
	},
	{
		ID:          "prestige-price-raise",
		Name:        "Prestige tier price raise",
		Description: "Raise the ad-free price from $40 to $44",
		Category:    CategoryPriceChange,
		ModelType:   ModelChurn,
		Config: ScenarioConfig{
			Tier:           TierAdFree,
			CurrentPrice:   40.00,
			NewPrice:       44.00,
			PriceChangePct: 10,
		},
		Constraints: ScenarioConstraints{MinPrice: 30, MaxPrice: 60},
	},
	{
		ID:          "winback-promo",
		Name:        "Win-back promotion",
		Description: "Three-month 20% discount on the ad-supported tier",
		Category:    CategoryPromotion,
		ModelType:   ModelAcquisition,
		Config: ScenarioConfig{
			Tier:           TierAdSupported,
			CurrentPrice:   24.00,
			NewPrice:       19.20,
			PriceChangePct: -20,
			Promotion:      &Promotion{DiscountPct: 20, DurationMonths: 3},
		},
		Constraints: ScenarioConstraints{MinPrice: 15, MaxPrice: 35},
	},
	{
		ID:          "prestige-bundle",
		Name:        "Prestige bundle",
		Description: "Bundle offering priced as an ad-free variant",
		Category:    CategoryPriceChange,
		ModelType:   ModelMigration,
		Config: ScenarioConfig{
			Tier:           TierBundle,
			CurrentPrice:   40.00,
			NewPrice:       52.00,
			PriceChangePct: 30,
		},
		Constraints: ScenarioConstraints{MinPrice: 40, MaxPrice: 80},
	},
	{
		ID:          "do-nothing",
		Name:        "Do nothing",
		Description: "Hold all prices at current levels",
		Category:    CategoryBaseline,
		ModelType:   ModelAcquisition,
		Config: ScenarioConfig{
			Tier: TierAll,
		},
	},
}

// FindScenario returns the catalog scenario with the given id.
func FindScenario(scenarios []Scenario, id string) (*Scenario, bool) {
	for i := range scenarios {
		if scenarios[i].ID == id {
			return &scenarios[i], true
		}
	}
	return nil, false
}
