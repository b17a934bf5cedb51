package models

// Scenario categories.
const (
	CategoryPriceChange = "price_change"
	CategoryPromotion   = "promotion"
	CategoryBaseline    = "baseline"
)

// Forecasting lenses applied to a scenario.
const (
	ModelAcquisition = "acquisition"
	ModelChurn       = "churn"
	ModelMigration   = "migration"
)

// Tier identifiers. AdSupported and AdFree are the two live plans;
// basic/premium are hypothetical tiers proxied onto them, and bundle is a
// pricing variant of ad_free rather than a tier of its own.
const (
	TierAdSupported = "ad_supported"
	TierAdFree      = "ad_free"
	TierAll         = "all"
	TierBasic       = "basic"
	TierPremium     = "premium"
	TierBundle      = "bundle"
)

// Promotion describes a temporary discount attached to a scenario.
type Promotion struct {
	DiscountPct    float64 `json:"discount_pct"`
	DurationMonths int     `json:"duration_months"`
}

// ScenarioConfig holds the pricing action parameters.
type ScenarioConfig struct {
	Tier           string     `json:"tier"`
	CurrentPrice   float64    `json:"current_price"`
	NewPrice       float64    `json:"new_price"`
	PriceChangePct float64    `json:"price_change_pct"`
	Promotion      *Promotion `json:"promotion,omitempty"`
}

// ScenarioConstraints carries declared pricing bounds and compliance flags.
// Flags are pointers: an absent flag is assumed compliant.
type ScenarioConstraints struct {
	MinPrice             float64 `json:"min_price"`
	MaxPrice             float64 `json:"max_price"`
	PlatformCompliant    *bool   `json:"platform_compliant,omitempty"`
	PriceChangeFreqOK    *bool   `json:"price_change_frequency_ok,omitempty"`
	NoticePeriodOK       *bool   `json:"notice_period_ok,omitempty"`
}

// Scenario is a proposed pricing action.
type Scenario struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
	ModelType   string              `json:"model_type"`
	Config      ScenarioConfig      `json:"config"`
	Constraints ScenarioConstraints `json:"constraints"`
}

// RecalcPriceChange refreshes the derived price-change percentage after an
// in-place edit of the price fields.
func (s *Scenario) RecalcPriceChange() {
	if s.Config.CurrentPrice == 0 {
		s.Config.PriceChangePct = 0
		return
	}
	s.Config.PriceChangePct = (s.Config.NewPrice - s.Config.CurrentPrice) / s.Config.CurrentPrice * 100
}
