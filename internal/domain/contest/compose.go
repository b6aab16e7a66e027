package contest

import "github.com/okian/cpboard/internal/domain/model"

// TierWeights weighs the normalized weekly and monthly tiers.
type TierWeights struct {
	Weekly  float64
	Monthly float64
}

// DefaultTierWeights is the canonical weekly/monthly pair.
var DefaultTierWeights = TierWeights{Weekly: 0.05, Monthly: 0.10} //nolint:gochecknoglobals // canonical constants

// Composition is the composed Pyramid rating plus the tier values it came from.
type Composition struct {
	Table model.PlatformTable
	Tiers model.PyramidTiers
}

// Compose computes pyramidRating = weekly*w.Weekly + monthly*w.Monthly over the
// union of identifiers. Absent tier participation counts as 0.
func Compose(weekly, monthly model.ContestTierScore, w TierWeights) Composition {
	c := Composition{
		Table: model.NewPlatformTable(model.Pyramid),
		Tiers: model.PyramidTiers{
			Weekly:  make(map[string]float64, len(weekly)),
			Monthly: make(map[string]float64, len(monthly)),
		},
	}
	ids := make(map[string]struct{}, len(weekly)+len(monthly))
	for id := range weekly {
		ids[id] = struct{}{}
	}
	for id := range monthly {
		ids[id] = struct{}{}
	}
	for id := range ids {
		wk, mo := weekly[id], monthly[id]
		c.Tiers.Weekly[id] = wk
		c.Tiers.Monthly[id] = mo
		c.Table.Ratings[id] = wk*w.Weekly + mo*w.Monthly
	}
	return c
}
