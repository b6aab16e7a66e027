package model

// Tier is a Pyramid contest category aggregated independently.
type Tier string

// Pyramid tiers.
const (
	Weekly  Tier = "weekly"
	Monthly Tier = "monthly"
)

// ContestEntry is one (identifier, score) pair read from a contest file.
type ContestEntry struct {
	ID     string
	Score  float64
	Source string // file path, for diagnostics
	Row    int    // 1-based sheet row, header included
}

// ContestTierScore maps an identifier to its aggregated score for one tier.
type ContestTierScore map[string]float64

// Max returns the largest score, or 0 when empty.
func (s ContestTierScore) Max() float64 {
	m := 0.0
	first := true
	for _, v := range s {
		if first || v > m {
			m = v
			first = false
		}
	}
	return m
}

// PlatformTable carries one platform's ratings keyed by canonical identifier.
type PlatformTable struct {
	Platform Platform
	Ratings  map[string]float64
}

// NewPlatformTable returns an empty table for p.
func NewPlatformTable(p Platform) PlatformTable {
	return PlatformTable{Platform: p, Ratings: make(map[string]float64)}
}

// Put records v for id, keeping the larger value when id is already present.
func (t PlatformTable) Put(id string, v float64) {
	if cur, ok := t.Ratings[id]; ok && cur >= v {
		return
	}
	t.Ratings[id] = v
}

// PyramidTiers carries the normalized tier values alongside the composed rating.
type PyramidTiers struct {
	Weekly  map[string]float64
	Monthly map[string]float64
}
