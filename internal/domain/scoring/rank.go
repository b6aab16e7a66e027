package scoring

import (
	"math"
	"sort"

	"github.com/okian/cpboard/internal/domain/model"
)

// keyScale is the resolution at which Percentiles compare: 9 decimal places.
// Percentiles stay far below 1e9, so keys never saturate in practice.
const keyScale = 1_000_000_000

// Key quantizes a Percentile for ordering. Two students tie exactly when their
// keys are equal. NaN maps to 0.
func Key(p float64) int64 {
	if math.IsNaN(p) {
		return 0
	}
	scaled := math.Round(p * keyScale)
	if scaled >= math.MaxInt64 {
		return math.MaxInt64
	}
	if scaled <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(scaled)
}

// Quantize returns p rounded to the resolution of Key. Stores that order by a
// float column persist this value so their ties match Key's.
func Quantize(p float64) float64 {
	return float64(Key(p)) / keyScale
}

// Rank orders records by Percentile DESC then HallTicketNo ASC and assigns
// dense ranks: tied Percentiles share a rank and the next rank follows on.
func Rank(records []model.StudentRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		ki, kj := Key(records[i].Percentile), Key(records[j].Percentile)
		if ki != kj {
			return ki > kj
		}
		return records[i].HallTicketNo < records[j].HallTicketNo
	})
	AssignRanks(records)
}

// AssignRanks assigns dense ranks to records already in leaderboard order.
func AssignRanks(records []model.StudentRecord) {
	rank := 0
	for i := range records {
		if i == 0 || Key(records[i].Percentile) != Key(records[i-1].Percentile) {
			rank++
		}
		records[i].Rank = rank
	}
}
