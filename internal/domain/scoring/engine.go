package scoring

import (
	"math"

	"github.com/okian/cpboard/internal/domain/model"
)

const percentScale = 100

// Engine computes TotalRating and Percentile for a merged cohort.
type Engine struct {
	weights Weights
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights replaces the canonical weight table.
func WithWeights(w Weights) Option {
	return func(e *Engine) {
		if len(w) == 0 {
			return
		}
		e.weights = make(Weights, len(w))
		for p, v := range w {
			e.weights[p] = v
		}
	}
}

// NewEngine creates an Engine with the canonical weights unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Weights returns a copy of the weights in use.
func (e *Engine) Weights() Weights {
	out := make(Weights, len(e.weights))
	for p, v := range e.weights {
		out[p] = v
	}
	return out
}

// Summary holds the cohort maxima used for a scoring pass.
type Summary struct {
	Max map[model.Platform]float64
}

// Score sets TotalRating and Percentile on every record in place.
//
// Per platform the cohort maximum is taken; a student's percentile on it is
// raw/max*100, or 0 when max <= 0. Percentile is the weighted sum of those,
// TotalRating the unweighted sum of raw ratings. NaN, Inf and negative
// ratings count as 0.
func (e *Engine) Score(records []model.StudentRecord) Summary {
	sum := Summary{Max: make(map[model.Platform]float64, len(model.Platforms))}
	for _, p := range model.Platforms {
		m := 0.0
		for i := range records {
			if v := rating(records[i].Get(p)); v > m {
				m = v
			}
		}
		sum.Max[p] = m
	}

	for i := range records {
		rec := &records[i]
		total, pct := 0.0, 0.0
		for _, p := range model.Platforms {
			raw := rating(rec.Get(p))
			total += raw
			if w, ok := e.weights[p]; ok {
				pct += Percent(raw, sum.Max[p]) * w
			}
		}
		rec.TotalRating = total
		rec.Percentile = pct
	}
	return sum
}

// Percent returns raw as a percentage of m, or 0 when m <= 0.
func Percent(raw, m float64) float64 {
	if m <= 0 {
		return 0
	}
	return rating(raw) / m * percentScale
}

// rating clamps a raw value into [0, +Inf).
func rating(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
