package insight

import (
	"math"

	"github.com/sakif/social-analytics/internal/model"
	"github.com/sakif/social-analytics/internal/pipeline"
)

// Matrix is a square correlation matrix. A nil cell means the coefficient is
// undefined (fewer than two observations or zero variance).
type Matrix struct {
	Variables []string     `json:"variables"`
	Values    [][]*float64 `json:"values"`
}

type variable struct {
	name  string
	value func(model.IntegratedRecord) (float64, bool)
}

func count(f func(model.IntegratedRecord) int64) func(model.IntegratedRecord) (float64, bool) {
	return func(r model.IntegratedRecord) (float64, bool) { return float64(f(r)), true }
}

var correlationVariables = []variable{
	{"Age", func(r model.IntegratedRecord) (float64, bool) { return r.Age.Years, r.Age.Known }},
	{"friend_count", count(func(r model.IntegratedRecord) int64 { return r.FriendCount })},
	{"post_count", count(func(r model.IntegratedRecord) int64 { return r.PostCount })},
	{"reactions_given", count(func(r model.IntegratedRecord) int64 { return r.ReactionsGiven })},
	{"reactions_received", count(func(r model.IntegratedRecord) int64 { return r.ReactionsReceived })},
	{"total_activity", count(func(r model.IntegratedRecord) int64 { return r.TotalActivity })},
}

// Correlation computes Pearson coefficients between the numeric columns of
// the integrated table, using the users for which both values are known.
func Correlation(s *pipeline.Snapshot) Matrix {
	n := len(correlationVariables)
	m := Matrix{Variables: make([]string, n), Values: make([][]*float64, n)}
	for i, v := range correlationVariables {
		m.Variables[i] = v.name
		m.Values[i] = make([]*float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c, ok := pearson(s.Records, correlationVariables[i], correlationVariables[j])
			if !ok {
				continue
			}
			m.Values[i][j] = &c
			m.Values[j][i] = &c
		}
	}
	return m
}

func pearson(records []model.IntegratedRecord, a, b variable) (float64, bool) {
	var xs, ys []float64
	for _, r := range records {
		x, okx := a.value(r)
		y, oky := b.value(r)
		if okx && oky {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 {
		return 0, false
	}

	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(len(xs))
	my /= float64(len(ys))

	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, false
	}
	c := sxy / math.Sqrt(sxx*syy)
	// Rounding can push |c| marginally past 1.
	return math.Max(-1, math.Min(1, c)), true
}
