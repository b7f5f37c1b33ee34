package index

import "math"

// BM25 defaults.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// Params tunes relevance scoring.
type Params struct {
	K1 float64
	B  float64
}

// DefaultParams returns the standard BM25 parameters.
func DefaultParams() Params {
	return Params{K1: DefaultK1, B: DefaultB}
}

func (p Params) normalized() Params {
	if p.K1 <= 0 {
		p.K1 = DefaultK1
	}
	if p.B < 0 || p.B > 1 {
		p.B = DefaultB
	}
	return p
}

// idf is always positive, so every matched term adds to a score.
func idf(n, df int) float64 {
	return math.Log(1 + (float64(n-df)+0.5)/(float64(df)+0.5))
}

// termScore is the saturated, length normalized contribution of one term.
// It grows with the weighted term frequency.
func (p Params) termScore(wtf float64, length int, avgLength float64) float64 {
	norm := 1.0
	if avgLength > 0 {
		norm = 1 - p.B + p.B*float64(length)/avgLength
	}
	return wtf * (p.K1 + 1) / (wtf + p.K1*norm)
}
