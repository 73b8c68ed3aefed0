package scoring

import "math"

// Scheme selects a normalization formula.
type Scheme string

const (
	SchemeZScore         Scheme = "zscore"
	SchemeMinMax         Scheme = "minmax"
	SchemeRobust         Scheme = "robust"
	SchemeZScoreBayesian Scheme = "zscore_bayesian"
	SchemeMinMaxBayesian Scheme = "minmax_bayesian"
	SchemeRobustBayesian Scheme = "robust_bayesian"
)

// IsBayesian reports whether a scheme delegates to the Bayesian fallback
// path rather than a classical normalization.
func (s Scheme) IsBayesian() bool {
	switch s {
	case SchemeZScoreBayesian, SchemeMinMaxBayesian, SchemeRobustBayesian:
		return true
	}
	return false
}

const epsilon = 1e-9

// Normalizer fits per-feature Stats and normalizes raw values according
// to a configured Scheme, saturating every output to [-10, 10].
type Normalizer struct {
	Scheme              Scheme
	UseBayesianFallback bool
	stats               map[string]Stats
	bayesian            *BayesianNormalizer
}

// NewNormalizer creates a Normalizer. When scheme.IsBayesian(), fitting
// and normalization delegate entirely to an internal BayesianNormalizer.
func NewNormalizer(scheme Scheme, useBayesianFallback bool) *Normalizer {
	n := &Normalizer{Scheme: scheme, UseBayesianFallback: useBayesianFallback, stats: make(map[string]Stats)}
	if scheme.IsBayesian() {
		n.bayesian = NewBayesianNormalizer(scheme)
	}
	return n
}

// Fit computes Stats per feature name across every vector's raw values.
func (n *Normalizer) Fit(vectors []FeatureVector) {
	if n.bayesian != nil {
		n.bayesian.Fit(vectors)
		return
	}

	byFeature := make(map[string][]float64)
	for _, v := range vectors {
		for name, value := range v.Features {
			byFeature[name] = append(byFeature[name], value)
		}
	}
	for name, values := range byFeature {
		n.stats[name] = FromValues(values)
	}
}

// Normalize fills each vector's Normalized map from its Features map.
func (n *Normalizer) Normalize(vectors []FeatureVector) {
	if n.bayesian != nil {
		n.bayesian.Normalize(vectors)
		return
	}
	for i := range vectors {
		v := &vectors[i]
		if v.Normalized == nil {
			v.Normalized = make(map[string]float64, len(v.Features))
		}
		for name, value := range v.Features {
			stats, ok := n.stats[name]
			if !ok {
				v.Normalized[name] = value
				continue
			}
			v.Normalized[name] = n.normalizeValue(value, stats)
		}
	}
}

func (n *Normalizer) normalizeValue(value float64, stats Stats) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	var normalized float64
	switch n.Scheme {
	case SchemeMinMax:
		normalized = n.minMax(value, stats)
	case SchemeRobust:
		normalized = n.robust(value, stats)
	default:
		normalized = n.zScore(value, stats)
	}
	return clamp(normalized, -10, 10)
}

func (n *Normalizer) zScore(value float64, stats Stats) float64 {
	if stats.Variance < epsilon {
		return n.fallbackOrDefault(0)
	}
	return (value - stats.Mean) / stats.StdDev
}

func (n *Normalizer) minMax(value float64, stats Stats) float64 {
	rng := stats.Max - stats.Min
	if rng < epsilon {
		return n.fallbackOrDefault(0.5)
	}
	return (value - stats.Min) / rng
}

func (n *Normalizer) robust(value float64, stats Stats) float64 {
	if stats.MAD >= epsilon {
		return (value - stats.Median) / (1.4826 * stats.MAD)
	}
	if stats.IQR >= epsilon {
		return (value - stats.Median) / stats.IQR
	}
	return n.fallbackOrDefault(0)
}

func (n *Normalizer) fallbackOrDefault(def float64) float64 {
	if n.UseBayesianFallback {
		return 0 // degenerate-case Bayesian fallback; see BayesianNormalizer for the fitted path
	}
	return def
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
