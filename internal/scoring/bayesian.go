package scoring

// BayesianNormalizer handles small-sample features by blending the
// classical statistic with a prior instead of falling back to a flat
// default, and exposes a per-feature confidence score the overall
// scorer can factor into its own confidence.
//
// This is a simplified normal-normal conjugate model: for small sample
// counts the fitted mean is pulled toward a shared prior mean (0, since
// features are assumed roughly centered pre-normalization), with the
// pull strength decaying as the sample grows.
type BayesianNormalizer struct {
	scheme     Scheme
	priorMean  float64
	priorCount float64
	stats      map[string]Stats
	confidence map[string]float64
}

// NewBayesianNormalizer creates a BayesianNormalizer for the given
// (already-Bayesian) scheme.
func NewBayesianNormalizer(scheme Scheme) *BayesianNormalizer {
	return &BayesianNormalizer{
		scheme:     scheme,
		priorMean:  0,
		priorCount: 5,
		stats:      make(map[string]Stats),
		confidence: make(map[string]float64),
	}
}

// Fit computes classical statistics per feature, then derives a
// confidence score from how much the sample count dominates the prior
// pseudo-count.
func (b *BayesianNormalizer) Fit(vectors []FeatureVector) {
	byFeature := make(map[string][]float64)
	for _, v := range vectors {
		for name, value := range v.Features {
			byFeature[name] = append(byFeature[name], value)
		}
	}
	for name, values := range byFeature {
		stats := FromValues(values)
		b.stats[name] = stats
		n := float64(stats.Samples)
		b.confidence[name] = n / (n + b.priorCount)
	}
}

// Normalize applies the base scheme (derived from the Bayesian scheme
// name) but blends the fitted mean toward the prior mean in proportion
// to (1 - confidence), so small samples don't over-trust a noisy mean.
func (b *BayesianNormalizer) Normalize(vectors []FeatureVector) {
	base := baseScheme(b.scheme)
	for i := range vectors {
		v := &vectors[i]
		if v.Normalized == nil {
			v.Normalized = make(map[string]float64, len(v.Features))
		}
		for name, value := range v.Features {
			stats, ok := b.stats[name]
			if !ok {
				v.Normalized[name] = value
				continue
			}
			conf := b.confidence[name]
			blended := stats
			blended.Mean = conf*stats.Mean + (1-conf)*b.priorMean
			n := &Normalizer{Scheme: base, UseBayesianFallback: true}
			v.Normalized[name] = clamp(n.normalizeValue(value, blended), -10, 10)
		}
	}
}

// Confidence returns the fitted confidence for a feature, or 0 if unfit.
func (b *BayesianNormalizer) Confidence(feature string) float64 {
	return b.confidence[feature]
}

func baseScheme(s Scheme) Scheme {
	switch s {
	case SchemeZScoreBayesian:
		return SchemeZScore
	case SchemeMinMaxBayesian:
		return SchemeMinMax
	case SchemeRobustBayesian:
		return SchemeRobust
	}
	return SchemeZScore
}
