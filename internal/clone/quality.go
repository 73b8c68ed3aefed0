package clone

// ComputeQuality derives the Phase 4 `{fragmentarity, structure_ratio,
// uniqueness, overall_quality}` values spec.md leaves as an opaque
// [0,1] bundle: structure_ratio is the weighted-Jaccard agreement
// already computed for the pair, uniqueness is the post-suppression
// rarity mass clamped to [0,1], and fragmentarity is the share of one
// side's k-grams that the match does NOT cover (a clone that's a small
// fragment of a much larger function scores high fragmentarity, which
// the Conservative payoff formula then discounts).
func ComputeQuality(a, b Signature, rarityGain float64) QualityMetrics {
	structureRatio := clamp01(WeightedJaccard(a, b))

	matched := 0
	total := len(a.Kgrams)
	if len(b.Kgrams) > total {
		total = len(b.Kgrams)
	}
	for kg := range a.Kgrams {
		if b.Kgrams[kg] {
			matched++
		}
	}
	matchedFraction := 0.0
	if total > 0 {
		matchedFraction = float64(matched) / float64(total)
	}
	fragmentarity := clamp01(1 - matchedFraction)
	uniqueness := clamp01(rarityGain)
	overall := clamp01((structureRatio + uniqueness + (1 - fragmentarity)) / 3)

	return QualityMetrics{
		Fragmentarity:  fragmentarity,
		StructureRatio: structureRatio,
		Uniqueness:     uniqueness,
		OverallQuality: overall,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
