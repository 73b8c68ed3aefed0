package clone

// State is one node in the candidate lifecycle state machine (§4.6): a
// candidate moves strictly forward through phases, terminating either in
// a *Kept/Ranked state or a *Rejected/BelowPayoff state with a drop
// reason recorded for diagnostics.
type State string

const (
	StateProposed           State = "Proposed"
	StateSimilarityKept     State = "SimilarityKept"
	StateSimilarityRejected State = "SimilarityRejected"
	StateStructureKept      State = "StructureKept"
	StateStructureRejected  State = "StructureRejected"
	StateRarityKept         State = "RarityKept"
	StateRarityRejected     State = "RarityRejected"
	StateRanked             State = "Ranked"
	StateBelowPayoff        State = "BelowPayoff"
)

// QualityMetrics are the [0,1] Phase 4 quality inputs.
type QualityMetrics struct {
	Fragmentarity  float64
	StructureRatio float64
	Uniqueness     float64
	OverallQuality float64
}

// Candidate is a clone candidate as it moves through the four-phase
// pipeline: `(entity_a_id, entity_b_id, similarity, saved_tokens,
// rarity_gain, live_reach_boost, quality_metrics, payoff_score)`.
type Candidate struct {
	EntityA, EntityB string
	Similarity       float64
	SavedTokens      int
	RarityGain       float64
	LiveReachBoost   float64
	Quality          QualityMetrics
	Payoff           float64
	State            State
	DropReason       string
}

// NewCandidate starts a candidate in the Proposed state from a Phase 1 pair.
func NewCandidate(p Pair) *Candidate {
	return &Candidate{
		EntityA:        p.EntityA,
		EntityB:        p.EntityB,
		Similarity:     p.Similarity,
		LiveReachBoost: 1.0,
		State:          StateProposed,
	}
}

// ApplySimilarityGate transitions Proposed -> SimilarityKept/Rejected
// based on the Phase 1 similarity threshold.
func (c *Candidate) ApplySimilarityGate(threshold float64) {
	if c.Similarity >= threshold {
		c.State = StateSimilarityKept
		return
	}
	c.State = StateSimilarityRejected
	c.DropReason = "similarity below threshold"
}

// ApplyStructuralGate transitions SimilarityKept -> StructureKept/Rejected.
func (c *Candidate) ApplyStructuralGate(pass bool, ioPenalty float64) {
	if c.State != StateSimilarityKept {
		return
	}
	if !pass {
		c.State = StateStructureRejected
		c.DropReason = "failed structural gate"
		return
	}
	c.Similarity *= ioPenalty
	c.State = StateStructureKept
}

// ApplyRarityGate transitions StructureKept -> RarityKept/Rejected based
// on whether the post-suppression rarity mass clears the rarity floor.
func (c *Candidate) ApplyRarityGate(rarityGain, rarityFloor float64) {
	if c.State != StateStructureKept {
		return
	}
	c.RarityGain = rarityGain
	if rarityGain < rarityFloor {
		c.State = StateRarityRejected
		c.DropReason = "rarity mass below floor after suppression"
		return
	}
	c.State = StateRarityKept
}

// Finalize transitions RarityKept -> Ranked/BelowPayoff once payoff has
// been computed and compared against minSavedTokens.
func (c *Candidate) Finalize(minSavedTokens int) {
	if c.State != StateRarityKept {
		return
	}
	if c.SavedTokens < minSavedTokens {
		c.State = StateBelowPayoff
		c.DropReason = "saved tokens below minimum"
		return
	}
	c.State = StateRanked
}
