package domain

// HallucinationWeights distributes the composite across the three signals.
// Weights are renormalized over the signals that actually produced a score.
type HallucinationWeights struct {
	Judge    float64
	Entity   float64
	Semantic float64
}

// ConfidenceWeights distributes the composite across the four sub-scores.
type ConfidenceWeights struct {
	CitationDensity    float64
	Specificity        float64
	Hedging            float64
	RetrievalRelevance float64
}

// EvalConfig holds the tuning parameters for the evaluation pipeline and the
// workflow's quality gates. It is immutable and threaded by value through
// every stage call so concurrent runs never race on thresholds.
type EvalConfig struct {
	RegenThreshold     float64 // hallucination score at which regeneration triggers
	FailThreshold      float64 // hallucination score forcing a hard fail
	ConfidenceFloor    float64 // minimum confidence for a passed verdict
	ConsistencySamples int     // extra generations for self-consistency
	SampleTemperature  float32 // temperature for consistency samples

	Hallucination HallucinationWeights
	Confidence    ConfidenceWeights
}

// DefaultEvalConfig returns the standard quality-gate tuning.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		RegenThreshold:     0.4,
		FailThreshold:      0.7,
		ConfidenceFloor:    0.5,
		ConsistencySamples: 2,
		SampleTemperature:  0.3,
		Hallucination: HallucinationWeights{
			Judge:    1.0 / 3.0,
			Entity:   1.0 / 3.0,
			Semantic: 1.0 / 3.0,
		},
		Confidence: ConfidenceWeights{
			CitationDensity:    0.25,
			Specificity:        0.25,
			Hedging:            0.25,
			RetrievalRelevance: 0.25,
		},
	}
}
