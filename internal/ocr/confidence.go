package ocr

// Tier buckets a confidence score for display
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// ConfidenceTier maps a 0..1 score to its display tier: high at 0.90 and
// above, medium at 0.70 and above, low below that.
func ConfidenceTier(score float64) Tier {
	switch {
	case score >= 0.90:
		return TierHigh
	case score >= 0.70:
		return TierMedium
	default:
		return TierLow
	}
}

// LowConfidenceWords collects the words of a result below the medium
// threshold, in reading order. Used to highlight review candidates.
func LowConfidenceWords(result *Result) []Word {
	var out []Word
	for _, page := range result.Pages {
		for _, block := range page.Blocks {
			for _, line := range block.Lines {
				for _, word := range line.Words {
					if ConfidenceTier(word.Confidence) == TierLow {
						out = append(out, word)
					}
				}
			}
		}
	}
	return out
}
