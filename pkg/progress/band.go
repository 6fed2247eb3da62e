package progress

// Band groups completion percentages for display.
type Band string

const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

func BandFor(percentage int) Band {
	switch {
	case percentage < 30:
		return BandLow
	case percentage < 70:
		return BandMedium
	default:
		return BandHigh
	}
}
