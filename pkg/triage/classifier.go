package triage

// Input carries the clinical and formulary facts an assessment starts from.
// CurrentTier is 0 when the current drug has no formulary entry.
type Input struct {
	Diagnosis          string
	PsoriaticArthritis bool
	DLQIScore          int // 0-30
	MonthsStable       int
	CurrentTier        int // 1-5
	PriorAuthRequired  bool
}

type Result struct {
	Stable            bool
	CanDoseReduce     bool
	SwitchRecommended bool
	FormularyAligned  bool
	Quadrant          string
}

const (
	QuadrantStableAligned      = "stable-aligned"
	QuadrantStableNonAligned   = "stable-nonaligned"
	QuadrantUnstableAligned    = "unstable-aligned"
	QuadrantUnstableNonAligned = "unstable-nonaligned"
)

// Dose reduction policy: DLQI <= 5 and at least 6 months stable.
const (
	maxStableDLQI    = 5
	minStableMonths  = 6
	highTierBoundary = 4
	alignedTierLimit = 2
)

// Classify is a pure function of its inputs; no state is persisted here.
func Classify(in Input) Result {
	stable := in.DLQIScore <= maxStableDLQI && in.MonthsStable >= minStableMonths
	aligned := in.CurrentTier > 0 && in.CurrentTier <= alignedTierLimit && !in.PriorAuthRequired

	return Result{
		Stable:            stable,
		CanDoseReduce:     stable,
		SwitchRecommended: stable && (in.CurrentTier >= highTierBoundary || in.PriorAuthRequired),
		FormularyAligned:  aligned,
		Quadrant:          quadrant(stable, aligned),
	}
}

func quadrant(stable, aligned bool) string {
	switch {
	case stable && aligned:
		return QuadrantStableAligned
	case stable && !aligned:
		return QuadrantStableNonAligned
	case !stable && aligned:
		return QuadrantUnstableAligned
	default:
		return QuadrantUnstableNonAligned
	}
}
