package scanner

// Phase is a step of a scan run. Phases run strictly in declaration order;
// Planning is skipped unless auto-fix was requested.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseClassifying
	PhaseDetecting
	PhaseClassifyingSeverity
	PhasePlanning
	PhaseAggregating
	PhaseDone
)

var phaseNames = [...]string{
	PhaseIdle:                "idle",
	PhaseClassifying:         "classifying",
	PhaseDetecting:           "detecting",
	PhaseClassifyingSeverity: "classifying-severity",
	PhasePlanning:            "planning",
	PhaseAggregating:         "aggregating",
	PhaseDone:                "done",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}
