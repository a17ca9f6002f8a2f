package game

// PhaseKind names a phase of the day/night cycle. Per-phase data (who
// is on trial) lives with the machine; the kind is a plain value so
// controllers and components can refer to phases without importing the
// machine.
type PhaseKind string

const (
	PhaseBriefing   PhaseKind = "briefing"
	PhaseObituary   PhaseKind = "obituary"
	PhaseDiscussion PhaseKind = "discussion"
	PhaseNomination PhaseKind = "nomination"
	PhaseTestimony  PhaseKind = "testimony"
	PhaseJudgement  PhaseKind = "judgement"
	PhaseFinalWords PhaseKind = "final_words"
	PhaseDusk       PhaseKind = "dusk"
	PhaseNight      PhaseKind = "night"
	PhaseRecess     PhaseKind = "recess"
)

// IsDay reports whether players may speak in the open during this
// phase.
func (k PhaseKind) IsDay() bool {
	switch k {
	case PhaseObituary, PhaseDiscussion, PhaseNomination, PhaseTestimony, PhaseJudgement, PhaseFinalWords:
		return true
	default:
		return false
	}
}
