// Package sync implements the Synchronizer: the orchestrator that drives a
// parsed caption track through TTS fetch, tempo adjustment, assembly, and
// post-processing to produce a single audio track matching a target
// duration.
//
// The state machine here is grounded on the teacher's internal state
// machine (StateType/StateMachine, transition map plus onEnter/onExit
// hooks); its phase sequence and progress percentages are grounded on
// original_source/src/sync/core.rs's SyncCore::synchronize.
package sync

// Phase enumerates the Synchronizer's states.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseParsing
	PhaseFetching
	PhaseStretching
	PhaseAssembling
	PhasePostProcessing
	PhaseFinalizing
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseParsing:
		return "parsing"
	case PhaseFetching:
		return "fetching"
	case PhaseStretching:
		return "stretching"
	case PhaseAssembling:
		return "assembling"
	case PhasePostProcessing:
		return "post_processing"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// startPercent gives the progress percentage at which each phase begins,
// per SPEC_FULL.md §4.7's fixed sequence 0->10->50->70->80->90->100.
var startPercent = map[Phase]float32{
	PhaseIdle:           0,
	PhaseParsing:        0,
	PhaseFetching:       10,
	PhaseStretching:     50,
	PhaseAssembling:     70,
	PhasePostProcessing: 80,
	PhaseFinalizing:     90,
	PhaseDone:           100,
}

// stateMachine tracks the Synchronizer's current phase and enforces the
// fixed forward transition order, with Failed reachable from any
// non-terminal phase.
type stateMachine struct {
	current     Phase
	transitions map[Phase][]Phase
}

func newStateMachine() *stateMachine {
	return &stateMachine{
		current: PhaseIdle,
		transitions: map[Phase][]Phase{
			PhaseIdle:           {PhaseParsing, PhaseFailed},
			PhaseParsing:        {PhaseFetching, PhaseFailed},
			PhaseFetching:       {PhaseStretching, PhaseFailed},
			PhaseStretching:     {PhaseAssembling, PhaseFailed},
			PhaseAssembling:     {PhasePostProcessing, PhaseFailed},
			PhasePostProcessing: {PhaseFinalizing, PhaseFailed},
			PhaseFinalizing:     {PhaseDone, PhaseFailed},
		},
	}
}

func (sm *stateMachine) transition(to Phase) bool {
	valid, ok := sm.transitions[sm.current]
	if !ok {
		return false
	}
	for _, s := range valid {
		if s == to {
			sm.current = to
			return true
		}
	}
	return false
}

func (sm *stateMachine) Current() Phase { return sm.current }
