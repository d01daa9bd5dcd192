package workflow

// State tags the orchestrator's position in one run. Transitions follow
// a fixed graph with a single bounded feedback edge (regeneration):
//
//	RETRIEVING -> GENERATING -> EVALUATING -> {REGENERATING | GUARDRAILS}
//	REGENERATING -> GENERATING
//	GUARDRAILS -> ASSEMBLING -> DONE
//
// Any stage failure moves the run to FAILED.
type State string

const (
	StateRetrieving   State = "retrieving"
	StateGenerating   State = "generating"
	StateEvaluating   State = "evaluating"
	StateRegenerating State = "regenerating"
	StateGuardrails   State = "guardrails"
	StateAssembling   State = "assembling"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

var transitions = map[State][]State{
	StateRetrieving:   {StateGenerating, StateFailed},
	StateGenerating:   {StateEvaluating, StateGuardrails, StateFailed},
	StateEvaluating:   {StateRegenerating, StateGuardrails},
	StateRegenerating: {StateGenerating},
	StateGuardrails:   {StateAssembling, StateFailed},
	StateAssembling:   {StateDone},
}

// canTransition reports whether the edge from -> to exists in the graph.
func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
