package orchestrator

// State names a step of a turn. The states a turn visited are reported in
// Bundle.Trace.
type State string

const (
	StateReceived        State = "RECEIVED"
	StateEmbeddingQuery  State = "EMBEDDING_QUERY"
	StateRetrieving      State = "RETRIEVING"
	StateFiltering       State = "FILTERING"
	StateNoContext       State = "NO_CONTEXT"
	StateWithContext     State = "WITH_CONTEXT"
	StateGenerating      State = "GENERATING"
	StateDirectAnswer    State = "DIRECT_ANSWER"
	StateActionRequested State = "ACTION_REQUESTED"
	StateDispatching     State = "DISPATCHING"
	StateRegenerating    State = "REGENERATING"
	StateComposing       State = "COMPOSING"
	StateMemoryUpdate    State = "MEMORY_UPDATE"
	StateDone            State = "DONE"
)

// Outcome summarises how a turn ended.
type Outcome string

const (
	// OutcomeAnswered means the answer was grounded in retrieved context.
	OutcomeAnswered Outcome = "answered"
	// OutcomeNoRelevantContent means nothing met the threshold and no sources are cited.
	OutcomeNoRelevantContent Outcome = "no_relevant_content"
	// OutcomeRetrievalFailed means the query could not be embedded or searched.
	OutcomeRetrievalFailed Outcome = "retrieval_failed"
	// OutcomeGenerationFailed means the model could not produce an answer.
	OutcomeGenerationFailed Outcome = "generation_failed"
)

// Failed reports whether the turn ended in a transport failure.
func (o Outcome) Failed() bool {
	return o == OutcomeRetrievalFailed || o == OutcomeGenerationFailed
}
