package engine

import "net/http"

// ActionOutcome describes how the action bridge resolved a POST request.
type ActionOutcome uint8

const (
	// ActionNone means the request carried no action; rendering proceeds.
	ActionNone ActionOutcome = iota
	// ActionNotFound means the action resolved to a 404; the document is
	// re-rendered through the not-found boundary.
	ActionNotFound
	// ActionDone means the bridge produced the full response itself.
	ActionDone
	// ActionFormState means a form action completed and its state must be
	// threaded into the document render for progressive enhancement.
	ActionFormState
)

// ActionResult is what the bridge hands back to the orchestrator.
type ActionResult struct {
	Outcome ActionOutcome

	// Result carries the complete response for ActionDone.
	Result *Result

	// FormState carries the serializable action reply for ActionFormState.
	FormState any
}

// ActionBridge dispatches server actions. The orchestrator offers every
// mutating request to the bridge before rendering; bodyLimit bounds how much
// of the request body the bridge may consume.
type ActionBridge interface {
	Dispatch(w http.ResponseWriter, r *http.Request, bodyLimit int64) (*ActionResult, error)
}
