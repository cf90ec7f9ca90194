package chat

import "errors"

// Turn failure taxonomy. Callers match with errors.Is and map the sentinel
// onto a transport response; the wrapped cause carries the detail.
//
// A guardrail rejection is deliberately NOT in this list: it is a normal,
// success-shaped outcome carried by TurnResult.Rejected.
var (
	// ErrNoUserMessage means the inbound message list held no user entry.
	// Client-side error; nothing was persisted.
	ErrNoUserMessage = errors.New("user message not found")

	// ErrRetrieval means the search backend failed. Server-side error;
	// nothing was persisted and the turn is not retried by the core.
	ErrRetrieval = errors.New("search tool failed")

	// ErrGeneration means the main-tier model call failed. Server-side
	// error; nothing was persisted.
	ErrGeneration = errors.New("answer generation failed")
)
