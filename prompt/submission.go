package prompt

import (
	"github.com/google/uuid"
)

// Submission is the queue payload for a compiled prompt.
type Submission struct {
	ClientID string `json:"client_id"`
	Prompt   Prompt `json:"prompt"`
}

// NewSubmission builds a queue payload. An empty clientID gets a fresh
// random id so progress events can be attributed to this submission.
func NewSubmission(p Prompt, clientID string) Submission {
	if clientID == "" {
		clientID = uuid.New().String()
	}
	return Submission{ClientID: clientID, Prompt: p}
}
