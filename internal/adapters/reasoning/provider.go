// Package reasoning defines the contract for the external reasoning
// provider that executes one analysis pass at a given capability tier.
//
// The wire protocol of any concrete model provider is out of scope here;
// the package ships a simulated implementation and a retrying decorator
// that applies backoff to rate-limited calls.
package reasoning

import (
	"context"

	"github.com/mazdak/triaged/internal/adapters/notesearch"
	"github.com/mazdak/triaged/internal/domain/model"
)

// PromptContext is everything a pass may condition on: the event, the pass
// history so far, retrieved context notes, and open questions from earlier
// passes.
type PromptContext struct {
	Event         model.PerceivedEvent
	PassNumber    int
	Role          model.PassRole
	Notes         []notesearch.Match
	PriorPasses   []model.AnalysisPass
	OpenQuestions []string
}

// Judgment is the structured outcome of one reasoning pass.
type Judgment struct {
	Action        string
	Category      string
	Confidence    int // 0-100
	Reasoning     string
	Alternatives  []model.Alternative
	Artifacts     []model.Artifact
	OpenQuestions []string
}

// Provider executes one reasoning pass. Implementations are stateless
// across calls; all run state travels in the prompt context.
type Provider interface {
	Invoke(ctx context.Context, tier model.Tier, pc PromptContext) (Judgment, error)
}
