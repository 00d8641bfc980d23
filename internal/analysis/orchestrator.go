// Package analysis drives the multi-pass reasoning loop for one event:
// pass 1 runs cheap, later passes escalate across capability tiers under
// the escalation policy until confidence clears the bar, the pass budget
// runs out, or the run plateaus.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/mazdak/triaged/internal/adapters/notesearch"
	"github.com/mazdak/triaged/internal/adapters/reasoning"
	"github.com/mazdak/triaged/internal/domain/confidence"
	"github.com/mazdak/triaged/internal/domain/memory"
	"github.com/mazdak/triaged/internal/domain/model"
	"github.com/mazdak/triaged/internal/domain/policy"
	"github.com/mazdak/triaged/pkg/logger"
	"github.com/mazdak/triaged/pkg/metrics"
)

// Default orchestrator configuration constants.
const (
	defaultPassTimeout   = 30 * time.Second
	defaultContextBudget = 5
)

// ContextSource is the slice of the context cache the orchestrator needs.
type ContextSource interface {
	GetOrSearch(ctx context.Context, entities []model.Entity, budget int) ([]notesearch.Match, error)
}

// Orchestrator runs the pass loop for one event at a time. A single
// Orchestrator is safe for concurrent Run calls: all per-run state lives
// in the working memory owned by each call.
type Orchestrator struct {
	provider reasoning.Provider
	context  ContextSource
	policy   *policy.Policy

	epsilon       int
	passTimeout   time.Duration
	contextBudget int

	logger logger.Logger
}

// New creates an orchestrator with configuration options.
func New(provider reasoning.Provider, source ContextSource, pol *policy.Policy, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:      provider,
		context:       source,
		policy:        pol,
		epsilon:       confidence.DefaultEpsilon,
		passTimeout:   defaultPassTimeout,
		contextBudget: defaultContextBudget,
		logger:        logger.Get().Named("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the bounded pass loop and composes the final result.
func (o *Orchestrator) Run(ctx context.Context, event model.PerceivedEvent) (model.AnalysisResult, error) {
	wm := memory.NewWorking(event)
	tier := model.TierLow
	doSearch := false
	stop := model.StopMaxPasses
	var last reasoning.Judgment

	for pass := 1; pass <= o.policy.MaxPasses(); pass++ {
		var notes []notesearch.Match
		searched := false
		if doSearch {
			found, err := o.retrieveContext(ctx, wm)
			if err != nil {
				return model.AnalysisResult{}, fmt.Errorf("pass %d context retrieval: %w", pass, err)
			}
			notes = found
			searched = true
		}

		before := wm.Current()
		role := roleFor(pass, searched, o.policy.MaxPasses())
		start := time.Now()
		judgment, err := o.invokePass(ctx, tier, reasoning.PromptContext{
			Event:         event,
			PassNumber:    pass,
			Role:          role,
			Notes:         notes,
			PriorPasses:   wm.Passes(),
			OpenQuestions: wm.Questions(),
		})
		if err != nil {
			return model.AnalysisResult{}, fmt.Errorf("pass %d at tier %s: %w", pass, tier, err)
		}
		last = judgment
		after := confidence.Clamp(judgment.Confidence)

		record := model.AnalysisPass{
			Number:           pass,
			Tier:             tier,
			Role:             role,
			ConfidenceBefore: before,
			ConfidenceAfter:  after,
			ContextSearched:  searched,
			ContextMatches:   len(notes),
			OpenQuestions:    judgment.OpenQuestions,
			Duration:         time.Since(start),
		}

		decision := o.policy.Decide(policy.Input{
			Confidence:      after,
			PassNumber:      pass,
			HighStakes:      event.HighStakes,
			Ephemeral:       event.Ephemeral,
			HighestTierUsed: model.MaxTier(tier, wm.HighestTier()),
			UnsearchedSeen:  len(wm.Unsearched()) > 0,
		})

		switch {
		case decision.Stop:
			// Crossing the bar outranks a plateau on the same pass.
			stop = decision.Reason
		case pass >= 2 && confidence.Converged(before, after, o.epsilon) &&
			!(event.HighStakes && tier < model.TierHigh):
			// High stakes defer a plateau stop until the top tier has run.
			stop = model.StopNoChange
			decision.Stop = true
		}

		if !decision.Stop {
			record.Escalated = decision.NextTier > tier
			if record.Escalated {
				metrics.RecordEscalation(decision.NextTier.String())
			}
		}
		wm.RecordPass(record)
		metrics.RecordAnalysisPass(tier.String(), time.Since(start).Seconds())
		o.logger.Debug(ctx, "pass finished",
			logger.String("event", event.ID),
			logger.Int("pass", pass),
			logger.String("tier", tier.String()),
			logger.Int("confidence", after),
			logger.String("rule", decision.Rule),
		)

		if decision.Stop {
			break
		}
		tier = model.MaxTier(tier, decision.NextTier)
		doSearch = decision.ContextSearch
	}

	result := model.AnalysisResult{
		Action:       last.Action,
		Category:     last.Category,
		Confidence:   confidence.Composite(wm.Passes()),
		Reasoning:    last.Reasoning,
		Alternatives: last.Alternatives,
		Artifacts:    last.Artifacts,
		Passes:       wm.Passes(),
		StopReason:   stop,
		ContextNotes: wm.NoteIDs(),
	}
	metrics.RecordAnalysisComplete(string(stop), len(result.Passes))
	o.logger.Info(ctx, "analysis finished",
		logger.String("event", event.ID),
		logger.Int("passes", len(result.Passes)),
		logger.Int("confidence", result.Confidence),
		logger.String("stop", string(stop)),
	)
	return result, nil
}

// retrieveContext searches over the union of entities seen so far through
// the cache, retrying once on a transient search failure.
func (o *Orchestrator) retrieveContext(ctx context.Context, wm *memory.Working) ([]notesearch.Match, error) {
	entities := wm.Event().Entities
	notes, err := o.context.GetOrSearch(ctx, entities, o.contextBudget)
	if err != nil && ctx.Err() == nil {
		o.logger.Warn(ctx, "context search failed; retrying once", logger.Error(err))
		notes, err = o.context.GetOrSearch(ctx, entities, o.contextBudget)
	}
	if err != nil {
		return nil, err
	}
	wm.MarkSearched(entities)
	ids := make([]string, 0, len(notes))
	for _, n := range notes {
		ids = append(ids, n.ID)
	}
	wm.AddNotes(ids)
	return notes, nil
}

// invokePass calls the provider under the per-pass timeout, retrying once
// on a transient provider failure.
func (o *Orchestrator) invokePass(ctx context.Context, tier model.Tier, pc reasoning.PromptContext) (reasoning.Judgment, error) {
	judgment, err := o.callProvider(ctx, tier, pc)
	if err != nil && ctx.Err() == nil {
		o.logger.Warn(ctx, "provider call failed; retrying once",
			logger.Int("pass", pc.PassNumber), logger.Error(err))
		judgment, err = o.callProvider(ctx, tier, pc)
	}
	return judgment, err
}

func (o *Orchestrator) callProvider(ctx context.Context, tier model.Tier, pc reasoning.PromptContext) (reasoning.Judgment, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.passTimeout)
	defer cancel()
	start := time.Now()
	judgment, err := o.provider.Invoke(callCtx, tier, pc)
	metrics.RecordProviderLatency(tier.String(), time.Since(start).Seconds())
	if err != nil && callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		// A pass timeout is a transient failure, not an immediate error state.
		return reasoning.Judgment{}, fmt.Errorf("%w: pass timed out after %s", reasoning.ErrProvider, o.passTimeout)
	}
	return judgment, err
}

// roleFor labels what a pass is asked to do based on its position.
func roleFor(pass int, searched bool, maxPasses int) model.PassRole {
	switch {
	case pass == 1:
		return model.RoleExtraction
	case searched:
		return model.RoleEnrichment
	case pass >= maxPasses:
		return model.RoleArbitration
	default:
		return model.RoleCritique
	}
}
