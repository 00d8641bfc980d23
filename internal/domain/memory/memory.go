// Package memory holds the per-run working memory: the mutable accumulator
// of pass history, retrieved context, and open questions for one analysis.
//
// A Working value is exclusively owned by the run that created it and is
// discarded once the run folds it into a result, so it needs no locking.
package memory

import (
	"github.com/mazdak/triaged/internal/domain/model"
)

// Working accumulates the state of one analysis run.
type Working struct {
	event model.PerceivedEvent

	passes         []model.AnalysisPass
	noteIDs        []string
	noteSeen       map[string]struct{}
	questions      []string
	questionSeen   map[string]struct{}
	searchedEntity map[string]struct{}

	best    int
	current int
}

// NewWorking starts working memory for one run.
func NewWorking(event model.PerceivedEvent) *Working {
	return &Working{
		event:          event,
		noteSeen:       make(map[string]struct{}),
		questionSeen:   make(map[string]struct{}),
		searchedEntity: make(map[string]struct{}),
	}
}

// Event returns the event this run is analyzing.
func (w *Working) Event() model.PerceivedEvent { return w.event }

// RecordPass appends a completed pass and updates the confidence trackers.
func (w *Working) RecordPass(pass model.AnalysisPass) {
	w.passes = append(w.passes, pass)
	w.current = pass.ConfidenceAfter
	if pass.ConfidenceAfter > w.best {
		w.best = pass.ConfidenceAfter
	}
	w.AddQuestions(pass.OpenQuestions)
}

// Passes returns the ordered pass history.
func (w *Working) Passes() []model.AnalysisPass { return w.passes }

// PassCount returns how many passes have run.
func (w *Working) PassCount() int { return len(w.passes) }

// Current returns the confidence after the most recent pass, 0 before any.
func (w *Working) Current() int { return w.current }

// Best returns the best confidence seen across passes.
func (w *Working) Best() int { return w.best }

// HighestTier returns the strongest tier used so far, TierLow before any pass.
func (w *Working) HighestTier() model.Tier {
	highest := model.TierLow
	for _, p := range w.passes {
		highest = model.MaxTier(highest, p.Tier)
	}
	return highest
}

// AddNotes records retrieved context note IDs, deduplicated, preserving
// first-seen order.
func (w *Working) AddNotes(ids []string) {
	for _, id := range ids {
		if _, ok := w.noteSeen[id]; ok {
			continue
		}
		w.noteSeen[id] = struct{}{}
		w.noteIDs = append(w.noteIDs, id)
	}
}

// NoteIDs returns the union of retrieved context note IDs.
func (w *Working) NoteIDs() []string { return w.noteIDs }

// AddQuestions records open strategic questions, deduplicated.
func (w *Working) AddQuestions(questions []string) {
	for _, q := range questions {
		if q == "" {
			continue
		}
		if _, ok := w.questionSeen[q]; ok {
			continue
		}
		w.questionSeen[q] = struct{}{}
		w.questions = append(w.questions, q)
	}
}

// Questions returns the union of open strategic questions.
func (w *Working) Questions() []string { return w.questions }

// MarkSearched records that a context search covered these entities.
func (w *Working) MarkSearched(entities []model.Entity) {
	for _, e := range entities {
		w.searchedEntity[e.Key()] = struct{}{}
	}
}

// Unsearched returns the entities seen so far that no search has covered.
func (w *Working) Unsearched() []model.Entity {
	var out []model.Entity
	for _, e := range w.event.Entities {
		if _, ok := w.searchedEntity[e.Key()]; !ok {
			out = append(out, e)
		}
	}
	return out
}
