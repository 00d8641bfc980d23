package analysis_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/mazdak/triaged/internal/adapters/notesearch"
	"github.com/mazdak/triaged/internal/adapters/reasoning"
	"github.com/mazdak/triaged/internal/analysis"
	"github.com/mazdak/triaged/internal/domain/model"
	"github.com/mazdak/triaged/internal/domain/policy"
	"github.com/mazdak/triaged/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// scriptProvider replays scripted confidences in order and records the tier
// each pass ran at.
type scriptProvider struct {
	confidences []int
	errs        []error
	calls       int
	tiers       []model.Tier
	notesSeen   []int
}

func (s *scriptProvider) Invoke(_ context.Context, tier model.Tier, pc reasoning.PromptContext) (reasoning.Judgment, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return reasoning.Judgment{}, s.errs[idx]
	}
	s.tiers = append(s.tiers, tier)
	s.notesSeen = append(s.notesSeen, len(pc.Notes))
	conf := s.confidences[len(s.tiers)-1]
	return reasoning.Judgment{
		Action:     "reply",
		Category:   "correspondence",
		Confidence: conf,
		Reasoning:  "scripted",
	}, nil
}

// stubSource stands in for the context cache.
type stubSource struct {
	matches []notesearch.Match
	errs    []error
	calls   int
}

func (s *stubSource) GetOrSearch(_ context.Context, _ []model.Entity, _ int) ([]notesearch.Match, error) {
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return nil, s.errs[idx]
	}
	return s.matches, nil
}

func eventWithEntities(id string) model.PerceivedEvent {
	return model.NewPerceivedEvent(id, model.SourceEmail, "vendor contract renewal", []model.Entity{
		{Kind: "topic", Value: "vendor"},
	})
}

func TestOrchestrator_Run_SufficientConfidence(t *testing.T) {
	Convey("Given a run whose confidence rises across passes", t, func() {
		provider := &scriptProvider{confidences: []int{60, 82, 96}}
		source := &stubSource{matches: []notesearch.Match{{ID: "n1", Score: 1}}}
		o := analysis.New(provider, source, policy.New())

		result, err := o.Run(context.Background(), eventWithEntities("ev-1"))

		Convey("Then it stops once the bar is cleared", func() {
			So(err, ShouldBeNil)
			So(result.StopReason, ShouldEqual, model.StopSufficientConfidence)
			So(result.Passes, ShouldHaveLength, 3)
		})

		Convey("And the tiers escalate then hold", func() {
			So(provider.tiers, ShouldResemble, []model.Tier{model.TierLow, model.TierMid, model.TierMid})
		})

		Convey("And the composite score dominates on the final pass", func() {
			So(result.Confidence, ShouldEqual, 96)
		})

		Convey("And the pass records carry the confidence trajectory", func() {
			So(result.Passes[0].ConfidenceBefore, ShouldEqual, 0)
			So(result.Passes[0].ConfidenceAfter, ShouldEqual, 60)
			So(result.Passes[1].ConfidenceBefore, ShouldEqual, 60)
			So(result.Passes[2].ConfidenceAfter, ShouldEqual, 96)
		})

		Convey("And the first pass ran without context", func() {
			So(result.Passes[0].ContextSearched, ShouldBeFalse)
			So(provider.notesSeen[0], ShouldEqual, 0)
		})

		Convey("And the retrieved note IDs ride along in the result", func() {
			So(result.ContextNotes, ShouldResemble, []string{"n1"})
		})
	})
}

func TestOrchestrator_Run_Convergence(t *testing.T) {
	Convey("Given two consecutive passes that barely move", t, func() {
		provider := &scriptProvider{confidences: []int{60, 63}}
		source := &stubSource{}
		o := analysis.New(provider, source, policy.New())

		result, err := o.Run(context.Background(), eventWithEntities("ev-2"))

		Convey("Then the run stops as a plateau", func() {
			So(err, ShouldBeNil)
			So(result.StopReason, ShouldEqual, model.StopNoChange)
			So(result.Passes, ShouldHaveLength, 2)
		})
	})

	Convey("Given a final pass that both plateaus and clears the bar", t, func() {
		provider := &scriptProvider{confidences: []int{93, 96}}
		source := &stubSource{}
		o := analysis.New(provider, source, policy.New())

		result, err := o.Run(context.Background(), eventWithEntities("ev-3"))

		Convey("Then sufficient confidence wins over the plateau", func() {
			So(err, ShouldBeNil)
			So(result.StopReason, ShouldEqual, model.StopSufficientConfidence)
		})
	})

	Convey("Given a first pass that lands close to zero movement", t, func() {
		provider := &scriptProvider{confidences: []int{3, 60, 96}}
		source := &stubSource{}
		o := analysis.New(provider, source, policy.New())

		result, err := o.Run(context.Background(), eventWithEntities("ev-4"))

		Convey("Then convergence never fires on the first pass", func() {
			So(err, ShouldBeNil)
			So(result.Passes, ShouldHaveLength, 3)
		})
	})
}

func TestOrchestrator_Run_MaxPasses(t *testing.T) {
	Convey("Given a run that never settles", t, func() {
		provider := &scriptProvider{confidences: []int{50, 58, 50, 58, 50}}
		source := &stubSource{}
		o := analysis.New(provider, source, policy.New())

		result, err := o.Run(context.Background(), eventWithEntities("ev-5"))

		Convey("Then the pass budget caps the run", func() {
			So(err, ShouldBeNil)
			So(result.StopReason, ShouldEqual, model.StopMaxPasses)
			So(result.Passes, ShouldHaveLength, 5)
		})

		Convey("And the tiers never step back down", func() {
			for i := 1; i < len(provider.tiers); i++ {
				So(provider.tiers[i], ShouldBeGreaterThanOrEqualTo, provider.tiers[i-1])
			}
			So(provider.tiers[len(provider.tiers)-1], ShouldEqual, model.TierHigh)
		})
	})
}

func TestOrchestrator_Run_HighStakes(t *testing.T) {
	Convey("Given a high-stakes run stuck at the same confidence", t, func() {
		provider := &scriptProvider{confidences: []int{55, 55, 55}}
		source := &stubSource{matches: []notesearch.Match{{ID: "n1"}}}
		o := analysis.New(provider, source, policy.New())

		event := eventWithEntities("ev-14").WithFlags(false, true)
		result, err := o.Run(context.Background(), event)

		Convey("Then the plateau never stops it before the top tier has run", func() {
			So(err, ShouldBeNil)
			So(result.Passes, ShouldHaveLength, 3)
			So(provider.tiers, ShouldResemble, []model.Tier{model.TierLow, model.TierMid, model.TierHigh})
		})

		Convey("And the run still ends as a plateau once the top tier agrees", func() {
			So(result.StopReason, ShouldEqual, model.StopNoChange)
		})
	})

	Convey("Given the same flat trajectory without the stakes flag", t, func() {
		provider := &scriptProvider{confidences: []int{55, 55}}
		source := &stubSource{}
		o := analysis.New(provider, source, policy.New())

		result, err := o.Run(context.Background(), eventWithEntities("ev-15"))

		Convey("Then the plateau stops it at the second pass", func() {
			So(err, ShouldBeNil)
			So(result.StopReason, ShouldEqual, model.StopNoChange)
			So(result.Passes, ShouldHaveLength, 2)
		})
	})
}

func TestOrchestrator_Run_ContextSearch(t *testing.T) {
	Convey("Given an event carrying entities", t, func() {
		provider := &scriptProvider{confidences: []int{60, 96}}
		source := &stubSource{matches: []notesearch.Match{{ID: "n1"}, {ID: "n2"}}}
		o := analysis.New(provider, source, policy.New())

		result, err := o.Run(context.Background(), eventWithEntities("ev-6"))
		So(err, ShouldBeNil)

		Convey("Then search runs once, before the second pass", func() {
			So(source.calls, ShouldEqual, 1)
			So(result.Passes[0].ContextSearched, ShouldBeFalse)
			So(result.Passes[1].ContextSearched, ShouldBeTrue)
			So(result.Passes[1].ContextMatches, ShouldEqual, 2)
		})

		Convey("And the second pass saw the notes", func() {
			So(provider.notesSeen[1], ShouldEqual, 2)
		})
	})

	Convey("Given an event with no entities", t, func() {
		provider := &scriptProvider{confidences: []int{60, 96}}
		source := &stubSource{}
		o := analysis.New(provider, source, policy.New())

		event := model.NewPerceivedEvent("ev-7", model.SourceMessage, "hello", nil)
		_, err := o.Run(context.Background(), event)

		Convey("Then no search ever runs", func() {
			So(err, ShouldBeNil)
			So(source.calls, ShouldEqual, 0)
		})
	})

	Convey("Given an ephemeral event", t, func() {
		provider := &scriptProvider{confidences: []int{81}}
		source := &stubSource{}
		o := analysis.New(provider, source, policy.New())

		event := eventWithEntities("ev-8").WithFlags(true, false)
		result, err := o.Run(context.Background(), event)

		Convey("Then the reduced bar stops it after one cheap pass", func() {
			So(err, ShouldBeNil)
			So(result.StopReason, ShouldEqual, model.StopSufficientConfidence)
			So(result.Passes, ShouldHaveLength, 1)
			So(provider.tiers, ShouldResemble, []model.Tier{model.TierLow})
		})

		Convey("And no context search was spent on it", func() {
			So(source.calls, ShouldEqual, 0)
		})
	})
}

func TestOrchestrator_Run_Failures(t *testing.T) {
	Convey("Given a provider that fails once then recovers", t, func() {
		provider := &scriptProvider{
			confidences: []int{96},
			errs:        []error{reasoning.ErrProvider, nil},
		}
		source := &stubSource{}
		o := analysis.New(provider, source, policy.New())

		result, err := o.Run(context.Background(), eventWithEntities("ev-9"))

		Convey("Then the retry absorbs the failure", func() {
			So(err, ShouldBeNil)
			So(result.StopReason, ShouldEqual, model.StopSufficientConfidence)
			So(provider.calls, ShouldEqual, 2)
		})
	})

	Convey("Given a provider that keeps failing", t, func() {
		provider := &scriptProvider{
			confidences: []int{96},
			errs:        []error{reasoning.ErrProvider, reasoning.ErrProvider},
		}
		source := &stubSource{}
		o := analysis.New(provider, source, policy.New())

		_, err := o.Run(context.Background(), eventWithEntities("ev-10"))

		Convey("Then the run errors out after the single retry", func() {
			So(errors.Is(err, reasoning.ErrProvider), ShouldBeTrue)
			So(provider.calls, ShouldEqual, 2)
		})
	})

	Convey("Given a search that fails once then recovers", t, func() {
		provider := &scriptProvider{confidences: []int{60, 96}}
		source := &stubSource{
			matches: []notesearch.Match{{ID: "n1"}},
			errs:    []error{notesearch.ErrSearchUnavailable, nil},
		}
		o := analysis.New(provider, source, policy.New())

		result, err := o.Run(context.Background(), eventWithEntities("ev-11"))

		Convey("Then the retry carries the run through", func() {
			So(err, ShouldBeNil)
			So(source.calls, ShouldEqual, 2)
			So(result.Passes[1].ContextMatches, ShouldEqual, 1)
		})
	})

	Convey("Given a search that keeps failing", t, func() {
		provider := &scriptProvider{confidences: []int{60, 96}}
		source := &stubSource{
			errs: []error{notesearch.ErrSearchUnavailable, notesearch.ErrSearchUnavailable},
		}
		o := analysis.New(provider, source, policy.New())

		_, err := o.Run(context.Background(), eventWithEntities("ev-12"))

		Convey("Then the run surfaces the search failure", func() {
			So(errors.Is(err, notesearch.ErrSearchUnavailable), ShouldBeTrue)
		})
	})
}

func TestOrchestrator_Run_Roles(t *testing.T) {
	Convey("Given a full-length run", t, func() {
		provider := &scriptProvider{confidences: []int{50, 58, 50, 58, 50}}
		source := &stubSource{matches: []notesearch.Match{{ID: "n1"}}}
		o := analysis.New(provider, source, policy.New())

		result, err := o.Run(context.Background(), eventWithEntities("ev-13"))
		So(err, ShouldBeNil)
		So(result.Passes, ShouldHaveLength, 5)

		Convey("Then the roles track pass position and context", func() {
			So(result.Passes[0].Role, ShouldEqual, model.RoleExtraction)
			So(result.Passes[1].Role, ShouldEqual, model.RoleEnrichment)
			So(result.Passes[2].Role, ShouldEqual, model.RoleCritique)
			So(result.Passes[4].Role, ShouldEqual, model.RoleArbitration)
		})
	})
}
