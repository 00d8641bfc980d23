package reasoning

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/mazdak/triaged/internal/domain/confidence"
	"github.com/mazdak/triaged/internal/domain/model"
)

// Default simulation constants.
const (
	defaultMinLatency  = 40 * time.Millisecond
	defaultMaxLatency  = 120 * time.Millisecond
	defaultRandomSeed  = 42
	baseConfidenceLow  = 45
	baseConfidenceSpan = 30
	tierBoost          = 12 // additional certainty per capability tier
	noteBoost          = 4  // additional certainty per context note, capped
	noteBoostCap       = 16
	passBoost          = 5 // re-reading the same evidence still firms up a little
)

// actions a simulated judgment can choose from, picked by content hash.
var simulatedActions = []struct {
	action   string
	category string
}{
	{"archive", "notification"},
	{"reply", "correspondence"},
	{"create-task", "actionable"},
	{"schedule", "calendar"},
	{"file-note", "reference"},
}

// InMemoryProvider implements Provider with simulated reasoning: it models
// the latency of a real provider and produces deterministic judgments from
// the event content so tests and the seed generator behave repeatably.
type InMemoryProvider struct {
	minLatency time.Duration
	maxLatency time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewInMemoryProvider creates a simulated provider with options.
func NewInMemoryProvider(opts ...ProviderOption) *InMemoryProvider {
	p := &InMemoryProvider{
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
		rng:        rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible behavior
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Invoke simulates one reasoning pass.
func (p *InMemoryProvider) Invoke(ctx context.Context, tier model.Tier, pc PromptContext) (Judgment, error) {
	latency := p.nextLatency()
	select {
	case <-ctx.Done():
		return Judgment{}, fmt.Errorf("%w: %v", ErrProvider, ctx.Err())
	case <-time.After(latency):
	}

	h := contentHash(pc.Event.ID + pc.Event.Content)
	pick := simulatedActions[h%uint32(len(simulatedActions))]

	score := baseConfidenceLow + int(h%uint32(baseConfidenceSpan))
	score += int(tier) * tierBoost
	score += (pc.PassNumber - 1) * passBoost
	boost := len(pc.Notes) * noteBoost
	if boost > noteBoostCap {
		boost = noteBoostCap
	}
	score += boost

	j := Judgment{
		Action:     pick.action,
		Category:   pick.category,
		Confidence: confidence.Clamp(score),
		Reasoning: fmt.Sprintf("pass %d at tier %s judged %q for event %s with %d context notes",
			pc.PassNumber, tier, pick.action, pc.Event.ID, len(pc.Notes)),
	}
	for _, alt := range simulatedActions {
		if alt.action == pick.action {
			continue
		}
		j.Alternatives = append(j.Alternatives, model.Alternative{
			Action: alt.action,
			Reason: "weaker fit than " + pick.action,
		})
		if len(j.Alternatives) == 2 {
			break
		}
	}
	if pc.PassNumber == 1 && pc.Event.HighStakes {
		j.OpenQuestions = []string{"does this commitment conflict with existing obligations?"}
	}
	if pick.action == "create-task" {
		j.Artifacts = []model.Artifact{{Kind: "task", Payload: pc.Event.Content}}
	}
	return j, nil
}

func (p *InMemoryProvider) nextLatency() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	span := p.maxLatency - p.minLatency
	if span <= 0 {
		return p.minLatency
	}
	return p.minLatency + time.Duration(p.rng.Int63n(int64(span)))
}

func contentHash(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
