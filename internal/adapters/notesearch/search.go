// Package notesearch defines the contract for the external semantic
// note-search capability and an in-memory implementation used until a real
// index is wired in.
package notesearch

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/mazdak/triaged/internal/domain/model"
	"github.com/mazdak/triaged/pkg/metrics"
)

// Default search configuration constants.
const (
	defaultWorkerCount = 8 // small pool; the work is I/O-bound, not CPU-bound
	defaultLimit       = 5
)

// Match is one note returned by a search.
type Match struct {
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Excerpt string  `json:"excerpt"`
}

// Note is a searchable document in the in-memory corpus.
type Note struct {
	ID   string
	Text string
	Tags []string
}

// Searcher finds notes relevant to a set of entities.
type Searcher interface {
	// Search returns up to limit matches ranked by score, honoring ctx.
	Search(ctx context.Context, entities []model.Entity, limit int) ([]Match, error)
}

// InMemorySearcher implements Searcher by scanning a note corpus with a
// bounded worker pool.
type InMemorySearcher struct {
	mu      sync.RWMutex
	corpus  []Note
	workers int
}

// NewInMemorySearcher creates a searcher with configuration options.
func NewInMemorySearcher(opts ...Option) *InMemorySearcher {
	s := &InMemorySearcher{
		workers: defaultWorkerCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the corpus, e.g. after the note index is rebuilt.
func (s *InMemorySearcher) Load(notes []Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpus = append([]Note(nil), notes...)
}

// Search scans the corpus in shards and merges the ranked results.
func (s *InMemorySearcher) Search(ctx context.Context, entities []model.Entity, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if len(entities) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	corpus := s.corpus
	s.mu.RUnlock()
	if len(corpus) == 0 {
		return nil, nil
	}

	terms := make([]string, 0, len(entities))
	for _, e := range entities {
		terms = append(terms, strings.ToLower(e.Value))
	}

	workers := s.workers
	if workers > len(corpus) {
		workers = len(corpus)
	}
	shard := (len(corpus) + workers - 1) / workers

	var wg sync.WaitGroup
	results := make(chan Match, len(corpus))
	for i := 0; i < len(corpus); i += shard {
		end := i + shard
		if end > len(corpus) {
			end = len(corpus)
		}
		wg.Add(1)
		go func(notes []Note) {
			defer wg.Done()
			for _, n := range notes {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if score := scoreNote(n, terms); score > 0 {
					results <- Match{ID: n.ID, Score: score, Excerpt: excerpt(n.Text)}
				}
			}
		}(corpus[i:end])
	}
	wg.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(results))
	for m := range results {
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	metrics.RecordNoteSearch(len(matches))
	return matches, nil
}

// scoreNote counts term hits across text and tags, normalized by term count.
func scoreNote(n Note, terms []string) float64 {
	text := strings.ToLower(n.Text)
	hits := 0
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(text, term) {
			hits++
			continue
		}
		for _, tag := range n.Tags {
			if strings.EqualFold(tag, term) {
				hits++
				break
			}
		}
	}
	if hits == 0 {
		return 0
	}
	return float64(hits) / float64(len(terms))
}

const excerptLen = 120

func excerpt(text string) string {
	if len(text) <= excerptLen {
		return text
	}
	return text[:excerptLen]
}
