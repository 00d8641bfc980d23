package notesearch

// Option applies a configuration option to the InMemorySearcher.
type Option func(*InMemorySearcher)

// WithWorkerCount bounds the scan worker pool.
func WithWorkerCount(count int) Option {
	return func(s *InMemorySearcher) {
		if count > 0 {
			s.workers = count
		}
	}
}

// WithCorpus seeds the initial note corpus.
func WithCorpus(notes []Note) Option {
	return func(s *InMemorySearcher) {
		s.corpus = append([]Note(nil), notes...)
	}
}
