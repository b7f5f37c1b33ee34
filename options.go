package lexis

import "go.uber.org/zap"

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	source        Source
	synonyms      map[string][]string
	highlightPre  string
	highlightPost string
	defaultLimit  int
	maxLimit      int
	k1, b         float64
	parallelism   int
	logger        *zap.Logger
}

// WithSource sets the authoritative store read by rebuilds and by queries
// that filter or sort on record attributes. Without a source, attributes
// are read from the indexed field text and Rebuild fails.
func WithSource(s Source) Option {
	return func(c *engineConfig) { c.source = s }
}

// WithSynonyms enables query expansion. Each key maps to its synonyms;
// the relation is symmetric.
func WithSynonyms(m map[string][]string) Option {
	return func(c *engineConfig) { c.synonyms = m }
}

// WithHighlight sets the markers wrapped around matched terms.
// Empty markers keep the defaults <mark> and </mark>.
func WithHighlight(pre, post string) Option {
	return func(c *engineConfig) {
		c.highlightPre = pre
		c.highlightPost = post
	}
}

// WithLimits sets the default and maximum page size.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(c *engineConfig) {
		c.defaultLimit = defaultLimit
		c.maxLimit = maxLimit
	}
}

// WithScoring overrides the BM25 parameters k1 and b.
func WithScoring(k1, b float64) Option {
	return func(c *engineConfig) {
		c.k1 = k1
		c.b = b
	}
}

// WithRebuildParallelism caps how many types RebuildAll rebuilds at once.
func WithRebuildParallelism(n int) Option {
	return func(c *engineConfig) { c.parallelism = n }
}

// WithLogger sets the logger used for rebuild and slow query events.
func WithLogger(l *zap.Logger) Option {
	return func(c *engineConfig) { c.logger = l }
}
