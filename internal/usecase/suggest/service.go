package suggest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/huntkil/lexis/internal/domain"
	"github.com/huntkil/lexis/internal/text/tokenizer"
)

// Limits for suggestion lists.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Suggestion is a vocabulary term with its document frequency summed over
// every registered type.
type Suggestion struct {
	Term      string
	Frequency int
}

// Service answers autocomplete and popular-term queries from index vocabularies.
type Service struct {
	indexes Indexes
	logger  *zap.Logger
}

// New creates a suggestion service.
func New(indexes Indexes, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{indexes: indexes, logger: logger}
}

// Suggest returns up to limit terms starting with prefix, most frequent first.
// An empty prefix yields an empty result.
func (s *Service) Suggest(ctx context.Context, prefix string, limit int) ([]Suggestion, error) {
	p := tokenizer.Normalize(prefix)
	if p == "" {
		return []Suggestion{}, nil
	}
	return s.rank(ctx, p, limit)
}

// Popular returns up to limit terms, most frequent first.
func (s *Service) Popular(ctx context.Context, limit int) ([]Suggestion, error) {
	return s.rank(ctx, "", limit)
}

func (s *Service) rank(ctx context.Context, prefix string, limit int) ([]Suggestion, error) {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	freq := make(map[string]int)
	for _, ix := range s.indexes.Indexes() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("suggest: %w", err)
		}
		vocab, err := ix.Vocabulary()
		if errors.Is(err, domain.ErrIndexUnavailable) {
			s.logger.Debug("skipping unavailable index", zap.String("entity_type", ix.Name()))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read vocabulary of %s: %w", ix.Name(), err)
		}
		for term, df := range vocab {
			if strings.HasPrefix(term, prefix) {
				freq[term] += df
			}
		}
	}

	out := make([]Suggestion, 0, len(freq))
	for term, f := range freq {
		out = append(out, Suggestion{Term: term, Frequency: f})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
