package strategy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/anime-shed/blur-effect-go/internal/analyzer"
)

// ErrUnknownStrategy is returned for aggregate names outside the registry
var ErrUnknownStrategy = errors.New("unknown aggregation strategy")

// DefaultStrategy is used when no aggregate name is given
const DefaultStrategy = "max"

// AggregationStrategy decides how per-axis blur ratios become one score
type AggregationStrategy interface {
	Apply(opts analyzer.AnalysisOptions) analyzer.AnalysisOptions
	GetStrategyName() string
}

// reduceStrategy applies a fixed aggregator
type reduceStrategy struct {
	name   string
	reduce analyzer.Aggregator
	strict bool
}

// Apply sets the aggregator on opts
func (s *reduceStrategy) Apply(opts analyzer.AnalysisOptions) analyzer.AnalysisOptions {
	opts.Estimate.Aggregate = s.reduce
	opts.Estimate.Strict = opts.Estimate.Strict || s.strict
	opts.AggregateName = s.name
	return opts
}

// GetStrategyName returns the strategy name
func (s *reduceStrategy) GetStrategyName() string {
	return s.name
}

var registry = map[string]AggregationStrategy{
	"max":    &reduceStrategy{name: "max", reduce: analyzer.Max},
	"min":    &reduceStrategy{name: "min", reduce: analyzer.Min},
	"mean":   &reduceStrategy{name: "mean", reduce: analyzer.Mean},
	"nanmax": &reduceStrategy{name: "nanmax", reduce: analyzer.NanMax},
	"none":   &reduceStrategy{name: "none", reduce: analyzer.NoAggregation},
	"strict": &reduceStrategy{name: "strict", reduce: analyzer.Max, strict: true},
}

// Lookup returns the strategy registered under name, case-insensitively.
// An empty name selects DefaultStrategy.
func Lookup(name string) (AggregationStrategy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultStrategy
	}
	s, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownStrategy, name, strings.Join(Names(), ", "))
	}
	return s, nil
}

// Names lists the registered strategy names in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
