package rag

import "fmt"

// Strategy selects how a question is transformed into retrieval queries and
// how the per-query results are combined.
type Strategy string

const (
	StrategyBasic         Strategy = "basic"
	StrategyMultiQuery    Strategy = "multi_query"
	StrategyFusion        Strategy = "fusion"
	StrategyDecomposition Strategy = "decomposition"
	StrategyStepback      Strategy = "stepback"
	StrategyHyDE          Strategy = "hyde"
)

// ParseStrategy validates a caller-supplied strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyBasic, StrategyMultiQuery, StrategyFusion,
		StrategyDecomposition, StrategyStepback, StrategyHyDE:
		return Strategy(s), nil
	case "":
		return StrategyBasic, nil
	default:
		return "", fmt.Errorf("%w: unknown rag_type %q", ErrInvalidArgument, s)
	}
}

// Strategies lists the strategy identifiers exposed to callers.
func Strategies() []Strategy {
	return []Strategy{
		StrategyBasic,
		StrategyMultiQuery,
		StrategyFusion,
		StrategyDecomposition,
		StrategyStepback,
		StrategyHyDE,
	}
}
