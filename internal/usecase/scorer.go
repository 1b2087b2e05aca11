package usecase

import "strings"

// Match types reported for diagnostics
const (
	MatchExact       = "exact"
	MatchPrefix      = "prefix"
	MatchSubstring   = "substring"
	MatchDescription = "description"
	MatchCategory    = "category"
	MatchFuzzy       = "fuzzy"
	MatchNone        = "none"
)

// Score is the outcome of scoring one candidate
type Score struct {
	Total     float64
	MatchType string
	Signals   map[string]float64
}

// RelevanceScorer sums an ordered list of independent signals
type RelevanceScorer struct {
	signals []Signal
}

// NewRelevanceScorer creates a scorer over the given signal table
func NewRelevanceScorer(signals []Signal) *RelevanceScorer {
	return &RelevanceScorer{signals: signals}
}

// Score evaluates every signal against the candidate. When no match signal
// fires the total is 0 and boost signals are not applied.
func (s *RelevanceScorer) Score(c *Candidate, q *ScoringQuery) Score {
	contributions := make(map[string]float64, len(s.signals))
	matched := false
	total := 0.0

	for _, sig := range s.signals {
		if sig.Kind != SignalMatch {
			continue
		}
		if v := sig.Weight * sig.Factor(c, q); v > 0 {
			contributions[sig.Name] = v
			total += v
			matched = true
		}
	}

	if !matched {
		return Score{Total: 0, MatchType: MatchNone}
	}

	for _, sig := range s.signals {
		if sig.Kind != SignalBoost {
			continue
		}
		if v := sig.Weight * sig.Factor(c, q); v > 0 {
			contributions[sig.Name] = v
			total += v
		}
	}

	return Score{
		Total:     total,
		MatchType: matchTypeOf(c, q, contributions),
		Signals:   contributions,
	}
}

func matchTypeOf(c *Candidate, q *ScoringQuery, contributions map[string]float64) string {
	switch {
	case contributions[SignalName] > 0:
		switch {
		case c.name == q.Text:
			return MatchExact
		case strings.HasPrefix(c.name, q.Text):
			return MatchPrefix
		default:
			return MatchSubstring
		}
	case contributions[SignalDescription] > 0:
		return MatchDescription
	case contributions[SignalCategoryText] > 0:
		return MatchCategory
	case contributions[SignalFuzzy] > 0:
		return MatchFuzzy
	case contributions[SignalCategoryFilter] > 0:
		return MatchCategory
	}
	return MatchNone
}
