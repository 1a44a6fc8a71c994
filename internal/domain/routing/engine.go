package routing

import (
	"sort"

	"github.com/google/uuid"
)

// MatchResult is the routing decision for a single item. A zero result means
// no rule matched.
type MatchResult struct {
	RuleID           uuid.UUID
	RuleName         string
	TargetType       TargetType
	TargetSupplierID *uuid.UUID
}

// Matched reports whether a rule produced this result
func (m MatchResult) Matched() bool {
	return m.RuleID != uuid.Nil
}

// Resolve evaluates the active rules against an item and returns the decision
// of the winning rule. Higher Priority wins; among equal priorities the rule
// created first wins, with ID as the final tiebreaker so the outcome is
// deterministic regardless of input order.
func Resolve(item AttributeReader, rules []SplitRule) MatchResult {
	var winner *SplitRule
	for i := range rules {
		r := &rules[i]
		if !r.IsActive || !r.Matches(item) {
			continue
		}
		if winner == nil || beats(r, winner) {
			winner = r
		}
	}
	if winner == nil {
		return MatchResult{}
	}
	return MatchResult{
		RuleID:           winner.ID,
		RuleName:         winner.Name,
		TargetType:       winner.TargetType,
		TargetSupplierID: winner.TargetSupplierID,
	}
}

// beats reports whether rule a takes precedence over rule b
func beats(a, b *SplitRule) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// SortByPrecedence orders rules from highest to lowest precedence, matching
// the order Resolve considers them in
func SortByPrecedence(rules []SplitRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return beats(&rules[i], &rules[j])
	})
}
