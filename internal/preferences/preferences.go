package preferences

import (
	"fmt"
	"sort"
)

// Topic is a preference label such as "Work meetings".
type Topic = string

// Ranking maps topics to ranks; lower rank means more preferred. Ranks must
// be pairwise distinct but need not be contiguous.
type Ranking map[Topic]int

// Tier distinguishes the two preference rankings.
type Tier string

const (
	TierGeneral  Tier = "general"
	TierSpecific Tier = "specific"
)

// SpecificCount is the number of topics a specific ranking must contain.
const SpecificCount = 10

// TopCount is the number of general topics kept as top preferences.
const TopCount = 5

// Distinct returns topics without repeats, keeping the first occurrence.
func Distinct(topics []Topic) []Topic {
	out := make([]Topic, 0, len(topics))
	seen := make(map[Topic]struct{}, len(topics))
	for _, t := range topics {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// GeneralTopics is the fixed catalog of general topics, in display order.
var GeneralTopics = []Topic{
	"Project Deadlines",
	"Work meetings",
	"Learning Opportunities",
	"Entertainment",
	"Informal Meetings",
	"Technology Updates",
	"Career opportunities",
	"Online shopping",
	"Health and Fitness",
	"Social Media Notifications",
}

// Validation failure reasons.
const (
	ReasonNotAllRanked = "all topics must be ranked"
	ReasonNotUnique    = "ranks must be unique"
	ReasonWrongCount   = "exactly 10 topics must be ranked"
)

// ValidationError reports a rejected ranking. Nothing is persisted when a
// submission fails validation.
type ValidationError struct {
	Tier   Tier
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s preferences: %s", e.Tier, e.Reason)
}

// Validate checks a ranking against a tier. A specific ranking always has
// exactly SpecificCount entries. When catalog is non-empty the ranking's
// key set must also equal it. Ranks must always be distinct.
func Validate(tier Tier, ranking Ranking, catalog []Topic) error {
	if tier == TierSpecific && len(ranking) != SpecificCount {
		return &ValidationError{Tier: tier, Reason: ReasonWrongCount}
	}
	if len(catalog) > 0 && !sameKeys(ranking, catalog) {
		return &ValidationError{Tier: tier, Reason: ReasonNotAllRanked}
	}

	seen := make(map[int]struct{}, len(ranking))
	for _, rank := range ranking {
		if _, dup := seen[rank]; dup {
			return &ValidationError{Tier: tier, Reason: ReasonNotUnique}
		}
		seen[rank] = struct{}{}
	}
	return nil
}

func sameKeys(ranking Ranking, catalog []Topic) bool {
	want := make(map[Topic]struct{}, len(catalog))
	for _, t := range catalog {
		want[t] = struct{}{}
	}
	if len(want) != len(ranking) {
		return false
	}
	for t := range ranking {
		if _, ok := want[t]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the ranking's topics ascending by rank.
func (r Ranking) Sorted() []Topic {
	topics := make([]Topic, 0, len(r))
	for t := range r {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool {
		if r[topics[i]] != r[topics[j]] {
			return r[topics[i]] < r[topics[j]]
		}
		return topics[i] < topics[j]
	})
	return topics
}

// Top returns the n most preferred topics in ascending rank order.
func (r Ranking) Top(n int) []Topic {
	sorted := r.Sorted()
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
