package insight

import (
	"github.com/sakif/social-analytics/internal/apperror"
	"github.com/sakif/social-analytics/internal/pipeline"
)

// Descriptor names one insight.
type Descriptor struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Title  string `json:"title"`
}

// Params carries the optional knobs of the insights that have one.
type Params struct {
	N    int // ranking size
	Bins int // histogram bins
}

type entry struct {
	Descriptor
	compute func(*pipeline.Snapshot, Params) any
}

var catalog = []entry{
	{Descriptor{1, "totals", "Total users"},
		func(s *pipeline.Snapshot, _ Params) any { return TotalsOf(s) }},
	{Descriptor{2, "age-distribution", "User age distribution"},
		func(s *pipeline.Snapshot, p Params) any { return AgeDistribution(s, p.Bins) }},
	{Descriptor{3, "top-creators", "Top content creators"},
		func(s *pipeline.Snapshot, p Params) any { return TopCreators(s, p.N) }},
	{Descriptor{4, "reaction-types", "Popular reaction types"},
		func(s *pipeline.Snapshot, _ Params) any { return ReactionTypes(s) }},
	{Descriptor{5, "age-group-activity", "User activity per age group"},
		func(s *pipeline.Snapshot, _ Params) any { return AgeGroupActivity(s) }},
	{Descriptor{6, "friends-vs-posts", "Friend count versus post count"},
		func(s *pipeline.Snapshot, _ Params) any { return FriendsVsPosts(s) }},
	{Descriptor{7, "most-active", "Most active users"},
		func(s *pipeline.Snapshot, p Params) any { return MostActive(s, p.N) }},
	{Descriptor{8, "reaction-timeline", "Daily reaction activity"},
		func(s *pipeline.Snapshot, _ Params) any { return ReactionTimeline(s) }},
	{Descriptor{9, "activity-levels", "User activity levels"},
		func(s *pipeline.Snapshot, _ Params) any { return ActivityLevels(s) }},
	{Descriptor{10, "correlation", "Correlation matrix"},
		func(s *pipeline.Snapshot, _ Params) any { return Correlation(s) }},
}

// Catalog lists the insights in menu order.
func Catalog() []Descriptor {
	out := make([]Descriptor, len(catalog))
	for i, e := range catalog {
		out[i] = e.Descriptor
	}
	return out
}

// Compute evaluates the named insight. Unknown names are NotFound.
func Compute(s *pipeline.Snapshot, name string, p Params) (any, error) {
	for _, e := range catalog {
		if e.Name == name {
			return e.compute(s, p), nil
		}
	}
	return nil, apperror.NotFound("insight", name)
}
