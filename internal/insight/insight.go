// Package insight computes the dashboard series over a pipeline snapshot.
// Every function is read-only: snapshots are shared between requests.
package insight

import (
	"math"
	"sort"

	"github.com/sakif/social-analytics/internal/model"
	"github.com/sakif/social-analytics/internal/pipeline"
)

// Ranking sizes accepted by TopCreators and MostActive.
const (
	DefaultTopN = 10
	MinTopN     = 5
	MaxTopN     = 20

	DefaultBins = 30
	MaxBins     = 200
)

// ClampTopN maps a requested ranking size into [MinTopN, MaxTopN]; 0 means
// DefaultTopN.
func ClampTopN(n int) int {
	switch {
	case n == 0:
		return DefaultTopN
	case n < MinTopN:
		return MinTopN
	case n > MaxTopN:
		return MaxTopN
	}
	return n
}

type Totals struct {
	Users       int `json:"users"`
	Friendships int `json:"friendships"`
	Posts       int `json:"posts"`
	Reactions   int `json:"reactions"`
}

// TotalsOf counts the cleaned rows of each table.
func TotalsOf(s *pipeline.Snapshot) Totals {
	return Totals{
		Users:       len(s.Records),
		Friendships: s.Friendships,
		Posts:       len(s.Posts),
		Reactions:   len(s.Reactions),
	}
}

// Bin is one histogram bar covering [Lower, Upper). The last bin also
// includes Upper.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// AgeDistribution is an equal-width histogram of known ages. bins <= 0
// means DefaultBins; it is capped at MaxBins.
func AgeDistribution(s *pipeline.Snapshot, bins int) []Bin {
	if bins <= 0 {
		bins = DefaultBins
	}
	if bins > MaxBins {
		bins = MaxBins
	}

	var ages []float64
	for _, r := range s.Records {
		if r.Age.Known && !math.IsNaN(r.Age.Years) && !math.IsInf(r.Age.Years, 0) {
			ages = append(ages, r.Age.Years)
		}
	}
	if len(ages) == 0 {
		return []Bin{}
	}

	lo, hi := ages[0], ages[0]
	for _, a := range ages[1:] {
		lo = math.Min(lo, a)
		hi = math.Max(hi, a)
	}
	width := (hi - lo) / float64(bins)
	if width == 0 {
		width = 1
	}
	edge := func(i int) float64 { return lo + float64(i)*width }
	index := func(a float64) int { return int((a - lo) / width) }

	if math.IsInf(width, 0) {
		// hi-lo overflows float64; work in half units so every step stays finite.
		half := hi/2/float64(bins) - lo/2/float64(bins)
		edge = func(i int) float64 {
			if i == bins {
				return hi
			}
			return 2 * (lo/2 + float64(i)*half)
		}
		index = func(a float64) int { return int((a/2 - lo/2) / half) }
	}

	out := make([]Bin, bins)
	for i := range out {
		out[i].Lower = edge(i)
		out[i].Upper = edge(i + 1)
	}
	for _, a := range ages {
		i := index(a)
		if i < 0 {
			i = 0
		}
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}

// Ranked is one entry of a user ranking.
type Ranked struct {
	UserID int64  `json:"userId"`
	Label  string `json:"label"`
	Value  int64  `json:"value"`
}

// TopCreators ranks users by post count.
func TopCreators(s *pipeline.Snapshot, n int) []Ranked {
	return topBy(s.Records, ClampTopN(n), func(r model.IntegratedRecord) int64 { return r.PostCount })
}

// MostActive ranks users by total activity.
func MostActive(s *pipeline.Snapshot, n int) []Ranked {
	return topBy(s.Records, ClampTopN(n), func(r model.IntegratedRecord) int64 { return r.TotalActivity })
}

// topBy keeps table order among equal values.
func topBy(records []model.IntegratedRecord, n int, value func(model.IntegratedRecord) int64) []Ranked {
	sorted := append([]model.IntegratedRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return value(sorted[i]) > value(sorted[j]) })
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]Ranked, n)
	for i, r := range sorted[:n] {
		out[i] = Ranked{UserID: r.UserID, Label: r.FullName(), Value: value(r)}
	}
	return out
}

// Count is a labelled frequency.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ReactionTypes counts reactions per type, most frequent first.
func ReactionTypes(s *pipeline.Snapshot) []Count {
	counts := make(map[string]int)
	for _, r := range s.Reactions {
		counts[r.ReactionType]++
	}
	out := make([]Count, 0, len(counts))
	for label, c := range counts {
		out = append(out, Count{Label: label, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// GroupActivity holds per-age-group means.
type GroupActivity struct {
	AgeGroup       model.AgeGroup `json:"ageGroup"`
	Users          int            `json:"users"`
	FriendCount    float64        `json:"friendCount"`
	PostCount      float64        `json:"postCount"`
	ReactionsGiven float64        `json:"reactionsGiven"`
}

// AgeGroupActivity averages friend, post and given-reaction counts per age
// group. Unbucketed users are left out, as are groups without users.
func AgeGroupActivity(s *pipeline.Snapshot) []GroupActivity {
	sums := make(map[model.AgeGroup]*GroupActivity)
	for _, r := range s.Records {
		if r.AgeGroup == model.AgeGroupNone {
			continue
		}
		g, ok := sums[r.AgeGroup]
		if !ok {
			g = &GroupActivity{AgeGroup: r.AgeGroup}
			sums[r.AgeGroup] = g
		}
		g.Users++
		g.FriendCount += float64(r.FriendCount)
		g.PostCount += float64(r.PostCount)
		g.ReactionsGiven += float64(r.ReactionsGiven)
	}

	out := make([]GroupActivity, 0, len(sums))
	for _, group := range model.AgeGroups {
		g, ok := sums[group]
		if !ok {
			continue
		}
		n := float64(g.Users)
		g.FriendCount /= n
		g.PostCount /= n
		g.ReactionsGiven /= n
		out = append(out, *g)
	}
	return out
}

// Point is one user in the friends-vs-posts scatter.
type Point struct {
	UserID      int64          `json:"userId"`
	FriendCount int64          `json:"friendCount"`
	PostCount   int64          `json:"postCount"`
	AgeGroup    model.AgeGroup `json:"ageGroup"`
}

// FriendsVsPosts returns one point per user in table order.
func FriendsVsPosts(s *pipeline.Snapshot) []Point {
	out := make([]Point, len(s.Records))
	for i, r := range s.Records {
		out[i] = Point{UserID: r.UserID, FriendCount: r.FriendCount, PostCount: r.PostCount, AgeGroup: r.AgeGroup}
	}
	return out
}

// DayCount is the number of reactions on one UTC day.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ReactionTimeline counts reactions per UTC calendar day, oldest first.
func ReactionTimeline(s *pipeline.Snapshot) []DayCount {
	counts := make(map[string]int)
	for _, r := range s.Reactions {
		counts[r.ReactionDate.UTC().Format("2006-01-02")]++
	}
	out := make([]DayCount, 0, len(counts))
	for d, c := range counts {
		out = append(out, DayCount{Date: d, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// LevelCount is the number of users at one activity level.
type LevelCount struct {
	Level model.ActivityLevel `json:"level"`
	Count int                 `json:"count"`
}

// ActivityLevels counts users per activity level, in level order. Levels
// without users are reported with a zero count.
func ActivityLevels(s *pipeline.Snapshot) []LevelCount {
	counts := make(map[model.ActivityLevel]int)
	for _, r := range s.Records {
		counts[model.ActivityLevelOf(r)]++
	}
	out := make([]LevelCount, len(model.ActivityLevels))
	for i, l := range model.ActivityLevels {
		out[i] = LevelCount{Level: l, Count: counts[l]}
	}
	return out
}
