package insight

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/social-analytics/internal/apperror"
	"github.com/sakif/social-analytics/internal/model"
	"github.com/sakif/social-analytics/internal/pipeline"
)

func record(id int64, age float64, friends, posts, given, received int64) model.IntegratedRecord {
	r := model.IntegratedRecord{
		UserID:            id,
		Name:              "User",
		Surname:           string(rune('A' + id - 1)),
		Age:               model.KnownAge(age),
		SubscriptionDate:  time.Unix(1500000000, 0).UTC(),
		FriendCount:       friends,
		PostCount:         posts,
		ReactionsGiven:    given,
		ReactionsReceived: received,
	}
	r.Derive()
	return r
}

func reaction(typ string, day string) model.IndexedReaction {
	d, _ := time.Parse("2006-01-02 15:04", day)
	return model.IndexedReaction{ReactionType: typ, ReactionDate: d}
}

// testSnapshot is a small hand-checked network.
func testSnapshot() *pipeline.Snapshot {
	return &pipeline.Snapshot{
		Records: []model.IntegratedRecord{
			record(1, 18, 2, 1, 0, 3),   // <20, total 3
			record(2, 25, 4, 6, 2, 0),   // 20-29, total 12
			record(3, 27, 0, 0, 0, 0),   // 20-29, total 0
			record(4, 45, 10, 6, 20, 1), // 40-49, total 36
			record(5, 120, 1, 2, 1, 5),  // unbucketed, total 4
		},
		Posts:       make([]model.IndexedPost, 15),
		Friendships: 8,
		Reactions: []model.IndexedReaction{
			reaction("Like", "2023-01-02 10:00"),
			reaction("Love", "2023-01-01 23:59"),
			reaction("Like", "2023-01-01 00:00"),
			reaction("Wow", "2023-01-02 01:00"),
			reaction("Love", "2023-01-03 12:00"),
		},
	}
}

func TestClampTopN(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultTopN},
		{1, MinTopN},
		{-3, MinTopN},
		{7, 7},
		{20, 20},
		{50, MaxTopN},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampTopN(tt.in), "ClampTopN(%d)", tt.in)
	}
}

func TestTotalsOf(t *testing.T) {
	assert.Equal(t, Totals{Users: 5, Friendships: 8, Posts: 15, Reactions: 5}, TotalsOf(testSnapshot()))
}

func TestAgeDistribution(t *testing.T) {
	s := testSnapshot()

	bins := AgeDistribution(s, 4)
	require.Len(t, bins, 4)
	// Ages 18..120 in four bins of width 25.5.
	assert.InDelta(t, 18, bins[0].Lower, 1e-9)
	assert.InDelta(t, 120, bins[3].Upper, 1e-9)

	counts := make([]int, len(bins))
	total := 0
	for i, b := range bins {
		counts[i] = b.Count
		total += b.Count
	}
	assert.Equal(t, []int{3, 1, 0, 1}, counts, "the maximum lands in the last bin")
	assert.Equal(t, 5, total)

	assert.Len(t, AgeDistribution(s, 0), DefaultBins)
	assert.Len(t, AgeDistribution(s, 10_000), MaxBins)
}

func TestAgeDistribution_UnknownAgesAndSingleValue(t *testing.T) {
	s := testSnapshot()
	s.Records[0].Age = model.Age{}
	for i := 1; i < len(s.Records); i++ {
		s.Records[i].Age = model.KnownAge(30)
	}

	bins := AgeDistribution(s, 3)
	require.Len(t, bins, 3)
	assert.Equal(t, 4, bins[0].Count)
	assert.Equal(t, 30.0, bins[0].Lower)

	empty := &pipeline.Snapshot{}
	assert.Empty(t, AgeDistribution(empty, 3))
}

func TestAgeDistribution_ExtremeAges(t *testing.T) {
	s := &pipeline.Snapshot{Records: []model.IntegratedRecord{
		{UserID: 1, Age: model.KnownAge(-1e308)},
		{UserID: 2, Age: model.KnownAge(1e308)},
		{UserID: 3, Age: model.KnownAge(math.NaN())},
		{UserID: 4, Age: model.KnownAge(math.Inf(1))},
	}}

	var bins []Bin
	require.NotPanics(t, func() { bins = AgeDistribution(s, 30) })
	require.Len(t, bins, 30)

	total := 0
	for _, b := range bins {
		assert.False(t, math.IsInf(b.Lower, 0) || math.IsNaN(b.Lower))
		assert.False(t, math.IsInf(b.Upper, 0) || math.IsNaN(b.Upper))
		total += b.Count
	}
	assert.Equal(t, 1, bins[0].Count)
	assert.Equal(t, 1, bins[29].Count)
	assert.Equal(t, 2, total, "non-finite ages are skipped")
	assert.Equal(t, -1e308, bins[0].Lower)
	assert.Equal(t, 1e308, bins[29].Upper)

	_, err := json.Marshal(bins)
	assert.NoError(t, err)
}

func TestTopCreators(t *testing.T) {
	got := TopCreators(testSnapshot(), 5)
	require.Len(t, got, 5)
	// Users 2 and 4 tie at six posts; table order breaks the tie.
	assert.Equal(t, Ranked{UserID: 2, Label: "User B", Value: 6}, got[0])
	assert.Equal(t, Ranked{UserID: 4, Label: "User D", Value: 6}, got[1])
	assert.Equal(t, int64(5), got[2].UserID)
	assert.Equal(t, int64(0), got[4].Value)
}

func TestMostActive(t *testing.T) {
	got := MostActive(testSnapshot(), 0)
	require.Len(t, got, 5, "fewer users than the default ranking size")

	ids := make([]int64, len(got))
	for i, r := range got {
		ids[i] = r.UserID
	}
	assert.Equal(t, []int64{4, 2, 5, 1, 3}, ids)
	assert.Equal(t, int64(36), got[0].Value)
}

func TestReactionTypes(t *testing.T) {
	assert.Equal(t, []Count{
		{Label: "Like", Count: 2},
		{Label: "Love", Count: 2},
		{Label: "Wow", Count: 1},
	}, ReactionTypes(testSnapshot()))
}

func TestAgeGroupActivity(t *testing.T) {
	got := AgeGroupActivity(testSnapshot())
	require.Len(t, got, 3, "empty groups and unbucketed users are left out")

	assert.Equal(t, model.AgeGroupUnder20, got[0].AgeGroup)
	assert.Equal(t, model.AgeGroup20s, got[1].AgeGroup)
	assert.Equal(t, model.AgeGroup40s, got[2].AgeGroup)

	assert.Equal(t, 2, got[1].Users)
	assert.InDelta(t, 2.0, got[1].FriendCount, 1e-9)
	assert.InDelta(t, 3.0, got[1].PostCount, 1e-9)
	assert.InDelta(t, 1.0, got[1].ReactionsGiven, 1e-9)
}

func TestFriendsVsPosts(t *testing.T) {
	got := FriendsVsPosts(testSnapshot())
	require.Len(t, got, 5)
	assert.Equal(t, Point{UserID: 4, FriendCount: 10, PostCount: 6, AgeGroup: model.AgeGroup40s}, got[3])
	assert.Equal(t, model.AgeGroupNone, got[4].AgeGroup)
}

func TestReactionTimeline(t *testing.T) {
	assert.Equal(t, []DayCount{
		{Date: "2023-01-01", Count: 2},
		{Date: "2023-01-02", Count: 2},
		{Date: "2023-01-03", Count: 1},
	}, ReactionTimeline(testSnapshot()))
}

func TestActivityLevels(t *testing.T) {
	got := ActivityLevels(testSnapshot())
	require.Len(t, got, len(model.ActivityLevels))

	want := map[model.ActivityLevel]int{
		model.ActivityInactive: 1,
		model.ActivityLow:      2,
		model.ActivityMedium:   1,
		model.ActivityHigh:     0,
		model.ActivityVeryHigh: 1,
	}
	sum := 0
	for i, lc := range got {
		assert.Equal(t, model.ActivityLevels[i], lc.Level)
		assert.Equal(t, want[lc.Level], lc.Count, "level %s", lc.Level)
		sum += lc.Count
	}
	assert.Equal(t, 5, sum)
}

func TestCorrelation(t *testing.T) {
	s := testSnapshot()
	m := Correlation(s)

	require.Len(t, m.Variables, 6)
	assert.Equal(t, "Age", m.Variables[0])

	for i := range m.Variables {
		require.NotNil(t, m.Values[i][i])
		assert.InDelta(t, 1.0, *m.Values[i][i], 1e-9)
		for j := range m.Variables {
			if m.Values[i][j] == nil {
				continue
			}
			assert.InDelta(t, *m.Values[i][j], *m.Values[j][i], 1e-12, "symmetric")
			assert.LessOrEqual(t, *m.Values[i][j], 1.0)
			assert.GreaterOrEqual(t, *m.Values[i][j], -1.0)
		}
	}

	// total_activity = friends + posts + given, so it correlates positively
	// with its largest component.
	assert.Greater(t, *m.Values[3][5], 0.9)
}

func TestCorrelation_UndefinedIsNull(t *testing.T) {
	s := testSnapshot()
	for i := range s.Records {
		s.Records[i].ReactionsReceived = 7
	}
	m := Correlation(s)
	assert.Nil(t, m.Values[4][4], "zero variance")
	assert.Nil(t, m.Values[0][4])

	body, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(body), "null")

	one := &pipeline.Snapshot{Records: s.Records[:1]}
	assert.Nil(t, Correlation(one).Values[1][2], "a single observation")
}

func TestCorrelation_UnknownAgesArePairwiseExcluded(t *testing.T) {
	s := testSnapshot()
	s.Records[4].Age = model.Age{}
	m := Correlation(s)
	require.NotNil(t, m.Values[0][1])
	require.NotNil(t, m.Values[1][2])
}

func TestCatalogAndCompute(t *testing.T) {
	cat := Catalog()
	require.Len(t, cat, 10)
	for i, d := range cat {
		assert.Equal(t, i+1, d.Number)
	}

	s := testSnapshot()
	for _, d := range cat {
		v, err := Compute(s, d.Name, Params{})
		require.NoError(t, err, d.Name)
		assert.NotNil(t, v, d.Name)
	}

	v, err := Compute(s, "top-creators", Params{N: 6})
	require.NoError(t, err)
	assert.Len(t, v, 5)

	_, err = Compute(s, "nope", Params{})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}
