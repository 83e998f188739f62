// Package pipeline turns the four raw social tables into the per-user
// analytic table. It has two stages: the cleaner types and repairs each raw
// table, and the integrator joins the cleaned tables. Both stages are pure:
// inputs are never modified and every call returns fresh values.
package pipeline

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cast"

	"github.com/sakif/social-analytics/internal/apperror"
	"github.com/sakif/social-analytics/internal/dataset"
	"github.com/sakif/social-analytics/internal/model"
)

// MaxEpochSeconds is the last accepted epoch value, 9999-12-31T23:59:59Z.
// Negative values are rejected too, so accepted dates run from 1970 to 9999.
const MaxEpochSeconds = 253402300799

// TableStats describes what cleaning did to one table.
type TableStats struct {
	Table      string `json:"table"`
	RowsIn     int    `json:"rowsIn"`
	Dropped    int    `json:"dropped"`
	Imputed    int    `json:"imputed"`
	Duplicates int    `json:"duplicates"`
	RowsOut    int    `json:"rowsOut"`
}

// Cleaned holds the typed output of the cleaner.
type Cleaned struct {
	Users       []model.User
	Friendships []model.Friendship
	Posts       []model.Post
	Reactions   []model.Reaction
	Stats       []TableStats
}

// Clean runs the cleaner over all four raw tables.
func Clean(raw dataset.Raw) (*Cleaned, error) {
	users, us, err := CleanUsers(raw.Users)
	if err != nil {
		return nil, err
	}
	friends, fs, err := CleanFriendships(raw.Friendships)
	if err != nil {
		return nil, err
	}
	posts, ps, err := CleanPosts(raw.Posts)
	if err != nil {
		return nil, err
	}
	reactions, rs, err := CleanReactions(raw.Reactions)
	if err != nil {
		return nil, err
	}
	return &Cleaned{
		Users:       users,
		Friendships: friends,
		Posts:       posts,
		Reactions:   reactions,
		Stats:       []TableStats{us, fs, ps, rs},
	}, nil
}

// CleanUsers converts subscription dates, parses ages and drops duplicates.
// Missing subscription dates get the column median.
func CleanUsers(t *dataset.Table) ([]model.User, TableStats, error) {
	st := TableStats{Table: t.Name, RowsIn: t.Len()}
	idx, err := t.Require(dataset.Schemas[dataset.Users]...)
	if err != nil {
		return nil, st, err
	}

	filled, n, err := imputeMedian(t, dataset.ColSubscriptionDate)
	if err != nil {
		return nil, st, err
	}
	st.Imputed = n
	dates, err := ConvertEpoch(filled, dataset.ColSubscriptionDate)
	if err != nil {
		return nil, st, err
	}

	users := make([]model.User, 0, filled.Len())
	for i := range filled.Rows {
		name, _ := filled.Cell(i, idx[dataset.ColName])
		surname, _ := filled.Cell(i, idx[dataset.ColSurname])
		age, err := parseAge(filled, i, idx[dataset.ColAge])
		if err != nil {
			return nil, st, err
		}
		users = append(users, model.User{
			Name:             name,
			Surname:          surname,
			Age:              age,
			SubscriptionDate: dates[i],
		})
	}

	users, st.Duplicates = Dedupe(users)
	st.RowsOut = len(users)
	return users, st, nil
}

// CleanFriendships drops pairs with a missing endpoint and duplicates.
func CleanFriendships(t *dataset.Table) ([]model.Friendship, TableStats, error) {
	st := TableStats{Table: t.Name, RowsIn: t.Len()}
	idx, err := t.Require(dataset.Schemas[dataset.Friendships]...)
	if err != nil {
		return nil, st, err
	}

	kept := dropMissing(t, idx[dataset.ColFriend1], idx[dataset.ColFriend2])
	st.Dropped = t.Len() - kept.Len()

	friends := make([]model.Friendship, 0, kept.Len())
	for i := range kept.Rows {
		a, err := parseID(kept, i, idx[dataset.ColFriend1])
		if err != nil {
			return nil, st, err
		}
		b, err := parseID(kept, i, idx[dataset.ColFriend2])
		if err != nil {
			return nil, st, err
		}
		friends = append(friends, model.Friendship{Friend1: a, Friend2: b})
	}

	friends, st.Duplicates = Dedupe(friends)
	st.RowsOut = len(friends)
	return friends, st, nil
}

// CleanPosts drops posts without an author, fills missing dates with the
// median, converts dates and drops duplicates.
func CleanPosts(t *dataset.Table) ([]model.Post, TableStats, error) {
	st := TableStats{Table: t.Name, RowsIn: t.Len()}
	idx, err := t.Require(dataset.Schemas[dataset.Posts]...)
	if err != nil {
		return nil, st, err
	}

	kept := dropMissing(t, idx[dataset.ColUser])
	st.Dropped = t.Len() - kept.Len()
	filled, n, err := imputeMedian(kept, dataset.ColPostDate)
	if err != nil {
		return nil, st, err
	}
	st.Imputed = n
	dates, err := ConvertEpoch(filled, dataset.ColPostDate)
	if err != nil {
		return nil, st, err
	}

	posts := make([]model.Post, 0, filled.Len())
	for i := range filled.Rows {
		user, err := parseID(filled, i, idx[dataset.ColUser])
		if err != nil {
			return nil, st, err
		}
		posts = append(posts, model.Post{UserID: user, PostDate: dates[i]})
	}

	posts, st.Duplicates = Dedupe(posts)
	st.RowsOut = len(posts)
	return posts, st, nil
}

// CleanReactions imputes the reactions table, converts reaction dates and
// drops duplicates. Imputation runs first, so rows that become identical
// after filling collapse into one.
func CleanReactions(t *dataset.Table) ([]model.Reaction, TableStats, error) {
	st := TableStats{Table: t.Name, RowsIn: t.Len()}
	idx, err := t.Require(dataset.Schemas[dataset.Reactions]...)
	if err != nil {
		return nil, st, err
	}

	filled, imp, err := ImputeReactions(t)
	if err != nil {
		return nil, st, err
	}
	st.Dropped = imp.Dropped
	st.Imputed = imp.Types + imp.Dates
	dates, err := ConvertEpoch(filled, dataset.ColReactionDate)
	if err != nil {
		return nil, st, err
	}

	reactions := make([]model.Reaction, 0, filled.Len())
	for i := range filled.Rows {
		user, err := parseID(filled, i, idx[dataset.ColUser])
		if err != nil {
			return nil, st, err
		}
		typ, _ := filled.Cell(i, idx[dataset.ColReactionType])
		reactions = append(reactions, model.Reaction{
			UserID:       user,
			ReactionType: typ,
			ReactionDate: dates[i],
		})
	}

	reactions, st.Duplicates = Dedupe(reactions)
	st.RowsOut = len(reactions)
	return reactions, st, nil
}

// ImputeStats counts the repairs made by ImputeReactions.
type ImputeStats struct {
	Dropped int
	Types   int
	Dates   int
}

// ImputeReactions drops reactions without a giver, then fills missing
// reaction types with the mode and missing raw timestamps with the median of
// the remaining rows. Both statistics are computed on the rows left after the
// drop and before any filling. The input is not modified.
//
// If every remaining type (or timestamp) is missing there is nothing to
// derive a fill value from and those cells stay missing; a missing timestamp
// is then rejected by ConvertEpoch.
func ImputeReactions(t *dataset.Table) (*dataset.Table, ImputeStats, error) {
	var st ImputeStats
	idx, err := t.Require(dataset.Schemas[dataset.Reactions]...)
	if err != nil {
		return nil, st, err
	}

	out := dropMissing(t, idx[dataset.ColUser])
	st.Dropped = t.Len() - out.Len()

	out, st.Types = imputeMode(out, idx[dataset.ColReactionType])
	out, st.Dates, err = imputeMedian(out, dataset.ColReactionDate)
	if err != nil {
		return nil, st, err
	}
	return out, st, nil
}

// ConvertEpoch reads a seconds-since-epoch column as UTC times. Fractional
// seconds are kept to the nanosecond. Missing, non-numeric, negative and
// out-of-range values fail with MalformedTimestamp.
func ConvertEpoch(t *dataset.Table, column string) ([]time.Time, error) {
	col, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, t.Len())
	for i := range t.Rows {
		v, ok := t.Cell(i, col)
		if !ok {
			return nil, apperror.MalformedTimestamp(t.Name, column, i, t.Rows[i][col])
		}
		secs, err := parseEpoch(v)
		if err != nil {
			return nil, apperror.MalformedTimestamp(t.Name, column, i, v)
		}
		ts, ok := EpochToTime(secs)
		if !ok {
			return nil, apperror.MalformedTimestamp(t.Name, column, i, v)
		}
		out[i] = ts
	}
	return out, nil
}

// EpochToTime converts epoch seconds to a UTC time. It reports false for
// NaN, infinities, negative values and values past MaxEpochSeconds.
func EpochToTime(secs float64) (time.Time, bool) {
	if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 || secs > MaxEpochSeconds {
		return time.Time{}, false
	}
	whole := math.Floor(secs)
	nanos := math.Round((secs - whole) * 1e9)
	if nanos >= 1e9 {
		whole++
		nanos = 0
	}
	return time.Unix(int64(whole), int64(nanos)).UTC(), true
}

// Dedupe removes exact duplicate rows, keeping the first occurrence and the
// relative order of the survivors. It returns the rows and the number removed.
func Dedupe[T comparable](rows []T) ([]T, int) {
	seen := make(map[T]struct{}, len(rows))
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out, len(rows) - len(out)
}

// dropMissing returns a copy of t without the rows missing any of cols.
func dropMissing(t *dataset.Table, cols ...int) *dataset.Table {
	out := dataset.New(t.Name, t.Header, nil)
rows:
	for i, row := range t.Rows {
		for _, c := range cols {
			if _, ok := t.Cell(i, c); !ok {
				continue rows
			}
		}
		out.Append(row)
	}
	return out
}

// imputeMode fills missing cells of col with the most frequent value.
// Ties resolve to the lexically smallest value.
func imputeMode(t *dataset.Table, col int) (*dataset.Table, int) {
	counts := make(map[string]int)
	for i := range t.Rows {
		if v, ok := t.Cell(i, col); ok {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return t.Clone(), 0
	}

	labels := make([]string, 0, len(counts))
	for v := range counts {
		labels = append(labels, v)
	}
	sort.Strings(labels)
	mode := labels[0]
	for _, v := range labels[1:] {
		if counts[v] > counts[mode] {
			mode = v
		}
	}

	out := t.Clone()
	filled := 0
	for i := range out.Rows {
		if _, ok := out.Cell(i, col); !ok {
			out.Rows[i][col] = mode
			filled++
		}
	}
	return out, filled
}

// imputeMedian fills missing epoch cells of column with the median of the
// present raw values. An even count uses the mean of the two middle values.
func imputeMedian(t *dataset.Table, column string) (*dataset.Table, int, error) {
	col, err := t.Column(column)
	if err != nil {
		return nil, 0, err
	}

	var values []float64
	missing := 0
	for i := range t.Rows {
		v, ok := t.Cell(i, col)
		if !ok {
			missing++
			continue
		}
		f, err := parseEpoch(v)
		if err != nil {
			return nil, 0, apperror.MalformedTimestamp(t.Name, column, i, v)
		}
		values = append(values, f)
	}
	if missing == 0 || len(values) == 0 {
		return t.Clone(), 0, nil
	}

	fill := strconv.FormatFloat(median(values), 'f', -1, 64)
	out := t.Clone()
	for i := range out.Rows {
		if _, ok := out.Cell(i, col); !ok {
			out.Rows[i][col] = fill
		}
	}
	return out, missing, nil
}

func median(values []float64) float64 {
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func parseEpoch(v string) (float64, error) {
	return cast.ToFloat64E(v)
}

// parseID reads an integral user id. "7" and "7.0" are both accepted since
// exports with missing values write id columns as floats.
func parseID(t *dataset.Table, row, col int) (int64, error) {
	v, _ := t.Cell(row, col)
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, apperror.MalformedValue(t.Name, t.Header[col], row, v)
	}
	return int64(f), nil
}

func parseAge(t *dataset.Table, row, col int) (model.Age, error) {
	v, ok := t.Cell(row, col)
	if !ok {
		return model.Age{}, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return model.Age{}, apperror.MalformedValue(t.Name, t.Header[col], row, v)
	}
	return model.KnownAge(f), nil
}
