package pipeline

import (
	"github.com/sakif/social-analytics/internal/apperror"
	"github.com/sakif/social-analytics/internal/model"
)

// Result is the output of the integrator.
type Result struct {
	Records   []model.IntegratedRecord
	Posts     []model.IndexedPost
	Reactions []model.IndexedReaction
	// Attributed is false when reactions were not mapped onto posts and
	// every ReactionsReceived is 0.
	Attributed bool
}

// Integrate joins the cleaned tables into one record per user.
//
// Steps run in a fixed order because synthetic ids depend on it:
//  1. users are numbered 1..N in cleaned order
//  2. friend_count counts both endpoints of every friendship
//  3. posts are numbered 1..M; post_count is grouped by author
//  4. reactions are numbered 1..K; reactions_given is grouped by giver
//  5. reaction r is attributed to post (r mod M)+1 and counted for that
//     post's author as reactions_received
//  6. the four counts are left-joined onto users, absent counts are 0
//  7. derived fields are computed
//
// The attribution in step 5 is a round-robin placeholder: the source data
// has no reaction→post key, so reactions_received is not a real metric.
// With no posts (M = 0) the modulus is undefined and Integrate fails with
// EmptyPostSet; IntegrateUnattributed is the fallback.
func Integrate(c *Cleaned) (*Result, error) {
	if len(c.Posts) == 0 {
		return nil, apperror.EmptyPostSet()
	}
	return integrate(c, true), nil
}

// IntegrateUnattributed runs Integrate without step 5. ReactionsReceived is
// 0 for every user and PostID is 0 for every reaction.
func IntegrateUnattributed(c *Cleaned) *Result {
	return integrate(c, false)
}

func integrate(c *Cleaned, attribute bool) *Result {
	records := make([]model.IntegratedRecord, len(c.Users))
	for i, u := range c.Users {
		records[i] = model.IntegratedRecord{
			UserID:           int64(i + 1),
			Name:             u.Name,
			Surname:          u.Surname,
			Age:              u.Age,
			SubscriptionDate: u.SubscriptionDate,
		}
	}

	friendCount := make(map[int64]int64)
	for _, f := range c.Friendships {
		friendCount[f.Friend1]++
		friendCount[f.Friend2]++
	}

	posts := make([]model.IndexedPost, len(c.Posts))
	postCount := make(map[int64]int64)
	for i, p := range c.Posts {
		posts[i] = model.IndexedPost{PostID: int64(i + 1), UserID: p.UserID, PostDate: p.PostDate}
		postCount[p.UserID]++
	}

	reactions := make([]model.IndexedReaction, len(c.Reactions))
	given := make(map[int64]int64)
	for i, r := range c.Reactions {
		reactions[i] = model.IndexedReaction{
			ReactionID:   int64(i + 1),
			UserID:       r.UserID,
			ReactionType: r.ReactionType,
			ReactionDate: r.ReactionDate,
		}
		given[r.UserID]++
	}

	received := make(map[int64]int64)
	if attribute {
		m := int64(len(posts))
		for i := range reactions {
			r := &reactions[i]
			r.PostID = r.ReactionID%m + 1
			// Post ids are dense, so the join always finds exactly one post.
			author := posts[r.PostID-1].UserID
			received[author]++
		}
	}

	for i := range records {
		rec := &records[i]
		rec.FriendCount = friendCount[rec.UserID]
		rec.PostCount = postCount[rec.UserID]
		rec.ReactionsGiven = given[rec.UserID]
		rec.ReactionsReceived = received[rec.UserID]
		rec.Derive()
	}

	return &Result{
		Records:    records,
		Posts:      posts,
		Reactions:  reactions,
		Attributed: attribute,
	}
}
