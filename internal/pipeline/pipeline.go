package pipeline

import (
	"time"

	"github.com/rs/xid"

	"github.com/sakif/social-analytics/internal/dataset"
	"github.com/sakif/social-analytics/internal/model"
)

// Snapshot is one complete pipeline run. It is read-only once built:
// callers that need different inputs build a new snapshot.
type Snapshot struct {
	ID         string
	InputKey   string
	BuiltAt    time.Time
	Attributed bool

	Records     []model.IntegratedRecord
	Posts       []model.IndexedPost
	Reactions   []model.IndexedReaction
	Friendships int
	Stats       []TableStats
}

// NewSnapshot wraps an integration result. inputKey identifies the raw
// tables the result was built from.
func NewSnapshot(c *Cleaned, res *Result, inputKey string) *Snapshot {
	return &Snapshot{
		ID:          xid.New().String(),
		InputKey:    inputKey,
		BuiltAt:     time.Now().UTC(),
		Attributed:  res.Attributed,
		Records:     res.Records,
		Posts:       res.Posts,
		Reactions:   res.Reactions,
		Friendships: len(c.Friendships),
		Stats:       c.Stats,
	}
}

// Record returns the record of a user id. Ids are dense, so this is an
// index lookup.
func (s *Snapshot) Record(userID int64) (model.IntegratedRecord, bool) {
	if userID < 1 || userID > int64(len(s.Records)) {
		return model.IntegratedRecord{}, false
	}
	return s.Records[userID-1], true
}

// Run cleans and integrates raw tables in one call. It does not recover
// from any error, EmptyPostSet included.
func Run(raw dataset.Raw, inputKey string) (*Snapshot, error) {
	c, err := Clean(raw)
	if err != nil {
		return nil, err
	}
	res, err := Integrate(c)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(c, res, inputKey), nil
}
