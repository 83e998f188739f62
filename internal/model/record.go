package model

import (
	"encoding/json"
	"time"
)

// AgeGroup is the age bucket of a user. AgeGroupNone marks ages outside
// (0, 100] and unknown ages.
type AgeGroup int

const (
	AgeGroupNone AgeGroup = iota
	AgeGroupUnder20
	AgeGroup20s
	AgeGroup30s
	AgeGroup40s
	AgeGroup50Plus
)

// AgeGroups lists the defined buckets in ascending order.
var AgeGroups = []AgeGroup{AgeGroupUnder20, AgeGroup20s, AgeGroup30s, AgeGroup40s, AgeGroup50Plus}

func (g AgeGroup) String() string {
	switch g {
	case AgeGroupUnder20:
		return "<20"
	case AgeGroup20s:
		return "20-29"
	case AgeGroup30s:
		return "30-39"
	case AgeGroup40s:
		return "40-49"
	case AgeGroup50Plus:
		return "50+"
	default:
		return ""
	}
}

// MarshalJSON encodes AgeGroupNone as null and every other bucket by label.
func (g AgeGroup) MarshalJSON() ([]byte, error) {
	if g == AgeGroupNone {
		return []byte("null"), nil
	}
	return json.Marshal(g.String())
}

// AgeGroupOf buckets an age. Lower bounds are inclusive: 20 is "20-29" and
// 19.999 is "<20". 100 is the last age inside "50+".
func AgeGroupOf(age Age) AgeGroup {
	if !age.Known || age.Years <= 0 || age.Years > 100 {
		return AgeGroupNone
	}
	switch y := age.Years; {
	case y < 20:
		return AgeGroupUnder20
	case y < 30:
		return AgeGroup20s
	case y < 40:
		return AgeGroup30s
	case y < 50:
		return AgeGroup40s
	default:
		return AgeGroup50Plus
	}
}

// IntegratedRecord is one row of the per-user analytic table.
type IntegratedRecord struct {
	UserID           int64     `json:"userId"`
	Name             string    `json:"name"`
	Surname          string    `json:"surname"`
	Age              Age       `json:"age"`
	SubscriptionDate time.Time `json:"subscriptionDate"`
	FriendCount      int64     `json:"friendCount"`
	PostCount        int64     `json:"postCount"`
	ReactionsGiven   int64     `json:"reactionsGiven"`
	// ReactionsReceived comes from the round-robin reaction-to-post
	// attribution. The source data has no such link, so it is not a measured
	// value.
	ReactionsReceived int64 `json:"reactionsReceived"`

	AgeGroup         AgeGroup `json:"ageGroup"`
	RegistrationYear int      `json:"registrationYear"`
	IsActivePoster   bool     `json:"isActivePoster"`
	IsSocial         bool     `json:"isSocial"`
	EngagementRatio  float64  `json:"engagementRatio"`
	// TotalActivity counts outgoing effort only; received reactions are not part of it.
	TotalActivity int64 `json:"totalActivity"`
}

// FullName is the "Name Surname" label used by ranking insights.
func (r IntegratedRecord) FullName() string {
	return r.Name + " " + r.Surname
}

// Derive fills the classification fields from the base fields.
func (r *IntegratedRecord) Derive() {
	r.AgeGroup = AgeGroupOf(r.Age)
	r.RegistrationYear = r.SubscriptionDate.UTC().Year()
	r.IsActivePoster = r.PostCount > 0
	r.IsSocial = r.FriendCount > 0
	// +1 keeps the ratio defined for non-posters and discounts every poster.
	r.EngagementRatio = float64(r.ReactionsReceived) / float64(r.PostCount+1)
	r.TotalActivity = r.FriendCount + r.PostCount + r.ReactionsGiven
}
