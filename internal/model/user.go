// Package model defines the data structures used throughout the application.
// The cleaned entity types here are comparable on purpose: the cleaner
// removes exact-duplicate rows by using them as map keys.
package model

import (
	"encoding/json"
	"time"
)

// Age is a nullable age in years. The zero value is an unknown age.
type Age struct {
	Years float64
	Known bool
}

// KnownAge returns an Age holding years.
func KnownAge(years float64) Age {
	return Age{Years: years, Known: true}
}

// MarshalJSON encodes an unknown age as null.
func (a Age) MarshalJSON() ([]byte, error) {
	if !a.Known {
		return []byte("null"), nil
	}
	return json.Marshal(a.Years)
}

// User is one cleaned row of the users table. It has no identifier of its
// own; the integrator numbers users by their position.
type User struct {
	Name             string    `json:"name"`
	Surname          string    `json:"surname"`
	Age              Age       `json:"age"`
	SubscriptionDate time.Time `json:"subscriptionDate"`
}

// Friendship is an unordered pair of user ids.
type Friendship struct {
	Friend1 int64 `json:"friend1"`
	Friend2 int64 `json:"friend2"`
}

// Post is one cleaned row of the posts table.
type Post struct {
	UserID   int64     `json:"userId"`
	PostDate time.Time `json:"postDate"`
}

// Reaction is one cleaned row of the reactions table.
type Reaction struct {
	UserID       int64     `json:"userId"`
	ReactionType string    `json:"reactionType"`
	ReactionDate time.Time `json:"reactionDate"`
}

// IndexedPost is a post carrying the synthetic id assigned by the integrator.
type IndexedPost struct {
	PostID   int64     `json:"postId"`
	UserID   int64     `json:"userId"`
	PostDate time.Time `json:"postDate"`
}

// IndexedReaction is a reaction carrying its synthetic id and the synthetic
// post it was attributed to. PostID is 0 when no attribution was made.
type IndexedReaction struct {
	ReactionID   int64     `json:"reactionId"`
	UserID       int64     `json:"userId"`
	ReactionType string    `json:"reactionType"`
	ReactionDate time.Time `json:"reactionDate"`
	PostID       int64     `json:"postId"`
}
