package dataset

// Table names.
const (
	Users       = "users"
	Friendships = "friends"
	Posts       = "posts"
	Reactions   = "reactions"
)

// Column names as they appear in the source exports.
const (
	ColName             = "Name"
	ColSurname          = "Surname"
	ColAge              = "Age"
	ColSubscriptionDate = "Subscription Date"
	ColFriend1          = "Friend 1"
	ColFriend2          = "Friend 2"
	ColUser             = "User"
	ColPostDate         = "Post Date"
	ColReactionType     = "Reaction Type"
	ColReactionDate     = "Reaction Date"
)

// Schemas maps each table to its required columns, in export order.
var Schemas = map[string][]string{
	Users:       {ColName, ColSurname, ColAge, ColSubscriptionDate},
	Friendships: {ColFriend1, ColFriend2},
	Posts:       {ColUser, ColPostDate},
	Reactions:   {ColUser, ColReactionType, ColReactionDate},
}

// TableNames lists the four tables in load order.
var TableNames = []string{Users, Friendships, Posts, Reactions}

// Raw bundles the four raw tables of one pipeline input.
type Raw struct {
	Users       *Table
	Friendships *Table
	Posts       *Table
	Reactions   *Table
}

// Tables returns the tables in TableNames order.
func (r Raw) Tables() []*Table {
	return []*Table{r.Users, r.Friendships, r.Posts, r.Reactions}
}
