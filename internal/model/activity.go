package model

import "encoding/json"

// ActivityLevel classifies a user by total activity.
type ActivityLevel int

const (
	ActivityInactive ActivityLevel = iota
	ActivityLow
	ActivityMedium
	ActivityHigh
	ActivityVeryHigh
)

// ActivityLevels lists every level in ascending order.
var ActivityLevels = []ActivityLevel{ActivityInactive, ActivityLow, ActivityMedium, ActivityHigh, ActivityVeryHigh}

func (l ActivityLevel) String() string {
	switch l {
	case ActivityInactive:
		return "Inactive"
	case ActivityLow:
		return "Low"
	case ActivityMedium:
		return "Medium"
	case ActivityHigh:
		return "High"
	case ActivityVeryHigh:
		return "Very High"
	default:
		return "Unknown"
	}
}

func (l ActivityLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// ActivityLevelOf labels a record. Every band includes its upper bound.
func ActivityLevelOf(r IntegratedRecord) ActivityLevel {
	switch a := r.TotalActivity; {
	case a == 0:
		return ActivityInactive
	case a <= 5:
		return ActivityLow
	case a <= 15:
		return ActivityMedium
	case a <= 30:
		return ActivityHigh
	default:
		return ActivityVeryHigh
	}
}
