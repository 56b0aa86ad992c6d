package order

import (
	"math"
	"time"
)

const (
	basePrepMinutes    = 30
	perItemPrepMinutes = 2

	expressFloorMinutes  = 30
	urgentFloorMinutes   = 60
	standardFloorMinutes = 120

	pickupBuffer = 30 * time.Minute
)

// EstimatePreparation returns the preparation time in whole minutes for
// itemCount units at the given priority. Unknown priorities are treated as
// standard.
func EstimatePreparation(priority string, itemCount int) int {
	itemTime := float64(itemCount * perItemPrepMinutes)

	var minutes float64
	switch priority {
	case PriorityExpress:
		minutes = math.Max(expressFloorMinutes, basePrepMinutes)
	case PriorityUrgent:
		minutes = math.Max(urgentFloorMinutes, basePrepMinutes+itemTime*0.5)
	default:
		minutes = math.Max(standardFloorMinutes, basePrepMinutes+itemTime)
	}
	return int(math.Ceil(minutes))
}

// Recommendation suggests pickup times.
type Recommendation struct {
	Earliest    time.Time `json:"earliest"`
	Recommended time.Time `json:"recommended"`
	PrepMinutes int       `json:"prepTimeMinutes"`
}

// PickupRecommendation returns the earliest pickup (now plus preparation)
// and a recommended pickup half an hour later.
func PickupRecommendation(priority string, itemCount int, now time.Time) Recommendation {
	prep := EstimatePreparation(priority, itemCount)
	earliest := now.Add(time.Duration(prep) * time.Minute)
	return Recommendation{
		Earliest:    earliest,
		Recommended: earliest.Add(pickupBuffer),
		PrepMinutes: prep,
	}
}
