package release

import "time"

// ComputeStatus derives the status of a release from its publication time and
// its current action set. It never consults the previously stored status, so
// calling it redundantly always converges on the same answer.
func ComputeStatus(releasedAt *time.Time, actions []Action) Status {
	if releasedAt != nil {
		return StatusDone
	}
	if len(actions) == 0 {
		return StatusEmpty
	}
	for _, action := range actions {
		if !action.IsEntryValid {
			return StatusBlocked
		}
	}
	return StatusReady
}

// Counts summarises the action set of a release.
type Counts struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
}

// CountActions tallies the validity of the given actions.
func CountActions(actions []Action) Counts {
	c := Counts{Total: len(actions)}
	for _, action := range actions {
		if action.IsEntryValid {
			c.Valid++
		} else {
			c.Invalid++
		}
	}
	return c
}
