package services

import "github.com/orgfed/voting-dashboard-api/internal/models"

// RosterDiff describes how an organization's delegate rows must change to
// match a requested list. Existing rows for users that stay on the roster
// are kept untouched so their primary keys survive the replacement.
type RosterDiff struct {
	DeleteRowIDs  []uint64
	KeepUserIDs   []uint64
	InsertUserIDs []uint64
}

// ReconcileRoster compares existing delegate rows against the requested
// user IDs (deduplicated, first occurrence wins) and returns the minimal
// set of deletes and inserts.
func ReconcileRoster(existing []models.EventDelegate, requested []uint64) RosterDiff {
	wanted := make(map[uint64]struct{}, len(requested))
	ordered := make([]uint64, 0, len(requested))
	for _, id := range requested {
		if _, ok := wanted[id]; ok {
			continue
		}
		wanted[id] = struct{}{}
		ordered = append(ordered, id)
	}

	diff := RosterDiff{}
	current := make(map[uint64]struct{}, len(existing))
	for _, row := range existing {
		current[row.UserID] = struct{}{}
		if _, ok := wanted[row.UserID]; ok {
			diff.KeepUserIDs = append(diff.KeepUserIDs, row.UserID)
		} else {
			diff.DeleteRowIDs = append(diff.DeleteRowIDs, row.ID)
		}
	}

	for _, id := range ordered {
		if _, ok := current[id]; !ok {
			diff.InsertUserIDs = append(diff.InsertUserIDs, id)
		}
	}
	return diff
}

// DedupeUserIDs returns the request list with duplicates removed, keeping
// the first occurrence order.
func DedupeUserIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
