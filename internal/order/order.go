// Package order decides how a day's items are displayed.
//
// A day bucket is either chronological (timed items by time of day, then
// untimed items by creation) or manual (everything by rank). The mode is a
// property of the bucket, recorded in the collection's DayState for that day.
package order

import (
	"sort"
	"strings"

	"dayplan-cli/internal/model"
	"dayplan-cli/internal/rank"
)

// Mode is the ordering rule in effect for a day.
type Mode string

const (
	ModeChronological Mode = "chronological"
	ModeManual        Mode = "manual"
)

// ModeFor reports the ordering rule for day.
func ModeFor(day model.DayKey, coll model.Collection) Mode {
	if coll.IsManual(day) {
		return ModeManual
	}
	return ModeChronological
}

// Resolve returns the live items assigned to day in display order.
// It does not modify coll and always returns the same order for the same input.
func Resolve(day model.DayKey, coll model.Collection) []model.Item {
	bucket := coll.Bucket(day)
	if len(bucket) == 0 {
		return []model.Item{}
	}

	if ModeFor(day, coll) == ModeManual {
		sort.SliceStable(bucket, func(i, j int) bool {
			return rank.Compare(bucket[i].Rank, bucket[j].Rank) < 0
		})
		return bucket
	}

	timed := make([]model.Item, 0, len(bucket))
	untimed := make([]model.Item, 0, len(bucket))
	for _, it := range bucket {
		if it.Timed() {
			timed = append(timed, it)
		} else {
			untimed = append(untimed, it)
		}
	}
	sort.SliceStable(timed, func(i, j int) bool {
		return strings.TrimSpace(*timed[i].Time) < strings.TrimSpace(*timed[j].Time)
	})
	// Untimed items follow creation order. Rank only breaks ties, since a
	// manual reorder rewrites ranks and must not leak into this mode.
	sort.SliceStable(untimed, func(i, j int) bool {
		a, b := untimed[i], untimed[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return rank.Compare(a.Rank, b.Rank) < 0
	})
	return append(timed, untimed...)
}

// IDs is a convenience for callers that only need the order.
func IDs(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

// Checklist returns an item's checklist entries ordered by rank.
func Checklist(it model.Item) []model.ChecklistEntry {
	out := append([]model.ChecklistEntry{}, it.Checklist...)
	sort.SliceStable(out, func(i, j int) bool {
		return rank.Compare(out[i].Rank, out[j].Rank) < 0
	})
	return out
}

// LastRank returns the greatest rank in the bucket for day, or "" when empty.
// New and incoming items are ranked after it.
func LastRank(day model.DayKey, coll model.Collection) string {
	last := ""
	for _, it := range coll.Bucket(day) {
		if rank.Compare(it.Rank, last) > 0 {
			last = rank.Normalize(it.Rank)
		}
	}
	return last
}
