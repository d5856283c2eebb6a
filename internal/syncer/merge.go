package syncer

import "dayplan-cli/internal/model"

// Merge folds a remote collection into a local one, record by record.
//
// For records present on both sides the greater LastModified wins; an exact
// tie goes to remote. Records present on one side only are kept. Tombstones
// are ordinary records here, so a newer delete beats an older edit and a newer
// edit resurrects.
//
// The result lists local records in local order followed by remote-only
// records in remote order. That order carries no meaning; display order is
// always recomputed by the order package.
//
// Duplicate ids within one side collapse to their newest copy first.
//
// Merge is pure and idempotent: Merge(Merge(a, b), b) == Merge(a, b).
func Merge(local, remote model.Collection) model.Collection {
	out := model.Collection{
		Items: make([]model.Item, 0, len(local.Items)+len(remote.Items)),
		Days:  make([]model.DayState, 0, len(local.Days)+len(remote.Days)),
	}

	localItems := indexItems(local.Items)
	remoteItems := indexItems(remote.Items)
	seen := make(map[string]bool, len(local.Items))
	for _, it := range local.Items {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		l := localItems[it.ID]
		if r, ok := remoteItems[l.ID]; ok {
			out.Items = append(out.Items, pickItem(l, r))
			continue
		}
		out.Items = append(out.Items, l.Clone())
	}
	for _, r := range remote.Items {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out.Items = append(out.Items, remoteItems[r.ID].Clone())
	}

	localDays := indexDays(local.Days)
	remoteDays := indexDays(remote.Days)
	seenDays := make(map[model.DayKey]bool, len(local.Days))
	for _, d := range local.Days {
		if seenDays[d.Day] {
			continue
		}
		seenDays[d.Day] = true
		l := localDays[d.Day]
		if r, ok := remoteDays[l.Day]; ok {
			out.Days = append(out.Days, pickDay(l, r))
			continue
		}
		out.Days = append(out.Days, l)
	}
	for _, r := range remote.Days {
		if seenDays[r.Day] {
			continue
		}
		seenDays[r.Day] = true
		out.Days = append(out.Days, remoteDays[r.Day])
	}
	return out
}

// Outgoing lists local records the remote has not seen: missing remotely or
// strictly newer locally. They are what a pull re-pushes.
func Outgoing(local, remote model.Collection) ([]model.Item, []model.DayState) {
	remoteItems := indexItems(remote.Items)
	remoteDays := indexDays(remote.Days)

	var items []model.Item
	for _, l := range local.Items {
		r, ok := remoteItems[l.ID]
		if !ok || l.LastModified.After(r.LastModified) {
			items = append(items, l.Clone())
		}
	}
	var days []model.DayState
	for _, l := range local.Days {
		r, ok := remoteDays[l.Day]
		if !ok || l.LastModified.After(r.LastModified) {
			days = append(days, l)
		}
	}
	return items, days
}

func pickItem(l, r model.Item) model.Item {
	if l.LastModified.After(r.LastModified) {
		w := l.Clone()
		if w.RemoteRef == "" {
			w.RemoteRef = r.RemoteRef
		}
		return w
	}
	return r.Clone()
}

func pickDay(l, r model.DayState) model.DayState {
	if l.LastModified.After(r.LastModified) {
		if l.RemoteRef == "" {
			l.RemoteRef = r.RemoteRef
		}
		return l
	}
	return r
}

// indexItems keys items by id. Duplicate ids resolve by the same
// last-writer-wins rule, later entries winning ties.
func indexItems(items []model.Item) map[string]model.Item {
	idx := make(map[string]model.Item, len(items))
	for _, it := range items {
		if prev, ok := idx[it.ID]; ok && prev.LastModified.After(it.LastModified) {
			continue
		}
		idx[it.ID] = it
	}
	return idx
}

func indexDays(days []model.DayState) map[model.DayKey]model.DayState {
	idx := make(map[model.DayKey]model.DayState, len(days))
	for _, d := range days {
		if prev, ok := idx[d.Day]; ok && prev.LastModified.After(d.LastModified) {
			continue
		}
		idx[d.Day] = d
	}
	return idx
}
