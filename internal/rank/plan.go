package rank

// Entry is one element of an ordered sibling set: an item in a day bucket or
// an entry in a checklist.
type Entry struct {
	ID   string
	Rank string
}

// Plan describes the rank updates needed to realize a target order.
// RankByID includes only entries whose ranks change.
type Plan struct {
	RankByID map[string]string
	Respread bool // true when the key space ran out and every entry was re-keyed
}

// PlanOrder computes ranks that make entries sort in the given order.
//
// The longest subsequence whose current ranks already increase keeps its keys;
// every other entry gets a fresh key between its kept neighbors. Moving one
// element therefore rewrites one rank. When a gap has no room left the whole
// set is re-keyed with Spread.
func PlanOrder(entries []Entry) Plan {
	plan := Plan{RankByID: map[string]string{}}
	if len(entries) == 0 {
		return plan
	}

	keep := longestIncreasing(entries)

	assigned := make([]string, len(entries))
	lower := ""
	for i := 0; i < len(entries); {
		if keep[i] {
			assigned[i] = Normalize(entries[i].Rank)
			lower = assigned[i]
			i++
			continue
		}
		// Run of entries [i, j) needing new keys, bounded by the next kept key.
		j := i
		for j < len(entries) && !keep[j] {
			j++
		}
		upper := ""
		if j < len(entries) {
			upper = Normalize(entries[j].Rank)
		}
		for k := i; k < j; k++ {
			r, err := Between(lower, upper)
			if err != nil {
				return respread(entries)
			}
			assigned[k] = r
			lower = r
		}
		i = j
	}

	for i, e := range entries {
		if assigned[i] != Normalize(e.Rank) {
			plan.RankByID[e.ID] = assigned[i]
		}
	}
	return plan
}

func respread(entries []Entry) Plan {
	plan := Plan{RankByID: map[string]string{}, Respread: true}
	keys := Spread(len(entries))
	for i, e := range entries {
		if keys[i] != Normalize(e.Rank) {
			plan.RankByID[e.ID] = keys[i]
		}
	}
	return plan
}

// longestIncreasing marks one longest strictly increasing run of valid ranks.
// Ties prefer the earliest chain so results are deterministic.
func longestIncreasing(entries []Entry) []bool {
	n := len(entries)
	ranks := make([]string, n)
	valid := make([]bool, n)
	for i, e := range entries {
		ranks[i] = Normalize(e.Rank)
		valid[i] = isValid(ranks[i])
	}

	length := make([]int, n)
	prev := make([]int, n)
	bestEnd := -1
	for i := 0; i < n; i++ {
		prev[i] = -1
		if !valid[i] {
			continue
		}
		length[i] = 1
		for j := 0; j < i; j++ {
			if valid[j] && ranks[j] < ranks[i] && length[j]+1 > length[i] {
				length[i] = length[j] + 1
				prev[i] = j
			}
		}
		if bestEnd < 0 || length[i] > length[bestEnd] {
			bestEnd = i
		}
	}

	keep := make([]bool, n)
	for i := bestEnd; i >= 0; i = prev[i] {
		keep[i] = true
	}
	return keep
}

func isValid(r string) bool {
	if r == "" {
		return false
	}
	for i := 0; i < len(r); i++ {
		if _, ok := digit(r[i]); !ok {
			return false
		}
	}
	return true
}
