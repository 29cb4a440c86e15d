// Package rank implements the deterministic top-K selection over normalized
// reels: non-increasing by view count, ties broken by non-increasing posting
// time, stable beyond that.
package rank

import (
	"sort"

	"github.com/FranksOps/reelscout/internal/normalize"
)

// TopReels returns the k highest-ranked reels. The input slice is not
// modified. k <= 0 yields an empty result; k beyond len(reels) yields all of
// them, ranked.
func TopReels(reels []normalize.Reel, k int) []normalize.Reel {
	if k <= 0 || len(reels) == 0 {
		return []normalize.Reel{}
	}

	ranked := make([]normalize.Reel, len(reels))
	copy(ranked, reels)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Views != ranked[j].Views {
			return ranked[i].Views > ranked[j].Views
		}
		return ranked[i].TakenAt > ranked[j].TakenAt
	})

	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}
