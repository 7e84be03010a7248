// Package hrw implements rendezvous (highest random weight) hashing, used to
// spread placement decisions evenly when candidates are otherwise equal.
package hrw

import (
	"github.com/twmb/murmur3"
)

func score(key, candidate string) uint64 {
	buf := make([]byte, 0, len(key)+len(candidate)+1)
	buf = append(buf, key...)
	buf = append(buf, 0)
	buf = append(buf, candidate...)

	return murmur3.Sum64(buf)
}

// Best returns the index of the candidate with the highest score for key, or
// -1 if there are no candidates. The result only depends on the set of
// candidates, not on their order.
func Best(key string, candidates []string) int {
	best := -1

	var bestScore uint64

	for i, c := range candidates {
		s := score(key, c)
		if best == -1 || s > bestScore || (s == bestScore && c < candidates[best]) {
			best, bestScore = i, s
		}
	}

	return best
}
