package rerank

// editDistance returns the optimal string alignment distance between a and b: insertions,
// deletions, substitutions and adjacent transpositions each cost one. It works on runes
// and keeps three rows instead of the full matrix.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev2 := make([]int, len(rb)+1)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				curr[j] = min(curr[j], prev2[j-2]+cost)
			}
		}
		prev2, prev, curr = prev, curr, prev2
	}
	return prev[len(rb)]
}

// fuzzyMinLength is the shortest query term that may match with typos.
// Shorter terms have too many neighbours within one edit.
const fuzzyMinLength = 5

// nearestWithin reports whether some term in freqs is within maxEdits of q.
func nearestWithin(q string, freqs map[string]int, maxEdits int) bool {
	if maxEdits <= 0 || len([]rune(q)) < fuzzyMinLength {
		return false
	}
	for term := range freqs {
		if d := len([]rune(term)) - len([]rune(q)); d > maxEdits || -d > maxEdits {
			continue
		}
		if editDistance(q, term) <= maxEdits {
			return true
		}
	}
	return false
}
