// Package cluster groups chain records into equivalence classes of the same
// protein by pairwise sequence identity.
package cluster

// Pair links position A of the first sequence with position B of the second
// in an alignment column without gaps.
type Pair struct {
	A int `json:"a"`
	B int `json:"b"`
}

// Alignment is the outcome of a global pairwise alignment.
type Alignment struct {
	// Identity is Matches / Length.
	Identity float64 `json:"identity"`
	Matches  int     `json:"matches"`
	// Length is the number of alignment columns including gap columns.
	Length int    `json:"length"`
	Pairs  []Pair `json:"pairs"`
}

// Flipped returns the alignment with the roles of the two sequences swapped.
func (a *Alignment) Flipped() *Alignment {
	out := &Alignment{
		Identity: a.Identity,
		Matches:  a.Matches,
		Length:   a.Length,
		Pairs:    make([]Pair, len(a.Pairs)),
	}
	for i, p := range a.Pairs {
		out.Pairs[i] = Pair{A: p.B, B: p.A}
	}
	return out
}

// GlobalIdentity aligns a and b globally scoring 1 per identical column and 0
// for mismatches and gaps, then reports identity over the alignment length.
//
// Among optimal alignments the traceback prefers a diagonal step (match, then
// mismatch) over gaps, which yields the shortest optimal alignment and makes
// the result independent of anything but the two sequences.
func GlobalIdentity(a, b string) *Alignment {
	n, m := len(a), len(b)
	w := m + 1
	score := make([]int32, (n+1)*w)
	for i := 1; i <= n; i++ {
		ai := a[i-1]
		row, prev := i*w, (i-1)*w
		for j := 1; j <= m; j++ {
			best := score[prev+j-1]
			if ai == b[j-1] {
				best++
			}
			if up := score[prev+j]; up > best {
				best = up
			}
			if left := score[row+j-1]; left > best {
				best = left
			}
			score[row+j] = best
		}
	}

	var (
		pairs   []Pair
		length  int
		matches int
	)
	i, j := n, m
	for i > 0 || j > 0 {
		cur := score[i*w+j]
		switch {
		case i > 0 && j > 0 && a[i-1] == b[j-1] && cur == score[(i-1)*w+j-1]+1:
			pairs = append(pairs, Pair{A: i - 1, B: j - 1})
			matches++
			i--
			j--
		case i > 0 && j > 0 && a[i-1] != b[j-1] && cur == score[(i-1)*w+j-1]:
			pairs = append(pairs, Pair{A: i - 1, B: j - 1})
			i--
			j--
		case i > 0 && cur == score[(i-1)*w+j]:
			i--
		default:
			j--
		}
		length++
	}

	for l, r := 0, len(pairs)-1; l < r; l, r = l+1, r-1 {
		pairs[l], pairs[r] = pairs[r], pairs[l]
	}

	aln := &Alignment{Matches: matches, Length: length, Pairs: pairs}
	if length > 0 {
		aln.Identity = float64(matches) / float64(length)
	}
	return aln
}
