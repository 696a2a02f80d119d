package align

// candidate is one approximate occurrence of a pattern inside a search
// window. Offsets are rune positions relative to the window start.
type candidate struct {
	start int
	end   int // exclusive
	dist  int // Levenshtein distance of the occurrence
}

// searchNear finds approximate occurrences of pattern inside window with
// Levenshtein distance at most maxDist, ordered by position.
//
// The scan is a Sellers dynamic program over the window: matches may begin
// anywhere (row zero is free), and every window position where the final row
// drops to maxDist or below marks the end of an occurrence. Consecutive
// qualifying end positions describe the same underlying occurrence, so each
// such run is collapsed to its best end (minimum distance, earliest on
// ties), and the start offset is recovered from a parallel start-tracking
// table.
//
// Cost is O(len(pattern) · len(window)), which is why the matcher bounds the
// window before calling.
func searchNear(pattern, window []rune, maxDist int) []candidate {
	m := len(pattern)
	if m == 0 {
		return nil
	}

	// dist[i] is the edit distance of the best alignment of pattern[:i]
	// ending at the current window position; from[i] is the window offset
	// where that alignment began.
	dist := make([]int, m+1)
	from := make([]int, m+1)
	prevDist := make([]int, m+1)
	prevFrom := make([]int, m+1)
	for i := 0; i <= m; i++ {
		prevDist[i] = i
		prevFrom[i] = 0
	}

	var out []candidate
	run := candidate{start: -1}
	flush := func() {
		if run.start >= 0 {
			out = append(out, run)
			run.start = -1
		}
	}

	for j := 1; j <= len(window); j++ {
		dist[0] = 0
		from[0] = j // matches may start at any window offset for free
		wc := window[j-1]

		for i := 1; i <= m; i++ {
			// Substitution / exact, insertion, deletion.
			sub := prevDist[i-1]
			if pattern[i-1] != wc {
				sub++
			}
			best, origin := sub, prevFrom[i-1]
			if ins := prevDist[i] + 1; ins < best {
				best, origin = ins, prevFrom[i]
			}
			if del := dist[i-1] + 1; del < best {
				best, origin = del, from[i-1]
			}
			dist[i], from[i] = best, origin
		}

		if dist[m] <= maxDist {
			// Extend or open the current run of qualifying ends.
			if run.start < 0 || dist[m] < run.dist {
				run = candidate{start: from[m], end: j, dist: dist[m]}
			}
		} else {
			flush()
		}

		prevDist, dist = dist, prevDist
		prevFrom, from = from, prevFrom
	}
	flush()
	return out
}
