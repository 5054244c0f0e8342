package gbm

import "sort"

// binned holds every feature quantised into histogram bins.
// A value x falls in bin b when cuts[b-1] <= x < cuts[b], so
// "bin <= b" is equivalent to "x < cuts[b]".
type binned struct {
	cuts  [][]float64
	codes [][]uint16
}

func binFeatures(x [][]float64, maxBins int) *binned {
	nf := len(x[0])
	b := &binned{
		cuts:  make([][]float64, nf),
		codes: make([][]uint16, nf),
	}
	col := make([]float64, len(x))
	for f := 0; f < nf; f++ {
		for i := range x {
			col[i] = x[i][f]
		}
		sorted := append([]float64(nil), col...)
		sort.Float64s(sorted)
		cuts := makeCuts(sorted, maxBins)

		codes := make([]uint16, len(x))
		for i, v := range col {
			codes[i] = uint16(binOf(cuts, v))
		}
		b.cuts[f] = cuts
		b.codes[f] = codes
	}
	return b
}

func (b *binned) numBins(f int) int {
	return len(b.cuts[f]) + 1
}

func binOf(cuts []float64, v float64) int {
	return sort.Search(len(cuts), func(k int) bool { return cuts[k] > v })
}

// makeCuts picks at most maxBins-1 split candidates from sorted values:
// midpoints between distinct values when they fit, quantiles otherwise.
func makeCuts(sorted []float64, maxBins int) []float64 {
	uniq := make([]float64, 0, len(sorted))
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			uniq = append(uniq, v)
		}
	}
	if len(uniq) <= maxBins {
		cuts := make([]float64, 0, len(uniq))
		for i := 1; i < len(uniq); i++ {
			cuts = append(cuts, uniq[i-1]+(uniq[i]-uniq[i-1])/2)
		}
		return cuts
	}

	cuts := make([]float64, 0, maxBins-1)
	for k := 1; k < maxBins; k++ {
		v := sorted[k*len(sorted)/maxBins]
		if v <= sorted[0] {
			continue
		}
		if n := len(cuts); n > 0 && v <= cuts[n-1] {
			continue
		}
		cuts = append(cuts, v)
	}
	return cuts
}
