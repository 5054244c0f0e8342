package gbm

// minSplitGain filters splits whose gain is rounding noise.
const minSplitGain = 1e-6

type node struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
}

// tree is a flat array of nodes; node 0 is the root.
type tree struct {
	Nodes []node `json:"nodes"`
}

func (t *tree) predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type split struct {
	feature int
	bin     int
	gain    float64
}

// builder grows one tree over the gradient statistics of a boosting round.
type builder struct {
	params Params
	bins   *binned
	grad   []float64
	hess   []float64
	nodes  []node
}

func (b *builder) build(rows []int) tree {
	b.nodes = b.nodes[:0]
	b.grow(rows, 0)
	return tree{Nodes: append([]node(nil), b.nodes...)}
}

func (b *builder) grow(rows []int, depth int) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, node{})

	var g, h float64
	for _, r := range rows {
		g += b.grad[r]
		h += b.hess[r]
	}

	if depth < b.params.MaxDepth && len(rows) > 1 {
		if s, ok := b.bestSplit(rows, g, h); ok {
			left, right := b.partition(rows, s)
			threshold := b.bins.cuts[s.feature][s.bin]
			l := b.grow(left, depth+1)
			r := b.grow(right, depth+1)
			b.nodes[idx] = node{Feature: s.feature, Threshold: threshold, Left: l, Right: r}
			return idx
		}
	}

	b.nodes[idx] = node{Leaf: true, Value: -g / (h + b.params.Lambda) * b.params.LearningRate}
	return idx
}

func (b *builder) bestSplit(rows []int, g, h float64) (split, bool) {
	lambda := b.params.Lambda
	parent := g * g / (h + lambda)
	best := split{gain: minSplitGain}
	found := false

	for f := range b.bins.cuts {
		nb := b.bins.numBins(f)
		if nb < 2 {
			continue
		}
		hg := make([]float64, nb)
		hh := make([]float64, nb)
		codes := b.bins.codes[f]
		for _, r := range rows {
			c := codes[r]
			hg[c] += b.grad[r]
			hh[c] += b.hess[r]
		}

		var gl, hl float64
		for c := 0; c < nb-1; c++ {
			gl += hg[c]
			hl += hh[c]
			gr, hr := g-gl, h-hl
			if hl <= 0 || hr <= 0 || hl < b.params.MinChildWeight || hr < b.params.MinChildWeight {
				continue
			}
			gain := gl*gl/(hl+lambda) + gr*gr/(hr+lambda) - parent
			if gain > best.gain {
				best = split{feature: f, bin: c, gain: gain}
				found = true
			}
		}
	}
	return best, found
}

func (b *builder) partition(rows []int, s split) (left, right []int) {
	codes := b.bins.codes[s.feature]
	bin := uint16(s.bin)
	left = make([]int, 0, len(rows))
	right = make([]int, 0, len(rows))
	for _, r := range rows {
		if codes[r] <= bin {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return left, right
}
