package traits

import "sort"

// Vector is a sparse, non-negative trait weighting. Iteration follows the
// order in which traits were first added, so top-N selection is reproducible.
type Vector struct {
	order   []ID
	weights map[ID]float64
}

func NewVector() *Vector {
	return &Vector{weights: make(map[ID]float64)}
}

// Add accumulates w onto id. Zero additions to an absent trait are dropped
// to keep the vector sparse.
func (v *Vector) Add(id ID, w float64) {
	if _, ok := v.weights[id]; !ok {
		if w == 0 {
			return
		}
		v.order = append(v.order, id)
	}
	v.weights[id] += w
}

func (v *Vector) Get(id ID) float64 {
	if v == nil {
		return 0
	}
	return v.weights[id]
}

func (v *Vector) Has(id ID) bool {
	return v.Get(id) > 0
}

func (v *Vector) Len() int {
	if v == nil {
		return 0
	}
	return len(v.order)
}

// Keys returns traits in encounter order.
func (v *Vector) Keys() []ID {
	if v == nil {
		return nil
	}
	return append([]ID(nil), v.order...)
}

func (v *Vector) Each(fn func(id ID, w float64)) {
	if v == nil {
		return
	}
	for _, id := range v.order {
		fn(id, v.weights[id])
	}
}

func (v *Vector) Clone() *Vector {
	out := NewVector()
	v.Each(func(id ID, w float64) {
		out.order = append(out.order, id)
		out.weights[id] = w
	})
	return out
}

// Equal compares weights and encounter order.
func (v *Vector) Equal(other *Vector) bool {
	if v.Len() != other.Len() {
		return false
	}
	for i, id := range v.Keys() {
		if other.order[i] != id || other.weights[id] != v.weights[id] {
			return false
		}
	}
	return true
}

// Top returns up to n traits, stable-sorted by weight descending.
func (v *Vector) Top(n int) []ID {
	keys := v.Keys()
	sort.SliceStable(keys, func(i, j int) bool {
		return v.weights[keys[i]] > v.weights[keys[j]]
	})
	if n >= 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
