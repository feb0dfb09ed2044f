package partialeval

import (
	"slices"

	"github.com/GriffinCanCode/qirc/pkg/eval"
)

// resources hands out qubit and result ids. Released qubit ids are reused
// lowest first; result ids only grow.
type resources struct {
	nextQubit  uint32
	free       []uint32 // sorted ascending
	nextResult uint32
}

func (r *resources) allocateQubit() *eval.Qubit {
	if len(r.free) > 0 {
		id := r.free[0]
		r.free = r.free[1:]
		return &eval.Qubit{ID: id}
	}
	id := r.nextQubit
	r.nextQubit++
	return &eval.Qubit{ID: id}
}

func (r *resources) releaseQubit(q *eval.Qubit) {
	q.Released = true
	i, found := slices.BinarySearch(r.free, q.ID)
	if !found {
		r.free = slices.Insert(r.free, i, q.ID)
	}
}

func (r *resources) allocateResult() uint32 {
	id := r.nextResult
	r.nextResult++
	return id
}

// qubitCount is the number of distinct qubit ids ever handed out.
func (r *resources) qubitCount() uint32 { return r.nextQubit }

// resultCount is the number of result ids handed out.
func (r *resources) resultCount() uint32 { return r.nextResult }
