package rhi

import "github.com/gogpu/rhi/driver"

// resourceRegistry tracks unique ownership of every resource the system
// has created. Each kind has its own set; a resource appears in exactly
// one set from creation until release.
//
// The registry itself is not synchronized. The System serializes access
// under its own mutex, matching the external-synchronization contract of
// resource creation and release.
type resourceRegistry struct {
	sets [driver.NumResourceKinds]map[Resource]struct{}
}

func newResourceRegistry() *resourceRegistry {
	r := &resourceRegistry{}
	for i := range r.sets {
		r.sets[i] = make(map[Resource]struct{})
	}
	return r
}

// take records ownership of a newly created resource.
func (r *resourceRegistry) take(res Resource) {
	r.sets[res.Kind()][res] = struct{}{}
}

// remove drops ownership. Returns false if the resource is not owned,
// which callers turn into ErrNotRegistered. A second remove of the same
// resource fails the same way, so double release is always detected.
func (r *resourceRegistry) remove(res Resource) bool {
	set := r.sets[res.Kind()]
	if _, ok := set[res]; !ok {
		return false
	}
	delete(set, res)
	return true
}

// owns reports whether the resource is currently registered.
func (r *resourceRegistry) owns(res Resource) bool {
	_, ok := r.sets[res.Kind()][res]
	return ok
}

// count returns the number of owned resources of one kind.
func (r *resourceRegistry) count(kind ResourceKind) int {
	if kind < 0 || kind >= driver.NumResourceKinds {
		return 0
	}
	return len(r.sets[kind])
}

// total returns the number of owned resources across all kinds.
func (r *resourceRegistry) total() int {
	n := 0
	for i := range r.sets {
		n += len(r.sets[i])
	}
	return n
}

// forEach visits every owned resource of one kind. Visit order is
// unspecified.
func (r *resourceRegistry) forEach(kind ResourceKind, fn func(Resource)) {
	if kind < 0 || kind >= driver.NumResourceKinds {
		return
	}
	for res := range r.sets[kind] {
		fn(res)
	}
}

// drainAll removes and visits every owned resource, kinds in reverse
// declaration order so dependent resources (fences, pipelines, targets)
// go before the resources they reference (textures, buffers).
func (r *resourceRegistry) drainAll(fn func(Resource)) {
	for kind := driver.NumResourceKinds - 1; kind >= 0; kind-- {
		for res := range r.sets[kind] {
			delete(r.sets[kind], res)
			fn(res)
		}
	}
}
