package hostapi

import "fmt"

type Creator func(p Provider) Host

type entry struct {
	desc    Descriptor
	creator Creator
}

// Registry holds the build-time fixed set of host emulators in
// registration order. Index positions are stable and user-visible (the
// command-mode menu and the persisted selection both use them).
type Registry struct {
	entries []entry
	byName  map[string]int
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]int),
	}
}

func (r *Registry) Register(desc Descriptor, creator Creator) {
	if _, ok := r.byName[desc.Name]; ok {
		panic("host already registered: " + desc.Name)
	}
	r.byName[desc.Name] = len(r.entries)
	r.entries = append(r.entries, entry{desc: desc, creator: creator})
}

func (r *Registry) Len() int {
	return len(r.entries)
}

func (r *Registry) Descriptors() []Descriptor {
	descs := make([]Descriptor, len(r.entries))
	for i, e := range r.entries {
		descs[i] = e.desc
	}
	return descs
}

func (r *Registry) IndexOf(name string) (int, bool) {
	idx, ok := r.byName[name]
	return idx, ok
}

// New instantiates the host at the given index.
func (r *Registry) New(index int, p Provider) (Host, error) {
	if index < 0 || index >= len(r.entries) {
		return nil, fmt.Errorf("host index out of range: %d", index)
	}
	return r.entries[index].creator(p), nil
}
