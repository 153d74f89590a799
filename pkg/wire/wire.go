// Package wire implements the signal registry: the bidirectional
// mapping between protocol message kinds and the numeric identifiers
// used on the wire. The registry is built once at process start and is
// read-only afterwards.
package wire

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/go-jdb/jdb/pkg/logflags"
	"github.com/sirupsen/logrus"
)

// SignalIn is a message received from the remote side.
type SignalIn interface {
	SignalName() string
}

// SignalOut is a message sent to the remote side.
type SignalOut interface {
	SignalName() string
}

// Registry maps inbound signal ids to message factories and outbound
// message kinds to ids. Ids are assigned sequentially from a single
// counter shared between both tables, so the inbound and outbound id
// spaces are disjoint by construction order.
//
// Registration must complete before the registry is shared between
// goroutines; lookups after that point are read-only.
type Registry struct {
	nextID  int
	in      map[int]func() SignalIn
	inNames map[int]string
	out     map[string]int
	log     *logrus.Entry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		in:      make(map[int]func() SignalIn),
		inNames: make(map[int]string),
		out:     make(map[string]int),
		log:     logflags.WireLogger(),
	}
}

// RegisterIn registers an inbound signal factory and returns the id
// assigned to it.
func (r *Registry) RegisterIn(factory func() SignalIn) int {
	id := r.nextID
	r.nextID++
	r.in[id] = factory
	r.inNames[id] = factory().SignalName()
	return id
}

// RegisterOut registers an outbound signal kind, given a prototype
// instance, and returns the id assigned to it.
func (r *Registry) RegisterOut(proto SignalOut) int {
	id := r.nextID
	r.nextID++
	r.out[proto.SignalName()] = id
	return id
}

// ReadSignal produces a fresh message instance for the given inbound
// id. An unknown id is a contract violation, not a user error.
func (r *Registry) ReadSignal(id int) (SignalIn, error) {
	factory := r.in[id]
	if factory == nil {
		return nil, fmt.Errorf("no signal: IN %d", id)
	}
	s := factory()
	r.log.Debugf("read signal %d: %s", id, s.SignalName())
	return s, nil
}

// WriteSignal returns the wire id for the given outbound message.
func (r *Registry) WriteSignal(out SignalOut) (int, error) {
	id, ok := r.out[out.SignalName()]
	if !ok {
		return 0, fmt.Errorf("no signal OUT: %s", out.SignalName())
	}
	r.log.Debugf("write signal %s: %d", out.SignalName(), id)
	return id, nil
}

// Dump prints both registry tables, for debugging.
func (r *Registry) Dump(w io.Writer) {
	fmt.Fprintln(w, "IN TABLE")
	inIDs := make([]int, 0, len(r.inNames))
	for id := range r.inNames {
		inIDs = append(inIDs, id)
	}
	sort.Ints(inIDs)
	for _, id := range inIDs {
		fmt.Fprintf(w, "%d: %s\n", id, r.inNames[id])
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "OUT TABLE")
	type outEntry struct {
		id   int
		name string
	}
	outs := make([]outEntry, 0, len(r.out))
	for name, id := range r.out {
		outs = append(outs, outEntry{id, name})
	}
	sort.Slice(outs, func(i, j int) bool { return outs[i].id < outs[j].id })
	for _, e := range outs {
		fmt.Fprintf(w, "%d: %s\n", e.id, e.name)
	}
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry with all known
// signals registered. Registration order is fixed: it determines the
// wire ids.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		defaultRegistry.RegisterIn(func() SignalIn { return &SignalInInit{} })
		defaultRegistry.RegisterOut(&SignalOutAck{})
	})
	return defaultRegistry
}
