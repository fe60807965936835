// Package hwunit defines the polymorphic hardware-unit capability
// contracts from spec.md §4.1: AxonIn, Synapse, Dendrite, Soma and
// AxonOut. Each is a small interface so that numerical neuron models
// stay swappable without the pipeline or scheduler ever depending on a
// concrete model (spec.md §9's "polymorphic hardware units" design
// note). This package also ships a minimal built-in model of each kind
// so the pipeline is exercisable; none of them claim to reproduce any
// published neuron model's numerics (spec.md §1 scopes that out).
package hwunit

import "github.com/sarchlab/akita/v4/sim"

// Status is the result of a Soma update (spec.md §4.1).
type Status int

const (
	Idle Status = iota
	Updated
	Fired
)

// UpdateResult carries a unit's update outcome plus optional
// energy/latency; the pipeline substitutes the unit's configured
// default whenever a field is left absent (spec.md §4.1). A pointer
// value (as opposed to a bare float with a sentinel) makes "omitted"
// unambiguous, matching original_source/models.hpp's std::optional use.
type UpdateResult struct {
	Current float64 // Synapse/Dendrite result
	Status  Status  // Soma result
	Energy  *float64
	Latency *sim.VTimeInSec
}

// Synapse resolves the weight applied by one connection address, and
// otherwise (readWeight=false) advances only the model's passive decay
// (spec.md §4.1).
type Synapse interface {
	Update(addr int, readWeight bool) UpdateResult
	SetAttribute(addr int, name string, value interface{}) error
	SetTime(ts int)
}

// Dendrite integrates one or more incoming synapse readings, or, when
// synapseIn is nil, applies passive leak only (spec.md §4.1).
type Dendrite interface {
	Update(addr int, synapseIn *UpdateResult) UpdateResult
	SetAttribute(addr int, name string, value interface{}) error
	SetTime(ts int)
}

// Soma integrates a current and reports fire/update status. currentIn
// is nil to mean "no new input this invocation" (spec.md §4.1).
type Soma interface {
	Update(addr int, currentIn *float64) UpdateResult
	SetAttribute(addr int, name string, value interface{}) error
	SetTime(ts int)
	// GetPotential exposes the soma's internal state for the optional
	// potential trace (spec.md §6's "potentials" CSV stream).
	GetPotential(addr int) float64
}

// AxonIn is a pure cost reporter for incoming spike messages
// (spec.md §4.1).
type AxonIn interface {
	Update(addr int) UpdateResult
	SetAttribute(addr int, name string, value interface{}) error
	SetTime(ts int)
}

// AxonOut is a pure cost reporter for outgoing spike messages
// (spec.md §4.1).
type AxonOut interface {
	Update(addr int) UpdateResult
	SetAttribute(addr int, name string, value interface{}) error
	SetTime(ts int)
}

// AttributeError is returned by SetAttribute when a model rejects a
// value's type or name (spec.md §7.4, "attribute coercion errors").
type AttributeError struct {
	Unit  string
	Name  string
	Value interface{}
}

func (e *AttributeError) Error() string {
	return "sanafe: hwunit " + e.Unit + ": cannot set attribute " + e.Name
}

func floatPtr(v float64) *float64 { return &v }

func timePtr(v sim.VTimeInSec) *sim.VTimeInSec { return &v }
