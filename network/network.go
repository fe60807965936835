// Package network models the post-parse SpikingNetwork contract from
// spec.md §6: neuron groups with attributes, per-neuron overrides, a
// connection list, and an explicit neuron-to-core mapping. Parsing a
// network file into this shape is out of scope for this module.
package network

// AttrValue is a loosely typed attribute value, matching the string-map
// attribute bags used by original_source/network.hpp
// (`std::unordered_map<std::string, std::string>`) generalized to
// carry through already-decoded Go values instead of re-parsing
// strings on every set_attribute call.
type AttrValue = interface{}

// Attrs is a neuron/group/connection attribute bag.
type Attrs map[string]AttrValue

// CoreRef names the architecture core a neuron is mapped onto.
type CoreRef struct {
	TileID int
	Offset int
}

// Neuron is one neuron in a NeuronGroup, with any per-neuron attribute
// overrides layered on top of the group defaults, and an explicit
// mapping onto an architecture core (spec.md §6: "explicit
// neuron-to-core mapping").
type Neuron struct {
	ID         int
	Attributes Attrs
	MappedTo   CoreRef
	// ForcedSpikes seeds the forced-spike override described in
	// original_source/models.hpp and carried forward in SPEC_FULL.md §6.
	ForcedSpikes int
	// LogSpikes/LogPotential mark this neuron for the spikes/potentials
	// trace streams (original_source/network.hpp's per-neuron
	// log_spikes/log_potential flags).
	LogSpikes    bool
	LogPotential bool
}

// NeuronGroup is a collection of neurons sharing default hardware model
// names and attributes (original_source/network.hpp's NeuronGroup).
type NeuronGroup struct {
	Name              string
	Neurons           []Neuron
	DefaultAttributes Attrs
	DefaultSomaModel  string
	SynapseModel      string
	DendriteModel     string
}

// NeuronID identifies a neuron by (group name, index).
type NeuronID struct {
	Group string
	ID    int
}

// Connection is one synaptic connection between two neurons, carrying
// its weight and any dendrite parameters (spec.md §3's
// MappedConnection's "dendrite-parameter map" originates here).
type Connection struct {
	Pre, Post      NeuronID
	Weight         float64
	DendriteParams Attrs
	// SynapseUnitIndex selects which of the post neuron's core's synapse
	// hardware units owns this connection's address (spec.md §4.2's
	// "the chosen synapse unit"). Most architectures define exactly one
	// synapse unit per core, so this defaults to 0.
	SynapseUnitIndex int
	// AxonInUnitIndex selects which of the post neuron's core's axon-in
	// hardware units receives messages carried by this connection, when
	// a new axon-in bucket is allocated for it (spec.md §3's per-core
	// axon-in unit list; spec.md §4.2's axon allocation). Ignored when
	// the connection reuses an existing axon-out/axon-in pair. Defaults
	// to 0.
	AxonInUnitIndex int
}

// SpikingNetwork is the parsed network SpikingChip.Load consumes
// (spec.md §6).
type SpikingNetwork struct {
	Groups      map[string]*NeuronGroup
	GroupOrder  []string // preserves load order for deterministic mapping/logging
	Connections []Connection
}

// NewSpikingNetwork returns an empty network ready to accept groups.
func NewSpikingNetwork() *SpikingNetwork {
	return &SpikingNetwork{Groups: make(map[string]*NeuronGroup)}
}

// AddGroup registers a neuron group, matching
// original_source/network.hpp's Network::create_neuron_group.
func (n *SpikingNetwork) AddGroup(g *NeuronGroup) {
	if _, exists := n.Groups[g.Name]; !exists {
		n.GroupOrder = append(n.GroupOrder, g.Name)
	}
	n.Groups[g.Name] = g
}

// Connect appends a connection to the network's connection list.
func (n *SpikingNetwork) Connect(c Connection) {
	n.Connections = append(n.Connections, c)
}
