// Package mesh holds the post-mapping runtime model from spec.md §3:
// tiles, mapped cores, mapped neurons and connections, and the
// messages that flow between them. Cores own their hardware units and
// mapped neurons; mapped connections live in their post-core's list;
// back-pointers (MappedConnection -> MappedNeuron, MappedNeuron ->
// MappedCore) are plain Go pointers into slices that are never
// reallocated once mapping completes (spec.md §9's "never move an
// arena after mapping completes").
package mesh

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/SLAM-Lab/sana-fe/arch"
	"github.com/SLAM-Lab/sana-fe/hwunit"
)

// Direction indexes the four mesh hop directions used for
// dimension-ordered routing (spec.md §4.4). Grounded on
// cgra/cgra.go's Side enum, generalized to hop routing rather than
// port wiring.
type Direction int

const (
	North Direction = iota
	East
	South
	West
	NumDirections
)

func (d Direction) String() string {
	switch d {
	case North:
		return "North"
	case East:
		return "East"
	case South:
		return "South"
	case West:
		return "West"
	default:
		return "Invalid"
	}
}

// Tile is the runtime record for one mesh tile: its grid position, the
// cores it hosts, and running hop counters (spec.md §3).
type Tile struct {
	ID   int
	X, Y int

	Cores []*MappedCore

	HopEnergy  [NumDirections]float64
	HopLatency [NumDirections]sim.VTimeInSec
	HopCount   [NumDirections]int
}

// MappedCore is the runtime, post-mapping model of one core: it owns
// its hardware units and mapped neurons (spec.md §3).
type MappedCore struct {
	ID           int
	Offset       int // index within its tile
	ParentTileID int

	BufferPosition arch.BufferPosition

	// Every unit kind is a slice: a core may host more than one axon-in,
	// dendrite, soma or axon-out hardware unit, not just synapse
	// (spec.md §3). Neurons and connections select which index they are
	// bound to via MappedNeuron's *UnitIndex fields and AxonInModel's
	// UnitIndex.
	AxonIn   []hwunit.AxonIn
	Synapse  []hwunit.Synapse
	Dendrite []hwunit.Dendrite
	Soma     []hwunit.Soma
	AxonOut  []hwunit.AxonOut

	// Config mirrors each unit's architecture-description entry, kept
	// alongside the live unit so the pipeline can fall back to a
	// configured default whenever an Update omits Energy/Latency
	// (spec.md §4.1).
	AxonInConfig   []arch.UnitConfig
	SynapseConfig  []arch.UnitConfig
	DendriteConfig []arch.UnitConfig
	SomaConfig     []arch.UnitConfig
	AxonOutConfig  []arch.UnitConfig

	AxonsIn  []AxonInModel
	AxonsOut []AxonOutModel

	Neurons       []*MappedNeuron
	ConnectionsIn []*MappedConnection

	// Inbound is the transient list of messages destined for this core
	// in the current timestep, populated by ReceiveMessage and consumed
	// by the pipeline's message-side phase.
	Inbound []*Message

	// NextMessageGenerationDelay accumulates neuron-side latency not
	// yet claimed by an outbound message (spec.md §4.3).
	NextMessageGenerationDelay sim.VTimeInSec
}

// AxonInModel lists the synapse addresses targeted when the axon this
// model represents fires at the destination core (spec.md §3).
// UnitIndex selects which of the destination core's axon-in hardware
// units processes messages through this bucket; it is fixed at
// allocation time by the first connection mapped into it.
type AxonInModel struct {
	SynapseAddresses []int
	UnitIndex        int
}

// AxonOutModel names one destination for a pre-neuron's spike
// (spec.md §3).
type AxonOutModel struct {
	DestTileID     int
	DestCoreOffset int
	DestAxonID     int // index into the destination core's AxonsIn
}

// MappedNeuron is the runtime model of one mapped neuron (spec.md §3).
type MappedNeuron struct {
	Group string
	ID    int

	MappedAddress int
	Core          *MappedCore // non-owning back-pointer

	// DendriteAddr/SomaAddr address this neuron's slot on its core's
	// dendrite/soma hardware units. They equal MappedAddress for the
	// common one-neuron-per-address case but are tracked separately so
	// a core's units may use a different addressing scheme.
	DendriteAddr int
	SomaAddr     int

	// DendriteUnitIndex/SomaUnitIndex/AxonOutUnitIndex select which of
	// the core's dendrite/soma/axon-out hardware units this neuron is
	// bound to; both default to 0 for the common single-unit-per-core
	// case (spec.md §3).
	DendriteUnitIndex int
	SomaUnitIndex     int
	AxonOutUnitIndex  int

	AxonOutAddresses []int // one entry per distinct destination core

	DendriteLastUpdated int
	SomaLastUpdated     int

	DendriteInputSynapses []hwunit.UpdateResult
	SomaInputCharge       float64
	AxonOutInputSpike     bool
	SpikeCount            int
	ForcedSpikes          int
	Status                hwunit.Status

	// LogSpikes/LogPotential mark this neuron for inclusion in the
	// spikes/potentials trace streams (original_source/network.hpp's
	// per-neuron log_spikes/log_potential flags, a feature spec.md's
	// distillation dropped but original_source keeps).
	LogSpikes    bool
	LogPotential bool
}

// MappedConnection is one mapped synaptic connection (spec.md §3).
// Invariant: PostNeuron.Core.ConnectionsIn[SynapseAddress] == this
// connection.
type MappedConnection struct {
	PreNeuron  *MappedNeuron // non-owning
	PostNeuron *MappedNeuron // non-owning

	SynapseUnitIndex int // which of PostNeuron.Core.Synapse[] owns this address
	SynapseAddress   int

	Weight         float64
	DendriteParams map[string]interface{}

	LastUpdated int
}

// Mesh is the whole mapped chip: every tile and, flattened, every core,
// indexed by global core ID.
type Mesh struct {
	Arch  *arch.Architecture
	Tiles []*Tile
	Cores []*MappedCore

	tileByCoord map[[2]int]int
}

// TileOf returns the tile hosting a given global core ID. coreID is
// always a value this module assigned during mesh.Build, so an
// out-of-range value here is a kernel invariant violation, not a
// caller configuration error (spec.md §7.3) - it panics with a
// descriptive message rather than an undecorated index-out-of-range.
func (m *Mesh) TileOf(coreID int) *Tile {
	if coreID < 0 || coreID >= len(m.Cores) {
		panic(fmt.Sprintf("sanafe: unknown core id %d", coreID))
	}
	return m.Tiles[m.Cores[coreID].ParentTileID]
}

// TileIDAt resolves a grid coordinate to its tile ID.
func (m *Mesh) TileIDAt(x, y int) int {
	return m.tileByCoord[[2]int{x, y}]
}
