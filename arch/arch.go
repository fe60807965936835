// Package arch holds the architecture-description contract that an
// external parser produces (spec.md §6). Nothing in this package reads
// a file; it only models the data an architecture description resolves
// to once parsed.
package arch

import (
	"strconv"

	"github.com/sarchlab/akita/v4/sim"
)

// BufferPosition names the pipeline stage at which a core's per-neuron
// work ends and its per-spike work begins (spec.md §4.3).
type BufferPosition int

// Axon-in and synapse always run message-side (once per incoming spike);
// axon-out always runs neuron-side (once per neuron per timestep, gated
// on whether soma set axon_out_input_spike). BufferPosition only
// controls dendrite and soma: a stage runs neuron-side, as a lazy
// catch-up pass, when B sits at or before it, and message arrival
// drives a stage only when B sits after it (spec.md §4.3's
// process_neurons / process_message split).
const (
	// BeforeDendrite runs dendrite and soma both on the neuron side;
	// an incoming message only feeds synapse readings into the
	// neuron's queued dendrite_input_synapses for the next catch-up.
	BeforeDendrite BufferPosition = iota
	// BeforeSoma runs dendrite per incoming message but still catches
	// soma up only on the neuron side.
	BeforeSoma
	// BeforeAxonOut runs both dendrite and soma per incoming message;
	// axon-out remains the only neuron-side stage.
	BeforeAxonOut
)

// ParseBufferPosition maps the architecture file's buffer position
// string onto a BufferPosition, per spec.md §7.1 (an unknown string is
// a configuration error).
func ParseBufferPosition(s string) (BufferPosition, error) {
	switch s {
	case "before_dendrite", "dendrite":
		return BeforeDendrite, nil
	case "before_soma", "soma":
		return BeforeSoma, nil
	case "before_axon_out", "axon_out":
		return BeforeAxonOut, nil
	default:
		return 0, &ConfigError{Field: "buffer_position", Value: s}
	}
}

// ConfigError reports an invalid architecture-description value
// (spec.md §7.1 - configuration errors, fatal at init).
type ConfigError struct {
	Field string
	Value string
}

func (e *ConfigError) Error() string {
	return "sanafe: invalid architecture configuration for " + e.Field + ": " + e.Value
}

// UnitConfig is the per-unit configuration named in spec.md §6:
// a model name plus default per-event energy/latency, used by the
// pipeline whenever a hardware-unit update omits its own energy or
// latency (spec.md §4.1).
type UnitConfig struct {
	Name string

	// Access/Update/Spiking are the soma unit's three-tier cost default
	// (spec.md §4.3's soma stage): Access always applies, Update applies
	// additionally when a soma reports Updated or Fired, and Spiking
	// applies additionally when it reports Fired. Non-soma units only
	// ever use Access as their flat per-event default.
	EnergyAccess   float64
	LatencyAccess  sim.VTimeInSec
	EnergyUpdate   float64
	LatencyUpdate  sim.VTimeInSec
	EnergySpiking  float64
	LatencySpiking sim.VTimeInSec

	PluginPath string // non-empty selects the dynamic-dispatch escape hatch (spec.md §9)
}

// Core is the architecture-description record for one core: its
// hardware-unit model configuration and pipeline buffer position.
// This is distinct from mesh.MappedCore, which is the runtime,
// post-mapping model that owns MappedNeurons (spec.md §3). A core may
// host more than one of any unit kind - not just synapse - so every
// unit list is a slice; a neuron or connection selects which index it
// is bound to (spec.md §3: "owns lists of AxonInUnit, SynapseUnit,
// DendriteUnit, SomaUnit, AxonOutUnit").
type Core struct {
	ID             int
	Offset         int // index within its tile
	AxonIn         []UnitConfig
	Synapse        []UnitConfig
	Dendrite       []UnitConfig
	Soma           []UnitConfig
	AxonOut        []UnitConfig
	BufferPosition BufferPosition
}

// HopCost is the fixed per-hop energy/latency charged in one direction
// when routing a message between adjacent tiles (spec.md §3, "four
// directional hop energy/latency pairs").
type HopCost struct {
	Energy  float64
	Latency sim.VTimeInSec
}

// Tile is the architecture-description record for one tile: its grid
// position, the cores it hosts, and the per-direction hop costs used to
// estimate network delay (spec.md §3).
type Tile struct {
	X, Y  int
	Cores []Core

	North, East, South, West HopCost
}

// NocConfig carries the scheduler's mesh dimensions and per-route
// buffer size (spec.md §4.4's `buffer_size`).
type NocConfig struct {
	Width, Height     int
	MaxCoresPerTile   int
	BufferSize        int
}

// Architecture is the parsed architecture description SpikingChip
// consumes (spec.md §6). Building one from a file is out of scope for
// this module; callers construct it directly or via Builder.
type Architecture struct {
	Tiles []Tile
	Noc   NocConfig
}

// CoreAt resolves a core by (tileID, offset), returning an error if
// either index is out of range - a mapping-time configuration problem
// per spec.md §7.2, not a kernel invariant violation.
func (a *Architecture) CoreAt(tileID, offset int) (*Core, error) {
	if tileID < 0 || tileID >= len(a.Tiles) {
		return nil, &ConfigError{Field: "tile_id", Value: strconv.Itoa(tileID)}
	}
	t := &a.Tiles[tileID]
	if offset < 0 || offset >= len(t.Cores) {
		return nil, &ConfigError{Field: "core_offset", Value: strconv.Itoa(offset)}
	}
	return &t.Cores[offset], nil
}

// TileCount returns the number of tiles. It does not check the
// spec.md §3 bound (tile count must not exceed mesh width*height);
// mesh.Build does.
func (a *Architecture) TileCount() int { return len(a.Tiles) }
