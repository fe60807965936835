package mesh

import (
	"fmt"

	"github.com/SLAM-Lab/sana-fe/arch"
)

// MapNeuron appends a MappedNeuron to core, assigns its mapped_address,
// binds it to one of the core's dendrite/soma/axon-out units, and
// applies attribute overrides to the units it is bound to (spec.md
// §4.2). Per DESIGN.md's Open Question resolution, attributes are
// applied to the dendrite and soma units only: those are the two units
// whose state is keyed per-neuron address, whereas axon-out is a pure
// per-message cost reporter with nothing neuron-specific to configure.
// A core with more than one dendrite/soma/axon-out unit (spec.md §3)
// selects which one via the "dendrite_unit"/"soma_unit"/"axon_out_unit"
// int attributes, defaulting to unit 0.
func MapNeuron(core *MappedCore, group string, id int, attrs map[string]interface{}) (*MappedNeuron, error) {
	addr := len(core.Neurons)
	n := &MappedNeuron{
		Group:         group,
		ID:            id,
		MappedAddress: addr,
		Core:          core,
		DendriteAddr:  addr,
		SomaAddr:      addr,
	}

	var err error
	if n.DendriteUnitIndex, err = unitIndex(attrs, "dendrite_unit", len(core.Dendrite)); err != nil {
		return nil, err
	}
	if n.SomaUnitIndex, err = unitIndex(attrs, "soma_unit", len(core.Soma)); err != nil {
		return nil, err
	}
	if n.AxonOutUnitIndex, err = unitIndex(attrs, "axon_out_unit", len(core.AxonOut)); err != nil {
		return nil, err
	}

	core.Neurons = append(core.Neurons, n)

	// Attributes are broadcast to both units a neuron is bound to; a
	// name meant for the soma (e.g. "threshold") is simply not
	// recognized by the dendrite and vice versa, so unit-level
	// SetAttribute errors here are diagnostic rather than fatal.
	for name, value := range attrs {
		core.Dendrite[n.DendriteUnitIndex].SetAttribute(n.DendriteAddr, name, value)
		core.Soma[n.SomaUnitIndex].SetAttribute(n.SomaAddr, name, value)
	}

	if fs, ok := attrs["forced_spikes"].(int); ok {
		n.ForcedSpikes = fs
	}
	if v, ok := attrs["log_spikes"].(bool); ok {
		n.LogSpikes = v
	}
	if v, ok := attrs["log_potential"].(bool); ok {
		n.LogPotential = v
	}

	return n, nil
}

// unitIndex reads an optional int attribute selecting one of a core's
// unit-kind slots, defaulting to 0 and rejecting an out-of-range choice
// as a configuration error (spec.md §7.1/§7.2).
func unitIndex(attrs map[string]interface{}, name string, count int) (int, error) {
	idx := 0
	if v, ok := attrs[name].(int); ok {
		idx = v
	}
	if idx < 0 || idx >= count {
		return 0, &arch.ConfigError{Field: name, Value: fmt.Sprintf("%d", idx)}
	}
	return idx, nil
}

// MapConnection maps a connection from pre to post: it allocates a
// synapse address on the post-neuron's core, appends the connection to
// that core's ConnectionsIn (so the invariant
// "post.Core.ConnectionsIn[synapse_address] == this connection" holds
// by construction), and updates the pre-neuron's and post-core's
// axon-out/axon-in tables (spec.md §4.2). synapseUnit selects which of
// the post core's synapse hardware units owns the new address; axonInUnit
// selects which of the post core's axon-in hardware units the pre
// neuron's messages are received on. When a pre-neuron already has an
// axon-out entry targeting postCore, that entry's axon-in bucket - and
// the axon-in unit chosen for it by whichever connection allocated it
// first - is reused; axonInUnit is only consulted when a new bucket is
// allocated.
func MapConnection(
	pre, post *MappedNeuron,
	synapseUnit, axonInUnit int,
	weight float64,
	dendriteParams map[string]interface{},
) (*MappedConnection, error) {
	postCore := post.Core
	addr := len(postCore.ConnectionsIn)

	con := &MappedConnection{
		PreNeuron:        pre,
		PostNeuron:       post,
		SynapseUnitIndex: synapseUnit,
		SynapseAddress:   addr,
		Weight:           weight,
		DendriteParams:   dendriteParams,
	}
	postCore.ConnectionsIn = append(postCore.ConnectionsIn, con)

	if err := postCore.Synapse[synapseUnit].SetAttribute(addr, "weight", weight); err != nil {
		return nil, err
	}

	axonID := allocateAxon(pre, postCore, axonInUnit)
	postCore.AxonsIn[axonID].SynapseAddresses = append(
		postCore.AxonsIn[axonID].SynapseAddresses, addr)

	return con, nil
}

// allocateAxon returns the index into postCore.AxonsIn that pre's
// existing axon-out entry for postCore targets, allocating a fresh
// axon-out/axon-in pair bound to axonInUnit if pre has no entry for
// postCore yet (spec.md §4.2: "every pre-neuron has one axon-out entry
// per distinct destination core").
func allocateAxon(pre *MappedNeuron, postCore *MappedCore, axonInUnit int) int {
	preCore := pre.Core
	destTileID := postCore.ParentTileID
	destOffset := postCore.Offset

	for _, axonAddr := range pre.AxonOutAddresses {
		axon := preCore.AxonsOut[axonAddr]
		if axon.DestTileID == destTileID && axon.DestCoreOffset == destOffset {
			return axon.DestAxonID
		}
	}

	axonInID := len(postCore.AxonsIn)
	postCore.AxonsIn = append(postCore.AxonsIn, AxonInModel{UnitIndex: axonInUnit})

	axonOutID := len(preCore.AxonsOut)
	preCore.AxonsOut = append(preCore.AxonsOut, AxonOutModel{
		DestTileID:     destTileID,
		DestCoreOffset: destOffset,
		DestAxonID:     axonInID,
	})
	pre.AxonOutAddresses = append(pre.AxonOutAddresses, axonOutID)

	return axonInID
}
