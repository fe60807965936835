// Package pipeline implements the hardware pipeline engine of spec.md
// §4.3: the per-timestep neuron-side and message-side phases that
// advance every mapped hardware unit and produce the messages a
// timestep hands to the NoC scheduler. Grounded on
// original_source/pipeline.cpp, translated from its free functions
// over an arch/Core/Neuron object graph onto this module's mesh
// package types.
package pipeline

import (
	"log/slog"
	"math"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/SLAM-Lab/sana-fe/arch"
	"github.com/SLAM-Lab/sana-fe/hwunit"
	"github.com/SLAM-Lab/sana-fe/mesh"
)

// Timestep holds one timestep's per-core outbound message queues plus
// the scalar accumulators spec.md §3 assigns to a Timestep
// (spike_count, neurons_fired, packets_sent, total_hops, energy).
// sim_time is not tracked here since it is the noc package's return
// value, computed only once the pipeline has finished producing
// messages. Laid out like original_source/pipeline.cpp's ts.messages: a
// slice indexed by global core ID, each holding the messages that core
// generated this timestep.
type Timestep struct {
	Number   int
	Messages [][]mesh.Message

	Energy       float64
	SpikeCount   int
	NeuronsFired int
	PacketsSent  int
	TotalHops    int
}

// NewTimestep allocates a Timestep with one empty message queue per
// core in m.
func NewTimestep(number int, m *mesh.Mesh) *Timestep {
	return &Timestep{
		Number:   number,
		Messages: make([][]mesh.Message, len(m.Cores)),
	}
}

// ProcessNeurons is the pipeline's neuron-side phase (spec.md §4.3,
// original_source/pipeline.cpp's pipeline_process_neurons): every core
// processes each of its mapped neurons up to its configured buffer
// position, then emits a placeholder message carrying whatever
// per-neuron latency was not claimed by a real spike message. This
// phase is data-parallel across cores - nothing here reads another
// core's state - but this module runs it serially (spec.md §5).
func ProcessNeurons(ts *Timestep, m *mesh.Mesh) {
	slog.Info("timestep boundary", "timestep", ts.Number, "phase", "process_neurons")

	for _, core := range m.Cores {
		setUnitTimes(core, ts.Number)

		tile := m.Tiles[core.ParentTileID]
		for _, n := range core.Neurons {
			processNeuron(ts, m, tile, core, n)
		}

		if core.NextMessageGenerationDelay != 0 {
			last := core.Neurons[len(core.Neurons)-1]
			placeholder := mesh.NewPlaceholder(last, tile, ts.Number, core.NextMessageGenerationDelay)
			ts.Messages[core.ID] = append(ts.Messages[core.ID], placeholder)
			core.NextMessageGenerationDelay = 0
		}
	}
}

// setUnitTimes tells every hardware unit a core owns the timestep the
// pipeline is about to process, once per core per timestep, independent
// of any per-address catch-up (spec.md §4.1).
func setUnitTimes(core *mesh.MappedCore, ts int) {
	for _, u := range core.AxonIn {
		u.SetTime(ts)
	}
	for _, u := range core.Synapse {
		u.SetTime(ts)
	}
	for _, u := range core.Dendrite {
		u.SetTime(ts)
	}
	for _, u := range core.Soma {
		u.SetTime(ts)
	}
	for _, u := range core.AxonOut {
		u.SetTime(ts)
	}
}

func processNeuron(ts *Timestep, m *mesh.Mesh, tile *mesh.Tile, core *mesh.MappedCore, n *mesh.MappedNeuron) {
	var latency sim.VTimeInSec

	if core.BufferPosition <= arch.BeforeDendrite {
		latency += processDendrite(ts, core, n)
	}
	if core.BufferPosition <= arch.BeforeSoma {
		latency += processSoma(ts, core, n)
	}
	if core.BufferPosition <= arch.BeforeAxonOut {
		latency += processAxonOut(ts, m, tile, core, n)
	}

	core.NextMessageGenerationDelay += latency
	n.SpikeCount = 0
}

// ProcessMessages is the pipeline's message-side phase (spec.md §4.3,
// original_source/pipeline.cpp's pipeline_process_messages): every
// non-placeholder message generated this timestep is routed to its
// destination core's inbound list, then every core processes its
// inbound messages through axon-in, synapse, and - depending on buffer
// position - dendrite and soma.
func ProcessMessages(ts *Timestep, m *mesh.Mesh) {
	slog.Info("timestep boundary", "timestep", ts.Number, "phase", "process_messages")

	for _, queue := range ts.Messages {
		for i := range queue {
			if !queue[i].Placeholder {
				ts.Energy += mesh.ReceiveMessage(m, &queue[i])
				ts.TotalHops += queue[i].Hops
			}
		}
	}

	for _, core := range m.Cores {
		for _, msg := range core.Inbound {
			msg.ReceiveDelay += processMessage(ts, core, msg)
		}
		core.Inbound = core.Inbound[:0]
	}
}

// processMessage sequentially drives axon-in, then every synapse the
// message's axon fans out to, continuing into dendrite/soma only as
// far as the destination core's buffer position allows
// (original_source/pipeline.cpp's pipeline_process_message).
func processMessage(ts *Timestep, core *mesh.MappedCore, m *mesh.Message) sim.VTimeInSec {
	slog.Debug("message event", "timestep", ts.Number, "core", core.ID, "src_neuron", m.SrcNeuronID, "dest_axon", m.DestAxonID)

	latency := processAxonIn(ts, core, m)

	axonIn := core.AxonsIn[m.DestAxonID]
	for _, synapseAddr := range axonIn.SynapseAddresses {
		con := core.ConnectionsIn[synapseAddr]
		latency += processSynapse(ts, con, synapseAddr)

		if core.BufferPosition == arch.BeforeDendrite {
			continue
		}

		n := con.PostNeuron
		latency += processDendrite(ts, core, n)

		if core.BufferPosition == arch.BeforeSoma {
			continue
		}
		latency += processSoma(ts, core, n)
	}

	return latency
}

func processAxonIn(ts *Timestep, core *mesh.MappedCore, m *mesh.Message) sim.VTimeInSec {
	r := core.AxonIn[m.DestAxonUnit].Update(m.DestAxonHW)
	ts.Energy += energyOrDefault(r, core.AxonInConfig[m.DestAxonUnit].EnergyAccess)
	return latencyOrDefault(r, core.AxonInConfig[m.DestAxonUnit].LatencyAccess)
}

// processSynapse catches the connection's model up to the current
// timestep with decay-only updates, then performs the real weight-read
// update for the address that just received a spike
// (original_source/pipeline.cpp's pipeline_process_synapse). Only the
// real update - not the catch-up passes - is billed, matching how its
// latency is charged.
func processSynapse(ts *Timestep, con *mesh.MappedConnection, addr int) sim.VTimeInSec {
	synapse := con.PostNeuron.Core.Synapse[con.SynapseUnitIndex]

	for con.LastUpdated < ts.Number {
		slog.Debug("catch-up update", "unit", "synapse", "addr", addr, "from_timestep", con.LastUpdated, "to_timestep", ts.Number)
		synapse.Update(addr, false)
		con.LastUpdated++
	}
	r := synapse.Update(addr, true)

	con.PostNeuron.DendriteInputSynapses = append(con.PostNeuron.DendriteInputSynapses, r)
	con.PostNeuron.SpikeCount++
	ts.SpikeCount++

	cfg := con.PostNeuron.Core.SynapseConfig[con.SynapseUnitIndex]
	ts.Energy += energyOrDefault(r, cfg.EnergyAccess)
	return latencyOrDefault(r, cfg.LatencyAccess)
}

// processDendrite catches the neuron's dendrite model up to the
// current timestep with leak-only updates, then folds in every synapse
// reading queued since the last call
// (original_source/pipeline.cpp's pipeline_process_dendrite). Neither
// latency nor energy is billed here: spec.md §4.5's energy sum omits
// the dendrite term entirely, and the original pipeline never charges
// dendrite latency either.
func processDendrite(ts *Timestep, core *mesh.MappedCore, n *mesh.MappedNeuron) sim.VTimeInSec {
	var latency sim.VTimeInSec
	dendrite := core.Dendrite[n.DendriteUnitIndex]

	for n.DendriteLastUpdated < ts.Number {
		slog.Debug("catch-up update", "unit", "dendrite", "addr", n.DendriteAddr, "from_timestep", n.DendriteLastUpdated, "to_timestep", ts.Number)
		r := dendrite.Update(n.DendriteAddr, nil)
		n.SomaInputCharge = r.Current
		n.DendriteLastUpdated++
	}
	for i := range n.DendriteInputSynapses {
		r := dendrite.Update(n.DendriteAddr, &n.DendriteInputSynapses[i])
		n.SomaInputCharge = r.Current
	}
	n.DendriteInputSynapses = n.DendriteInputSynapses[:0]

	return latency
}

// processSoma catches the neuron's soma model up to the current
// timestep, delivering the accumulated input charge on the first
// missed timestep only and applying any forced spike override
// (original_source/pipeline.cpp's pipeline_process_soma). Latency and
// energy both accumulate from the same three-tier default: Access
// always, Update on Updated/Fired, Spiking on Fired (spec.md §4.3).
func processSoma(ts *Timestep, core *mesh.MappedCore, n *mesh.MappedNeuron) sim.VTimeInSec {
	var latency sim.VTimeInSec
	cfg := core.SomaConfig[n.SomaUnitIndex]
	soma := core.Soma[n.SomaUnitIndex]

	for n.SomaLastUpdated < ts.Number {
		slog.Debug("catch-up update", "unit", "soma", "addr", n.SomaAddr, "from_timestep", n.SomaLastUpdated, "to_timestep", ts.Number)
		var currentIn *float64
		if n.SpikeCount > 0 || math.Abs(n.SomaInputCharge) > 0 {
			v := n.SomaInputCharge
			currentIn = &v
			n.SomaInputCharge = 0
		}

		r := soma.Update(n.SomaAddr, currentIn)
		n.Status = r.Status
		if n.ForcedSpikes > 0 {
			n.Status = hwunit.Fired
			n.ForcedSpikes--
		}

		latency += latencyOrDefault(r, cfg.LatencyAccess)
		ts.Energy += energyOrDefault(r, cfg.EnergyAccess)
		if n.Status == hwunit.Updated || n.Status == hwunit.Fired {
			latency += cfg.LatencyUpdate
			ts.Energy += cfg.EnergyUpdate
		}
		if n.Status == hwunit.Fired {
			latency += cfg.LatencySpiking
			ts.Energy += cfg.EnergySpiking
			ts.NeuronsFired++
			n.AxonOutInputSpike = true
		}

		n.SomaLastUpdated++
	}

	return latency
}

// processAxonOut emits one message per distinct destination the
// neuron's last fire targeted. The first message absorbs whatever
// per-neuron latency this core has accumulated since its last message;
// every message additionally absorbs the axon-out unit's per-access
// cost, and that same per-access cost (charged once, not once per
// destination) is this stage's own contribution to the core's next
// per-neuron latency accumulator (original_source/pipeline.cpp's
// pipeline_process_axon_out).
func processAxonOut(ts *Timestep, m *mesh.Mesh, tile *mesh.Tile, core *mesh.MappedCore, n *mesh.MappedNeuron) sim.VTimeInSec {
	if !n.AxonOutInputSpike {
		return 0
	}

	axonOut := core.AxonOut[n.AxonOutUnitIndex]
	axonOutCfg := core.AxonOutConfig[n.AxonOutUnitIndex]

	var accessLatency sim.VTimeInSec
	for i, axonAddr := range n.AxonOutAddresses {
		axon := core.AxonsOut[axonAddr]
		msg := mesh.NewSpikeMessage(n, tile, m, axon, ts.Number, core.NextMessageGenerationDelay)
		core.NextMessageGenerationDelay = 0

		r := axonOut.Update(axonAddr)
		l := latencyOrDefault(r, axonOutCfg.LatencyAccess)
		msg.GenerationDelay += l
		ts.Energy += energyOrDefault(r, axonOutCfg.EnergyAccess)
		if i == 0 {
			accessLatency = l
		}

		ts.PacketsSent++
		ts.Messages[core.ID] = append(ts.Messages[core.ID], msg)
	}
	n.AxonOutInputSpike = false

	return accessLatency
}

// latencyOrDefault implements spec.md §4.1's "pipeline substitutes the
// unit's configured default whenever a field is left absent".
func latencyOrDefault(r hwunit.UpdateResult, def sim.VTimeInSec) sim.VTimeInSec {
	if r.Latency == nil {
		return def
	}
	return *r.Latency
}

// energyOrDefault mirrors latencyOrDefault for the energy field.
func energyOrDefault(r hwunit.UpdateResult, def float64) float64 {
	if r.Energy == nil {
		return def
	}
	return *r.Energy
}
