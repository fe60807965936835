// Package chip is the top-level glue named in spec.md §6:
// SpikingChip wires the arch/mesh mapping, the pipeline's per-timestep
// phases, and the noc scheduler into the four external operations a
// caller drives a run through (new/load/sim/reset), aggregating each
// timestep's measurements into a RunData and, when requested, emitting
// them onto the trace package's CSV/YAML streams. Grounded on
// api/driver.go's driverImpl - the one stateful object a package
// exposes as its entry point, built via a fluent Builder.
package chip

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/SLAM-Lab/sana-fe/arch"
	"github.com/SLAM-Lab/sana-fe/hwunit"
	"github.com/SLAM-Lab/sana-fe/mesh"
	"github.com/SLAM-Lab/sana-fe/network"
	"github.com/SLAM-Lab/sana-fe/noc"
	"github.com/SLAM-Lab/sana-fe/pipeline"
	"github.com/SLAM-Lab/sana-fe/trace"
)

// RunData is the measurement set SpikingChip.Sim returns (spec.md §6):
// `energy, sim_time, wall_time, spikes, packets_sent, neurons_fired,
// timestep_start, timesteps_executed`.
type RunData struct {
	Energy            float64
	SimTime           sim.VTimeInSec
	WallTime          time.Duration
	Spikes            int
	PacketsSent       int
	NeuronsFired      int
	TimestepStart     int
	TimestepsExecuted int
}

// loggedNeuron pairs a trace key with the mapped neuron it names, kept
// in load order so the potentials stream's column order is stable.
type loggedNeuron struct {
	key    trace.NeuronKey
	neuron *mesh.MappedNeuron
}

// SpikingChip is the timestep driver and measurement aggregator of
// spec.md §4.5/§6, sitting on top of a mapped mesh.Mesh.
type SpikingChip struct {
	arch *arch.Architecture
	mesh *mesh.Mesh
	net  *network.SpikingNetwork

	outDir           string
	recordSpikes     bool
	recordPotentials bool
	recordPerf       bool
	recordMessages   bool
	recorder         trace.Recorder
	recorderClosed   bool

	neuronsByID map[network.NeuronID]*mesh.MappedNeuron
	logged      []loggedNeuron

	timestep int
	totals   RunData
}

// Load maps net onto the chip's mesh: every neuron via mesh.MapNeuron,
// then every connection via mesh.MapConnection (spec.md §4.2), and
// opens the requested trace streams once the logged-neuron set is
// known (spec.md §6). A mapping inconsistency - a neuron mapped onto a
// non-existent core, or a connection referencing an unmapped neuron or
// an out-of-range synapse unit - is reported as a *MappingError
// (spec.md §7.2) and Load returns without opening any trace stream.
func (c *SpikingChip) Load(net *network.SpikingNetwork) error {
	c.net = net
	c.neuronsByID = make(map[network.NeuronID]*mesh.MappedNeuron)

	for _, groupName := range net.GroupOrder {
		g := net.Groups[groupName]
		for i := range g.Neurons {
			if err := c.mapNeuron(groupName, g, &g.Neurons[i]); err != nil {
				return err
			}
		}
	}

	for _, conn := range net.Connections {
		if err := c.mapConnection(conn); err != nil {
			return err
		}
	}

	recorder, err := trace.NewCSVRecorder(
		c.outDir, loggedKeys(c.logged),
		c.recordSpikes, c.recordPotentials, c.recordPerf, c.recordMessages,
	)
	if err != nil {
		return err
	}
	c.recorder = recorder

	return nil
}

func (c *SpikingChip) mapNeuron(groupName string, g *network.NeuronGroup, nn *network.Neuron) error {
	// arch.Architecture.CoreAt validates the (tile, offset) pair against
	// the architecture description; mesh.Build lays out c.mesh.Tiles in
	// the same order, so a valid position here is guaranteed valid there.
	if _, err := c.arch.CoreAt(nn.MappedTo.TileID, nn.MappedTo.Offset); err != nil {
		return &MappingError{
			Reason: "neuron mapped to non-existent core",
			Detail: fmt.Sprintf("%s.%d -> tile %d core %d: %v", groupName, nn.ID, nn.MappedTo.TileID, nn.MappedTo.Offset, err),
		}
	}
	core := c.mesh.Tiles[nn.MappedTo.TileID].Cores[nn.MappedTo.Offset]

	attrs := mergeAttrs(g.DefaultAttributes, nn.Attributes)
	mn, err := mesh.MapNeuron(core, groupName, nn.ID, attrs)
	if err != nil {
		return err
	}
	mn.ForcedSpikes = nn.ForcedSpikes
	mn.LogSpikes = nn.LogSpikes
	mn.LogPotential = nn.LogPotential

	id := network.NeuronID{Group: groupName, ID: nn.ID}
	c.neuronsByID[id] = mn
	if nn.LogPotential {
		c.logged = append(c.logged, loggedNeuron{
			key:    trace.NeuronKey{Group: groupName, ID: nn.ID},
			neuron: mn,
		})
	}

	return nil
}

func (c *SpikingChip) mapConnection(conn network.Connection) error {
	pre, ok := c.neuronsByID[conn.Pre]
	if !ok {
		return &MappingError{
			Reason: "connection references unmapped pre-neuron",
			Detail: fmt.Sprintf("%s.%d", conn.Pre.Group, conn.Pre.ID),
		}
	}
	post, ok := c.neuronsByID[conn.Post]
	if !ok {
		return &MappingError{
			Reason: "connection references unmapped post-neuron",
			Detail: fmt.Sprintf("%s.%d", conn.Post.Group, conn.Post.ID),
		}
	}
	if conn.SynapseUnitIndex < 0 || conn.SynapseUnitIndex >= len(post.Core.Synapse) {
		return &MappingError{
			Reason: "synapse unit index out of range",
			Detail: fmt.Sprintf("%d on core %d", conn.SynapseUnitIndex, post.Core.ID),
		}
	}
	if conn.AxonInUnitIndex < 0 || conn.AxonInUnitIndex >= len(post.Core.AxonIn) {
		return &MappingError{
			Reason: "axon-in unit index out of range",
			Detail: fmt.Sprintf("%d on core %d", conn.AxonInUnitIndex, post.Core.ID),
		}
	}

	_, err := mesh.MapConnection(pre, post, conn.SynapseUnitIndex, conn.AxonInUnitIndex, conn.Weight, conn.DendriteParams)
	return err
}

func mergeAttrs(defaults, overrides network.Attrs) map[string]interface{} {
	merged := make(map[string]interface{}, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

func loggedKeys(logged []loggedNeuron) []trace.NeuronKey {
	keys := make([]trace.NeuronKey, len(logged))
	for i, l := range logged {
		keys[i] = l.key
	}
	return keys
}

// Sim drives the chip through timesteps more timesteps, running
// pipeline.ProcessNeurons, pipeline.ProcessMessages and noc.Schedule in
// sequence each step and folding the step's measurements into the
// chip's running totals (spec.md §4.5). Every heartbeat timesteps (0
// disables it) a running-totals table is printed, mirroring
// original_source/sim.c's heartbeat argument.
func (c *SpikingChip) Sim(timesteps, heartbeat int) (RunData, error) {
	start := time.Now()
	timestepStart := c.timestep

	nocCfg := noc.Config{
		NocWidth:        c.arch.Noc.Width,
		NocHeight:       c.arch.Noc.Height,
		CoreCount:       len(c.mesh.Cores),
		MaxCoresPerTile: c.arch.Noc.MaxCoresPerTile,
		BufferSize:      c.arch.Noc.BufferSize,
	}

	for i := 0; i < timesteps; i++ {
		ts := pipeline.NewTimestep(c.timestep+1, c.mesh)
		pipeline.ProcessNeurons(ts, c.mesh)
		pipeline.ProcessMessages(ts, c.mesh)
		simTime := noc.Schedule(ts.Messages, nocCfg)

		c.timestep++
		c.totals.Energy += ts.Energy
		c.totals.SimTime += simTime
		c.totals.Spikes += ts.SpikeCount
		c.totals.PacketsSent += ts.PacketsSent
		c.totals.NeuronsFired += ts.NeuronsFired
		c.totals.TimestepsExecuted++

		slog.Info("timestep boundary", "timestep", c.timestep, "fired", ts.NeuronsFired, "packets", ts.PacketsSent, "energy", ts.Energy)

		if c.recorder != nil {
			c.recordTimestep(ts)
		}
		if heartbeat > 0 && c.timestep%heartbeat == 0 {
			c.printHeartbeat()
		}
	}

	c.totals.TimestepStart = timestepStart
	c.totals.WallTime = time.Since(start)

	return c.totals, nil
}

func (c *SpikingChip) recordTimestep(ts *pipeline.Timestep) {
	c.recorder.RecordPerf(trace.PerfRow{
		Timestep:    c.timestep,
		Fired:       ts.NeuronsFired,
		Packets:     ts.PacketsSent,
		Hops:        ts.TotalHops,
		TotalEnergy: ts.Energy,
	})

	for _, core := range c.mesh.Cores {
		for _, n := range core.Neurons {
			if n.LogSpikes && n.Status == hwunit.Fired {
				c.recorder.RecordSpike(trace.NeuronKey{Group: n.Group, ID: n.ID}, c.timestep)
			}
		}
	}
	if c.recordPotentials && len(c.logged) > 0 {
		potentials := make([]float64, len(c.logged))
		for i, l := range c.logged {
			potentials[i] = l.neuron.Core.Soma[l.neuron.SomaUnitIndex].GetPotential(l.neuron.SomaAddr)
		}
		c.recorder.RecordPotentials(c.timestep, potentials)
	}

	if c.recordMessages {
		for _, queue := range ts.Messages {
			for _, m := range queue {
				if !m.Placeholder {
					c.recordMessage(m)
				}
			}
		}
	}
}

func (c *SpikingChip) recordMessage(m mesh.Message) {
	blocking := m.ReceivedTimestamp - m.SentTimestamp - m.NetworkDelay
	if blocking < 0 {
		blocking = 0
	}
	c.recorder.RecordMessage(trace.MessageRow{
		Timestep:           m.Timestep,
		SrcNeuron:          fmt.Sprintf("%s.%d", m.SrcGroup, m.SrcNeuronID),
		SrcHW:              m.SrcCoreOffset,
		DestHW:             m.DestCoreOffset,
		Hops:               m.Hops,
		Spikes:             1,
		GenerationDelay:    m.GenerationDelay,
		NetworkDelay:       m.NetworkDelay,
		ProcessingLatency:  m.ReceiveDelay,
		BlockingLatency:    blocking,
		SentTimestamp:      m.SentTimestamp,
		ProcessedTimestamp: m.ProcessedTimestamp,
	})
}

func (c *SpikingChip) printHeartbeat() {
	t := table.NewWriter()
	t.SetTitle("SpikingChip heartbeat")
	t.AppendHeader(table.Row{"timestep", "fired", "packets", "energy"})
	t.AppendRow(table.Row{c.timestep, c.totals.NeuronsFired, c.totals.PacketsSent, c.totals.Energy})
	fmt.Println(t.Render())
}

// Reset clears the chip's accumulated run measurements and timestep
// counter so a subsequent Sim call starts a fresh run over the same
// mapped mesh (spec.md §6). It leaves the mapping and any open trace
// streams untouched: neither the mapping contract nor the hardware-unit
// contracts (spec.md §4.1, §4.2) expose an operation to rewind a unit's
// internal state, so a caller wanting a fully independent run should
// build a new SpikingChip via Builder instead.
func (c *SpikingChip) Reset() error {
	c.timestep = 0
	c.totals = RunData{}
	return nil
}

// WriteSummary persists the chip's current run totals as
// run_summary.yaml in its output directory (spec.md §6).
func (c *SpikingChip) WriteSummary() error {
	return trace.WriteSummary(c.outDir, trace.Summary{
		Energy:       c.totals.Energy,
		SimTime:      float64(c.totals.SimTime),
		WallTime:     c.totals.WallTime.Seconds(),
		Spikes:       c.totals.Spikes,
		PacketsSent:  c.totals.PacketsSent,
		NeuronsFired: c.totals.NeuronsFired,
		Timesteps:    c.totals.TimestepsExecuted,
	})
}

// Close flushes and closes any trace streams Load opened. Idempotent;
// safe to call more than once, including from the atexit handler
// Builder.Build registers.
func (c *SpikingChip) Close() error {
	if c.recorder == nil || c.recorderClosed {
		return nil
	}
	c.recorderClosed = true
	return c.recorder.Close()
}
