package mesh

import "github.com/sarchlab/akita/v4/sim"

// Message models a spike (or placeholder) message flowing through the
// simulated hardware pipeline and NoC (spec.md §3). Identity fields are
// set once at construction; scheduling fields are mutated by the
// pipeline and NoC scheduler.
type Message struct {
	// Identity - immutable after construction.
	SrcGroup       string
	SrcNeuronID    int
	SrcTileID      int
	SrcCoreID      int
	SrcCoreOffset  int
	SrcX, SrcY     int
	DestTileID     int
	DestCoreID     int
	DestCoreOffset int
	DestX, DestY   int
	DestAxonHW     int
	DestAxonUnit   int
	DestAxonID     int
	Hops           int
	Timestep       int
	Placeholder    bool

	// Scheduling - mutated by the pipeline and NoC scheduler.
	GenerationDelay     sim.VTimeInSec
	NetworkDelay        sim.VTimeInSec
	ReceiveDelay        sim.VTimeInSec
	SentTimestamp       sim.VTimeInSec
	ReceivedTimestamp   sim.VTimeInSec
	ProcessedTimestamp  sim.VTimeInSec
	InNoc               bool
}

// NewPlaceholder builds a dummy message carrying only the remaining
// per-core generation delay, with no destination (spec.md §3, §4.3).
func NewPlaceholder(n *MappedNeuron, tile *Tile, timestep int, delay sim.VTimeInSec) Message {
	return Message{
		SrcGroup:      n.Group,
		SrcNeuronID:   n.ID,
		SrcTileID:     tile.ID,
		SrcCoreID:     n.Core.ID,
		SrcCoreOffset: n.Core.Offset,
		SrcX:          tile.X,
		SrcY:          tile.Y,
		Timestep:      timestep,
		Placeholder:   true,

		GenerationDelay: delay,
	}
}

// NewSpikeMessage builds a real message from n to one of its axon-out
// destinations (spec.md §4.3's axon-out stage).
func NewSpikeMessage(
	n *MappedNeuron,
	srcTile *Tile,
	m *Mesh,
	axon AxonOutModel,
	timestep int,
	generationDelay sim.VTimeInSec,
) Message {
	destTile := m.Tiles[axon.DestTileID]
	destCore := destTile.Cores[axon.DestCoreOffset]

	msg := Message{
		SrcGroup:       n.Group,
		SrcNeuronID:    n.ID,
		SrcTileID:      srcTile.ID,
		SrcCoreID:      n.Core.ID,
		SrcCoreOffset:  n.Core.Offset,
		SrcX:           srcTile.X,
		SrcY:           srcTile.Y,
		DestTileID:     axon.DestTileID,
		DestCoreID:     destCore.ID,
		DestCoreOffset: axon.DestCoreOffset,
		DestX:          destTile.X,
		DestY:          destTile.Y,
		// DestAxonHW is the address handed to the destination axon-in
		// unit's Update; it is always 0, so every bucket shares one
		// slot. DestAxonUnit selects which of that core's (possibly
		// several) axon-in units it is.
		DestAxonHW:   0,
		DestAxonUnit: destCore.AxonsIn[axon.DestAxonID].UnitIndex,
		DestAxonID:   axon.DestAxonID,
		Timestep:     timestep,

		GenerationDelay: generationDelay,
	}
	msg.Hops = absDiff(msg.SrcX, msg.DestX) + absDiff(msg.SrcY, msg.DestY)

	return msg
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// EstimateNetworkCost is a deterministic function of the per-direction
// hop latencies along a message's dimension-ordered route (spec.md
// §4.3's estimate_network_costs): X hops through the source tile's
// East/West cost, Y hops through the destination tile's North/South
// cost, matching the convention that a tile's own hop cost fields
// describe the cost of forwarding a message in that direction.
func EstimateNetworkCost(mesh *Mesh, m *Message) sim.VTimeInSec {
	srcTile := mesh.Tiles[m.SrcTileID]
	destTile := mesh.Tiles[m.DestTileID]

	var delay sim.VTimeInSec
	if m.DestX > m.SrcX {
		delay += sim.VTimeInSec(m.DestX-m.SrcX) * srcTile.HopLatency[East]
	} else if m.DestX < m.SrcX {
		delay += sim.VTimeInSec(m.SrcX-m.DestX) * srcTile.HopLatency[West]
	}
	if m.DestY > m.SrcY {
		delay += sim.VTimeInSec(m.DestY-m.SrcY) * destTile.HopLatency[North]
	} else if m.DestY < m.SrcY {
		delay += sim.VTimeInSec(m.SrcY-m.DestY) * destTile.HopLatency[South]
	}

	return delay
}

// ReceiveMessage resolves a real message's destination core, computes
// its network delay and hop count, tallies the tiles' per-direction hop
// counters, and enqueues it on the destination core's inbound list
// (spec.md §4.3's receive_message / pipeline_receive_message). It
// returns the hop energy consumed by the message's route, the "per-tile
// direction hops" term of spec.md §4.5's energy sum.
func ReceiveMessage(mesh *Mesh, m *Message) float64 {
	m.NetworkDelay = EstimateNetworkCost(mesh, m)
	m.Hops = absDiff(m.SrcX, m.DestX) + absDiff(m.SrcY, m.DestY)
	energy := countHops(mesh, m)

	destCore := mesh.Tiles[m.DestTileID].Cores[m.DestCoreOffset]
	destCore.Inbound = append(destCore.Inbound, m)

	return energy
}

// countHops tallies one traversal per direction link a message's
// dimension-ordered (X-then-Y) route crosses, on the tile the link
// leaves from, and sums each link's energy cost.
func countHops(mesh *Mesh, m *Message) float64 {
	var energy float64
	x, y := m.SrcX, m.SrcY
	for x != m.DestX {
		tile := mesh.Tiles[mesh.TileIDAt(x, y)]
		if m.DestX > x {
			tile.HopCount[East]++
			energy += tile.HopEnergy[East]
			x++
		} else {
			tile.HopCount[West]++
			energy += tile.HopEnergy[West]
			x--
		}
	}
	for y != m.DestY {
		tile := mesh.Tiles[mesh.TileIDAt(x, y)]
		if m.DestY > y {
			tile.HopCount[North]++
			energy += tile.HopEnergy[North]
			y++
		} else {
			tile.HopCount[South]++
			energy += tile.HopEnergy[South]
			y--
		}
	}
	return energy
}
