// Package noc implements the NoC message scheduler of spec.md §4.4: a
// single-threaded, priority-queue-driven pass over one timestep's
// per-core message batches that computes each message's network delay
// under a density-based congestion model and produces its final
// sent/received/processed timestamps. Grounded on
// original_source/src/schedule.cpp, translated from its
// vector<list<Message>>-and-raw-pointer style onto Go slices and
// pointers to mesh.Message.
//
// original_source/src/schedule.hpp (the NocInfo class and its idx()
// layout) was not present in the retrieved sources; the flat
// message_density indexing this package uses is this module's own
// reconstruction from schedule.cpp's usage pattern, not a transcription.
package noc

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/SLAM-Lab/sana-fe/mesh"
)

// densityEpsilon bounds the floating-point slack tolerated around zero
// before a negative message density is treated as an invariant violation
// (spec.md §7.3, original_source's schedule.cpp epsilon check).
const densityEpsilon = 1e-9

// Info is the NoC's tracked congestion state for one timestep's
// scheduling run (spec.md §3's NocInfo, original_source's
// sanafe::NocInfo).
type Info struct {
	Width, Height   int
	MaxCoresPerTile int

	// MessageDensity is a flat array of per-link fractional occupancy,
	// indexed via idx(x, y, link). link is either a cardinal direction
	// (mesh.North..mesh.West) or a core-local link
	// (mesh.NumDirections + core offset).
	MessageDensity []float64

	MessagesReceived      [][]*mesh.Message // per dest core, in-flight messages
	CoreFinishedReceiving []sim.VTimeInSec  // per dest core

	MessagesInNoc            int
	MeanInFlightReceiveDelay sim.VTimeInSec
}

// NewInfo allocates NoC state sized for a coreCount-core chip on a
// width*height mesh with maxCoresPerTile cores per tile
// (original_source's NocInfo constructor).
func NewInfo(width, height, coreCount, maxCoresPerTile int) *Info {
	linksPerTile := int(mesh.NumDirections) + maxCoresPerTile
	return &Info{
		Width:                 width,
		Height:                height,
		MaxCoresPerTile:       maxCoresPerTile,
		MessageDensity:        make([]float64, width*height*linksPerTile),
		MessagesReceived:      make([][]*mesh.Message, coreCount),
		CoreFinishedReceiving: make([]sim.VTimeInSec, coreCount),
	}
}

func (n *Info) idx(x, y, link int) int {
	linksPerTile := int(mesh.NumDirections) + n.MaxCoresPerTile
	return (y*n.Width+x)*linksPerTile + link
}

func localLink(coreOffset int) int {
	return int(mesh.NumDirections) + coreOffset
}

// updateMessageCounts adds (messageIn) or removes (!messageIn) one
// message's fractional occupancy along its dimension-ordered route, and
// updates the rolling mean in-flight receive delay
// (original_source/src/schedule.cpp's schedule_update_noc_message_counts).
//
// Per this module's resolution of spec.md §9's local-link ambiguity:
// src_core_offset's link is the only core-local link ever charged, and
// it is charged once at the very start of the route (or, in the
// same-tile case, as the route's only link). Every other link,
// including the terminal link into a different destination tile, is a
// plain cardinal-direction link keyed by the last direction traveled.
func (n *Info) updateMessageCounts(m *mesh.Message, messageIn bool) {
	const inputPlusOutputLink = 2.0
	adjust := 1.0 / (inputPlusOutputLink + float64(m.Hops))
	if !messageIn {
		adjust = -adjust
	}

	xIncrement, yIncrement := 1, 1
	if m.SrcX >= m.DestX {
		xIncrement = -1
	}
	if m.SrcY >= m.DestY {
		yIncrement = -1
	}

	prevDirection := localLink(m.SrcCoreOffset)
	for x := m.SrcX; x != m.DestX; x += xIncrement {
		direction := mesh.East
		if xIncrement < 0 {
			direction = mesh.West
		}
		if x == m.SrcX {
			n.MessageDensity[n.idx(x, m.SrcY, localLink(m.SrcCoreOffset))] += adjust
		} else {
			n.MessageDensity[n.idx(x, m.SrcY, int(direction))] += adjust
		}
		prevDirection = int(direction)
	}
	for y := m.SrcY; y != m.DestY; y += yIncrement {
		direction := mesh.North
		if yIncrement < 0 {
			direction = mesh.South
		}
		if m.SrcX == m.DestX && y == m.SrcY {
			n.MessageDensity[n.idx(m.DestX, y, localLink(m.SrcCoreOffset))] += adjust
		} else {
			n.MessageDensity[n.idx(m.DestX, y, prevDirection)] += adjust
		}
		prevDirection = int(direction)
	}

	if m.SrcX == m.DestX && m.SrcY == m.DestY {
		n.MessageDensity[n.idx(m.DestX, m.DestY, localLink(m.SrcCoreOffset))] += adjust
	} else {
		n.MessageDensity[n.idx(m.DestX, m.DestY, prevDirection)] += adjust
	}

	if messageIn {
		n.MeanInFlightReceiveDelay += (m.ReceiveDelay - n.MeanInFlightReceiveDelay) /
			sim.VTimeInSec(n.MessagesInNoc+1)
		n.MessagesInNoc++
	} else {
		if n.MessagesInNoc > 1 {
			n.MeanInFlightReceiveDelay += (n.MeanInFlightReceiveDelay - m.ReceiveDelay) /
				sim.VTimeInSec(n.MessagesInNoc-1)
		} else {
			n.MeanInFlightReceiveDelay = 0
		}
		n.MessagesInNoc--
	}
}

// messagesAlongRoute sums the current density along every link m's
// route would cross, using the same walk as updateMessageCounts but
// read-only (original_source's schedule_calculate_messages_along_route).
func (n *Info) messagesAlongRoute(m *mesh.Message) float64 {
	xIncrement, yIncrement := 1, 1
	if m.SrcX >= m.DestX {
		xIncrement = -1
	}
	if m.SrcY >= m.DestY {
		yIncrement = -1
	}

	var density float64
	prevDirection := localLink(m.SrcCoreOffset)
	for x := m.SrcX; x != m.DestX; x += xIncrement {
		direction := mesh.East
		if xIncrement < 0 {
			direction = mesh.West
		}
		if x == m.SrcX {
			density += n.MessageDensity[n.idx(x, m.SrcY, localLink(m.SrcCoreOffset))]
		} else {
			density += n.MessageDensity[n.idx(x, m.SrcY, int(direction))]
		}
		prevDirection = int(direction)
	}
	for y := m.SrcY; y != m.DestY; y += yIncrement {
		direction := mesh.North
		if yIncrement < 0 {
			direction = mesh.South
		}
		if m.SrcX == m.DestX && y == m.SrcY {
			density += n.MessageDensity[n.idx(m.DestX, y, localLink(m.SrcCoreOffset))]
		} else {
			density += n.MessageDensity[n.idx(m.DestX, y, prevDirection)]
		}
		prevDirection = int(direction)
	}

	if m.SrcX == m.DestX && m.SrcY == m.DestY {
		density += n.MessageDensity[n.idx(m.DestX, m.DestY, localLink(m.SrcCoreOffset))]
	} else {
		density += n.MessageDensity[n.idx(m.DestX, m.DestY, prevDirection)]
	}

	if density < -densityEpsilon {
		panic(fmt.Sprintf("sanafe: negative message density %g along route (%d,%d)->(%d,%d)", density, m.SrcX, m.SrcY, m.DestX, m.DestY))
	}
	return density
}

// update removes every message that has finished being received by
// time t from the NoC's in-flight tracking, decrementing message
// counts as it goes (original_source's schedule_update_noc).
func (n *Info) update(t sim.VTimeInSec) {
	for core, q := range n.MessagesReceived {
		kept := q[:0]
		for _, m := range q {
			if m.InNoc && t >= m.ReceivedTimestamp {
				m.InNoc = false
				n.updateMessageCounts(m, false)
				continue
			}
			kept = append(kept, m)
		}
		n.MessagesReceived[core] = kept
	}
}
