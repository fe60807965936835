package noc

import (
	"container/heap"
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/SLAM-Lab/sana-fe/mesh"
)

// Config carries the scheduler's mesh geometry and backpressure buffer
// size (spec.md §4.4, original_source's Scheduler).
type Config struct {
	NocWidth, NocHeight int
	CoreCount           int
	MaxCoresPerTile     int
	BufferSize          int
}

// messageHeap is a min-heap over pending messages ordered by
// SentTimestamp, backing the scheduler's priority queue
// (original_source's MessagePriorityQueue, here built on
// container/heap rather than std::priority_queue).
type messageHeap []*mesh.Message

func (h messageHeap) Len() int { return len(h) }

// Less breaks ties on SentTimestamp by ascending source core id, per
// spec.md §4.4's tie-breaking rule, so scheduling order is deterministic
// across runs regardless of heap insertion order.
func (h messageHeap) Less(i, j int) bool {
	if h[i].SentTimestamp != h[j].SentTimestamp {
		return h[i].SentTimestamp < h[j].SentTimestamp
	}
	return h[i].SrcCoreID < h[j].SrcCoreID
}
func (h messageHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *messageHeap) Push(x interface{}) { *h = append(*h, x.(*mesh.Message)) }
func (h *messageHeap) Pop() interface{} {
	old := *h
	n := len(old)
	m := old[n-1]
	*h = old[:n-1]
	return m
}

// Schedule runs the density-based NoC scheduler over one timestep's
// per-core message batches, mutating each message's SentTimestamp,
// ReceivedTimestamp, ProcessedTimestamp and InNoc fields in place, and
// returns the timestamp of the last scheduled event - the timestep's
// total delay (spec.md §4.4 and §4.5, original_source's
// schedule_messages). messagesPerCore is indexed by global core ID,
// matching pipeline.Timestep.Messages.
func Schedule(messagesPerCore [][]mesh.Message, cfg Config) sim.VTimeInSec {
	noc := NewInfo(cfg.NocWidth, cfg.NocHeight, cfg.CoreCount, cfg.MaxCoresPerTile)

	pending := make([][]*mesh.Message, cfg.CoreCount)
	for core, q := range messagesPerCore {
		for i := range q {
			pending[core] = append(pending[core], &q[i])
		}
	}

	pq := initTimingPriority(pending)
	var lastTimestamp sim.VTimeInSec

	for pq.Len() > 0 {
		m := heap.Pop(&pq).(*mesh.Message)
		lastTimestamp = maxTime(lastTimestamp, m.SentTimestamp)

		noc.update(m.SentTimestamp)

		if !m.Placeholder {
			destCore := m.DestCoreID
			messagesAlongRoute := noc.messagesAlongRoute(m)

			pathCapacity := float64(m.Hops+1) * float64(cfg.BufferSize)
			if messagesAlongRoute > pathCapacity {
				m.SentTimestamp += sim.VTimeInSec(messagesAlongRoute-pathCapacity) *
					noc.MeanInFlightReceiveDelay
			}

			m.InNoc = true
			noc.MessagesReceived[destCore] = append(noc.MessagesReceived[destCore], m)
			noc.updateMessageCounts(m, true)

			networkDelay := sim.VTimeInSec(messagesAlongRoute) *
				noc.MeanInFlightReceiveDelay / sim.VTimeInSec(m.Hops+1)

			earliestReceived := m.SentTimestamp + maxTime(m.NetworkDelay, networkDelay)
			m.ReceivedTimestamp = maxTime(noc.CoreFinishedReceiving[destCore], earliestReceived)
			noc.CoreFinishedReceiving[destCore] = maxTime(
				noc.CoreFinishedReceiving[destCore]+m.ReceiveDelay,
				earliestReceived+m.ReceiveDelay,
			)
			m.ProcessedTimestamp = noc.CoreFinishedReceiving[destCore]
			lastTimestamp = maxTime(lastTimestamp, m.ProcessedTimestamp)
		}

		srcCore := m.SrcCoreID
		if len(pending[srcCore]) > 0 {
			next := pending[srcCore][0]
			pending[srcCore] = pending[srcCore][1:]
			next.SentTimestamp = m.SentTimestamp + next.GenerationDelay
			lastTimestamp = maxTime(lastTimestamp, next.SentTimestamp)
			heap.Push(&pq, next)
		}
	}

	for core, q := range pending {
		if len(q) > 0 {
			panic(fmt.Sprintf("sanafe: scheduler priority queue emptied with %d message(s) still pending on core %d", len(q), core))
		}
	}

	return lastTimestamp
}

// initTimingPriority seeds the priority queue with each core's first
// message, its SentTimestamp set to its own generation delay
// (original_source's schedule_init_timing_priority).
func initTimingPriority(pending [][]*mesh.Message) messageHeap {
	var pq messageHeap
	for core, q := range pending {
		if len(q) == 0 {
			continue
		}
		m := q[0]
		pending[core] = q[1:]
		m.SentTimestamp = m.GenerationDelay
		pq = append(pq, m)
	}
	heap.Init(&pq)
	return pq
}

func maxTime(a, b sim.VTimeInSec) sim.VTimeInSec {
	if a > b {
		return a
	}
	return b
}
