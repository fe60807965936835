package noc_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/SLAM-Lab/sana-fe/mesh"
	"github.com/SLAM-Lab/sana-fe/noc"
)

func lineConfig() noc.Config {
	return noc.Config{
		NocWidth: 2, NocHeight: 1,
		CoreCount:       2,
		MaxCoresPerTile: 1,
		BufferSize:      1,
	}
}

// oneHopMessage builds a message from core 0 (tile 0, (0,0)) to core 1
// (tile 1, (1,0)), the spec.md §8 "two-core line mesh" layout. A
// nonzero NetworkDelay (as mesh.ReceiveMessage would compute from
// the architecture's hop latency) is what actually gives an in-flight
// message a real time window in which it can contend with later
// messages on the same route; without it every message is "received"
// essentially the instant it is sent and density never accumulates.
func oneHopMessage(generationDelay, receiveDelay, networkDelay sim.VTimeInSec) mesh.Message {
	return mesh.Message{
		SrcCoreID: 0, DestCoreID: 1,
		SrcTileID: 0, DestTileID: 1,
		SrcX: 0, SrcY: 0,
		DestX: 1, DestY: 0,
		Hops:            1,
		GenerationDelay: generationDelay,
		ReceiveDelay:    receiveDelay,
		NetworkDelay:    networkDelay,
	}
}

var _ = Describe("Schedule", func() {
	// Grounded on spec.md §8's "two-core line mesh" scenario.
	Describe("a single message crossing one hop", func() {
		It("produces monotonically ordered timestamps", func() {
			messages := [][]mesh.Message{
				{oneHopMessage(1e-9, 1e-9, 2e-9)},
				{},
			}
			last := noc.Schedule(messages, lineConfig())

			m := messages[0][0]
			Expect(m.SentTimestamp).To(BeNumerically(">=", m.GenerationDelay))
			Expect(m.ReceivedTimestamp).To(BeNumerically(">=", m.SentTimestamp))
			Expect(m.ProcessedTimestamp).To(BeNumerically(">=", m.ReceivedTimestamp))
			Expect(last).To(BeNumerically(">=", m.ProcessedTimestamp))
		})
	})

	// Grounded on spec.md §8's "saturation / backpressure" scenario:
	// once messages_along_route exceeds (hops+1)*buffer_size, later
	// messages on the same route are delayed further.
	Describe("many messages saturating the same route", func() {
		It("delays later messages beyond their own generation delay", func() {
			const n = 12
			var queue []mesh.Message
			for i := 0; i < n; i++ {
				// generation delay (0.5ns) far under the network delay
				// (5ns) so many messages overlap in flight at once,
				// pushing flow density above (hops+1)*buffer_size.
				queue = append(queue, oneHopMessage(0.5e-9, 5e-9, 5e-9))
			}
			messages := [][]mesh.Message{queue, {}}

			cfg := lineConfig()
			cfg.BufferSize = 1
			noc.Schedule(messages, cfg)

			first := messages[0][0]
			last := messages[0][n-1]

			// Under saturation the last message's sent timestamp must
			// exceed what n generation-delay-only sends would produce.
			Expect(last.SentTimestamp).To(BeNumerically(">", sim.VTimeInSec(n)*first.GenerationDelay))
		})
	})

	// Grounded on spec.md §8's "deterministic replay" scenario.
	Describe("determinism", func() {
		It("produces identical results across repeated runs on identical input", func() {
			build := func() [][]mesh.Message {
				return [][]mesh.Message{
					{oneHopMessage(1e-9, 2e-9, 2e-9), oneHopMessage(2e-9, 2e-9, 2e-9)},
					{},
				}
			}

			cfg := lineConfig()
			a := build()
			b := build()
			lastA := noc.Schedule(a, cfg)
			lastB := noc.Schedule(b, cfg)

			Expect(lastA).To(Equal(lastB))
			for i := range a[0] {
				Expect(a[0][i].SentTimestamp).To(Equal(b[0][i].SentTimestamp))
				Expect(a[0][i].ReceivedTimestamp).To(Equal(b[0][i].ReceivedTimestamp))
				Expect(a[0][i].ProcessedTimestamp).To(Equal(b[0][i].ProcessedTimestamp))
			}
		})
	})

	// Grounded on spec.md §4.4's tie-breaking rule: "Heap ties on
	// sent_timestamp are broken by source core id (ascending)". Four
	// source cores in the same tile all send to the same destination
	// core with identical GenerationDelay (so all four share one
	// SentTimestamp) over a route that converges on one shared
	// destination-tile link. Processing in ascending SrcCoreID order
	// means each message waits for every earlier one to finish being
	// received by the shared destination core (ReceiveDelay each),
	// producing a strictly increasing staircase of send-to-receive delay
	// across cores 0..3.
	Describe("tie-breaking on equal sent timestamps", func() {
		It("processes tied messages in ascending source core id order", func() {
			cfg := noc.Config{
				NocWidth: 2, NocHeight: 1,
				CoreCount:       5,
				MaxCoresPerTile: 4,
				BufferSize:      1000,
			}

			tied := func(srcCoreID int) mesh.Message {
				return mesh.Message{
					SrcCoreID: srcCoreID, DestCoreID: 4,
					SrcTileID: 0, DestTileID: 1,
					SrcX: 0, SrcY: 0,
					DestX: 1, DestY: 0,
					SrcCoreOffset: srcCoreID,
					Hops:            1,
					GenerationDelay: 1e-9,
					ReceiveDelay:    2e-9,
				}
			}

			messages := [][]mesh.Message{
				{tied(0)}, {tied(1)}, {tied(2)}, {tied(3)}, {},
			}
			noc.Schedule(messages, cfg)

			var delay [4]sim.VTimeInSec
			for i := 0; i < 4; i++ {
				m := messages[i][0]
				Expect(m.SentTimestamp).To(Equal(sim.VTimeInSec(1e-9)))
				delay[i] = m.ReceivedTimestamp - m.SentTimestamp
			}

			Expect(delay[0]).To(BeNumerically("==", 0))
			Expect(delay[1]).To(BeNumerically(">", delay[0]))
			Expect(delay[2]).To(BeNumerically(">", delay[1]))
			Expect(delay[3]).To(BeNumerically(">", delay[2]))
		})
	})

	// Grounded on spec.md §8's "placeholder accounting" property:
	// placeholder messages advance scheduling time but never enter the
	// NoC's congestion accounting.
	Describe("placeholder messages", func() {
		It("advance the schedule without being received anywhere", func() {
			placeholder := mesh.Message{
				SrcCoreID: 0, DestCoreID: 0,
				GenerationDelay: 3e-9,
				Placeholder:     true,
			}
			messages := [][]mesh.Message{{placeholder}, {}}

			last := noc.Schedule(messages, lineConfig())
			Expect(last).To(BeNumerically(">=", 3e-9))
			Expect(messages[0][0].InNoc).To(BeFalse())
		})
	})
})
