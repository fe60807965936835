package hwunit

import "github.com/sarchlab/akita/v4/sim"

// FixedCostAxonIn is a pure cost reporter: every update charges the
// same energy/latency and increments a counter (spec.md §4.1, "AxonIn
// and AxonOut are purely cost reporters").
type FixedCostAxonIn struct {
	EnergyPerMessage  float64
	LatencyPerMessage sim.VTimeInSec

	SpikeMessagesIn int
}

func (a *FixedCostAxonIn) SetTime(int) {}

func (a *FixedCostAxonIn) Update(addr int) UpdateResult {
	a.SpikeMessagesIn++
	return UpdateResult{
		Energy:  floatPtr(a.EnergyPerMessage),
		Latency: timePtr(a.LatencyPerMessage),
	}
}

func (a *FixedCostAxonIn) SetAttribute(addr int, name string, value interface{}) error {
	return setFixedCostAttribute("axon_in", &a.EnergyPerMessage, &a.LatencyPerMessage, name, value)
}

// FixedCostAxonOut mirrors FixedCostAxonIn for outgoing messages.
type FixedCostAxonOut struct {
	EnergyPerMessage  float64
	LatencyPerMessage sim.VTimeInSec

	PacketsOut int
}

func (a *FixedCostAxonOut) SetTime(int) {}

func (a *FixedCostAxonOut) Update(addr int) UpdateResult {
	a.PacketsOut++
	return UpdateResult{
		Energy:  floatPtr(a.EnergyPerMessage),
		Latency: timePtr(a.LatencyPerMessage),
	}
}

func (a *FixedCostAxonOut) SetAttribute(addr int, name string, value interface{}) error {
	return setFixedCostAttribute("axon_out", &a.EnergyPerMessage, &a.LatencyPerMessage, name, value)
}

func setFixedCostAttribute(
	unit string,
	energy *float64,
	latency *sim.VTimeInSec,
	name string,
	value interface{},
) error {
	switch name {
	case "energy_message":
		v, ok := value.(float64)
		if !ok {
			return &AttributeError{Unit: unit, Name: name, Value: value}
		}
		*energy = v
	case "latency_message":
		v, ok := value.(float64)
		if !ok {
			return &AttributeError{Unit: unit, Name: name, Value: value}
		}
		*latency = sim.VTimeInSec(v)
	default:
		return &AttributeError{Unit: unit, Name: name, Value: value}
	}
	return nil
}

var (
	_ AxonIn  = (*FixedCostAxonIn)(nil)
	_ AxonOut = (*FixedCostAxonOut)(nil)
)
