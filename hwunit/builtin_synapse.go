package hwunit

// DecayingSynapse is a minimal built-in Synapse model: each address
// holds a weight and an exponentially decaying filtered current,
// grounded on the update shape of original_source/models.hpp's
// SynapseModel (a decay update with no argument, and a weight-read
// update keyed by address).
// Addresses are supplied by the caller (mesh.MapConnection assigns them
// from the post core's core-wide connection count, not a per-unit
// counter, so that ConnectionsIn[addr] indexing stays valid); the maps
// below are simply keyed by whatever address a connection was given.
type DecayingSynapse struct {
	Decay   float64 // per-timestep multiplicative decay, in [0, 1]
	weights map[int]float64
	current map[int]float64
	simTime int
}

// NewDecayingSynapse returns a DecayingSynapse with the given decay
// factor (0 disables carry-over between timesteps, 1 never decays).
func NewDecayingSynapse(decay float64) *DecayingSynapse {
	return &DecayingSynapse{
		Decay:   decay,
		weights: make(map[int]float64),
		current: make(map[int]float64),
	}
}

// SetTime advances the model's notion of the current timestep. The
// pipeline calls SetTime once per timestep, not per catch-up update.
func (s *DecayingSynapse) SetTime(ts int) { s.simTime = ts }

// Update implements hwunit.Synapse.
func (s *DecayingSynapse) Update(addr int, readWeight bool) UpdateResult {
	s.current[addr] *= s.Decay
	if readWeight {
		s.current[addr] += s.weights[addr]
	}
	return UpdateResult{Current: s.current[addr]}
}

// SetAttribute sets a per-address weight ("weight") or the shared decay
// factor ("synaptic_current_decay").
func (s *DecayingSynapse) SetAttribute(addr int, name string, value interface{}) error {
	switch name {
	case "weight":
		w, ok := value.(float64)
		if !ok {
			return &AttributeError{Unit: "synapse", Name: name, Value: value}
		}
		s.weights[addr] = w
	case "synaptic_current_decay":
		d, ok := value.(float64)
		if !ok {
			return &AttributeError{Unit: "synapse", Name: name, Value: value}
		}
		s.Decay = d
	default:
		return &AttributeError{Unit: "synapse", Name: name, Value: value}
	}
	return nil
}

var _ Synapse = (*DecayingSynapse)(nil)
