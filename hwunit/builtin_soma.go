package hwunit

// LIFSoma is a minimal built-in Soma model shaped like a
// leaky-integrate-and-fire neuron: potential decays each timestep and
// accumulates incoming current, firing and resetting once a threshold
// is crossed. Grounded on the update contract in
// original_source/pipeline.cpp's pipeline_process_soma (a per-timestep
// catch-up loop calling soma_model->update(current_in) once per missed
// timestep) - not a claim of fidelity to any specific published LIF
// variant (spec.md §1 scopes numerical accuracy out).
type LIFSoma struct {
	Decay     float64
	Threshold float64
	ResetTo   float64

	potential map[int]float64
	simTime   int
}

func NewLIFSoma(decay, threshold, resetTo float64) *LIFSoma {
	return &LIFSoma{
		Decay: decay, Threshold: threshold, ResetTo: resetTo,
		potential: make(map[int]float64),
	}
}

func (s *LIFSoma) SetTime(ts int) { s.simTime = ts }

// GetPotential implements hwunit.Soma.
func (s *LIFSoma) GetPotential(addr int) float64 { return s.potential[addr] }

// Update implements hwunit.Soma. currentIn nil means "no new input this
// invocation" - the potential still decays but status stays Idle unless
// it happens to already sit above threshold.
func (s *LIFSoma) Update(addr int, currentIn *float64) UpdateResult {
	s.potential[addr] *= s.Decay

	status := Idle
	if currentIn != nil {
		s.potential[addr] += *currentIn
		status = Updated
	}

	if s.potential[addr] >= s.Threshold {
		s.potential[addr] = s.ResetTo
		status = Fired
	}

	return UpdateResult{Status: status}
}

func (s *LIFSoma) SetAttribute(addr int, name string, value interface{}) error {
	v, ok := value.(float64)
	if !ok {
		return &AttributeError{Unit: "soma", Name: name, Value: value}
	}
	switch name {
	case "leak_decay":
		s.Decay = v
	case "threshold":
		s.Threshold = v
	case "reset":
		s.ResetTo = v
	case "bias":
		s.potential[addr] += v
	default:
		return &AttributeError{Unit: "soma", Name: name, Value: value}
	}
	return nil
}

var _ Soma = (*LIFSoma)(nil)
