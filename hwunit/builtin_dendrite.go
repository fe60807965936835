package hwunit

// PassiveLeakDendrite is a minimal built-in Dendrite model: per-address
// charge decays passively and accumulates whatever synaptic current is
// handed in, grounded on original_source/pipeline.cpp's
// pipeline_process_dendrite (a catch-up decay loop followed by one
// update per buffered synapse).
type PassiveLeakDendrite struct {
	Decay   float64
	charge  map[int]float64
	simTime int
}

func NewPassiveLeakDendrite(decay float64) *PassiveLeakDendrite {
	return &PassiveLeakDendrite{Decay: decay, charge: make(map[int]float64)}
}

func (d *PassiveLeakDendrite) SetTime(ts int) { d.simTime = ts }

// Update implements hwunit.Dendrite. When synapseIn is nil this is a
// catch-up (leak-only) update; otherwise the synapse's current is added.
func (d *PassiveLeakDendrite) Update(addr int, synapseIn *UpdateResult) UpdateResult {
	d.charge[addr] *= d.Decay
	if synapseIn != nil {
		d.charge[addr] += synapseIn.Current
	}
	return UpdateResult{Current: d.charge[addr]}
}

func (d *PassiveLeakDendrite) SetAttribute(addr int, name string, value interface{}) error {
	if name != "dendritic_current_decay" {
		return &AttributeError{Unit: "dendrite", Name: name, Value: value}
	}
	v, ok := value.(float64)
	if !ok {
		return &AttributeError{Unit: "dendrite", Name: name, Value: value}
	}
	d.Decay = v
	return nil
}

var _ Dendrite = (*PassiveLeakDendrite)(nil)
