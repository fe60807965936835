package mesh

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/SLAM-Lab/sana-fe/arch"
	"github.com/SLAM-Lab/sana-fe/hwunit"
)

// Factory builds hardware-unit instances from architecture-description
// model names, grounded on spec.md §7.1's "unknown model name" and
// "missing plugin path" configuration errors. Callers register the
// model constructors they support; NewFactory pre-registers the
// package's own built-in models. This is the "dynamic-dispatch escape
// hatch for externally loaded models" of spec.md §9: a caller wanting
// a plugin model registers its own constructor under that model name
// instead of this module attempting to dlopen a path (loading plugins
// is out of scope, spec.md §1).
type Factory struct {
	soma     map[string]func(arch.UnitConfig) (hwunit.Soma, error)
	dendrite map[string]func(arch.UnitConfig) (hwunit.Dendrite, error)
	synapse  map[string]func(arch.UnitConfig) (hwunit.Synapse, error)
	axonIn   map[string]func(arch.UnitConfig) (hwunit.AxonIn, error)
	axonOut  map[string]func(arch.UnitConfig) (hwunit.AxonOut, error)
}

// NewFactory returns a Factory pre-registered with this package's
// built-in models: "lif" (LIFSoma), "passive_leak" (PassiveLeakDendrite),
// "decaying" (DecayingSynapse), "fixed_cost" (FixedCostAxonIn/Out).
func NewFactory() *Factory {
	f := &Factory{
		soma:     make(map[string]func(arch.UnitConfig) (hwunit.Soma, error)),
		dendrite: make(map[string]func(arch.UnitConfig) (hwunit.Dendrite, error)),
		synapse:  make(map[string]func(arch.UnitConfig) (hwunit.Synapse, error)),
		axonIn:   make(map[string]func(arch.UnitConfig) (hwunit.AxonIn, error)),
		axonOut:  make(map[string]func(arch.UnitConfig) (hwunit.AxonOut, error)),
	}

	f.RegisterSoma("lif", func(cfg arch.UnitConfig) (hwunit.Soma, error) {
		return hwunit.NewLIFSoma(0.9, 1.0, 0.0), nil
	})
	f.RegisterDendrite("passive_leak", func(cfg arch.UnitConfig) (hwunit.Dendrite, error) {
		return hwunit.NewPassiveLeakDendrite(0.9), nil
	})
	f.RegisterSynapse("decaying", func(cfg arch.UnitConfig) (hwunit.Synapse, error) {
		return hwunit.NewDecayingSynapse(0.9), nil
	})
	f.RegisterAxonIn("fixed_cost", func(cfg arch.UnitConfig) (hwunit.AxonIn, error) {
		return &hwunit.FixedCostAxonIn{
			EnergyPerMessage:  cfg.EnergyAccess,
			LatencyPerMessage: cfg.LatencyAccess,
		}, nil
	})
	f.RegisterAxonOut("fixed_cost", func(cfg arch.UnitConfig) (hwunit.AxonOut, error) {
		return &hwunit.FixedCostAxonOut{
			EnergyPerMessage:  cfg.EnergyAccess,
			LatencyPerMessage: cfg.LatencyAccess,
		}, nil
	})

	return f
}

func (f *Factory) RegisterSoma(name string, ctor func(arch.UnitConfig) (hwunit.Soma, error)) {
	f.soma[name] = ctor
}
func (f *Factory) RegisterDendrite(name string, ctor func(arch.UnitConfig) (hwunit.Dendrite, error)) {
	f.dendrite[name] = ctor
}
func (f *Factory) RegisterSynapse(name string, ctor func(arch.UnitConfig) (hwunit.Synapse, error)) {
	f.synapse[name] = ctor
}
func (f *Factory) RegisterAxonIn(name string, ctor func(arch.UnitConfig) (hwunit.AxonIn, error)) {
	f.axonIn[name] = ctor
}
func (f *Factory) RegisterAxonOut(name string, ctor func(arch.UnitConfig) (hwunit.AxonOut, error)) {
	f.axonOut[name] = ctor
}

func (f *Factory) buildSoma(cfg arch.UnitConfig) (hwunit.Soma, error) {
	ctor, ok := f.soma[cfg.Name]
	if !ok {
		return nil, unknownModel("soma", cfg)
	}
	return ctor(cfg)
}

func (f *Factory) buildDendrite(cfg arch.UnitConfig) (hwunit.Dendrite, error) {
	ctor, ok := f.dendrite[cfg.Name]
	if !ok {
		return nil, unknownModel("dendrite", cfg)
	}
	return ctor(cfg)
}

func (f *Factory) buildSynapse(cfg arch.UnitConfig) (hwunit.Synapse, error) {
	ctor, ok := f.synapse[cfg.Name]
	if !ok {
		return nil, unknownModel("synapse", cfg)
	}
	return ctor(cfg)
}

func (f *Factory) buildAxonIn(cfg arch.UnitConfig) (hwunit.AxonIn, error) {
	ctor, ok := f.axonIn[cfg.Name]
	if !ok {
		return nil, unknownModel("axon_in", cfg)
	}
	return ctor(cfg)
}

func (f *Factory) buildAxonOut(cfg arch.UnitConfig) (hwunit.AxonOut, error) {
	ctor, ok := f.axonOut[cfg.Name]
	if !ok {
		return nil, unknownModel("axon_out", cfg)
	}
	return ctor(cfg)
}

func unknownModel(kind string, cfg arch.UnitConfig) error {
	if cfg.PluginPath == "" {
		return &arch.ConfigError{Field: kind + "_model", Value: cfg.Name}
	}
	return &arch.ConfigError{Field: kind + "_plugin", Value: cfg.PluginPath}
}

// Build instantiates a Mesh from an architecture description: one
// MappedCore per arch.Core, with hardware units constructed via f.
// No neurons are mapped yet - that is done by MapNeuron/MapConnection
// once a network is loaded (spec.md §4.2).
func Build(a *arch.Architecture, f *Factory) (*Mesh, error) {
	if maxTiles := a.Noc.Width * a.Noc.Height; a.TileCount() > maxTiles {
		return nil, &arch.ConfigError{
			Field: "tiles",
			Value: fmt.Sprintf("%d tiles exceeds %dx%d mesh capacity", a.TileCount(), a.Noc.Width, a.Noc.Height),
		}
	}

	m := &Mesh{Arch: a, tileByCoord: make(map[[2]int]int)}

	for tileID := range a.Tiles {
		at := &a.Tiles[tileID]
		t := &Tile{ID: tileID, X: at.X, Y: at.Y}
		t.HopEnergy = [NumDirections]float64{at.North.Energy, at.East.Energy, at.South.Energy, at.West.Energy}
		t.HopLatency = [NumDirections]sim.VTimeInSec{at.North.Latency, at.East.Latency, at.South.Latency, at.West.Latency}

		for ci := range at.Cores {
			ac, err := a.CoreAt(tileID, ci)
			if err != nil {
				return nil, err
			}
			core, err := buildCore(f, ac, tileID)
			if err != nil {
				return nil, err
			}
			t.Cores = append(t.Cores, core)
			m.Cores = append(m.Cores, core)
		}

		m.Tiles = append(m.Tiles, t)
		m.tileByCoord[[2]int{at.X, at.Y}] = tileID
	}

	return m, nil
}

func buildCore(f *Factory, ac *arch.Core, tileID int) (*MappedCore, error) {
	axonIn, err := buildUnits(ac.AxonIn, f.buildAxonIn)
	if err != nil {
		return nil, err
	}
	dendrite, err := buildUnits(ac.Dendrite, f.buildDendrite)
	if err != nil {
		return nil, err
	}
	soma, err := buildUnits(ac.Soma, f.buildSoma)
	if err != nil {
		return nil, err
	}
	axonOut, err := buildUnits(ac.AxonOut, f.buildAxonOut)
	if err != nil {
		return nil, err
	}
	synapse, err := buildUnits(ac.Synapse, f.buildSynapse)
	if err != nil {
		return nil, err
	}

	return &MappedCore{
		ID:             ac.ID,
		Offset:         ac.Offset,
		ParentTileID:   tileID,
		BufferPosition: ac.BufferPosition,
		AxonIn:         axonIn,
		Synapse:        synapse,
		Dendrite:       dendrite,
		Soma:           soma,
		AxonOut:        axonOut,
		AxonInConfig:   ac.AxonIn,
		SynapseConfig:  ac.Synapse,
		DendriteConfig: ac.Dendrite,
		SomaConfig:     ac.Soma,
		AxonOutConfig:  ac.AxonOut,
	}, nil
}

// buildUnits constructs one hardware unit per configured entry of a
// unit kind, preserving index order so that a MappedNeuron's
// *UnitIndex fields and AxonInModel.UnitIndex address the same slot
// they were configured for (spec.md §3's per-core unit lists).
func buildUnits[T any](cfgs []arch.UnitConfig, build func(arch.UnitConfig) (T, error)) ([]T, error) {
	units := make([]T, 0, len(cfgs))
	for _, cfg := range cfgs {
		u, err := build(cfg)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}
