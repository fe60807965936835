package chip

import (
	"fmt"
	"os"

	"github.com/tebeka/atexit"

	"github.com/SLAM-Lab/sana-fe/arch"
	"github.com/SLAM-Lab/sana-fe/mesh"
)

// Builder constructs a SpikingChip, grounded on api.DriverBuilder's
// fluent WithX/Build shape and spec.md §6's
// `SpikingChip::new(arch, out_dir, record_{spikes,potentials,perf,messages})`.
type Builder struct {
	arch    *arch.Architecture
	factory *mesh.Factory
	outDir  string

	recordSpikes     bool
	recordPotentials bool
	recordPerf       bool
	recordMessages   bool
}

// NewBuilder returns a Builder with the package's built-in hardware
// models registered and "." as the default output directory.
func NewBuilder() Builder {
	return Builder{factory: mesh.NewFactory(), outDir: "."}
}

// WithArchitecture sets the parsed architecture description to map.
func (b Builder) WithArchitecture(a *arch.Architecture) Builder {
	b.arch = a
	return b
}

// WithFactory overrides the hardware-unit factory, for callers
// registering plugin or custom model constructors (spec.md §9).
func (b Builder) WithFactory(f *mesh.Factory) Builder {
	b.factory = f
	return b
}

// WithOutDir sets the directory trace files and run_summary.yaml are
// written to.
func (b Builder) WithOutDir(dir string) Builder {
	b.outDir = dir
	return b
}

// WithRecording selects which of the four optional trace streams
// Load opens (spec.md §6).
func (b Builder) WithRecording(spikes, potentials, perf, messages bool) Builder {
	b.recordSpikes = spikes
	b.recordPotentials = potentials
	b.recordPerf = perf
	b.recordMessages = messages
	return b
}

// Build maps the architecture onto a runtime mesh and returns a
// SpikingChip ready for Load (spec.md §6's SpikingChip::new). It
// registers an atexit handler that flushes and closes any trace files
// the chip opens, so a process that exits without an explicit Close
// still leaves well-formed trace output on disk.
func (b Builder) Build() (*SpikingChip, error) {
	if b.arch == nil {
		return nil, fmt.Errorf("sanafe: chip.Builder: no architecture set")
	}
	if err := os.MkdirAll(b.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("sanafe: create out dir %s: %w", b.outDir, err)
	}

	m, err := mesh.Build(b.arch, b.factory)
	if err != nil {
		return nil, err
	}

	c := &SpikingChip{
		arch:             b.arch,
		mesh:             m,
		outDir:           b.outDir,
		recordSpikes:     b.recordSpikes,
		recordPotentials: b.recordPotentials,
		recordPerf:       b.recordPerf,
		recordMessages:   b.recordMessages,
	}

	atexit.Register(func() { _ = c.Close() })

	return c, nil
}
