package arch

// Builder constructs an Architecture programmatically, grounded on
// config.DeviceBuilder's fluent WithX/Build shape. Since parsing an
// architecture file is out of scope for this module (spec.md §1),
// tests and embedding callers use Builder in place of a file loader.
type Builder struct {
	width, height   int
	coresPerTile    int
	bufferSize      int
	defaultHop      HopCost
	defaultCore     Core
}

// NewBuilder returns a Builder with one core per tile and zero-cost
// hops; callers override what they need.
func NewBuilder() Builder {
	return Builder{
		width:        1,
		height:       1,
		coresPerTile: 1,
		bufferSize:   1,
	}
}

func (b Builder) WithWidth(w int) Builder  { b.width = w; return b }
func (b Builder) WithHeight(h int) Builder { b.height = h; return b }
func (b Builder) WithCoresPerTile(n int) Builder {
	b.coresPerTile = n
	return b
}
func (b Builder) WithBufferSize(n int) Builder { b.bufferSize = n; return b }
func (b Builder) WithHopCost(c HopCost) Builder {
	b.defaultHop = c
	return b
}
func (b Builder) WithDefaultCore(c Core) Builder {
	b.defaultCore = c
	return b
}

// Build lays out a width*height mesh of tiles, each with coresPerTile
// cores initialised from the default core template, all four hop
// directions set to the same HopCost (spec.md §3's per-tile "four
// directional hop energy/latency pairs").
func (b Builder) Build() Architecture {
	arch := Architecture{
		Noc: NocConfig{
			Width:           b.width,
			Height:          b.height,
			MaxCoresPerTile: b.coresPerTile,
			BufferSize:      b.bufferSize,
		},
	}

	tileID := 0
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			t := Tile{
				X: x, Y: y,
				North: b.defaultHop, East: b.defaultHop,
				South: b.defaultHop, West: b.defaultHop,
			}
			for offset := 0; offset < b.coresPerTile; offset++ {
				core := b.defaultCore
				core.ID = tileID*b.coresPerTile + offset
				core.Offset = offset
				t.Cores = append(t.Cores, core)
			}
			arch.Tiles = append(arch.Tiles, t)
			tileID++
		}
	}

	return arch
}
