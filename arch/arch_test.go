package arch

import "testing"

func TestParseBufferPosition(t *testing.T) {
	tests := []struct {
		in      string
		want    BufferPosition
		wantErr bool
	}{
		{"before_dendrite", BeforeDendrite, false},
		{"dendrite", BeforeDendrite, false},
		{"before_soma", BeforeSoma, false},
		{"soma", BeforeSoma, false},
		{"before_axon_out", BeforeAxonOut, false},
		{"axon_out", BeforeAxonOut, false},
		{"bogus", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseBufferPosition(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseBufferPosition(%q): want error, got nil", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseBufferPosition(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBufferPosition(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func testArchitecture() *Architecture {
	return &Architecture{
		Tiles: []Tile{
			{X: 0, Y: 0, Cores: []Core{{ID: 0, Offset: 0}, {ID: 1, Offset: 1}}},
			{X: 1, Y: 0, Cores: []Core{{ID: 2, Offset: 0}}},
		},
	}
}

func TestArchitectureCoreAt(t *testing.T) {
	a := testArchitecture()

	c, err := a.CoreAt(0, 1)
	if err != nil {
		t.Fatalf("CoreAt(0,1): unexpected error %v", err)
	}
	if c.ID != 1 {
		t.Fatalf("CoreAt(0,1): want core ID 1, got %d", c.ID)
	}

	if _, err := a.CoreAt(5, 0); err == nil {
		t.Fatal("CoreAt(5,0): want error for out-of-range tile id")
	}
	if _, err := a.CoreAt(0, 5); err == nil {
		t.Fatal("CoreAt(0,5): want error for out-of-range core offset")
	}
}

func TestArchitectureTileCount(t *testing.T) {
	a := testArchitecture()
	if got := a.TileCount(); got != 2 {
		t.Fatalf("TileCount() = %d, want 2", got)
	}
}
