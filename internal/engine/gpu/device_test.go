package gpu

import "testing"

func TestMeshDataStride(t *testing.T) {
	tests := []struct {
		name       string
		data       MeshData
		wantStride int
		wantCount  int
	}{
		{"positions only", MeshData{Vertices: make([]float32, 9)}, 3, 3},
		{"with uv", MeshData{Vertices: make([]float32, 15), HasUV: true}, 5, 3},
		{"empty", MeshData{}, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.data.Stride(); got != tt.wantStride {
				t.Errorf("Stride() = %d, want %d", got, tt.wantStride)
			}
			if got := tt.data.VertexCount(); got != tt.wantCount {
				t.Errorf("VertexCount() = %d, want %d", got, tt.wantCount)
			}
		})
	}
}

func TestHandleValidity(t *testing.T) {
	if MeshHandle(0).Valid() || TextureHandle(0).Valid() {
		t.Error("zero handles must be invalid")
	}
	if !MeshHandle(1).Valid() || !TextureHandle(7).Valid() {
		t.Error("non-zero handles must be valid")
	}
}

func TestDrainErrors(t *testing.T) {
	pending := []uint32{0x0501, 0x0502}
	get := func() uint32 {
		if len(pending) == 0 {
			return 0
		}
		code := pending[0]
		pending = pending[1:]
		return code
	}
	if got := drainErrors(get); len(got) != 2 || got[0] != 0x0501 || got[1] != 0x0502 {
		t.Errorf("drainErrors() = %#x, want [0x501 0x502]", got)
	}
	if got := drainErrors(get); len(got) != 0 {
		t.Errorf("second drain = %#x, want none", got)
	}

	calls := 0
	lost := func() uint32 { calls++; return 0x0507 }
	if got := drainErrors(lost); len(got) != maxStaleErrors || calls != maxStaleErrors {
		t.Errorf("lost context: %d errors after %d calls, want %d", len(got), calls, maxStaleErrors)
	}
}

func TestClampLineWidth(t *testing.T) {
	tests := []struct {
		name  string
		width float32
		rng   [2]float32
		want  float32
	}{
		{"core profile", 2, [2]float32{1, 1}, 1},
		{"inside range", 2, [2]float32{1, 10}, 2},
		{"above range", 20, [2]float32{1, 10}, 10},
		{"below range", 0.25, [2]float32{0.5, 10}, 0.5},
		{"unknown range", 3, [2]float32{}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampLineWidth(tt.width, tt.rng); got != tt.want {
				t.Errorf("clampLineWidth(%v, %v) = %v, want %v", tt.width, tt.rng, got, tt.want)
			}
		})
	}
}
