package assets

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gogpu/naga"
)

// Entry points every mesh shader source must define.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)

// MeshShaderName is the file looked up in a shader directory.
const MeshShaderName = "mesh.wgsl"

//go:embed shaders/mesh.wgsl
var meshWGSL string

// DefaultMeshShader returns the built-in WGSL source.
func DefaultMeshShader() string { return meshWGSL }

// LoadShader reads the WGSL mesh shader from dir, or returns the built-in
// one when dir is empty.
func LoadShader(dir string) (string, error) {
	if dir == "" {
		return meshWGSL, nil
	}
	path := filepath.Join(dir, MeshShaderName)
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("load shader %q: %w", path, err)
	}
	return string(b), nil
}

// CompileWGSL translates WGSL to SPIR-V words ready for a shader module.
func CompileWGSL(src string) ([]uint32, error) {
	b, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("compile wgsl: %w", err)
	}
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("compile wgsl: spir-v size %d is not a whole number of words", len(b))
	}
	// SPIR-V words are little-endian
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words, nil
}
