package assets

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Vertex is the interleaved vertex layout of the mesh pipeline.
type Vertex struct {
	Pos    [3]float32
	Color  [3]float32
	UV     [2]float32
	Normal [3]float32
}

// Mesh is indexed triangle geometry.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// Quads returns two colored quads, the second half a unit behind the first.
//
//	1 -- 0
//	|  / |
//	| /  |
//	2 -- 3
func Quads() *Mesh {
	n := [3]float32{0, 0, 1}
	quad := func(z float32) []Vertex {
		return []Vertex{
			{Pos: [3]float32{0.5, 0.5, z}, Color: [3]float32{1, 0, 0}, UV: [2]float32{1, 1}, Normal: n},
			{Pos: [3]float32{-0.5, 0.5, z}, Color: [3]float32{0, 1, 0}, UV: [2]float32{0, 1}, Normal: n},
			{Pos: [3]float32{-0.5, -0.5, z}, Color: [3]float32{0, 0, 1}, UV: [2]float32{0, 0}, Normal: n},
			{Pos: [3]float32{0.5, -0.5, z}, Color: [3]float32{1, 1, 1}, UV: [2]float32{1, 0}, Normal: n},
		}
	}
	return &Mesh{
		Vertices: append(quad(0), quad(-0.5)...),
		Indices:  []uint32{0, 1, 2, 2, 3, 0, 4, 5, 6, 6, 7, 4},
	}
}

// LoadOBJ reads a Wavefront OBJ file. See ParseOBJ.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()
	m, err := ParseOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("parse obj %q: %w", path, err)
	}
	return m, nil
}

type objIndex struct{ v, vt, vn int } // 0-based, -1 = absent

// ParseOBJ reads positions, texture coordinates, normals and faces.
// Polygons are fan-triangulated, identical corners share one vertex, V is
// flipped for a top-left image origin and vertex colors are white.
// Without normals in the file, smooth normals are computed from the faces.
func ParseOBJ(r io.Reader) (*Mesh, error) {
	var (
		pos     [][3]float32
		uvs     [][2]float32
		normals [][3]float32
		mesh    = &Mesh{}
		unique  = map[objIndex]uint32{}
		missing bool
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			p, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			pos = append(pos, [3]float32{p[0], p[1], p[2]})
		case "vt":
			p, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			uvs = append(uvs, [2]float32{p[0], p[1]})
		case "vn":
			p, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			normals = append(normals, [3]float32{p[0], p[1], p[2]})
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 corners", line)
			}
			corners := make([]uint32, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				idx, err := parseCorner(tok, len(pos), len(uvs), len(normals))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				if idx.vn < 0 {
					missing = true
				}
				id, ok := unique[idx]
				if !ok {
					id = uint32(len(mesh.Vertices))
					unique[idx] = id
					mesh.Vertices = append(mesh.Vertices, makeVertex(idx, pos, uvs, normals))
				}
				corners = append(corners, id)
			}
			for i := 1; i+1 < len(corners); i++ {
				mesh.Indices = append(mesh.Indices, corners[0], corners[i], corners[i+1])
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(mesh.Indices) == 0 {
		return nil, fmt.Errorf("no faces")
	}
	if missing {
		computeNormals(mesh)
	}
	return mesh, nil
}

func makeVertex(idx objIndex, pos [][3]float32, uvs [][2]float32, normals [][3]float32) Vertex {
	v := Vertex{Pos: pos[idx.v], Color: [3]float32{1, 1, 1}}
	if idx.vt >= 0 {
		v.UV = [2]float32{uvs[idx.vt][0], 1 - uvs[idx.vt][1]}
	}
	if idx.vn >= 0 {
		v.Normal = normals[idx.vn]
	}
	return v
}

// parseCorner reads "v", "v/vt", "v//vn" or "v/vt/vn". Negative indices
// count back from the latest element.
func parseCorner(tok string, nv, nvt, nvn int) (objIndex, error) {
	parts := strings.Split(tok, "/")
	if len(parts) > 3 {
		return objIndex{}, fmt.Errorf("bad face corner %q", tok)
	}
	idx := objIndex{-1, -1, -1}
	dst := []*int{&idx.v, &idx.vt, &idx.vn}
	limits := []int{nv, nvt, nvn}
	for i, p := range parts {
		if p == "" {
			if i == 0 {
				return objIndex{}, fmt.Errorf("face corner %q has no position", tok)
			}
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return objIndex{}, fmt.Errorf("bad face corner %q: %w", tok, err)
		}
		switch {
		case n > 0:
			n--
		case n < 0:
			n += limits[i]
		default:
			return objIndex{}, fmt.Errorf("face corner %q: index 0", tok)
		}
		if n < 0 || n >= limits[i] {
			return objIndex{}, fmt.Errorf("face corner %q out of range", tok)
		}
		*dst[i] = n
	}
	return idx, nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("want %d numbers, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

// computeNormals fills zero normals with area-weighted face normals.
func computeNormals(m *Mesh) {
	acc := make([][3]float64, len(m.Vertices))
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		pa, pb, pc := m.Vertices[a].Pos, m.Vertices[b].Pos, m.Vertices[c].Pos
		var e1, e2 [3]float64
		for k := 0; k < 3; k++ {
			e1[k] = float64(pb[k] - pa[k])
			e2[k] = float64(pc[k] - pa[k])
		}
		n := [3]float64{
			e1[1]*e2[2] - e1[2]*e2[1],
			e1[2]*e2[0] - e1[0]*e2[2],
			e1[0]*e2[1] - e1[1]*e2[0],
		}
		for _, v := range []uint32{a, b, c} {
			for k := 0; k < 3; k++ {
				acc[v][k] += n[k]
			}
		}
	}
	for i := range m.Vertices {
		if m.Vertices[i].Normal != ([3]float32{}) {
			continue
		}
		n := acc[i]
		l := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
		if l == 0 {
			continue
		}
		m.Vertices[i].Normal = [3]float32{float32(n[0] / l), float32(n[1] / l), float32(n[2] / l)}
	}
}
