package loaders

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief ObjLoader parses wavefront OBJ/MTL files into the host arrays the
 * model store uploads. One loader instance is stateless and reusable.
 */
type ObjLoader struct{}

type objIndex struct {
	v, vt, vn int
}

type objState struct {
	positions []math.Vec3
	normals   []math.Vec3
	texcoords []math.Vec2

	vertices   []metadata.Vertex
	indices    []uint32
	lookup     map[objIndex]uint32
	materials  []metadata.Material
	matNames   map[string]int32
	matIndices []int32
	textures   []string
	currentMat int32
}

// Load parses the OBJ file at path. Any structural defect is returned as an
// error: geometry problems are fatal for the whole load.
func (l *ObjLoader) Load(path string) (*metadata.MeshData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrMalformedMesh, err)
	}
	defer file.Close()

	st := &objState{
		lookup:     make(map[objIndex]uint32),
		matNames:   make(map[string]int32),
		currentMat: -1,
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			vec, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %s", core.ErrMalformedMesh, lineNo, err)
			}
			st.positions = append(st.positions, vec)
		case "vn":
			vec, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %s", core.ErrMalformedMesh, lineNo, err)
			}
			st.normals = append(st.normals, vec)
		case "vt":
			if len(fields) < 3 {
				return nil, fmt.Errorf("%w: line %d: short texcoord", core.ErrMalformedMesh, lineNo)
			}
			u, err1 := parseFloat(fields[1])
			v, err2 := parseFloat(fields[2])
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("%w: line %d: bad texcoord", core.ErrMalformedMesh, lineNo)
			}
			// OBJ texcoords are bottom-left origin; the sampler expects top-left.
			st.texcoords = append(st.texcoords, math.Vec2{X: u, Y: 1.0 - v})
		case "f":
			if err := st.addFace(fields[1:]); err != nil {
				return nil, fmt.Errorf("%w: line %d: %s", core.ErrMalformedMesh, lineNo, err)
			}
		case "mtllib":
			if len(fields) < 2 {
				continue
			}
			mtlPath := filepath.Join(filepath.Dir(path), fields[1])
			if err := st.loadMaterialLib(mtlPath); err != nil {
				// A missing material library degrades to defaults; the
				// geometry itself is still usable.
				core.LogWarn("material library %s not loaded: %s", mtlPath, err)
			}
		case "usemtl":
			if len(fields) < 2 {
				continue
			}
			if id, ok := st.matNames[fields[1]]; ok {
				st.currentMat = id
			} else {
				core.LogWarn("unknown material %q, using default", fields[1])
				st.currentMat = -1
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrMalformedMesh, err)
	}

	if len(st.vertices) == 0 || len(st.indices) == 0 {
		return nil, fmt.Errorf("%w: %s contains no faces", core.ErrMalformedMesh, path)
	}

	if len(st.materials) == 0 {
		st.materials = append(st.materials, metadata.NewDefaultMaterial())
	}
	for i, m := range st.matIndices {
		if m < 0 || int(m) >= len(st.materials) {
			st.matIndices[i] = 0
		}
	}

	if len(st.normals) == 0 {
		generateNormals(st.vertices, st.indices)
	}

	return &metadata.MeshData{
		Vertices:   st.vertices,
		Indices:    st.indices,
		Materials:  st.materials,
		MatIndices: st.matIndices,
		Textures:   st.textures,
	}, nil
}

func parseFloat(s string) (float32, error) {
	f, err := strconv.ParseFloat(s, 32)
	return float32(f), err
}

func parseVec3(fields []string) (math.Vec3, error) {
	if len(fields) < 3 {
		return math.Vec3{}, fmt.Errorf("expected 3 components, got %d", len(fields))
	}
	x, err1 := parseFloat(fields[0])
	y, err2 := parseFloat(fields[1])
	z, err3 := parseFloat(fields[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return math.Vec3{}, fmt.Errorf("bad vector component")
	}
	return math.Vec3{X: x, Y: y, Z: z}, nil
}

// addFace triangulates the polygon as a fan and records one material index
// per resulting triangle.
func (st *objState) addFace(refs []string) error {
	if len(refs) < 3 {
		return fmt.Errorf("face with %d vertices", len(refs))
	}
	corners := make([]uint32, len(refs))
	for i, ref := range refs {
		idx, err := st.resolveVertex(ref)
		if err != nil {
			return err
		}
		corners[i] = idx
	}
	for i := 1; i+1 < len(corners); i++ {
		st.indices = append(st.indices, corners[0], corners[i], corners[i+1])
		st.matIndices = append(st.matIndices, st.currentMat)
	}
	return nil
}

// resolveVertex parses a face corner reference (v, v/vt, v//vn or v/vt/vn)
// and deduplicates identical corners.
func (st *objState) resolveVertex(ref string) (uint32, error) {
	parts := strings.Split(ref, "/")
	key := objIndex{v: -1, vt: -1, vn: -1}

	resolve := func(s string, count int) (int, error) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return -1, fmt.Errorf("bad face index %q", s)
		}
		if n < 0 {
			n = count + n // relative indices count from the end
		} else {
			n--
		}
		if n < 0 || n >= count {
			return -1, fmt.Errorf("face index %q out of range", s)
		}
		return n, nil
	}

	var err error
	if key.v, err = resolve(parts[0], len(st.positions)); err != nil {
		return 0, err
	}
	if len(parts) > 1 && parts[1] != "" {
		if key.vt, err = resolve(parts[1], len(st.texcoords)); err != nil {
			return 0, err
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if key.vn, err = resolve(parts[2], len(st.normals)); err != nil {
			return 0, err
		}
	}

	if idx, ok := st.lookup[key]; ok {
		return idx, nil
	}

	vertex := metadata.Vertex{
		Position: st.positions[key.v],
		Color:    math.NewVec3One(),
	}
	if key.vn >= 0 {
		vertex.Normal = st.normals[key.vn]
	}
	if key.vt >= 0 {
		vertex.Texcoord = st.texcoords[key.vt]
	}

	idx := uint32(len(st.vertices))
	st.vertices = append(st.vertices, vertex)
	st.lookup[key] = idx
	return idx, nil
}

func (st *objState) loadMaterialLib(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var current *metadata.Material
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if fields[0] == "newmtl" && len(fields) > 1 {
			mat := metadata.NewDefaultMaterial()
			st.matNames[fields[1]] = int32(len(st.materials))
			st.materials = append(st.materials, mat)
			current = &st.materials[len(st.materials)-1]
			continue
		}
		if current == nil {
			continue
		}
		switch fields[0] {
		case "Ka":
			if v, err := parseVec3(fields[1:]); err == nil {
				current.Ambient = v
			}
		case "Kd":
			if v, err := parseVec3(fields[1:]); err == nil {
				current.Diffuse = v
			}
		case "Ks":
			if v, err := parseVec3(fields[1:]); err == nil {
				current.Specular = v
			}
		case "Ke":
			if v, err := parseVec3(fields[1:]); err == nil {
				current.Emission = v
			}
		case "Tf":
			if v, err := parseVec3(fields[1:]); err == nil {
				current.Transmittance = v
			}
		case "Ns":
			if len(fields) > 1 {
				if v, err := parseFloat(fields[1]); err == nil {
					current.Shininess = v
				}
			}
		case "Ni":
			if len(fields) > 1 {
				if v, err := parseFloat(fields[1]); err == nil {
					current.IOR = v
				}
			}
		case "d":
			if len(fields) > 1 {
				if v, err := parseFloat(fields[1]); err == nil {
					current.Dissolve = v
				}
			}
		case "illum":
			if len(fields) > 1 {
				if v, err := strconv.Atoi(fields[1]); err == nil {
					current.Illum = int32(v)
				}
			}
		case "map_Kd":
			if len(fields) > 1 {
				current.TextureID = int32(len(st.textures))
				st.textures = append(st.textures, fields[len(fields)-1])
			}
		}
	}
	return scanner.Err()
}

// generateNormals accumulates area-weighted face normals per vertex. Used
// when the asset ships no vn records.
func generateNormals(vertices []metadata.Vertex, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)
		normal := edge1.Cross(edge2)

		vertices[i0].Normal = vertices[i0].Normal.Add(normal)
		vertices[i1].Normal = vertices[i1].Normal.Add(normal)
		vertices[i2].Normal = vertices[i2].Normal.Add(normal)
	}
	for i := range vertices {
		vertices[i].Normal = vertices[i].Normal.Normalized()
	}
}
