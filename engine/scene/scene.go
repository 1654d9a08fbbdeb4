package scene

import (
	"fmt"
	"unsafe"

	"github.com/google/uuid"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// materialGamma converts authoring-space sRGB-like colour values to the
// linear space the shaders expect.
const materialGamma float32 = 2.2

/**
 * @brief Geometry is one device-resident entry in the model store: one per
 * distinct loaded asset, created at load time, destroyed at scene teardown.
 */
type Geometry struct {
	/** @brief Debug identity, used in logs and path lookups. */
	ID          uuid.UUID
	VertexCount uint32
	IndexCount  uint32

	VertexBuffer   Buffer
	IndexBuffer    Buffer
	MatColorBuffer Buffer
	MatIndexBuffer Buffer
}

/**
 * @brief Instance places a geometry entry into the world. The position in
 * the instance table IS the instance identity: per-draw push data and the
 * top-level acceleration structure both rely on it, which is why the table
 * is append-only and never reordered.
 */
type Instance struct {
	ObjIndex    uint32
	Transform   math.Mat4
	TransformIT math.Mat4
	TexOffset   uint32
}

type Config struct {
	Allocator Allocator
	Camera    Camera
	Decoder   ImageDecoder
	Loader    MeshLoader
	/** @brief Samples accumulated before the ray path is considered converged. */
	MaxFrames int32
	Width     uint32
	Height    uint32
}

/**
 * @brief Scene owns the lifetime of all device-side geometry, material,
 * texture and acceleration data and drives the accumulation state machine.
 * Single writer: all mutation happens on the loading/frame thread.
 */
type Scene struct {
	alloc   Allocator
	camera  Camera
	decoder ImageDecoder
	loader  MeshLoader

	width  uint32
	height uint32

	models    []Geometry
	instances []Instance
	textures  []Texture
	byPath    map[string]uuid.UUID

	implicits    []metadata.ImplicitPrimitive
	implicitMats []metadata.Material
	implicitBuf  Buffer
	implMatBuf   Buffer

	cameraBuf    Buffer
	sceneDescBuf Buffer

	accum *Accumulator
	push  metadata.PushConstants

	accel     *accelState
	destroyed bool
}

func New(cfg *Config) (*Scene, error) {
	if cfg.Allocator == nil {
		return nil, fmt.Errorf("scene: allocator capability is required")
	}
	if cfg.Camera == nil {
		return nil, fmt.Errorf("scene: camera capability is required")
	}
	if cfg.MaxFrames <= 0 {
		return nil, fmt.Errorf("scene: max frames must be positive, got %d", cfg.MaxFrames)
	}
	return &Scene{
		alloc:   cfg.Allocator,
		camera:  cfg.Camera,
		decoder: cfg.Decoder,
		loader:  cfg.Loader,
		width:   cfg.Width,
		height:  cfg.Height,
		byPath:  make(map[string]uuid.UUID),
		accum:   NewAccumulator(cfg.MaxFrames),
	}, nil
}

// LoadModelFile parses the model at path through the mesh-loader capability
// and loads it with the given placement. Parse failure is fatal for the load.
func (s *Scene) LoadModelFile(path string, transform math.Mat4) error {
	if s.loader == nil {
		return fmt.Errorf("scene: no mesh loader capability configured")
	}
	core.LogInfo("Loading file: %s", path)
	mesh, err := s.loader(path)
	if err != nil {
		core.LogError("failed to parse model %s: %s", path, err)
		return err
	}
	if err := s.LoadModel(mesh, transform); err != nil {
		return err
	}
	s.byPath[path] = s.models[len(s.models)-1].ID
	return nil
}

// LoadModel converts a parsed mesh into a device-resident geometry entry and
// appends one instance placing it. Geometry and instance are appended
// together so their indices stay aligned; nothing is appended on error.
func (s *Scene) LoadModel(mesh *metadata.MeshData, transform math.Mat4) error {
	if err := validateMesh(mesh); err != nil {
		return err
	}

	// Converting from sRGB to linear.
	materials := make([]metadata.Material, len(mesh.Materials))
	copy(materials, mesh.Materials)
	if len(materials) == 0 {
		materials = append(materials, metadata.NewDefaultMaterial())
	}
	for i := range materials {
		materials[i].Linearize(materialGamma)
	}

	matIndices := mesh.MatIndices
	if len(matIndices) == 0 {
		matIndices = make([]int32, len(mesh.Indices)/3)
	}

	inst := Instance{
		ObjIndex:    uint32(len(s.models)),
		Transform:   transform,
		TransformIT: math.NewMat4Transposed(transform.Inverse()),
		TexOffset:   uint32(len(s.textures)),
	}

	model := Geometry{
		ID:          uuid.New(),
		VertexCount: uint32(len(mesh.Vertices)),
		IndexCount:  uint32(len(mesh.Indices)),
	}

	if err := s.alloc.BeginTransfer(); err != nil {
		return err
	}

	var err error
	if model.VertexBuffer, err = s.alloc.CreateBuffer(metadata.VerticesBytes(mesh.Vertices), BufferUsageVertex|RayTracingBufferUsage); err == nil {
		if model.IndexBuffer, err = s.alloc.CreateBuffer(metadata.IndicesBytes(mesh.Indices), BufferUsageIndex|RayTracingBufferUsage); err == nil {
			if model.MatColorBuffer, err = s.alloc.CreateBuffer(metadata.MaterialsBytes(materials), BufferUsageStorage); err == nil {
				model.MatIndexBuffer, err = s.alloc.CreateBuffer(metadata.MatIndicesBytes(matIndices), BufferUsageStorage)
			}
		}
	}
	if err == nil {
		err = s.createTextureImages(mesh.Textures)
	}
	if endErr := s.alloc.EndTransfer(); endErr != nil && err == nil {
		err = endErr
	}
	if err != nil {
		s.destroyGeometry(&model)
		core.LogError("model upload failed: %s", err)
		return err
	}

	s.models = append(s.models, model)
	s.instances = append(s.instances, inst)
	core.LogDebug("geometry %s loaded: %d vertices, %d indices, instance %d",
		model.ID, model.VertexCount, model.IndexCount, inst.ObjIndex)
	return nil
}

func validateMesh(mesh *metadata.MeshData) error {
	if mesh == nil || len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		return core.ErrMalformedMesh
	}
	if len(mesh.Indices)%3 != 0 {
		return core.ErrMalformedMesh
	}
	for _, idx := range mesh.Indices {
		if idx >= uint32(len(mesh.Vertices)) {
			return core.ErrMalformedMesh
		}
	}
	if len(mesh.MatIndices) != 0 && len(mesh.MatIndices) != len(mesh.Indices)/3 {
		return core.ErrMalformedMesh
	}
	return nil
}

// createTextureImages uploads one texture per filename. A texture that fails
// to decode degrades to a 1x1 magenta placeholder: a visible-error
// convention, never a load failure. The first time a scene would otherwise
// end up with zero textures, a single 1x1 opaque-white texture is created so
// the fixed-size descriptor array is never empty.
func (s *Scene) createTextureImages(paths []string) error {
	if len(paths) == 0 && len(s.textures) == 0 {
		tex, err := s.alloc.CreateTexture(metadata.NewSolidImage(255, 255, 255, 255))
		if err != nil {
			return err
		}
		s.textures = append(s.textures, tex)
		return nil
	}

	for _, path := range paths {
		img := s.decodeOrPlaceholder(path)
		tex, err := s.alloc.CreateTexture(img)
		if err != nil {
			return err
		}
		s.textures = append(s.textures, tex)
	}
	return nil
}

func (s *Scene) decodeOrPlaceholder(path string) *metadata.ImageData {
	if s.decoder == nil {
		core.LogWarn("no image decoder configured, substituting placeholder for %s", path)
		return metadata.NewSolidImage(255, 0, 255, 255)
	}
	img, err := s.decoder(path)
	if err != nil {
		core.LogWarn("failed to decode texture %s, substituting placeholder: %s", path, err)
		return metadata.NewSolidImage(255, 0, 255, 255)
	}
	return img
}

// AddImplicitSphere adds an analytic sphere; its AABB spans center±radius.
func (s *Scene) AddImplicitSphere(center math.Vec3, radius float32, materialID int32) {
	s.implicits = append(s.implicits, metadata.ImplicitPrimitive{
		Minimum:    center.SubScalar(radius),
		Maximum:    center.AddScalar(radius),
		ObjType:    metadata.ImplicitTypeSphere,
		MaterialID: materialID,
	})
}

// AddImplicitCube adds an analytic axis-aligned box.
func (s *Scene) AddImplicitCube(minimum, maximum math.Vec3, materialID int32) {
	s.implicits = append(s.implicits, metadata.ImplicitPrimitive{
		Minimum:    minimum,
		Maximum:    maximum,
		ObjType:    metadata.ImplicitTypeCube,
		MaterialID: materialID,
	})
}

// AddImplicitMaterial appends to the implicit set's private material list,
// separate from mesh materials. Colours are linearized like mesh materials.
func (s *Scene) AddImplicitMaterial(mat metadata.Material) {
	mat.Linearize(materialGamma)
	s.implicitMats = append(s.implicitMats, mat)
}

// CreateImplicitBuffers uploads the implicit primitive and material lists.
// Zero-length lists are disallowed at buffer-build time: a single
// default-valued element is substituted to keep the shader array bindings
// non-empty. That element is a binding-layout requirement, not content.
func (s *Scene) CreateImplicitBuffers() error {
	if len(s.implicits) == 0 {
		s.implicits = append(s.implicits, metadata.ImplicitPrimitive{})
	}
	if len(s.implicitMats) == 0 {
		s.implicitMats = append(s.implicitMats, metadata.Material{})
	}

	if err := s.alloc.BeginTransfer(); err != nil {
		return err
	}
	var err error
	if s.implicitBuf, err = s.alloc.CreateBuffer(metadata.ImplicitsBytes(s.implicits),
		BufferUsageStorage|BufferUsageShaderBindingTable|BufferUsageDeviceAddress|BufferUsageAccelBuildInput); err == nil {
		s.implMatBuf, err = s.alloc.CreateBuffer(metadata.MaterialsBytes(s.implicitMats), BufferUsageStorage)
	}
	if endErr := s.alloc.EndTransfer(); endErr != nil && err == nil {
		err = endErr
	}
	return err
}

// CreateCameraBuffer allocates the per-frame camera uniform. The contents
// are written every frame through the command stream.
func (s *Scene) CreateCameraBuffer() error {
	var err error
	s.cameraBuf, err = s.alloc.CreateUniformBuffer(uint64(unsafe.Sizeof(metadata.CameraMatrices{})))
	return err
}

// CreateSceneDescriptionBuffer uploads one record per instance: which
// geometry it uses, its transforms and its texture offset. Must be called
// after the last LoadModel.
func (s *Scene) CreateSceneDescriptionBuffer() error {
	records := make([]metadata.InstanceData, len(s.instances))
	for i, inst := range s.instances {
		records[i] = metadata.InstanceData{
			Transform:   inst.Transform,
			TransformIT: inst.TransformIT,
			ObjIndex:    int32(inst.ObjIndex),
			TexOffset:   int32(inst.TexOffset),
		}
	}

	if err := s.alloc.BeginTransfer(); err != nil {
		return err
	}
	var err error
	s.sceneDescBuf, err = s.alloc.CreateBuffer(metadata.InstancesBytes(records), BufferUsageStorage)
	if endErr := s.alloc.EndTransfer(); endErr != nil && err == nil {
		err = endErr
	}
	return err
}

// CameraMatrices recomputes the transient per-frame camera block from the
// camera capability.
func (s *Scene) CameraMatrices() metadata.CameraMatrices {
	aspect := float32(s.width) / float32(s.height)
	view := s.camera.ViewMatrix()
	proj := math.NewMat4Perspective(math.DegToRad(s.camera.FieldOfView()), aspect, 0.1, 1000.0)
	return metadata.CameraMatrices{
		View:        view,
		Proj:        proj,
		ViewInverse: view.Inverse(),
		ProjInverse: proj.Inverse(),
	}
}

// UpdateCameraBuffer schedules this frame's camera matrices into the camera
// uniform. The recorder fences the write against surrounding shader reads.
func (s *Scene) UpdateCameraBuffer(rec FrameRecorder) {
	matrices := s.CameraMatrices()
	rec.UpdateBuffer(s.cameraBuf, metadata.CameraMatricesBytes(&matrices))
}

// OnResize updates the output extent and forces re-accumulation.
func (s *Scene) OnResize(width, height uint32) {
	s.width = width
	s.height = height
	s.ResetFrame()
}

// ResetFrame forces the accumulation state machine to restart.
func (s *Scene) ResetFrame() {
	s.accum.Reset()
}

// Accumulator exposes the accumulation state machine, mainly for callers
// that want to log or inspect convergence.
func (s *Scene) Accumulator() *Accumulator {
	return s.accum
}

// SetLight configures the push-data light parameters shared by both
// pipelines.
func (s *Scene) SetLight(position math.Vec3, intensity float32, lightType int32) {
	s.push.LightPosition = position
	s.push.LightIntensity = intensity
	s.push.LightType = lightType
}

// Models returns the geometry store in load order.
func (s *Scene) Models() []Geometry {
	return s.models
}

// Instances returns the instance table in load order.
func (s *Scene) Instances() []Instance {
	return s.instances
}

// Textures returns the global texture array in creation order.
func (s *Scene) Textures() []Texture {
	return s.textures
}

// GeometryByPath resolves the geometry loaded from an asset path, if any.
func (s *Scene) GeometryByPath(path string) (Geometry, bool) {
	id, ok := s.byPath[path]
	if !ok {
		return Geometry{}, false
	}
	for _, m := range s.models {
		if m.ID == id {
			return m, true
		}
	}
	return Geometry{}, false
}

func (s *Scene) CameraBuffer() Buffer {
	return s.cameraBuf
}

func (s *Scene) SceneDescriptionBuffer() Buffer {
	return s.sceneDescBuf
}

func (s *Scene) ImplicitBuffer() Buffer {
	return s.implicitBuf
}

func (s *Scene) ImplicitMaterialBuffer() Buffer {
	return s.implMatBuf
}

func (s *Scene) Extent() (uint32, uint32) {
	return s.width, s.height
}

func (s *Scene) destroyGeometry(model *Geometry) {
	for _, buf := range []Buffer{model.VertexBuffer, model.IndexBuffer, model.MatColorBuffer, model.MatIndexBuffer} {
		if buf != nil {
			s.alloc.DestroyBuffer(buf)
		}
	}
}

// DestroyResources tears down everything the scene owns, in dependency
// order, exactly once. The caller destroys its pipeline, layout and pool
// first; the allocator itself is torn down by its owner afterwards.
func (s *Scene) DestroyResources() {
	if s.destroyed {
		core.LogWarn("DestroyResources called twice, ignoring")
		return
	}
	s.destroyed = true

	for _, buf := range []Buffer{s.cameraBuf, s.sceneDescBuf, s.implicitBuf, s.implMatBuf} {
		if buf != nil {
			s.alloc.DestroyBuffer(buf)
		}
	}
	s.cameraBuf, s.sceneDescBuf, s.implicitBuf, s.implMatBuf = nil, nil, nil, nil

	for i := range s.models {
		s.destroyGeometry(&s.models[i])
	}
	s.models = nil
	s.instances = nil

	for _, tex := range s.textures {
		s.alloc.DestroyTexture(tex)
	}
	s.textures = nil

	if s.accel != nil {
		s.accel.backend.Destroy()
		s.accel = nil
	}
}
