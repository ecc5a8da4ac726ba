package vkbackend

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/hubastard/vkdemo/engine/assets"
	"github.com/hubastard/vkdemo/engine/colors"
	"github.com/hubastard/vkdemo/engine/core"
	"github.com/hubastard/vkdemo/engine/gfx/frame"
)

// Window is what the backend needs from the platform window on top of
// core.Window.
type Window interface {
	core.Window
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
}

// RendererVK draws one textured, lit mesh into a window surface. The frame
// lifecycle itself is delegated to a frame.Loop.
type RendererVK struct {
	win    Window
	cfg    core.Config
	events *core.EventQueue
	log    *slog.Logger

	inst    *instance
	surface vk.Surface
	dev     *Device
	res     releaser

	samples    int
	clear      colors.Color
	spirv      []uint32
	setLayout  vk.DescriptorSetLayout
	pipeLayout vk.PipelineLayout
	pass       *renderPass
	pipeline   vk.Pipeline

	vertices   *buffer
	indices    *buffer
	indexCount uint32
	tex        *texture
	ubos       []*buffer
	desc       *descriptors
	uniforms   core.Uniforms

	surfaceMgr *frame.SurfaceManager
	sync       *frame.SyncController
	targets    *frame.Targets
	loop       *frame.Loop
}

var uniformSize = int(unsafe.Sizeof(core.Uniforms{}))

// Factory adapts NewRendererVK to core.Run. scene must already be loaded.
func Factory(scene *assets.Scene, log *slog.Logger) core.RendererFactory {
	return func(win core.Window, cfg core.Config, q *core.EventQueue) (core.Renderer, error) {
		vw, ok := win.(Window)
		if !ok {
			return nil, fmt.Errorf("vulkan renderer: window %T cannot create surfaces", win)
		}
		return NewRendererVK(vw, cfg, scene, q, log)
	}
}

func NewRendererVK(win Window, cfg core.Config, scene *assets.Scene, q *core.EventQueue, log *slog.Logger) (r *RendererVK, err error) {
	if log == nil {
		log = slog.Default()
	}
	if scene == nil || scene.Mesh == nil || scene.Texture == nil || len(scene.Shader) == 0 {
		return nil, errors.New("vulkan renderer: incomplete scene")
	}
	r = &RendererVK{win: win, cfg: cfg, events: q, log: log.With("component", "renderer"), spirv: scene.Shader}
	defer func() {
		if err != nil {
			r.Shutdown()
			r = nil
		}
	}()

	if r.clear, err = cfg.ClearColor(); err != nil {
		return r, err
	}
	mode, err := cfg.PresentMode()
	if err != nil {
		return r, err
	}
	if err = r.initDevice(); err != nil {
		return r, err
	}
	if err = r.initScene(scene); err != nil {
		return r, err
	}
	if err = r.initFrames(mode); err != nil {
		return r, err
	}
	return r, nil
}

func (r *RendererVK) initDevice() error {
	c := r.cfg.Render
	inst, err := newInstance(r.cfg.Window.Title, r.win.RequiredInstanceExtensions(), c.Validation, r.log)
	if err != nil {
		return err
	}
	r.inst = inst
	r.res.push(inst.destroy)

	if r.surface, err = r.win.CreateSurface(inst.handle); err != nil {
		return err
	}
	r.res.push(func() { vk.DestroySurface(r.inst.handle, r.surface, nil) })

	g, err := pickGPU(inst.handle, r.surface, r.log)
	if err != nil {
		return err
	}
	if r.dev, err = newDevice(g, r.surface, inst.hooked, r.log); err != nil {
		return err
	}
	r.res.push(r.dev.destroy)

	r.samples = maxSamples(g.colorMSAA, g.depthMSAA, c.MaxSamples)
	r.log.Info("gpu selected", "name", g.name, "samples", r.samples)
	return nil
}

// initScene uploads the mesh and texture and creates the per-slot uniform
// buffers with their descriptor sets.
func (r *RendererVK) initScene(scene *assets.Scene) error {
	d := r.dev
	var err error
	if r.vertices, err = d.uploadBuffer(sliceBytes(scene.Mesh.Vertices), vk.BufferUsageVertexBufferBit); err != nil {
		return fmt.Errorf("vertex buffer: %w", err)
	}
	r.res.push(r.vertices.destroy)
	if r.indices, err = d.uploadBuffer(sliceBytes(scene.Mesh.Indices), vk.BufferUsageIndexBufferBit); err != nil {
		return fmt.Errorf("index buffer: %w", err)
	}
	r.res.push(r.indices.destroy)
	r.indexCount = uint32(len(scene.Mesh.Indices))

	if r.tex, err = d.createTexture(scene.Texture); err != nil {
		return fmt.Errorf("texture: %w", err)
	}
	r.res.push(func() { r.tex.destroy(d) })

	for i := 0; i < r.cfg.Render.FramesInFlight; i++ {
		ubo, err := d.createBuffer(uniformSize, vk.BufferUsageUniformBufferBit, hostVisible)
		if err != nil {
			return fmt.Errorf("uniform buffer %d: %w", i, err)
		}
		r.res.push(ubo.destroy)
		if err := ubo.mapPersistent(); err != nil {
			return err
		}
		r.ubos = append(r.ubos, ubo)
	}

	if r.setLayout, err = d.createDescriptorLayout(); err != nil {
		return err
	}
	r.res.push(func() { vk.DestroyDescriptorSetLayout(d.dev, r.setLayout, nil) })
	if r.pipeLayout, err = d.createPipelineLayout(r.setLayout); err != nil {
		return err
	}
	r.res.push(func() { vk.DestroyPipelineLayout(d.dev, r.pipeLayout, nil) })
	if r.desc, err = d.createDescriptors(r.setLayout, r.ubos, uniformSize, r.tex); err != nil {
		return err
	}
	r.res.push(func() { d.destroyDescriptors(r.desc) })

	r.log.Info("scene uploaded",
		"vertices", len(scene.Mesh.Vertices),
		"indices", r.indexCount,
		"texture", scene.Texture.Bounds().Size().String(),
		"mips", r.tex.img.spec.mips)
	return nil
}

func (r *RendererVK) initFrames(mode frame.PresentMode) error {
	prefs := frame.DefaultSurfacePreferences()
	prefs.PresentMode = mode
	p := presenter{r}
	r.surfaceMgr = frame.NewSurfaceManager(p, prefs, r.log)
	r.sync = frame.NewSyncController(r.dev)
	if err := r.sync.Init(r.cfg.Render.FramesInFlight); err != nil {
		return err
	}
	r.res.push(r.sync.Teardown)
	r.targets = frame.NewTargets(p)

	loop, err := frame.NewLoop(frame.LoopOptions{
		Window:    r.win,
		Device:    r.dev,
		Surface:   r.surfaceMgr,
		Sync:      r.sync,
		Targets:   r.targets,
		Recorder:  r,
		Samples:   r.samples,
		OnRebuild: r.onRebuild,
		Logger:    r.log,
	})
	if err != nil {
		return err
	}
	r.loop = loop
	return loop.Start()
}

func (r *RendererVK) onRebuild(cfg frame.SurfaceConfiguration) {
	if r.events != nil {
		r.events.Push(core.EventSurfaceRebuilt{W: int(cfg.Extent.Width), H: int(cfg.Extent.Height)})
	}
}

// ensurePass recreates the render pass and pipeline when the swapchain
// format changes. Called with the device idle.
func (r *RendererVK) ensurePass(format vk.Format) error {
	if r.pass != nil && r.pass.format == format {
		return nil
	}
	pass, err := r.dev.createRenderPass(format, r.samples)
	if err != nil {
		return err
	}
	pipe, err := r.dev.createPipeline(r.spirv, r.pipeLayout, pass)
	if err != nil {
		r.dev.destroyRenderPass(pass)
		return err
	}
	r.destroyPipeline()
	r.pass, r.pipeline = pass, pipe
	r.log.Debug("render pass ready", "format", format, "samples", r.samples)
	return nil
}

func (r *RendererVK) destroyPipeline() {
	if r.pipeline != nil {
		vk.DestroyPipeline(r.dev.dev, r.pipeline, nil)
		r.pipeline = nil
	}
	r.dev.destroyRenderPass(r.pass)
	r.pass = nil
}

// Prepare copies the latest uniforms into the slot's buffer. The slot's
// fence has been waited on, so the GPU no longer reads it.
func (r *RendererVK) Prepare(slot int, ext frame.Extent) error {
	if slot < 0 || slot >= len(r.ubos) {
		return fmt.Errorf("prepare: slot %d out of range", slot)
	}
	return r.ubos[slot].write(asBytes(&r.uniforms))
}

func (r *RendererVK) Record(cmd frame.CommandBuffer, slot, image int, fb frame.Framebuffer, ext frame.Extent) error {
	cb, ok := cmd.(*commandBuffer)
	if !ok {
		return fmt.Errorf("record: foreign command buffer %T", cmd)
	}
	target, ok := fb.(*framebuffer)
	if !ok {
		return fmt.Errorf("record: no framebuffer for image %d", image)
	}
	c := cb.handle
	begin := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := check(vk.BeginCommandBuffer(c, &begin), "begin commands"); err != nil {
		return err
	}

	area := vk.Rect2D{Extent: extentTo(ext)}
	clear := []vk.ClearValue{
		vk.NewClearValue(r.clear[:]),
		vk.NewClearDepthStencil(1, 0),
	}
	vk.CmdBeginRenderPass(c, &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      r.pass.handle,
		Framebuffer:     target.handle,
		RenderArea:      area,
		ClearValueCount: uint32(len(clear)),
		PClearValues:    clear,
	}, vk.SubpassContentsInline)

	vk.CmdBindPipeline(c, vk.PipelineBindPointGraphics, r.pipeline)
	vk.CmdSetViewport(c, 0, 1, []vk.Viewport{{
		Width:    float32(ext.Width),
		Height:   float32(ext.Height),
		MaxDepth: 1,
	}})
	vk.CmdSetScissor(c, 0, 1, []vk.Rect2D{area})
	vk.CmdBindDescriptorSets(c, vk.PipelineBindPointGraphics, r.pipeLayout, 0, 1,
		[]vk.DescriptorSet{r.desc.sets[slot]}, 0, nil)
	vk.CmdBindVertexBuffers(c, 0, 1, []vk.Buffer{r.vertices.handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(c, r.indices.handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(c, r.indexCount, 1, 0, 0, 0)
	vk.CmdEndRenderPass(c)

	return check(vk.EndCommandBuffer(c), "end commands")
}

func (r *RendererVK) DrawFrame() error            { return r.loop.DrawFrame() }
func (r *RendererVK) SetUniforms(u core.Uniforms) { r.uniforms = u }
func (r *RendererVK) RequestResize()              { r.loop.RequestResize() }
func (r *RendererVK) Stats() frame.Stats          { return r.loop.Stats() }
func (r *RendererVK) DeviceName() string          { return r.dev.Name() }

func (r *RendererVK) WaitIdle() error {
	if r.dev == nil {
		return nil
	}
	return r.dev.WaitIdle()
}

// ReloadShaders recompiles the mesh shader from the configured directory
// and swaps the pipeline. A compile error keeps the current pipeline.
func (r *RendererVK) ReloadShaders() error {
	src, err := assets.LoadShader(r.cfg.Scene.ShaderDir)
	if err != nil {
		return err
	}
	spirv, err := assets.CompileWGSL(src)
	if err != nil {
		return err
	}
	if err := r.dev.WaitIdle(); err != nil {
		return err
	}
	pipe, err := r.dev.createPipeline(spirv, r.pipeLayout, r.pass)
	if err != nil {
		return err
	}
	vk.DestroyPipeline(r.dev.dev, r.pipeline, nil)
	r.pipeline = pipe
	r.spirv = spirv
	r.log.Info("shaders reloaded", "words", len(spirv))
	return nil
}

// Shutdown waits for the GPU and destroys everything in reverse creation
// order. Safe to call on a partially built renderer.
func (r *RendererVK) Shutdown() {
	if r.dev != nil {
		if err := r.dev.WaitIdle(); err != nil {
			r.log.Warn("wait idle on shutdown", "err", err)
		}
		if r.targets != nil {
			r.targets.Teardown()
		}
		if r.surfaceMgr != nil {
			r.surfaceMgr.Teardown()
		}
		r.destroyPipeline()
	}
	r.res.release()
	r.dev = nil
	r.loop = nil
}

// presenter connects the device to the frame package and keeps the render
// pass in step with the swapchain format.
type presenter struct{ r *RendererVK }

func (p presenter) SurfaceSupport() (frame.SurfaceSupport, error) { return p.r.dev.SurfaceSupport() }

func (p presenter) CreateSwapchain(cfg frame.SurfaceConfiguration, old frame.Swapchain) (frame.Swapchain, error) {
	sc, err := p.r.dev.CreateSwapchain(cfg, old)
	if err != nil {
		return nil, err
	}
	if err := p.r.ensurePass(vk.Format(cfg.Format)); err != nil {
		sc.Destroy()
		return nil, err
	}
	return sc, nil
}

func (p presenter) CreateColorTarget(ext frame.Extent, f frame.PixelFormat, samples int) (frame.Attachment, error) {
	return p.r.dev.CreateColorTarget(ext, f, samples)
}

func (p presenter) CreateDepthTarget(ext frame.Extent, samples int) (frame.Attachment, error) {
	return p.r.dev.CreateDepthTarget(ext, samples)
}

func (p presenter) CreateFramebuffer(ext frame.Extent, views []frame.View) (frame.Framebuffer, error) {
	if p.r.pass == nil {
		return nil, errors.New("create framebuffer: no render pass")
	}
	return p.r.dev.createFramebuffer(p.r.pass, ext, views)
}
