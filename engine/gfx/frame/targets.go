package frame

import "fmt"

// Targets is the set of resources sized to the surface extent: the depth
// target, the optional multisample color target and one framebuffer per
// chain image.
type Targets struct {
	dev TargetDevice

	extent  Extent
	samples int
	color   Attachment
	depth   Attachment
	fbs     []Framebuffer
}

func NewTargets(dev TargetDevice) *Targets {
	return &Targets{dev: dev}
}

// Rebuild releases the current targets and creates new ones for cfg and
// chain. It is all-or-nothing: on error the set is left empty. The device
// must be idle.
func (t *Targets) Rebuild(cfg SurfaceConfiguration, chain ImageChain, samples int) (err error) {
	if cfg.Extent.IsZero() {
		return fmt.Errorf("frame: rebuild targets at zero extent %v", cfg.Extent)
	}
	if len(chain) == 0 {
		return fmt.Errorf("frame: rebuild targets with empty image chain")
	}
	if samples < 1 {
		samples = 1
	}

	t.Teardown()
	defer func() {
		if err != nil {
			t.Teardown()
		}
	}()

	if t.depth, err = t.dev.CreateDepthTarget(cfg.Extent, samples); err != nil {
		return fmt.Errorf("%w: depth target: %w", ErrResourceCreation, err)
	}
	if samples > 1 {
		if t.color, err = t.dev.CreateColorTarget(cfg.Extent, cfg.Format, samples); err != nil {
			return fmt.Errorf("%w: color target: %w", ErrResourceCreation, err)
		}
	}

	t.fbs = make([]Framebuffer, 0, len(chain))
	for i, img := range chain {
		fb, ferr := t.dev.CreateFramebuffer(cfg.Extent, t.attachments(img))
		if ferr != nil {
			return fmt.Errorf("%w: framebuffer %d: %w", ErrResourceCreation, i, ferr)
		}
		t.fbs = append(t.fbs, fb)
	}

	t.extent = cfg.Extent
	t.samples = samples
	return nil
}

// attachments orders views the way the render pass declares them:
// {msaa color, depth, resolve} or {color, depth}.
func (t *Targets) attachments(img ChainImage) []View {
	if t.color != nil {
		return []View{t.color.View(), t.depth.View(), img.View}
	}
	return []View{img.View, t.depth.View()}
}

func (t *Targets) Framebuffer(image int) Framebuffer {
	if image < 0 || image >= len(t.fbs) {
		return nil
	}
	return t.fbs[image]
}

func (t *Targets) Extent() Extent { return t.extent }
func (t *Targets) Samples() int   { return t.samples }
func (t *Targets) Len() int       { return len(t.fbs) }

// Teardown destroys framebuffers before the attachments they reference.
func (t *Targets) Teardown() {
	for i := len(t.fbs) - 1; i >= 0; i-- {
		t.fbs[i].Destroy()
	}
	t.fbs = nil
	if t.color != nil {
		t.color.Destroy()
		t.color = nil
	}
	if t.depth != nil {
		t.depth.Destroy()
		t.depth = nil
	}
	t.extent = Extent{}
	t.samples = 0
}
