package scene

const (
	MinZoom float32 = 0.1
	MaxZoom float32 = 3
)

// Camera is a perspective camera looking at a fixed point. Zoom scales the
// vertical field of view.
type Camera struct {
	Near, Far float32
	FovY      float32 // degrees
	Zoom      float32
	Eye       Vec3
	Center    Vec3
	Up        Vec3

	aspect     float32
	proj, view Mat4
}

// NewCamera returns the demo camera: 45° at (0,2,3) looking at the origin.
func NewCamera(width, height int) *Camera {
	c := &Camera{
		Near:   0.01,
		Far:    8,
		FovY:   45,
		Zoom:   1,
		Eye:    Vec3{0, 2, 3},
		Center: Vec3{0, 0, 0},
		Up:     Vec3{0, 1, 0},
		aspect: 1,
	}
	c.SetViewport(width, height)
	c.view = LookAt(c.Eye, c.Center, c.Up)
	return c
}

// SetViewport updates the aspect ratio. A zero-area viewport keeps the
// previous one.
func (c *Camera) SetViewport(width, height int) {
	if width > 0 && height > 0 {
		c.aspect = float32(width) / float32(height)
	}
	c.recalculate()
}

func (c *Camera) SetZoom(z float32) {
	c.Zoom = min(max(z, MinZoom), MaxZoom)
	c.recalculate()
}

func (c *Camera) Aspect() float32 { return c.aspect }
func (c *Camera) Proj() Mat4      { return c.proj }
func (c *Camera) View() Mat4      { return c.view }

func (c *Camera) recalculate() {
	c.proj = Perspective(Radians(c.FovY)*c.Zoom, c.aspect, c.Near, c.Far)
	// Vulkan clip space has y pointing down
	c.proj[5] *= -1
}
