package scene

import "github.com/chewxy/math32"

// minTrackAngle is the smallest drag angle, in radians, that rotates.
const minTrackAngle = 0.01

// Trackball turns 2D pointer drags into rotations by projecting the pointer
// onto a virtual sphere centered in the viewport.
type Trackball struct {
	radius   float32
	center   [2]float32
	tracking bool
	vStart   Vec3
	qStart   Quat
	qCurrent Quat
}

func NewTrackball(width, height int) *Trackball {
	t := &Trackball{vStart: Vec3{0, 0, 1}, qStart: QuatIdentity(), qCurrent: QuatIdentity()}
	t.Init(width, height)
	return t
}

// Init sizes the sphere to the viewport. The current rotation is kept.
func (t *Trackball) Init(width, height int) {
	t.radius = float32(min(width, height)) * 0.5
	t.center = [2]float32{float32(width) * 0.5, float32(height) * 0.5}
}

// Restart resets the rotation to identity.
func (t *Trackball) Restart() { t.qCurrent = QuatIdentity() }

// MapToSphere projects a window point onto the unit sphere. Points far
// from the center land on a hyperbolic sheet so the mapping stays smooth.
func (t *Trackball) MapToSphere(px, py float32) Vec3 {
	x := px - t.center[0]
	y := -py + t.center[1]
	r2 := t.radius * t.radius
	d2 := x*x + y*y
	var z float32
	if d2 < r2/2 {
		z = math32.Sqrt(r2 - d2)
	} else {
		z = (r2 / 2) / math32.Sqrt(d2)
	}
	return Vec3{x, y, z}.Normalize()
}

// StartTracking begins a drag at the given point, which also becomes the
// sphere center.
func (t *Trackball) StartTracking(px, py float32) {
	t.center = [2]float32{px, py}
	t.vStart = t.MapToSphere(px, py)
	t.qStart = t.qCurrent
	t.tracking = true
}

func (t *Trackball) StopTracking()  { t.tracking = false }
func (t *Trackball) Tracking() bool { return t.tracking }

// Move rotates from the drag start to the given point.
func (t *Trackball) Move(px, py float32) {
	v := t.MapToSphere(px, py)
	axis := t.vStart.Cross(v)
	dot := min(max(t.vStart.Dot(v), -1), 1)
	angle := math32.Acos(dot)
	if angle < minTrackAngle {
		t.qCurrent = t.qStart
		return
	}
	q := AngleAxis(angle, axis).Normalize()
	t.qCurrent = q.Mul(t.qStart).Normalize()
}

func (t *Trackball) Orientation() Quat { return t.qCurrent }
func (t *Trackball) Rotation() Mat4    { return t.qCurrent.Mat4() }
