package scene

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubastard/vkdemo/engine/core"
)

const eps = 1e-4

func assertMatNear(t *testing.T, want, got Mat4) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], eps, "element %d (row %d col %d)", i, i%4, i/4)
	}
}

func TestMul(t *testing.T) {
	tr := Translate(1, 2, 3)
	assertMatNear(t, tr, Identity().Mul(tr))
	assertMatNear(t, tr, tr.Mul(Identity()))

	// translation after rotation moves the rotated point
	m := Translate(1, 0, 0).Mul(Rotate(Radians(90), Vec3{0, 0, 1}))
	p := m.MulVec(Vec3{1, 0, 0}, 1)
	assert.InDelta(t, 1, p[0], eps)
	assert.InDelta(t, 1, p[1], eps)
}

func TestLookAt(t *testing.T) {
	v := LookAt(Vec3{0, 2, 3}, Vec3{}, Vec3{0, 1, 0})
	eye := v.MulVec(Vec3{0, 2, 3}, 1)
	assert.InDelta(t, 0, eye[0], eps)
	assert.InDelta(t, 0, eye[1], eps)
	assert.InDelta(t, 0, eye[2], eps)

	// the target sits straight ahead, down -z
	c := v.MulVec(Vec3{}, 1)
	assert.InDelta(t, 0, c[0], eps)
	assert.InDelta(t, 0, c[1], eps)
	assert.InDelta(t, -math32.Sqrt(13), c[2], eps)
}

func TestPerspectiveDepthRange(t *testing.T) {
	p := Perspective(Radians(45), 4.0/3.0, 0.01, 8)
	near := p.MulVec(Vec3{0, 0, -0.01}, 1)
	far := p.MulVec(Vec3{0, 0, -8}, 1)
	assert.InDelta(t, 0, near[2]/near[3], eps)
	assert.InDelta(t, 1, far[2]/far[3], eps)
}

func TestCamera(t *testing.T) {
	c := NewCamera(800, 600)
	assert.InDelta(t, 4.0/3.0, c.Aspect(), eps)
	assert.Less(t, c.Proj().At(1, 1), float32(0), "y is flipped for Vulkan")

	c.SetViewport(0, 0)
	assert.InDelta(t, 4.0/3.0, c.Aspect(), eps, "minimized viewport keeps the aspect")

	c.SetZoom(10)
	assert.Equal(t, MaxZoom, c.Zoom)
	c.SetZoom(0)
	assert.Equal(t, MinZoom, c.Zoom)
}

func TestQuatMatchesAxisRotation(t *testing.T) {
	q := AngleAxis(Radians(90), Vec3{0, 1, 0})
	p := q.Mat4().MulVec(Vec3{1, 0, 0}, 1)
	assert.InDelta(t, 0, p[0], eps)
	assert.InDelta(t, -1, p[2], eps)

	// q·q is a half turn
	p = q.Mul(q).Mat4().MulVec(Vec3{1, 0, 0}, 1)
	assert.InDelta(t, -1, p[0], eps)
}

func TestTrackballMapToSphere(t *testing.T) {
	tb := NewTrackball(800, 600)

	v := tb.MapToSphere(400, 300)
	assert.InDelta(t, 1, v[2], eps, "center maps to the pole")

	for _, p := range [][2]float32{{0, 0}, {800, 600}, {400, 0}, {10000, -50}} {
		v := tb.MapToSphere(p[0], p[1])
		assert.InDelta(t, 1, v.Len(), eps)
		assert.Greater(t, v[2], float32(0))
	}

	// screen y grows downward, sphere y upward
	up := tb.MapToSphere(400, 100)
	assert.Greater(t, up[1], float32(0))
}

func TestTrackballDrag(t *testing.T) {
	tb := NewTrackball(800, 600)
	tb.StartTracking(400, 300)
	require.True(t, tb.Tracking())

	tb.Move(400.5, 300)
	assert.Equal(t, QuatIdentity(), tb.Orientation(), "tiny drags do not rotate")

	tb.Move(600, 300)
	q := tb.Orientation()
	assert.InDelta(t, 1, q.Len(), eps)
	assert.Greater(t, q.Y, float32(0), "dragging right turns about +y")
	assert.InDelta(t, 0, q.X, eps)

	tb.StopTracking()
	assert.False(t, tb.Tracking())

	// a new drag composes with the previous rotation
	tb.StartTracking(400, 300)
	tb.Move(400, 300)
	assert.Equal(t, q, tb.Orientation())

	tb.Restart()
	assertMatNear(t, Identity(), tb.Rotation())
}

func TestOrbitController(t *testing.T) {
	e := &core.Engine{Input: core.NewInput()}
	oc := NewOrbitController(800, 600)

	// the initial model is a pure rotation
	m := oc.Model()
	assert.InDelta(t, 1, Vec3{m[0], m[1], m[2]}.Len(), eps)

	press := core.EventMouseButton{Button: core.MouseButtonLeft, Down: true}
	e.Input.Handle(core.EventMouseMove{X: 400, Y: 300})
	e.Input.Handle(press)
	assert.True(t, oc.HandleEvent(e, press))
	assert.True(t, oc.Trackball.Tracking())

	assert.True(t, oc.HandleEvent(e, core.EventMouseMove{X: 600, Y: 300}))
	assert.NotEqual(t, QuatIdentity(), oc.Trackball.Orientation())

	assert.True(t, oc.HandleEvent(e, core.EventMouseButton{Button: core.MouseButtonLeft}))
	assert.False(t, oc.HandleEvent(e, core.EventMouseMove{X: 700, Y: 300}), "no drag without a button")

	assert.True(t, oc.HandleEvent(e, core.EventKey{Key: core.KeyR, Down: true}))
	assert.Equal(t, QuatIdentity(), oc.Trackball.Orientation())

	assert.True(t, oc.HandleEvent(e, core.EventScroll{Yoff: 1}))
	assert.InDelta(t, 0.9, oc.Camera.Zoom, eps)

	assert.False(t, oc.HandleEvent(e, core.EventSurfaceRebuilt{W: 1000, H: 500}))
	assert.InDelta(t, 2, oc.Camera.Aspect(), eps)

	u := oc.Uniforms(Vec3{2, 2, 0})
	assert.Equal(t, [4]float32{2, 2, 0, 1}, u.LightPos)
	assert.Equal(t, [16]float32(oc.Camera.Proj()), u.Proj)
}
