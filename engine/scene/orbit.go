package scene

import (
	"github.com/chewxy/math32"

	"github.com/hubastard/vkdemo/engine/core"
)

// zoomStep is the zoom factor applied per scroll notch.
const zoomStep = 0.9

// OrbitController: left drag rotates the model, R resets, scroll zooms.
type OrbitController struct {
	Camera    *Camera
	Trackball *Trackball
	// InitModel is applied before the trackball rotation.
	InitModel Mat4
}

func NewOrbitController(width, height int) *OrbitController {
	return &OrbitController{
		Camera:    NewCamera(width, height),
		Trackball: NewTrackball(width, height),
		InitModel: Rotate(Radians(-90), Vec3{0, 1, 0}).Mul(Rotate(Radians(-90), Vec3{1, 0, 0})),
	}
}

// Resize re-initializes the camera and trackball for a new surface size.
func (oc *OrbitController) Resize(width, height int) {
	oc.Camera.SetViewport(width, height)
	oc.Trackball.Init(width, height)
}

// HandleEvent reports whether ev was consumed. Pointer positions come from
// e.Input, which has already seen ev.
func (oc *OrbitController) HandleEvent(e *core.Engine, ev core.Event) bool {
	switch v := ev.(type) {
	case core.EventKey:
		if v.Down && v.Key == core.KeyR {
			oc.Trackball.Restart()
			return true
		}
	case core.EventMouseButton:
		if v.Button != core.MouseButtonLeft {
			return false
		}
		if v.Down {
			x, y := e.Input.Mouse()
			oc.Trackball.StartTracking(float32(x), float32(y))
		} else {
			oc.Trackball.StopTracking()
		}
		return true
	case core.EventMouseMove:
		if oc.Trackball.Tracking() {
			oc.Trackball.Move(float32(v.X), float32(v.Y))
			return true
		}
	case core.EventScroll:
		oc.Camera.SetZoom(oc.Camera.Zoom * math32.Pow(zoomStep, float32(v.Yoff)))
		return true
	case core.EventSurfaceRebuilt:
		oc.Resize(v.W, v.H)
	}
	return false
}

func (oc *OrbitController) Model() Mat4 { return oc.Trackball.Rotation().Mul(oc.InitModel) }

// Uniforms snapshots the current transforms. lightPos is in view space.
func (oc *OrbitController) Uniforms(lightPos Vec3) core.Uniforms {
	return core.Uniforms{
		Model:    [16]float32(oc.Model()),
		View:     [16]float32(oc.Camera.View()),
		Proj:     [16]float32(oc.Camera.Proj()),
		LightPos: [4]float32{lightPos[0], lightPos[1], lightPos[2], 1},
	}
}
