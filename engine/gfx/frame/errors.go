package frame

import "errors"

var (
	// ErrSurfaceUnsupported: the surface reports no formats or no present
	// modes.
	ErrSurfaceUnsupported = errors.New("frame: surface unsupported")
	// ErrResourceCreation: a sync primitive, attachment or framebuffer could
	// not be created.
	ErrResourceCreation = errors.New("frame: resource creation failed")
	// ErrDeviceLost: the device stopped responding.
	ErrDeviceLost = errors.New("frame: device lost")
	// ErrSlotNotArmed: a fence reset was attempted before the slot was
	// waited on.
	ErrSlotNotArmed = errors.New("frame: slot reset before wait")
)
