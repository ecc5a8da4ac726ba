package frame

import (
	"errors"
	"fmt"
)

// InFlightFrame holds the primitives of one frame slot.
type InFlightFrame struct {
	Fence          Fence // created signaled
	ImageAvailable Semaphore
	RenderComplete Semaphore
	Commands       CommandBuffer

	// armed is set once the fence has been waited on and cleared by the
	// reset that precedes the next submission.
	armed bool
}

func (f *InFlightFrame) destroy() {
	if f.RenderComplete != nil {
		f.RenderComplete.Destroy()
	}
	if f.ImageAvailable != nil {
		f.ImageAvailable.Destroy()
	}
	if f.Fence != nil {
		f.Fence.Destroy()
	}
	*f = InFlightFrame{}
}

// SyncController owns the in-flight frame slots.
type SyncController struct {
	dev   SyncDevice
	slots []*InFlightFrame
}

func NewSyncController(dev SyncDevice) *SyncController {
	return &SyncController{dev: dev}
}

// Init creates n slots. On failure every primitive created so far is
// destroyed again.
func (c *SyncController) Init(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: frames in flight must be at least 1, got %d", ErrResourceCreation, n)
	}
	if len(c.slots) > 0 {
		return errors.New("frame: sync controller already initialized")
	}
	for i := 0; i < n; i++ {
		s, err := c.newSlot()
		if err != nil {
			c.Teardown()
			return fmt.Errorf("%w: slot %d: %w", ErrResourceCreation, i, err)
		}
		c.slots = append(c.slots, s)
	}
	return nil
}

func (c *SyncController) newSlot() (*InFlightFrame, error) {
	s := &InFlightFrame{}
	var err error
	if s.Fence, err = c.dev.CreateFence(true); err != nil {
		return nil, fmt.Errorf("fence: %w", err)
	}
	if s.ImageAvailable, err = c.dev.CreateSemaphore(); err != nil {
		s.destroy()
		return nil, fmt.Errorf("image available semaphore: %w", err)
	}
	if s.RenderComplete, err = c.dev.CreateSemaphore(); err != nil {
		s.destroy()
		return nil, fmt.Errorf("render complete semaphore: %w", err)
	}
	if s.Commands, err = c.dev.AllocateCommandBuffer(); err != nil {
		s.destroy()
		return nil, fmt.Errorf("command buffer: %w", err)
	}
	return s, nil
}

// WaitForSlot blocks until the GPU has retired the last submission made from
// slot i.
func (c *SyncController) WaitForSlot(i int) error {
	s, err := c.slot(i)
	if err != nil {
		return err
	}
	if err := s.Fence.Wait(Infinite); err != nil {
		return fmt.Errorf("wait slot %d: %w", i, err)
	}
	s.armed = true
	return nil
}

// ResetSlot un-signals the fence of slot i ahead of a new submission. It
// refuses to run unless WaitForSlot returned since the last reset, since a
// fence reset with no submission to follow would block the next wait forever.
func (c *SyncController) ResetSlot(i int) error {
	s, err := c.slot(i)
	if err != nil {
		return err
	}
	if !s.armed {
		return fmt.Errorf("slot %d: %w", i, ErrSlotNotArmed)
	}
	if err := s.Fence.Reset(); err != nil {
		return fmt.Errorf("reset slot %d: %w", i, err)
	}
	s.armed = false
	return nil
}

// Advance returns the slot after i.
func (c *SyncController) Advance(i int) int {
	if len(c.slots) == 0 {
		return 0
	}
	return (i + 1) % len(c.slots)
}

func (c *SyncController) Slot(i int) *InFlightFrame {
	s, _ := c.slot(i)
	return s
}

func (c *SyncController) Len() int { return len(c.slots) }

// Teardown destroys every slot, last first. The device must be idle.
func (c *SyncController) Teardown() {
	for i := len(c.slots) - 1; i >= 0; i-- {
		c.slots[i].destroy()
	}
	c.slots = nil
}

func (c *SyncController) slot(i int) (*InFlightFrame, error) {
	if i < 0 || i >= len(c.slots) {
		return nil, fmt.Errorf("frame: slot %d out of range [0,%d)", i, len(c.slots))
	}
	return c.slots[i], nil
}
