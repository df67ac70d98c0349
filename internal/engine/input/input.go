// Package input turns SDL2 events into viewer actions.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// EventType classifies a processed event.
type EventType int

// Event types.
const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseWheel
)

// Event is one processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Width  int
	Height int
}

// Input collects events once per frame and tracks held keys and mouse
// movement.
type Input struct {
	events []Event
	held   map[sdl.Scancode]bool

	dragging       bool
	dragDX, dragDY float32
	wheel          float32
}

// New creates an input handler.
func New() *Input {
	return &Input{
		events: make([]Event, 0, 16),
		held:   make(map[sdl.Scancode]bool),
	}
}

// Update polls SDL events. It returns true when the window was asked to
// close.
func (i *Input) Update() bool {
	i.events = i.events[:0]
	i.dragDX, i.dragDY, i.wheel = 0, 0, 0

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})
			return true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED {
				i.events = append(i.events, Event{
					Type:   EventWindowResize,
					Width:  int(e.Data1),
					Height: int(e.Data2),
				})
			}

		case *sdl.KeyboardEvent:
			i.handleKey(e.Type == sdl.KEYDOWN, e.Repeat != 0, e.Keysym.Scancode)

		case *sdl.MouseButtonEvent:
			if e.Button == sdl.BUTTON_LEFT {
				i.dragging = e.State == sdl.PRESSED
			}

		case *sdl.MouseMotionEvent:
			i.handleMotion(float32(e.XRel), float32(e.YRel))

		case *sdl.MouseWheelEvent:
			i.handleWheel(float32(e.Y))
		}
	}
	return false
}

func (i *Input) handleKey(down, repeat bool, key sdl.Scancode) {
	if down {
		i.held[key] = true
		if !repeat {
			i.events = append(i.events, Event{Type: EventKeyDown, Key: key})
		}
		return
	}
	delete(i.held, key)
	i.events = append(i.events, Event{Type: EventKeyUp, Key: key})
}

func (i *Input) handleMotion(dx, dy float32) {
	if !i.dragging {
		return
	}
	i.dragDX += dx
	i.dragDY += dy
}

func (i *Input) handleWheel(delta float32) {
	i.wheel += delta
	i.events = append(i.events, Event{Type: EventMouseWheel})
}

// Drag returns the mouse movement with the left button held since the last
// Update.
func (i *Input) Drag() (dx, dy float32) {
	return i.dragDX, i.dragDY
}

// Wheel returns the scroll amount since the last Update.
func (i *Input) Wheel() float32 {
	return i.wheel
}

// Events returns the events of the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// IsKeyPressed reports whether key went down this frame.
func (i *Input) IsKeyPressed(key sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == key {
			return true
		}
	}
	return false
}

// IsKeyHeld reports whether key is currently down.
func (i *Input) IsKeyHeld(key sdl.Scancode) bool {
	return i.held[key]
}

// Axis returns the planar movement input from WASD. Holding shift
// doubles y and holding control triples it, reaching the faster
// locomotion tiers.
func (i *Input) Axis() (x, y float32) {
	if i.held[sdl.SCANCODE_D] {
		x++
	}
	if i.held[sdl.SCANCODE_A] {
		x--
	}
	if i.held[sdl.SCANCODE_W] {
		y++
	}
	if i.held[sdl.SCANCODE_S] {
		y--
	}
	switch {
	case i.held[sdl.SCANCODE_LCTRL]:
		y *= 3
	case i.held[sdl.SCANCODE_LSHIFT]:
		y *= 2
	}
	return x, y
}
