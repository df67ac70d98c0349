package input

import (
	"testing"

	"github.com/veandco/go-sdl2/sdl"
)

func TestAxis(t *testing.T) {
	tests := []struct {
		name  string
		keys  []sdl.Scancode
		wantX float32
		wantY float32
	}{
		{"idle", nil, 0, 0},
		{"forward", []sdl.Scancode{sdl.SCANCODE_W}, 0, 1},
		{"back and right", []sdl.Scancode{sdl.SCANCODE_S, sdl.SCANCODE_D}, 1, -1},
		{"run", []sdl.Scancode{sdl.SCANCODE_W, sdl.SCANCODE_LSHIFT}, 0, 2},
		{"sprint", []sdl.Scancode{sdl.SCANCODE_W, sdl.SCANCODE_LCTRL, sdl.SCANCODE_LSHIFT}, 0, 3},
		{"opposites cancel", []sdl.Scancode{sdl.SCANCODE_A, sdl.SCANCODE_D}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := New()
			for _, k := range tt.keys {
				in.handleKey(true, false, k)
			}
			x, y := in.Axis()
			if x != tt.wantX || y != tt.wantY {
				t.Errorf("Axis() = (%v, %v), want (%v, %v)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestKeyTracking(t *testing.T) {
	in := New()

	in.handleKey(true, false, sdl.SCANCODE_SPACE)
	if !in.IsKeyPressed(sdl.SCANCODE_SPACE) || !in.IsKeyHeld(sdl.SCANCODE_SPACE) {
		t.Error("space should be pressed and held")
	}

	in.events = in.events[:0]
	in.handleKey(true, true, sdl.SCANCODE_SPACE)
	if in.IsKeyPressed(sdl.SCANCODE_SPACE) {
		t.Error("key repeat reported as a new press")
	}

	in.handleKey(false, false, sdl.SCANCODE_SPACE)
	if in.IsKeyHeld(sdl.SCANCODE_SPACE) {
		t.Error("space still held after key up")
	}
	if got := in.Events(); len(got) != 1 || got[0].Type != EventKeyUp {
		t.Errorf("events = %+v, want one key up", got)
	}
}

func TestMouseDrag(t *testing.T) {
	in := New()

	in.handleMotion(5, 5)
	if dx, dy := in.Drag(); dx != 0 || dy != 0 {
		t.Errorf("motion without button = (%v, %v), want none", dx, dy)
	}

	in.dragging = true
	in.handleMotion(3, -2)
	in.handleMotion(1, 1)
	if dx, dy := in.Drag(); dx != 4 || dy != -1 {
		t.Errorf("Drag() = (%v, %v), want (4, -1)", dx, dy)
	}

	in.handleWheel(1)
	in.handleWheel(2)
	if w := in.Wheel(); w != 3 {
		t.Errorf("Wheel() = %v, want 3", w)
	}
}
