package main

import (
	"testing"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/midgard-anim/internal/animation"
)

func TestClipForKey(t *testing.T) {
	tests := []struct {
		key  sdl.Scancode
		clip int
		ok   bool
	}{
		{sdl.SCANCODE_1, 0, true},
		{sdl.SCANCODE_5, 4, true},
		{sdl.SCANCODE_9, 8, true},
		{sdl.SCANCODE_0, 9, true},
		{sdl.SCANCODE_W, 0, false},
	}
	for _, tt := range tests {
		clip, ok := clipForKey(tt.key)
		if clip != tt.clip || ok != tt.ok {
			t.Errorf("clipForKey(%d) = %d, %v, want %d, %v", tt.key, clip, ok, tt.clip, tt.ok)
		}
	}
}

func TestTriggerOptions(t *testing.T) {
	tests := []struct {
		shift, alt bool
		want       animation.TriggerOpt
	}{
		{false, false, 0},
		{true, false, animation.TriggerReverseOut},
		{false, true, animation.TriggerStanding},
		{true, true, animation.TriggerReverseOut | animation.TriggerStanding},
	}
	for _, tt := range tests {
		if got := triggerOptions(tt.shift, tt.alt); got != tt.want {
			t.Errorf("triggerOptions(%v, %v) = %d, want %d", tt.shift, tt.alt, got, tt.want)
		}
	}
}

func TestNextPreview(t *testing.T) {
	seq := []int{-1}
	for i := 0; i < 4; i++ {
		seq = append(seq, nextPreview(seq[len(seq)-1], 3))
	}
	want := []int{-1, 0, 1, 2, -1}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("preview cycle = %v, want %v", seq, want)
		}
	}
	if got := nextPreview(-1, 0); got != -1 {
		t.Errorf("no clips: got %d, want -1", got)
	}
}
