package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-anim/internal/animation"
	"github.com/Faultbox/midgard-anim/internal/assets"
	"github.com/Faultbox/midgard-anim/internal/config"
	"github.com/Faultbox/midgard-anim/internal/engine/camera"
	"github.com/Faultbox/midgard-anim/internal/engine/debug"
	"github.com/Faultbox/midgard-anim/internal/engine/input"
	"github.com/Faultbox/midgard-anim/internal/engine/renderer"
	"github.com/Faultbox/midgard-anim/internal/engine/texture"
	"github.com/Faultbox/midgard-anim/internal/engine/window"
	"github.com/Faultbox/midgard-anim/internal/logger"
	"github.com/Faultbox/midgard-anim/pkg/bundle"
	"github.com/Faultbox/midgard-anim/pkg/math"
)

// Trigger transition times in seconds.
const (
	triggerIn  = 0.2
	triggerOut = 0.25
)

// lookAtStep is the look-at change per second of a held arrow key.
const lookAtStep = 1.5

// Overlay colours.
var (
	skeletonColor = [4]float32{1, 0.85, 0.2, 1}
	boundsColor   = [4]float32{0.3, 0.8, 1, 0.6}
)

// maxDelta caps a frame's dt so a stall does not skip whole clips.
const maxDelta = 0.1

type viewer struct {
	cfg     *config.Config
	manager *assets.Manager
	name    string
	log     *zap.Logger

	win      *window.Window
	in       *input.Input
	cam      *camera.OrbitCamera
	backend  *texture.GLBackend
	bundle   *bundle.Bundle
	renderer *renderer.Renderer
	ctrl     *animation.Controller
	lines    *debug.LineRenderer
	shots    *debug.Screenshots

	showSkeleton bool
	lineBuf      []float32
	lo, hi       math.Vec3

	paused       bool
	preview      int // clip scrubbed with PlayAnim, -1 for the state machine
	previewTime  float32
	lookX, lookY float32
}

func newViewer(cfg *config.Config, manager *assets.Manager, name string) (*viewer, error) {
	v := &viewer{
		cfg:     cfg,
		manager: manager,
		name:    name,
		log:     logger.Named("viewer"),
		in:      input.New(),
		cam:     camera.NewOrbitCamera(),
		preview: -1,
		shots:   debug.NewScreenshots("screenshots", "animviewer"),
	}

	b, err := manager.LoadBundle(name)
	if err != nil {
		return nil, err
	}

	v.win, err = window.New(window.Config{
		Title:      windowTitle,
		Width:      cfg.Viewer.Width,
		Height:     cfg.Viewer.Height,
		Fullscreen: cfg.Viewer.Fullscreen,
		VSync:      cfg.Viewer.VSync,
	})
	if err != nil {
		return nil, err
	}
	v.backend = texture.NewGLBackend()

	v.lines, err = debug.NewLineRenderer()
	if err != nil {
		v.win.Close()
		return nil, err
	}

	if err := v.load(b); err != nil {
		v.lines.Close()
		v.win.Close()
		return nil, err
	}
	return v, nil
}

// load replaces the displayed bundle and everything built from it.
func (v *viewer) load(b *bundle.Bundle) error {
	imageRoot := filepath.Dir(filepath.Join(v.cfg.Assets.Root, v.name))
	images := texture.LoadImages(b, imageRoot)

	w, h := v.win.Size()
	r, err := renderer.New(b, images, w, h)
	if err != nil {
		return err
	}

	ctrl, err := animation.New(b, v.backend, animation.Config{
		Humanoid:        v.cfg.Viewer.Humanoid,
		LowerBodyStart:  v.cfg.Viewer.LowerBodyStart,
		SpineNode:       v.cfg.Animation.SpineNode,
		NeckNode:        v.cfg.Animation.NeckNode,
		LocomotionClips: v.cfg.Animation.LocomotionClips,
	})
	switch {
	case errors.Is(err, animation.ErrMissingSkin):
		v.log.Info("bundle is not skinned, showing static mesh")
	case err != nil:
		r.Close()
		return err
	}

	v.unload()
	v.bundle, v.renderer, v.ctrl = b, r, ctrl
	v.preview = -1

	if lo, hi, ok := renderer.Bounds(b); ok {
		v.lo, v.hi = lo, hi
		v.cam.FitToBounds(lo, hi)
	}
	v.updateTitle()
	v.log.Info("bundle loaded",
		zap.String("bundle", v.name),
		zap.Int("nodes", len(b.Nodes)),
		zap.Int("clips", len(b.Animations)),
		zap.Int("vertices", b.TotalVertices()))
	return nil
}

func (v *viewer) unload() {
	if v.ctrl != nil {
		v.ctrl.Destroy()
		v.ctrl = nil
	}
	if v.renderer != nil {
		v.renderer.Close()
		v.renderer = nil
	}
}

func (v *viewer) close() {
	v.unload()
	v.lines.Close()
	v.win.Close()
}

func (v *viewer) run() {
	last := time.Now()
	for {
		now := time.Now()
		dt := min(float32(now.Sub(last).Seconds()), maxDelta)
		last = now

		if v.in.Update() || v.in.IsKeyPressed(sdl.SCANCODE_ESCAPE) {
			return
		}
		v.handleEvents()
		v.reloadChanged()

		if err := v.animate(dt); err != nil {
			v.log.Error("animation failed", zap.Error(err))
			return
		}

		v.renderer.Begin()
		var joints animation.TextureHandle
		if v.ctrl != nil {
			joints = v.ctrl.Texture()
		}
		viewProj := v.cam.ViewProjection(v.renderer.Aspect())
		v.renderer.Draw(viewProj, joints)
		if v.showSkeleton {
			v.drawOverlay(viewProj)
		}
		if v.in.IsKeyPressed(sdl.SCANCODE_F12) {
			v.screenshot()
		}
		v.win.SwapBuffers()
	}
}

func (v *viewer) handleEvents() {
	for _, e := range v.in.Events() {
		switch e.Type {
		case input.EventWindowResize:
			v.renderer.Resize(e.Width, e.Height)
		case input.EventKeyDown:
			v.handleKey(e.Key)
		}
	}
	if dx, dy := v.in.Drag(); dx != 0 || dy != 0 {
		v.cam.HandleDrag(dx, dy)
	}
	if w := v.in.Wheel(); w != 0 {
		v.cam.HandleZoom(w)
	}
}

func (v *viewer) handleKey(key sdl.Scancode) {
	switch key {
	case sdl.SCANCODE_SPACE:
		v.paused = !v.paused
	case sdl.SCANCODE_TAB:
		v.cyclePreview()
	case sdl.SCANCODE_B:
		v.showSkeleton = !v.showSkeleton
	case sdl.SCANCODE_F2:
		if err := v.manager.SaveBundle(v.name, v.bundle); err != nil {
			v.log.Error("saving bundle", zap.Error(err))
		} else {
			v.log.Info("bundle saved", zap.String("bundle", v.name))
		}
	case sdl.SCANCODE_F5:
		v.manager.Invalidate(v.name)
		v.reload()
	default:
		clip, ok := clipForKey(key)
		if !ok || v.ctrl == nil {
			return
		}
		opts := triggerOptions(v.in.IsKeyHeld(sdl.SCANCODE_LSHIFT), v.in.IsKeyHeld(sdl.SCANCODE_LALT))
		if v.ctrl.TriggerAnim(clip, triggerIn, triggerOut, opts) {
			v.log.Debug("triggered clip", zap.Int("clip", clip), zap.Uint8("opts", uint8(opts)))
		}
	}
	v.updateTitle()
}

func (v *viewer) drawOverlay(viewProj math.Mat4) {
	v.lines.Draw(viewProj, debug.BoxLines(v.lo, v.hi), boundsColor)
	if v.ctrl == nil {
		return
	}
	v.lineBuf = debug.SkeletonLines(v.lineBuf, v.bundle, v.ctrl.Globals())
	v.lines.Draw(viewProj, v.lineBuf, skeletonColor)
}

func (v *viewer) screenshot() {
	w, h := v.win.Size()
	name, err := v.shots.Capture(debug.ReadPixels(w, h), w, h)
	if err != nil {
		v.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	v.log.Info("screenshot saved", zap.String("file", name))
}

// clipForKey maps the number row to clips 0..9, with 1 as clip 0.
func clipForKey(key sdl.Scancode) (int, bool) {
	switch {
	case key >= sdl.SCANCODE_1 && key <= sdl.SCANCODE_9:
		return int(key - sdl.SCANCODE_1), true
	case key == sdl.SCANCODE_0:
		return 9, true
	default:
		return 0, false
	}
}

// triggerOptions maps modifier keys to trigger options: shift plays the
// clip back out, alt keeps locomotion on the lower body.
func triggerOptions(shift, alt bool) animation.TriggerOpt {
	var opts animation.TriggerOpt
	if shift {
		opts |= animation.TriggerReverseOut
	}
	if alt {
		opts |= animation.TriggerStanding
	}
	return opts
}

// nextPreview steps through -1 (state machine) and every clip.
func nextPreview(cur, numClips int) int {
	if cur+1 >= numClips {
		return -1
	}
	return cur + 1
}

func (v *viewer) cyclePreview() {
	v.preview = nextPreview(v.preview, len(v.bundle.Animations))
	v.previewTime = 0
}

func (v *viewer) animate(dt float32) error {
	if v.ctrl == nil {
		return nil
	}
	if v.paused {
		dt = 0
	}

	v.updateLookAt(dt)

	if v.preview >= 0 {
		clip := &v.bundle.Animations[v.preview]
		if clip.Duration > 0 {
			v.previewTime += dt * v.cfg.Animation.AnimSpeed / clip.Duration
			v.previewTime -= float32(int(v.previewTime))
		}
		return v.ctrl.PlayAnim(v.preview, v.previewTime)
	}

	x, y := v.in.Axis()
	return v.ctrl.Evaluate(dt, x, y, v.cfg.Animation.AnimSpeed)
}

func (v *viewer) updateLookAt(dt float32) {
	if !v.cfg.Viewer.Humanoid {
		return
	}
	if v.in.IsKeyHeld(sdl.SCANCODE_LEFT) {
		v.lookY += lookAtStep * dt
	}
	if v.in.IsKeyHeld(sdl.SCANCODE_RIGHT) {
		v.lookY -= lookAtStep * dt
	}
	if v.in.IsKeyHeld(sdl.SCANCODE_UP) {
		v.lookX -= lookAtStep * dt
	}
	if v.in.IsKeyHeld(sdl.SCANCODE_DOWN) {
		v.lookX += lookAtStep * dt
	}
	v.lookX = min(max(v.lookX, -1), 1)
	v.lookY = min(max(v.lookY, -1.2), 1.2)

	// the spine takes a third of the turn and the neck the rest
	v.ctrl.SetLookAt(v.lookX/3, v.lookY/3, v.lookX*2/3, v.lookY*2/3)
}

// reloadChanged reloads the bundle when the watcher reports its file.
func (v *viewer) reloadChanged() {
	for {
		select {
		case name := <-v.manager.Invalidated():
			if filepath.ToSlash(filepath.Clean(name)) == filepath.ToSlash(filepath.Clean(v.name)) {
				v.reload()
			}
		default:
			return
		}
	}
}

func (v *viewer) reload() {
	b, err := v.manager.LoadBundle(v.name)
	if err == nil {
		err = v.load(b)
	}
	if err != nil {
		v.log.Warn("reload failed, keeping current bundle", zap.Error(err))
	}
}

func (v *viewer) updateTitle() {
	mode := "state machine"
	if v.preview >= 0 {
		mode = "preview " + v.bundle.Animations[v.preview].Name
	}
	state := "static"
	if v.ctrl != nil {
		state = v.ctrl.State().String()
	}
	title := fmt.Sprintf("%s - %s [%s, %s]", windowTitle, v.name, mode, state)
	if v.paused {
		title += " paused"
	}
	v.win.SetTitle(title)
}
