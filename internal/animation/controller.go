// Package animation drives skeletal animation for one skinned bundle:
// locomotion blending, one-shot triggered clips with transitions, upper
// and lower body splitting, look-at offsets, and the half-precision joint
// matrix texture consumed by the renderer.
package animation

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-anim/internal/logger"
	"github.com/Faultbox/midgard-anim/pkg/bundle"
	"github.com/Faultbox/midgard-anim/pkg/math"
)

// MaxBonePoses is the largest skin a controller accepts.
const MaxBonePoses = 128

// TransitionEpsilon is the shortest transition that is blended. Shorter
// transitions switch immediately.
const TransitionEpsilon = 0.02

// minPlanarSpeed is the input magnitude below which the character counts
// as standing still.
const minPlanarSpeed = 0.001

// minTierBlend is the smallest fractional speed that blends toward the
// next locomotion tier.
const minTierBlend = 0.00002

// maxTier is the topmost locomotion speed tier.
const maxTier = 3

// Default humanoid bone names.
const (
	DefaultSpineNode = "mixamorig:Spine"
	DefaultNeckNode  = "mixamorig:Neck"
)

// Controller errors.
var (
	ErrMissingSkin    = errors.New("bundle has no skin")
	ErrTooManyJoints  = errors.New("skin exceeds joint capacity")
	ErrNotInitialized = errors.New("animation controller not initialized")
	ErrClipOutOfRange = errors.New("animation clip out of range")
)

// State is the trigger state machine position.
type State int

// Controller states.
const (
	StateUpdate State = iota
	StateTriggerIn
	StateTriggerPlaying
	StateTriggerOut
)

func (s State) String() string {
	switch s {
	case StateUpdate:
		return "Update"
	case StateTriggerIn:
		return "TriggerIn"
	case StateTriggerPlaying:
		return "TriggerPlaying"
	case StateTriggerOut:
		return "TriggerOut"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// TriggerOpt modifies how a triggered clip plays.
type TriggerOpt uint8

// Trigger options.
const (
	// TriggerStanding keeps locomotion on the lower body while the
	// character moves.
	TriggerStanding TriggerOpt = 1 << iota
	// TriggerReverseOut plays the clip backward instead of blending out.
	TriggerReverseOut
)

// Config selects the skeleton layout a controller animates.
type Config struct {
	// Humanoid enables spine and neck look-at.
	Humanoid bool
	// LowerBodyStart is the first node index of the triggered layer in a
	// split pose.
	LowerBodyStart int
	// SpineNode and NeckNode name the look-at joints. Empty means the
	// mixamo defaults.
	SpineNode string
	NeckNode  string
	// LocomotionClips maps speed tiers 0..3 to clip indices. Nil means
	// {0, 1, 2, 3}.
	LocomotionClips []int
}

// Controller animates one bundle's first skin. It references the bundle
// without owning it and is not safe for concurrent use.
type Controller struct {
	bundle  *bundle.Bundle
	skin    *bundle.Skin
	backend TextureBackend
	texture TextureHandle
	log     *zap.Logger
	alive   bool

	state State

	// locomotion, locomotion blend target, triggered, triggered blend
	// target, and the last pose sent to the GPU
	poseA, poseB, poseC, poseD Pose
	resolved                   Pose

	locomotion     []int
	locomotionTime float32
	lastClip       int

	triggered         int
	triggerOpt        TriggerOpt
	triggeredNorm     float32
	transitionTime    float32
	curTransitionTime float32
	transitionOutTime float32

	spineNode, neckNode int
	spineX, spineY      float32
	neckX, neckY        float32

	rootNode       int
	lowerBodyStart int

	globals []math.Mat4
	visited []bool
	stack   []int
	texels  []uint16
}

// New binds a controller to b's first skin and creates its joint texture
// through backend.
func New(b *bundle.Bundle, backend TextureBackend, cfg Config) (*Controller, error) {
	log := logger.Named("anim")

	if len(b.Skins) == 0 {
		log.Warn("bundle has no skin, controller not created")
		return nil, ErrMissingSkin
	}
	skin := &b.Skins[0]
	numJoints := skin.NumJoints()
	if numJoints > MaxBonePoses {
		log.Warn("skin exceeds joint capacity",
			zap.Int("joints", numJoints), zap.Int("max", MaxBonePoses))
		return nil, fmt.Errorf("%w: %d joints (max %d)", ErrTooManyJoints, numJoints, MaxBonePoses)
	}
	if len(skin.InverseBindMatrices) < numJoints {
		return nil, fmt.Errorf("%w: %d inverse bind matrices for %d joints",
			bundle.ErrJointOutOfRange, len(skin.InverseBindMatrices), numJoints)
	}
	for _, j := range skin.Joints {
		if j < 0 || int(j) >= len(b.Nodes) {
			return nil, fmt.Errorf("%w: joint node %d", bundle.ErrJointOutOfRange, j)
		}
	}

	c := &Controller{
		bundle:         b,
		skin:           skin,
		backend:        backend,
		log:            log,
		state:          StateUpdate,
		poseA:          NewPose(b),
		poseB:          NewPose(b),
		poseC:          NewPose(b),
		poseD:          NewPose(b),
		resolved:       NewPose(b),
		spineNode:      -1,
		neckNode:       -1,
		rootNode:       b.FindAnimRootNode(),
		lowerBodyStart: cfg.LowerBodyStart,
		globals:        make([]math.Mat4, len(b.Nodes)),
		visited:        make([]bool, len(b.Nodes)),
		texels:         make([]uint16, numJoints*halvesPerJoint),
	}
	if c.rootNode < 0 || c.rootNode >= len(b.Nodes) {
		return nil, fmt.Errorf("%w: root node %d", bundle.ErrJointOutOfRange, c.rootNode)
	}

	if err := c.SetLocomotionClips(cfg.LocomotionClips); err != nil {
		return nil, err
	}

	if cfg.Humanoid {
		spine, neck := cfg.SpineNode, cfg.NeckNode
		if spine == "" {
			spine = DefaultSpineNode
		}
		if neck == "" {
			neck = DefaultNeckNode
		}
		c.spineNode = findBone(b, log, spine)
		c.neckNode = findBone(b, log, neck)
	}

	tex, err := backend.CreateTexture(numJoints*TexelsPerJoint, 1, c.texels)
	if err != nil {
		return nil, fmt.Errorf("creating joint texture: %w", err)
	}
	c.texture = tex
	c.alive = true

	log.Debug("controller created",
		zap.Int("joints", numJoints),
		zap.Int("root", c.rootNode),
		zap.Bool("humanoid", cfg.Humanoid))
	return c, nil
}

// findBone resolves a look-at joint by name, falling back to node 0.
func findBone(b *bundle.Bundle, log *zap.Logger, name string) int {
	n, ok := b.FindNode(name)
	if !ok {
		log.Warn("node not found, using node 0", zap.String("name", name))
	}
	return n
}

// SetLocomotionClips replaces the tier to clip table. Nil restores the
// default {0, 1, 2, 3}; entries past the clip count are clamped to the
// last clip.
func (c *Controller) SetLocomotionClips(clips []int) error {
	if clips == nil {
		clips = []int{0, 1, 2, 3}
	}
	if len(clips) == 0 || len(clips) > maxTier+1 {
		return fmt.Errorf("%w: %d locomotion tiers", ErrClipOutOfRange, len(clips))
	}
	numClips := len(c.bundle.Animations)
	table := make([]int, maxTier+1)
	for tier := range table {
		clip := clips[min(tier, len(clips)-1)]
		if clip < 0 {
			return fmt.Errorf("%w: tier %d clip %d", ErrClipOutOfRange, tier, clip)
		}
		table[tier] = min(clip, numClips-1)
	}
	c.locomotion = table
	c.lastClip = table[0]
	return nil
}

// State returns the current state machine position.
func (c *Controller) State() State {
	return c.state
}

// IsTriggered reports whether a triggered clip is active.
func (c *Controller) IsTriggered() bool {
	return c.state != StateUpdate
}

// TriggerAnim starts a one-shot clip. It returns false when a trigger is
// already active or clip does not exist.
func (c *Controller) TriggerAnim(clip int, transitionIn, transitionOut float32, opts TriggerOpt) bool {
	if c.IsTriggered() {
		return false
	}
	if clip < 0 || clip >= len(c.bundle.Animations) {
		c.log.Warn("trigger clip out of range", zap.Int("clip", clip))
		return false
	}

	c.triggered = clip
	c.triggerOpt = opts
	c.triggeredNorm = 0
	c.transitionTime = transitionIn
	c.curTransitionTime = transitionIn
	c.transitionOutTime = transitionOut

	if transitionIn < TransitionEpsilon {
		c.state = StateTriggerPlaying
		return true
	}

	c.state = StateTriggerIn
	copy(c.poseC, c.resolved)
	if opts&TriggerReverseOut != 0 {
		c.locomotionTime = 0
	}
	return true
}

// TriggerTransition advances the active transition by dt, blending the
// triggered pose toward clip sampled at normTime. The blend weight grows
// so the pose lands on the target when the transition time runs out. It
// returns true once the transition is complete.
func (c *Controller) TriggerTransition(dt float32, clip int, normTime float32) bool {
	progress := c.TransitionProgress()
	step := float32(1)
	if c.transitionTime > 0 {
		step = dt / c.transitionTime
	}
	delta := math.Clamp01(step / max(1-progress, math.Epsilon))

	Sample(c.bundle, c.poseD, clip, normTime)
	MergePoses(c.poseC, c.poseD, delta)

	c.curTransitionTime -= dt
	return c.curTransitionTime <= 0
}

// TransitionProgress returns how far the active transition has run, from
// 0 at its start to 1 at its end.
func (c *Controller) TransitionProgress() float32 {
	if c.transitionTime <= 0 {
		return 1
	}
	return math.Clamp01((c.transitionTime - c.curTransitionTime) / c.transitionTime)
}

// SetLookAt sets the spine and neck offsets in radians, applied on top of
// the animated pose. It has no effect on non-humanoid controllers.
func (c *Controller) SetLookAt(spineX, spineY, neckX, neckY float32) {
	c.spineX, c.spineY = spineX, spineY
	c.neckX, c.neckY = neckX, neckY
}

// Evaluate advances the controller by dt seconds and uploads the joint
// texture. x and y are the planar movement input; |y| selects the
// locomotion speed tier. speed scales playback of every clip.
func (c *Controller) Evaluate(dt, x, y, speed float32) error {
	if c == nil || !c.alive {
		return ErrNotInitialized
	}

	wasTriggered := c.IsTriggered()
	reverseOut := c.triggerOpt&TriggerReverseOut != 0

	switch c.state {
	case StateTriggerIn:
		if c.TriggerTransition(dt, c.triggered, 0) {
			c.state = StateTriggerPlaying
		}

	case StateTriggerPlaying:
		sampleClip(c.bundle, c.poseC, c.triggered, c.triggeredNorm, false)
		c.triggeredNorm = math.Clamp01(c.triggeredNorm + speed*c.clipStep(c.triggered)*dt)
		if c.triggeredNorm >= 1 {
			c.triggeredNorm = 0
			c.transitionTime = c.transitionOutTime
			c.curTransitionTime = c.transitionOutTime
			if !reverseOut && c.transitionOutTime < TransitionEpsilon {
				c.state = StateUpdate
			} else {
				c.state = StateTriggerOut
			}
		}

	case StateTriggerOut:
		if reverseOut {
			sampleClip(c.bundle, c.poseC, c.triggered, c.triggeredNorm, true)
			c.triggeredNorm = math.Clamp01(c.triggeredNorm + speed*c.clipStep(c.triggered)*dt)
			if c.triggeredNorm >= 1 {
				c.triggeredNorm = 0
				c.state = StateUpdate
			}
		} else if c.TriggerTransition(dt, c.lastClip, c.locomotionTime) {
			c.state = StateUpdate
		}
	}

	moving := math.Hypot(x, y) > minPlanarSpeed
	standing := c.triggerOpt&TriggerStanding != 0

	c.lastClip = c.locomotion[0]
	if !wasTriggered || (standing && moving) {
		c.evaluateLocomotion(dt, y, speed)
	}

	switch {
	case !wasTriggered:
		copy(c.resolved, c.poseA)
	case standing && moving:
		SplitPose(c.resolved, c.poseA, c.poseC, c.lowerBodyStart)
	default:
		copy(c.resolved, c.poseC)
	}
	return c.upload(c.resolved)
}

// evaluateLocomotion samples the speed tier clips into poseA and advances
// the shared locomotion clock.
func (c *Controller) evaluateLocomotion(dt, y, speed float32) {
	y = math.Abs(y)
	tier := min(int(y), maxTier)
	clip := c.locomotion[tier]
	Sample(c.bundle, c.poseA, clip, c.locomotionTime)

	if blend := math.Fract(y); tier != maxTier && blend > minTierBlend {
		clip = c.locomotion[tier+1]
		Sample(c.bundle, c.poseB, clip, c.locomotionTime)
		MergePoses(c.poseA, c.poseB, math.EaseOut(blend))
	}

	c.locomotionTime = math.Fract(c.locomotionTime + speed*c.clipStep(clip)*dt)
	c.lastClip = clip
}

// clipStep converts seconds to normalized clip time.
func (c *Controller) clipStep(clip int) float32 {
	if clip < 0 || clip >= len(c.bundle.Animations) {
		return 0
	}
	if d := c.bundle.Animations[clip].Duration; d > 0 {
		return 1 / d
	}
	return 1
}

// PlayAnim samples clip at normTime and uploads it directly, bypassing the
// state machine.
func (c *Controller) PlayAnim(clip int, normTime float32) error {
	if c == nil || !c.alive {
		return ErrNotInitialized
	}
	if clip < 0 || clip >= len(c.bundle.Animations) {
		return fmt.Errorf("%w: %d of %d", ErrClipOutOfRange, clip, len(c.bundle.Animations))
	}
	Sample(c.bundle, c.resolved, clip, normTime)
	return c.upload(c.resolved)
}

// Pose returns the pose uploaded by the last Evaluate or PlayAnim.
func (c *Controller) Pose() Pose {
	return c.resolved
}

// Globals returns the global node matrices of the last upload.
func (c *Controller) Globals() []math.Mat4 {
	return c.globals
}

// JointTexels returns the half-float joint buffer of the last upload:
// three RGBA texels per joint holding the rows of the skinning matrix.
func (c *Controller) JointTexels() []uint16 {
	return c.texels
}

// Texture returns the backend handle of the joint texture.
func (c *Controller) Texture() TextureHandle {
	return c.texture
}

// Destroy releases the joint texture. The bundle is left alone.
func (c *Controller) Destroy() {
	if c == nil || !c.alive {
		return
	}
	c.backend.DeleteTexture(c.texture)
	c.alive = false
}
