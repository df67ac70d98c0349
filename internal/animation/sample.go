package animation

import (
	"sort"

	"github.com/Faultbox/midgard-anim/pkg/bundle"
	"github.com/Faultbox/midgard-anim/pkg/math"
)

// minKeyInterval keeps the interpolation fraction finite when two keys
// share a time.
const minKeyInterval = 1e-4

// Sample resets pose to the rest pose and applies clip at normalized time
// normTime. A negative normTime plays the clip backward: -t samples the
// clip at 1-t.
func Sample(b *bundle.Bundle, pose Pose, clip int, normTime float32) {
	reverse := normTime < 0
	sampleClip(b, pose, clip, math.Abs(normTime), reverse)
}

// sampleClip takes the direction separately so a reverse request at
// progress zero is not lost to a negative zero.
func sampleClip(b *bundle.Bundle, pose Pose, clip int, normTime float32, reverse bool) {
	pose.Reset(b)
	if clip < 0 || clip >= len(b.Animations) {
		return
	}
	anim := &b.Animations[clip]

	if reverse {
		normTime = max(1-normTime, 0)
	}
	realTime := normTime * anim.Duration

	for c := range anim.Channels {
		ch := &anim.Channels[c]
		if ch.TargetPath != bundle.PathTranslation && ch.TargetPath != bundle.PathRotation {
			// morph weights are not supported; scale keeps its rest value
			continue
		}
		if ch.Sampler < 0 || int(ch.Sampler) >= len(anim.Samplers) ||
			ch.TargetNode < 0 || int(ch.TargetNode) >= len(pose) {
			continue
		}
		smp := &anim.Samplers[ch.Sampler]
		if smp.Count() == 0 {
			continue
		}

		value := sampleKeys(smp, realTime, reverse, ch.TargetPath == bundle.PathRotation)
		if ch.TargetPath == bundle.PathRotation {
			pose[ch.TargetNode].Rotation = value.Quat()
		} else {
			pose[ch.TargetNode].Translation = value.XYZ()
		}
	}
}

// sampleKeys interpolates a track at realTime seconds.
func sampleKeys(smp *bundle.AnimSampler, realTime float32, reverse, rotation bool) math.Vec4 {
	n := smp.Count()
	if n == 1 {
		return smp.Values[0]
	}

	// last key at or before realTime, kept one short of the end so a
	// following key always exists
	begin := sort.Search(n, func(i int) bool { return smp.Times[i] > realTime }) - 1
	begin = max(0, min(begin, n-2))
	end := begin + 1

	elapsed := max(0, realTime-smp.Times[begin])
	interval := max(minKeyInterval, smp.Times[end]-smp.Times[begin])
	if reverse {
		begin, end = end, begin
		elapsed = max(0, interval-elapsed)
	}
	t := math.Clamp01(elapsed / interval)

	from, to := smp.Values[begin], smp.Values[end]
	if rotation {
		return from.Quat().Slerp(to.Quat(), t).Normalize().Vec4()
	}
	return math.Vec4FromVec3(from.XYZ().Lerp(to.XYZ(), t), 0)
}
