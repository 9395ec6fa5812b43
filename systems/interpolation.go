package systems

import (
	"fmt"
	"time"

	"github.com/automoto/podracer-mp/components"
	"github.com/automoto/podracer-mp/config"
	"github.com/automoto/podracer-mp/shared/gamemath"
	"github.com/automoto/podracer-mp/shared/netcomponents"
	"github.com/automoto/podracer-mp/tags"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

var easings = map[string]ease.TweenFunc{
	"linear":     ease.Linear,
	"inQuad":     ease.InQuad,
	"outQuad":    ease.OutQuad,
	"inOutQuad":  ease.InOutQuad,
	"outCubic":   ease.OutCubic,
	"inOutCubic": ease.InOutCubic,
	"inOutSine":  ease.InOutSine,
}

// EaseByName resolves an InterpConfig.Ease value.
func EaseByName(name string) (ease.TweenFunc, error) {
	if name == "" {
		return ease.Linear, nil
	}
	fn, ok := easings[name]
	if !ok {
		return nil, fmt.Errorf("unknown ease %q", name)
	}
	return fn, nil
}

// Interpolator moves observed pods smoothly between replicated snapshots. A
// new snapshot starts a tween from wherever the pod is drawn now to the new
// target over one snapshot interval; after the tween ends the pod coasts on
// its replicated velocity for at most MaxExtrapolation.
type Interpolator struct {
	ease      ease.TweenFunc
	interval  float32
	maxExtrap time.Duration
	remotes   *donburi.Query
}

// NewInterpolator creates an interpolator for snapshots arriving every interval.
func NewInterpolator(cfg config.InterpConfig, interval time.Duration) (*Interpolator, error) {
	fn, err := EaseByName(cfg.Ease)
	if err != nil {
		return nil, err
	}
	return &Interpolator{
		ease:      fn,
		interval:  float32(interval.Seconds()),
		maxExtrap: cfg.MaxExtrapolation,
		remotes:   donburi.NewQuery(filter.Contains(tags.RemotePod, components.NetInterp)),
	}, nil
}

// OnSnapshot retargets d at st. Repeats of an already seen snapshot are ignored.
func (ip *Interpolator) OnSnapshot(d *components.NetInterpData, st netcomponents.NetPodStateData) {
	if !d.Initialized {
		d.Prev, d.Target, d.Rendered = st, st, st
		d.Alpha = 1
		d.Tween = nil
		d.Initialized = true
		return
	}
	if st.ReplicationCounter <= d.Target.ReplicationCounter {
		return
	}
	d.Prev = d.Rendered
	d.Target = st
	d.Alpha = 0
	d.Extrapolate = 0
	if ip.interval <= 0 {
		d.Rendered = st
		d.Alpha = 1
		d.Tween = nil
		return
	}
	d.Tween = gween.New(0, 1, ip.interval, ip.ease)
}

// Advance moves d forward by dt seconds and returns the state to draw.
func (ip *Interpolator) Advance(d *components.NetInterpData, dt float64) netcomponents.NetPodStateData {
	if !d.Initialized || dt <= 0 {
		return d.Rendered
	}

	if d.Tween != nil {
		v, done := d.Tween.Update(float32(dt))
		d.Alpha = gamemath.Clamp(float64(v), 0, 1)
		if done {
			d.Alpha = 1
			d.Tween = nil
		}
		d.Rendered = *netcomponents.LerpNetPodState(d.Prev, d.Target, d.Alpha)
		return d.Rendered
	}

	left := ip.maxExtrap - d.Extrapolate
	if left <= 0 {
		return d.Rendered
	}
	step := time.Duration(dt * float64(time.Second))
	if step > left {
		step = left
	}
	d.Extrapolate += step

	secs := step.Seconds()
	d.Rendered.Position = d.Rendered.Position.Add(d.Rendered.LinearVelocity.Mul(secs))
	d.Rendered.Rotation.Yaw = gamemath.NormalizeAxis(d.Rendered.Rotation.Yaw + d.Rendered.AngularVelocity[2]*secs)
	return d.Rendered
}

// Update advances every remote pod in world and publishes the drawn state to
// its NetPodState component.
func (ip *Interpolator) Update(world donburi.World, dt float64) {
	ip.remotes.Each(world, func(entry *donburi.Entry) {
		d := components.NetInterp.Get(entry)
		netcomponents.NetPodState.SetValue(entry, ip.Advance(d, dt))
	})
}
