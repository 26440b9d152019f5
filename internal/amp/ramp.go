package amp

import (
	"github.com/go-faster/errors"

	"stablePool/internal/apperr"
)

const (
	MaxAmp             uint64 = 1_000_000
	MaxAmpChange       uint64 = 10
	MinAmpChangingTime uint64 = 86_400
)

// Ramp is a linear interpolation of the amplification coefficient between
// (InitialAmp, InitialAmpTime) and (NextAmp, NextAmpTime).
type Ramp struct {
	InitialAmp     uint64 `json:"initial_amp"`
	InitialAmpTime uint64 `json:"initial_amp_time"`
	NextAmp        uint64 `json:"next_amp"`
	NextAmpTime    uint64 `json:"next_amp_time"`
}

// Status is the observable ramp state.
type Status string

const (
	StatusStable  Status = "stable"
	StatusRamping Status = "ramping"
)

// New returns a ramp fixed at amp since now.
func New(amp, now uint64) (Ramp, error) {
	if err := validateAmp(amp); err != nil {
		return Ramp{}, err
	}
	return Ramp{InitialAmp: amp, InitialAmpTime: now, NextAmp: amp, NextAmpTime: now}, nil
}

// Effective returns the amplification at time now. Values are floored
// toward InitialAmp.
func (r Ramp) Effective(now uint64) uint64 {
	if now >= r.NextAmpTime || r.NextAmpTime <= r.InitialAmpTime {
		return r.NextAmp
	}
	if now <= r.InitialAmpTime {
		return r.InitialAmp
	}
	elapsed := now - r.InitialAmpTime
	duration := r.NextAmpTime - r.InitialAmpTime
	if r.NextAmp > r.InitialAmp {
		return r.InitialAmp + (r.NextAmp-r.InitialAmp)*elapsed/duration
	}
	return r.InitialAmp - (r.InitialAmp-r.NextAmp)*elapsed/duration
}

// Status reports whether the ramp is still moving at now.
func (r Ramp) Status(now uint64) Status {
	if now < r.NextAmpTime && r.NextAmp != r.InitialAmp {
		return StatusRamping
	}
	return StatusStable
}

// Start begins a ramp from the current effective value to nextAmp. On
// error the receiver is left unchanged.
func (r *Ramp) Start(now, nextAmp, nextAmpTime uint64) error {
	if err := validateAmp(nextAmp); err != nil {
		return err
	}
	current := r.Effective(now)
	if !withinChange(current, nextAmp) {
		return errors.Wrapf(apperr.ErrMaxAmpChange, "current %d next %d", current, nextAmp)
	}
	if now < r.InitialAmpTime+MinAmpChangingTime || nextAmpTime < now+MinAmpChangingTime {
		return errors.Wrapf(apperr.ErrMinAmpChangingTime, "now %d next time %d", now, nextAmpTime)
	}
	*r = Ramp{
		InitialAmp:     current,
		InitialAmpTime: now,
		NextAmp:        nextAmp,
		NextAmpTime:    nextAmpTime,
	}
	return nil
}

// Stop freezes the ramp at its effective value.
func (r *Ramp) Stop(now uint64) {
	current := r.Effective(now)
	*r = Ramp{InitialAmp: current, InitialAmpTime: now, NextAmp: current, NextAmpTime: now}
}

func validateAmp(amp uint64) error {
	if amp == 0 || amp > MaxAmp {
		return errors.Wrapf(apperr.ErrIncorrectAmp, "amp %d", amp)
	}
	return nil
}

func withinChange(current, next uint64) bool {
	small, large := current, next
	if small > large {
		small, large = large, small
	}
	return large <= small*MaxAmpChange
}
