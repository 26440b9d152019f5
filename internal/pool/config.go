package pool

import (
	"strconv"

	"github.com/go-faster/errors"

	"stablePool/internal/apperr"
)

// StartChangingAmp ramps the amplification to NextAmp by NextAmpTime.
type StartChangingAmp struct {
	NextAmp     uint64 `json:"next_amp"`
	NextAmpTime uint64 `json:"next_amp_time"`
}

// UpdateConfigMsg holds exactly one ramp action.
type UpdateConfigMsg struct {
	StartChangingAmp *StartChangingAmp `json:"start_changing_amp,omitempty"`
	StopChangingAmp  bool              `json:"stop_changing_amp,omitempty"`
}

// UpdateConfig starts or stops an amp ramp. Only the registry owner may call it.
func (p *Pool) UpdateConfig(env Env, info MessageInfo, msg UpdateConfigMsg) (Response, error) {
	if info.Sender != p.registry.Owner() {
		return Response{}, errors.Wrapf(apperr.ErrUnauthorized, "update config by %s", info.Sender)
	}
	if (msg.StartChangingAmp == nil) == !msg.StopChangingAmp {
		return Response{}, errors.Wrap(apperr.ErrInvalidMessage, "update config needs exactly one action")
	}

	next := p.state.Clone()
	if err := next.accumulate(env.Time); err != nil {
		return Response{}, errors.Wrap(err, "update config: roll forward")
	}

	var resp Response
	if start := msg.StartChangingAmp; start != nil {
		if err := next.Ramp.Start(env.Time, start.NextAmp, start.NextAmpTime); err != nil {
			return Response{}, err
		}
		resp.addAttribute("action", "start_changing_amp")
		resp.addAttribute("next_amp", strconv.FormatUint(start.NextAmp, 10))
		resp.addAttribute("next_amp_time", strconv.FormatUint(start.NextAmpTime, 10))
	} else {
		next.Ramp.Stop(env.Time)
		resp.addAttribute("action", "stop_changing_amp")
		resp.addAttribute("current_amp", strconv.FormatUint(next.Ramp.InitialAmp, 10))
	}
	p.commit(next)
	return resp, nil
}
