package participant

import (
	"fmt"

	pkgerrors "github.com/absmach/flparticipant/pkg/errors"
	"github.com/absmach/flparticipant/pkg/fl"
)

type SignalKind string

const (
	StandBy     SignalKind = "stand_by"
	RoundSignal SignalKind = "round"
	Finish      SignalKind = "finish"
	Reject      SignalKind = "reject"
)

// Signal is a decoded heartbeat reply. Round is meaningful for RoundSignal
// only.
type Signal struct {
	Kind  SignalKind
	Round int
}

func DecodeSignal(resp fl.HeartbeatResponse) (Signal, error) {
	switch kind := SignalKind(resp.State); kind {
	case StandBy, Finish, Reject:
		return Signal{Kind: kind}, nil
	case RoundSignal:
		if resp.Round == nil {
			return Signal{}, fmt.Errorf("heartbeat state %q without round number: %w", resp.State, pkgerrors.ErrMissingValue)
		}

		return Signal{Kind: kind, Round: *resp.Round}, nil
	default:
		return Signal{}, fmt.Errorf("heartbeat state %q: %w", resp.State, pkgerrors.ErrUnknownSignal)
	}
}

// Apply translates the signal into record mutations. The caller must hold r.
// stand_by has no phase of its own and moves the record to Waiting.
func (s Signal) Apply(r *StateRecord) error {
	phase, round, err := r.Lookup()
	if err != nil {
		return err
	}

	switch s.Kind {
	case StandBy:
		if phase != Waiting {
			return r.SetPhase(Waiting)
		}
	case RoundSignal:
		if phase != Training {
			if err := r.SetPhase(Training); err != nil {
				return err
			}
		}
		if s.Round != round {
			return r.SetRound(s.Round)
		}
	case Finish:
		if phase != Done {
			return r.SetPhase(Done)
		}
	case Reject:
		return r.SetPhase(Done)
	default:
		return fmt.Errorf("heartbeat state %q: %w", s.Kind, pkgerrors.ErrUnknownSignal)
	}

	return nil
}
