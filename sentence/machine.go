// Package sentence turns the stream of classifier tokens into sentences.
//
// The transition table is a pure function so it can be exercised without
// real timers; the caller executes the returned effects.
package sentence

import "strings"

// IdleToken is the classifier label meaning no gesture was performed.
const IdleToken = "no gesture"

type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseBuilding Phase = "building"
)

// State is the in-progress sentence.
type State struct {
	Tokens     []string
	TimerArmed bool
}

func (s State) Phase() Phase {
	if len(s.Tokens) == 0 {
		return PhaseIdle
	}
	return PhaseBuilding
}

// Text joins the tokens collected so far.
func (s State) Text() string { return strings.Join(s.Tokens, " ") }

type EventKind int

const (
	EventPrediction EventKind = iota
	EventInactivityExpired
)

// Event is an input to the state machine. Token is set for predictions;
// Speaking carries the speech in-flight flag at expiry time.
type Event struct {
	Kind     EventKind
	Token    string
	Speaking bool
}

func Prediction(token string) Event { return Event{Kind: EventPrediction, Token: token} }

func InactivityExpired(speaking bool) Event {
	return Event{Kind: EventInactivityExpired, Speaking: speaking}
}

type EffectKind int

const (
	EffectCancelTimer EffectKind = iota
	EffectArmTimer
	EffectSpeakToken
	EffectFinalize
)

func (k EffectKind) String() string {
	switch k {
	case EffectCancelTimer:
		return "cancel_timer"
	case EffectArmTimer:
		return "arm_timer"
	case EffectSpeakToken:
		return "speak_token"
	case EffectFinalize:
		return "finalize"
	default:
		return "unknown"
	}
}

// Effect is a side effect requested by a transition. Text holds the token to
// speak or the sentence to finalize.
type Effect struct {
	Kind EffectKind
	Text string
}

// Transition applies ev to s. The input state is not modified.
func Transition(s State, ev Event) (State, []Effect) {
	next := State{Tokens: append([]string(nil), s.Tokens...), TimerArmed: s.TimerArmed}

	switch ev.Kind {
	case EventPrediction:
		if ev.Token == IdleToken {
			next.TimerArmed = true
			return next, []Effect{{Kind: EffectCancelTimer}, {Kind: EffectArmTimer}}
		}
		if ev.Token == "" {
			return next, nil
		}
		next.TimerArmed = false
		next.Tokens = append(next.Tokens, ev.Token)
		return next, []Effect{{Kind: EffectCancelTimer}, {Kind: EffectSpeakToken, Text: ev.Token}}

	case EventInactivityExpired:
		next.TimerArmed = false
		if len(next.Tokens) == 0 || ev.Speaking {
			// Skipped: the timer is not re-armed, the next idle token retries.
			return next, nil
		}
		text := next.Text()
		next.Tokens = nil
		return next, []Effect{{Kind: EffectFinalize, Text: text}}
	}

	return next, nil
}
