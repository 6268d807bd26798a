package narration

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/config"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/metrics"
)

// State is the playback state. There is no paused state in the public
// contract; Stop is the only interruption primitive and it always lands back
// on idle.
type State string

const (
	StateIdle     State = "idle"
	StateSpeaking State = "speaking"
)

// Options override the configured speech defaults for one call. Zero values
// keep the defaults.
type Options struct {
	Rate   float64
	Pitch  float64
	Volume float64
	Voice  string
}

// Narrator drives the speech engine with an at-most-one-active-utterance
// invariant: starting a new utterance atomically cancels the previous one.
// The generation counter suppresses late callbacks from cancelled
// utterances, so a cancelled utterance never reports completion.
type Narrator struct {
	engine Engine
	cfg    config.NarrationConfig
	log    *zap.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	active     chan<- error

	voiceCached bool
	voice       *Voice
}

// NewNarrator creates a narrator on the given engine. An absent engine is
// reported here, once, rather than on every Speak.
func NewNarrator(engine Engine, cfg config.NarrationConfig, log *zap.Logger) (*Narrator, error) {
	if engine == nil {
		return nil, ErrUnsupported
	}
	if _, err := engine.Voices(); err != nil {
		return nil, ErrUnsupported
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Narrator{
		engine: engine,
		cfg:    cfg,
		log:    log,
		state:  StateIdle,
	}, nil
}

// State returns the current playback state.
func (n *Narrator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// selectVoice picks a voice by the ordered preference policy: named voices
// first, then an exact language match, then any English voice, then the
// first available. The selection is cached under the narrator lock and
// reused until RefreshVoices.
func (n *Narrator) selectVoice() *Voice {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.voiceCached {
		return n.voice
	}
	n.voiceCached = true

	voices, err := n.engine.Voices()
	if err != nil || len(voices) == 0 {
		return nil
	}
	for _, name := range n.cfg.PreferredVoices {
		for i := range voices {
			if voices[i].Name == name {
				n.voice = &voices[i]
				return n.voice
			}
		}
	}
	for i := range voices {
		if voices[i].Language == n.cfg.Language {
			n.voice = &voices[i]
			return n.voice
		}
	}
	for i := range voices {
		if strings.HasPrefix(voices[i].Language, "en") {
			n.voice = &voices[i]
			return n.voice
		}
	}
	n.voice = &voices[0]
	return n.voice
}

// RefreshVoices drops the cached selection so the next utterance re-runs the
// preference policy against the engine's current voice list.
func (n *Narrator) RefreshVoices() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.voiceCached = false
	n.voice = nil
}

// Speak synthesizes the text and blocks until the utterance completes, the
// engine reports an error, the context is cancelled, or a later utterance or
// Stop supersedes it (ErrSuperseded). Any in-flight utterance is cancelled
// first.
func (n *Narrator) Speak(ctx context.Context, text string, opts Options) error {
	utt := Utterance{
		Text:   text,
		Rate:   n.cfg.Rate,
		Pitch:  n.cfg.Pitch,
		Volume: n.cfg.Volume,
		Voice:  n.selectVoice(),
	}
	if opts.Rate > 0 {
		utt.Rate = opts.Rate
	}
	if opts.Pitch > 0 {
		utt.Pitch = opts.Pitch
	}
	if opts.Volume > 0 {
		utt.Volume = opts.Volume
	}
	if opts.Voice != "" {
		if voices, err := n.engine.Voices(); err == nil {
			for i := range voices {
				if voices[i].Name == opts.Voice {
					utt.Voice = &voices[i]
					break
				}
			}
		}
	}

	done := make(chan error, 1)

	// Cancel-then-start under the lock so two racing Speak calls cannot
	// both believe they own the engine. The superseded caller is released
	// with ErrSuperseded; its engine callbacks stay suppressed.
	n.mu.Lock()
	if n.state == StateSpeaking {
		n.engine.Cancel()
		n.releaseLocked(ErrSuperseded)
	}
	n.generation++
	gen := n.generation
	n.state = StateSpeaking
	n.active = done
	n.mu.Unlock()

	finish := func(err error) {
		n.mu.Lock()
		stale := n.generation != gen
		if !stale {
			n.state = StateIdle
			n.active = nil
		}
		n.mu.Unlock()
		if stale {
			// A newer utterance or Stop superseded this one; its
			// completion is suppressed.
			return
		}
		select {
		case done <- err:
		default:
		}
	}

	err := n.engine.Speak(utt, Lifecycle{
		OnStart: func() {
			metrics.RecordNarrationStarted()
		},
		OnEnd: func() {
			finish(nil)
		},
		OnError: func(err error) {
			metrics.RecordNarrationFailed()
			finish(errors.Unavailable("speech engine", err))
		},
	})
	if err != nil {
		finish(errors.Unavailable("speech engine", err))
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		n.Stop()
		return ctx.Err()
	}
}

// SpeakAnalysisResult generates the script for the result and speaks it.
func (n *Narrator) SpeakAnalysisResult(ctx context.Context, result AnalysisResult, opts Options) error {
	return n.Speak(ctx, GenerateScript(result), opts)
}

// Stop cancels any in-flight utterance and returns to idle. The blocked
// Speak caller, if any, is released with ErrSuperseded. Safe to call when
// already idle.
func (n *Narrator) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.generation++
	if n.state == StateSpeaking {
		n.engine.Cancel()
		n.state = StateIdle
		n.releaseLocked(ErrSuperseded)
	}
}

// releaseLocked hands the sentinel to the blocked Speak caller. Callers hold
// n.mu.
func (n *Narrator) releaseLocked(err error) {
	if n.active == nil {
		return
	}
	select {
	case n.active <- err:
	default:
	}
	n.active = nil
}
