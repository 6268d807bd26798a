package narration

import (
	"errors"

	"go.uber.org/zap"
)

// ErrUnsupported is reported when no speech engine is available on the host.
var ErrUnsupported = errors.New("speech engine unsupported")

// ErrSuperseded is returned from a blocked Speak call whose utterance was
// cancelled by a newer utterance or by Stop. The engine fires no end callback
// for the cancelled utterance; this sentinel releases its caller.
var ErrSuperseded = errors.New("utterance superseded")

// Voice describes one available synthetic voice.
type Voice struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Default  bool   `json:"default"`
}

// Utterance is one synthesis request.
type Utterance struct {
	Text   string
	Rate   float64
	Pitch  float64
	Volume float64
	Voice  *Voice
}

// Lifecycle carries the playback callbacks for one utterance. The engine
// calls OnStart when synthesis begins and exactly one of OnEnd or OnError
// afterwards. A cancelled utterance gets neither OnEnd nor OnError.
type Lifecycle struct {
	OnStart func()
	OnEnd   func()
	OnError func(error)
}

// Engine is the external speech synthesizer. Speak begins synthesis
// asynchronously; Cancel stops the in-flight utterance without firing its
// OnEnd callback.
type Engine interface {
	Voices() ([]Voice, error)
	Speak(u Utterance, cb Lifecycle) error
	Cancel()
}

// LogEngine is a development engine that logs each utterance and completes
// it immediately. It keeps narration flows exercisable on hosts with no
// speech stack.
type LogEngine struct {
	log *zap.Logger
}

// NewLogEngine creates the logging engine.
func NewLogEngine(log *zap.Logger) *LogEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogEngine{log: log}
}

func (e *LogEngine) Voices() ([]Voice, error) {
	return []Voice{{Name: "Console", Language: "en-US", Default: true}}, nil
}

func (e *LogEngine) Speak(u Utterance, cb Lifecycle) error {
	voice := ""
	if u.Voice != nil {
		voice = u.Voice.Name
	}
	e.log.Info("narration utterance",
		zap.String("voice", voice),
		zap.Float64("rate", u.Rate),
		zap.Int("chars", len(u.Text)))

	if cb.OnStart != nil {
		cb.OnStart()
	}
	if cb.OnEnd != nil {
		cb.OnEnd()
	}
	return nil
}

func (e *LogEngine) Cancel() {}

var _ Engine = (*LogEngine)(nil)
