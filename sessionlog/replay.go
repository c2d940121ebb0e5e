package sessionlog

import "github.com/SawyerHood/codex/engine"

// Replay feeds every recorded event into e in order and returns it.
// A nil e gets a fresh engine. The stream is left open so turns that
// were live when the recording stopped remain inspectable as live.
func Replay(log *Log, e *engine.Engine) *engine.Engine {
	if e == nil {
		e = engine.New()
	}
	for _, ev := range log.Events {
		e.Apply(ev)
	}
	return e
}

// ReplayFile loads a session log from disk and replays it into a fresh
// engine.
func ReplayFile(path string) (*engine.Engine, *Log, error) {
	log, err := LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return Replay(log, nil), log, nil
}
