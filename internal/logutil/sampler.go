package logutil

import (
	"github.com/rs/zerolog"
)

// LevelSampler keeps the events at Level or above.
type LevelSampler struct {
	Level zerolog.Level
}

func (l LevelSampler) Sample(lvl zerolog.Level) bool {
	return lvl >= l.Level
}
