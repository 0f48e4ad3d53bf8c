package logutil

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
)

func TestLevelSampler(t *testing.T) {
	tests := []struct {
		level zerolog.Level
		want  bool
	}{
		{level: zerolog.DebugLevel, want: false},
		{level: zerolog.InfoLevel, want: false},
		{level: zerolog.WarnLevel, want: true},
		{level: zerolog.ErrorLevel, want: true},
	}
	s := LevelSampler{Level: zerolog.WarnLevel}
	for _, tt := range tests {
		if got := s.Sample(tt.level); got != tt.want {
			t.Fatalf("%s: expected %v, got %v", tt.level, tt.want, got)
		}
	}
}

func TestSeverityHook(t *testing.T) {
	var b bytes.Buffer
	logger := zerolog.New(&b).Hook(SeverityHook{})
	logger.Warn().Msg("capture took too long")
	if got, want := b.String(), `{"level":"warn","severity":"warn","message":"capture took too long"}`+"\n"; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
