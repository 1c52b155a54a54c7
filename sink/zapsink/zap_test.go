package zapsink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/philipp01105/lumber/core"
)

func TestLevel(t *testing.T) {
	cases := map[core.Flag]zapcore.Level{
		core.FlagError:                 zapcore.ErrorLevel,
		core.FlagWarning:               zapcore.WarnLevel,
		core.FlagInfo:                  zapcore.InfoLevel,
		core.FlagDebug:                 zapcore.DebugLevel,
		core.FlagVerbose:               zapcore.DebugLevel,
		core.FlagError | core.FlagInfo: zapcore.InfoLevel,
		core.Flag(core.LevelWarning):   zapcore.WarnLevel,
	}
	for flag, want := range cases {
		assert.Equal(t, want, Level(flag), "flag %v", flag)
	}
}

func TestSink_Log(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	s := New(zap.New(obs))

	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	err := s.Log(core.NewMessage(core.MessageParams{
		Text:      "payment declined",
		Flag:      core.FlagWarning,
		Context:   3,
		File:      "/srv/billing/charge.go",
		Function:  "billing.Charge",
		Line:      88,
		Tag:       "order-17",
		Timestamp: ts,
	}))
	require.NoError(t, err)

	all := logs.All()
	require.Len(t, all, 1)
	e := all[0]
	assert.Equal(t, "payment declined", e.Message)
	assert.Equal(t, zapcore.WarnLevel, e.Level)
	assert.True(t, e.Time.Equal(ts))
	assert.Equal(t, 88, e.Caller.Line)
	assert.Equal(t, "billing.Charge", e.Caller.Function)

	ctx := e.ContextMap()
	assert.Equal(t, "WARNING", ctx["flag"])
	assert.Equal(t, int64(3), ctx["context"])
	assert.Equal(t, "order-17", ctx["tag"])
}

func TestSink_RespectsCoreLevel(t *testing.T) {
	obs, logs := observer.New(zapcore.InfoLevel)
	s := New(zap.New(obs))

	require.NoError(t, s.Log(core.NewMessage(core.MessageParams{Text: "noise", Flag: core.FlagVerbose})))
	require.NoError(t, s.Log(core.NewMessage(core.MessageParams{Text: "kept", Flag: core.FlagInfo})))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
	assert.NoError(t, s.Flush())
}
