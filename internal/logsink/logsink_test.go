package logsink

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/faultline/internal/fault"
	"git.home.luguber.info/inful/faultline/internal/severity"
)

type entry struct {
	level   Level
	message string
	fields  map[string]any
}

type memorySink struct{ entries []entry }

func (m *memorySink) Log(level Level, message string, fields map[string]any) {
	m.entries = append(m.entries, entry{level, message, fields})
}

func sealed(code severity.Code, msg string) *fault.Context {
	c := fault.New(code, msg).At("/app/main.go", 10).Build()
	c.Seal()
	return c
}

func TestLevelFor(t *testing.T) {
	cases := map[severity.Code]Level{
		severity.CodeError:          LevelCritical,
		severity.CodeUserError:      LevelCritical,
		severity.CodeWarning:        LevelWarning,
		severity.CodeUserWarning:    LevelWarning,
		severity.CodeNotice:         LevelNotice,
		severity.CodeStrict:         LevelNotice,
		severity.CodeDeprecated:     LevelInfo,
		severity.CodeUserDeprecated: LevelInfo,
		severity.Code(1 << 20):      LevelError,
	}
	for code, want := range cases {
		assert.Equal(t, want, LevelFor(code), "code %d", code)
	}
}

func TestSubscriber_LogsOncePerFault(t *testing.T) {
	sink := &memorySink{}
	s := NewSubscriber(sink, true, 0)

	require.NoError(t, s.Handle(sealed(severity.CodeError, "boom")))
	require.Len(t, sink.entries, 1)
	assert.Equal(t, LevelCritical, sink.entries[0].level)
	assert.Equal(t, "boom", sink.entries[0].message)
	assert.Equal(t, "/app/main.go", sink.entries[0].fields["file"])
}

func TestSubscriber_Threshold(t *testing.T) {
	sink := &memorySink{}
	s := NewSubscriber(sink, true, severity.Fatal.Mask())

	require.NoError(t, s.Handle(sealed(severity.CodeNotice, "quiet")))
	assert.Empty(t, sink.entries)

	require.NoError(t, s.Handle(sealed(severity.CodeCoreError, "loud")))
	assert.Len(t, sink.entries, 1)
}

func TestSubscriber_Disabled(t *testing.T) {
	sink := &memorySink{}
	s := NewSubscriber(sink, false, 0)
	require.NoError(t, s.Handle(sealed(severity.CodeError, "boom")))
	assert.Empty(t, sink.entries)
}

func TestSubscriber_HandlerDescribe(t *testing.T) {
	s := NewSubscriber(&memorySink{}, true, 0)
	assert.Equal(t, "(*logsink.Subscriber).Handle", s.Handler().Describe())
}

func TestSlogSink_CustomLevelNames(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		ReplaceAttr: ReplaceLevelNames,
	}))
	sink := NewSlogSink(logger)

	sink.Log(LevelCritical, "fatal thing", map[string]any{"b": 2, "a": 1})
	sink.Log(LevelNotice, "note", nil)

	out := buf.String()
	assert.Contains(t, out, "level=CRITICAL")
	assert.Contains(t, out, "level=NOTICE")
	assert.Contains(t, out, `msg="fatal thing" a=1 b=2`)
}
