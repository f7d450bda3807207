package log

import (
	"bufio"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoggerLevels(t *testing.T) {
	type logTest struct {
		with       []interface{}
		level      int
		allowedLvl int
		msg        string
		out        []string
	}

	w := func(kv ...interface{}) []interface{} { return kv }
	o := func(outs ...string) []string { return outs }

	tests := []logTest{
		{nil, InfoLevel, InfoLevel, "hello", o("hello")},
		{nil, DebugLevel, InfoLevel, "hello", nil},
		{nil, ErrorLevel, DebugLevel, "hello", o("hello")},
		{nil, WarnLevel, ErrorLevel, "hello", nil},
		{w("trade", "abc"), WarnLevel, InfoLevel, "hello", o("trade", "abc", "hello")},
	}

	for _, test := range tests {
		var b bytes.Buffer
		writer := bufio.NewWriter(&b)
		logger := New(zapcore.AddSync(writer), test.allowedLvl, true)
		if test.with != nil {
			logger = logger.With(test.with...)
		}

		var logging func(...interface{})
		switch test.level {
		case InfoLevel:
			logging = logger.Info
		case DebugLevel:
			logging = logger.Debug
		case WarnLevel:
			logging = logger.Warn
		case ErrorLevel:
			logging = logger.Error
		default:
			t.FailNow()
		}

		logging("msg=", test.msg)
		require.NoError(t, writer.Flush())

		if test.out == nil {
			require.Empty(t, b.String())
			continue
		}
		for _, s := range test.out {
			require.Contains(t, b.String(), s)
		}
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	require.Equal(t, DebugLevel, lvl)

	_, err = ParseLevel("loud")
	require.Error(t, err)
}

func TestContextLogger(t *testing.T) {
	var b bytes.Buffer
	l := New(zapcore.AddSync(&b), InfoLevel, false).Named("ctx")
	ctx := ToContext(context.Background(), l)

	FromContextOrDefault(ctx).Infow("stored", "k", "v")
	require.Contains(t, b.String(), "stored")
	require.Contains(t, b.String(), "ctx")

	require.NotNil(t, FromContextOrDefault(context.Background()))
}
