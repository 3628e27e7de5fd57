package logger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, format logFormat) (*slog.Logger, func() string) {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:    slog.LevelDebug,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	return slog.New(h), func() string {
		require.NoError(t, aw.Close())
		return strings.TrimSpace(buf.String())
	}
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	log, read := newTestLogger(t, formatKV)
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	LogEvent(ctx, log.With("component", "service.payouts"), slog.LevelInfo, "withdrawal.created",
		slog.String("status", "OK"),
		slog.Int64("amount", 150),
	)

	tokens := strings.Split(read(), " ")
	expected := []string{"ts=", "level=INFO", "component=service.payouts", "event=withdrawal.created", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9", "amount=150"}
	require.GreaterOrEqual(t, len(tokens), len(expected))
	for i, prefix := range expected {
		require.Truef(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	log, read := newTestLogger(t, formatJSON)
	ctx := WithFlow(WithRID(context.Background(), "rid-json"), "admin.payout")

	LogEvent(ctx, log.With("component", "service.referrals"), slog.LevelError, "referral.complete",
		slog.String("status", "fail"),
		slog.Any("err", errors.New("boom")),
	)

	line := read()
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"service.referrals"`, `"event":"referral.complete"`, `"status":"fail"`, `"rid":"rid-json"`, `"flow":"admin.payout"`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		require.Greaterf(t, idx, pos, "prefix %s out of order in %s", pref, line)
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	log, read := newTestLogger(t, formatKV)
	raw := BuildRID(123, 456, 789)
	log.InfoContext(WithRID(context.Background(), raw), "rid.test")

	line := read()
	require.Contains(t, line, "rid="+CompactRID(raw))
	require.NotContains(t, line, "rid_full=")
	require.Contains(t, line, "event=rid.test")
	require.Contains(t, line, "component=app")
}

func TestStructuredHandlerCompactRIDJSON(t *testing.T) {
	log, read := newTestLogger(t, formatJSON)
	raw := "12:34:56"
	log.InfoContext(WithRID(context.Background(), raw), "rid.test")

	line := read()
	require.Contains(t, line, `"rid":"`+CompactRID(raw)+`"`)
	require.Contains(t, line, `"rid_full":"`+raw+`"`)
	require.Contains(t, line, `"ts_unix_nano"`)
}

func TestStructuredHandlerDurationAndGroups(t *testing.T) {
	log, read := newTestLogger(t, formatKV)
	log.WithGroup("db").Info("query",
		slog.Duration("duration", 1499*time.Microsecond),
		slog.String("empty", ""),
	)

	line := read()
	require.Contains(t, line, "db.duration_ms=1")
	require.NotContains(t, line, "empty=")
}

func TestStructuredHandlerDropsUnknownOutcome(t *testing.T) {
	log, read := newTestLogger(t, formatKV)
	log.Info("x", slog.String("outcome", "weird"), slog.String("status", "Custom"))

	line := read()
	require.NotContains(t, line, "outcome=")
	require.Contains(t, line, "status=custom")
}

func TestCompactRIDPassThrough(t *testing.T) {
	require.Equal(t, "abc", CompactRID("abc"))
	require.Equal(t, "1:x:3", CompactRID("1:x:3"))
	require.Equal(t, "a.b.c", CompactRID("10:11:12"))
}

func TestSanitizeLimit(t *testing.T) {
	require.Equal(t, "ab\tc", Sanitize("a\x00b\tc\u200b"))
	require.Equal(t, "héll", SanitizeLimit("héllo", 4))
	require.Empty(t, SanitizeLimit("x", 0))
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	var got []bool
	for i := 0; i < 6; i++ {
		got = append(got, s.Allow())
	}
	require.Equal(t, []bool{true, false, false, true, false, false}, got)

	s.Set(0, 0)
	require.True(t, s.Allow())

	num, den := parseRatioSpec("2/5")
	require.Equal(t, [2]int{2, 5}, [2]int{num, den})
	num, den = parseRatioSpec("10")
	require.Equal(t, [2]int{1, 10}, [2]int{num, den})
	num, den = parseRatioSpec("off")
	require.Equal(t, [2]int{0, 0}, [2]int{num, den})
}
