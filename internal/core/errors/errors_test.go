package errors

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Message(t *testing.T) {
	assert.Equal(t, "[NOT_FOUND] file not found", New(CodeNotFound, "file not found").Error())

	err := Wrap(errors.New("unexpected indent"), CodeParseFailed, "parse failed")
	assert.Equal(t, "[PARSE_FAILED] parse failed: unexpected indent", err.Error())

	err = AddContext(AddContext(err, CtxRule, "LongMethod"), CtxPath, "a.py")
	assert.Equal(t, "[PARSE_FAILED] parse failed: unexpected indent path=a.py rule=LongMethod", err.Error())
}

func TestAddContext(t *testing.T) {
	assert.NoError(t, AddContext(nil, CtxPath, "a.py"))

	cause := errors.New("boom")
	err := AddContext(cause, CtxRule, "DeadCode")
	assert.True(t, IsCode(err, CodeInternal))
	assert.ErrorIs(t, err, cause)

	inner := New(CodeReadFailed, "read failed")
	outer := AddContext(fmt.Errorf("analyse: %w", inner), CtxPath, "b.py")
	assert.True(t, IsCode(outer, CodeReadFailed), "code survives wrapping")

	var de *DomainError
	require.ErrorAs(t, outer, &de)
	assert.Equal(t, "b.py", de.Context[CtxPath])
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidationError, CodeOf(New(CodeValidationError, "bad")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.False(t, IsCode(nil, CodeInternal))
}

func TestDomainError_LogValue(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	err := AddContext(New(CodeParseFailed, "syntax error"), CtxPath, "c.py")
	logger.Warn("skipping file", "error", err)

	out := buf.String()
	assert.Contains(t, out, "error.code=PARSE_FAILED")
	assert.Contains(t, out, "error.path=c.py")
}
