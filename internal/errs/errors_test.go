package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindAuthRequired, KindOf(AuthRequired("login needed")))

	wrapped := fmt.Errorf("fetch quotes: %w", InvalidArgument("symbol is required"))
	assert.Equal(t, KindInvalidArgument, KindOf(wrapped))
}

func TestKindOf_OutermostWins(t *testing.T) {
	inner := Validation("quote: symbol is required")
	outer := Upstream(inner, "malformed upstream record")

	assert.Equal(t, KindUpstream, KindOf(outer))
	assert.True(t, errors.Is(outer, inner))
}

func TestError_Message(t *testing.T) {
	err := Network(errors.New("dial tcp: timeout"), "fetch news")
	assert.Equal(t, "fetch news: dial tcp: timeout", err.Error())
	assert.Equal(t, "symbol is required", InvalidArgument("symbol is required").Error())
}

func TestIs(t *testing.T) {
	assert.True(t, Is(MethodNotFound("unknown tool %q", "x"), KindMethodNotFound))
	assert.False(t, Is(nil, KindInternal))
}
