package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type skipRecorder struct {
	testing.TB
	skipped bool
	reason  string
}

func (r *skipRecorder) Helper() {}

func (r *skipRecorder) Skip(args ...any) {
	r.skipped = true
	if len(args) > 0 {
		r.reason, _ = args[0].(string)
	}
}

func TestSkipIfShort(t *testing.T) {
	t.Run("Short mode skips", func(t *testing.T) {
		rec := &skipRecorder{TB: t}

		assert.True(t, skipIfShort(rec, true))
		assert.True(t, rec.skipped)
		assert.Contains(t, rec.reason, "short mode")
	})

	t.Run("Full mode runs", func(t *testing.T) {
		rec := &skipRecorder{TB: t}

		assert.False(t, skipIfShort(rec, false))
		assert.False(t, rec.skipped)
	})
}
