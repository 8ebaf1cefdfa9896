package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextGetters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ctx       *Context
		version   string
		buildDate string
		release   string
	}{
		{"nil context", nil, "unknown", "unknown", "batatlas@unknown"},
		{"empty", &Context{}, "unknown", "unknown", "batatlas@unknown"},
		{"set", &Context{Version: "v1.2.0", BuildDate: "2026-01-02"}, "v1.2.0", "2026-01-02", "batatlas@v1.2.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.version, tt.ctx.GetVersion())
			assert.Equal(t, tt.buildDate, tt.ctx.GetBuildDate())
			assert.Equal(t, tt.release, tt.ctx.Release())
		})
	}
}

func TestCurrentDefaults(t *testing.T) {
	t.Parallel()

	c := Current()
	assert.NotNil(t, c)
	assert.Equal(t, "unknown", c.GetVersion())
}
