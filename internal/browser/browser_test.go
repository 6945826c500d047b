package browser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutMs(t *testing.T) {
	tests := []struct {
		name string
		opts *Options
		want float64
	}{
		{"nil options fall back to default", nil, 30000},
		{"zero timeout falls back to default", &Options{}, 30000},
		{"configured timeout wins", &Options{Timeout: 45 * time.Second}, 45000},
		{"sub-second timeout", &Options{Timeout: 1500 * time.Millisecond}, 1500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.timeoutMs())
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.True(t, opts.Headless)
	assert.Equal(t, 30*time.Second, opts.Timeout)
	assert.Equal(t, "pt-BR", opts.Locale)
	assert.True(t, opts.BlockResources)
}
