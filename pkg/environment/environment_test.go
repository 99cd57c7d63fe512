package environment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/environment"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want environment.Environment
	}{
		{"development", environment.Development},
		{"DEV", environment.Development},
		{"local", environment.Development},
		{" stage ", environment.Staging},
		{"prod", environment.Production},
		{"Production", environment.Production},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := environment.Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		_, err := environment.Parse("qa")
		assert.ErrorIs(t, err, environment.ErrUnknownEnvironment)
	})
}

func TestUnmarshalText(t *testing.T) {
	t.Parallel()

	var env environment.Environment
	require.NoError(t, env.UnmarshalText([]byte("prod")))
	assert.True(t, env.IsProduction())

	assert.Error(t, env.UnmarshalText([]byte("nope")))
	assert.Equal(t, environment.Production, env, "failed decode keeps previous value")
}
