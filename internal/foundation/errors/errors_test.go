package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "buildwatch.yaml").
			Build()

		require.Equal(t, CategoryConfig, err.Category())
		require.Equal(t, SeverityFatal, err.Severity())
		require.Equal(t, "invalid configuration", err.Message())

		file, ok := err.Context().Get("file")
		require.True(t, ok)
		require.Equal(t, "buildwatch.yaml", file)
	})

	t.Run("Error detection through wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", StartupError("no compiler").Build())

		require.True(t, IsClassified(err))
		require.True(t, HasCategory(err, CategoryStartup))
		require.Equal(t, CategoryStartup, GetCategory(err))
		require.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
	})

	t.Run("Config errors are fatal", func(t *testing.T) {
		require.Equal(t, SeverityFatal, ConfigError("boom").Build().Severity())
		require.Equal(t, SeverityError, StartupError("boom").Build().Severity())
	})
}

func TestErrorBuilder_WrapsCause(t *testing.T) {
	cause := errors.New("address already in use")
	err := WrapError(cause, CategoryListen, "listen failed").
		WithContext("port", 8080).
		Build()

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "[listen:error] listen failed: address already in use")

	port, ok := err.Context().Get("port")
	require.True(t, ok)
	require.Equal(t, 8080, port)
}

func TestClassifiedError_WithContextDoesNotMutateOriginal(t *testing.T) {
	base := ConfigError("bad").WithContext("a", 1).Build()
	derived := base.WithContext("b", 2)

	_, ok := base.Context().Get("b")
	assert.False(t, ok)
	_, ok = derived.Context().Get("a")
	assert.True(t, ok)
}

func TestClassifiedError_Is(t *testing.T) {
	a := BuildError("compile failed").Build()
	b := BuildError("compile failed").WithContext("x", 1).Build()
	c := BuildError("other").Build()

	require.True(t, errors.Is(a, b))
	require.False(t, errors.Is(a, c))
}

func TestClassifiedError_WithContextOnEmptyContext(t *testing.T) {
	base := &ClassifiedError{category: CategoryInternal, severity: SeverityError, message: "bare"}
	derived := base.WithContext("k", "v")

	v, ok := derived.Context().Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Nil(t, base.Context())
}
