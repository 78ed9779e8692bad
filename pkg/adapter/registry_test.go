package adapter

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{
		Type:      "fake_db",
		Available: []string{"oracle", "postgres"},
	}

	msg := err.Error()

	assert.Contains(t, msg, "fake_db", "error should mention the unknown type")
	assert.Contains(t, msg, "oracle", "error should list available types")
	assert.Contains(t, msg, "sqltui.toml", "error should mention config file")
}

func TestRegister(t *testing.T) {
	Register("test_adapter_internal", func(_ *slog.Logger) Adapter { return nil })

	assert.True(t, IsRegistered("test_adapter_internal"))

	factory, ok := Get("test_adapter_internal")
	assert.True(t, ok)
	assert.NotNil(t, factory)
	assert.Contains(t, ListAdapters(), "test_adapter_internal")
}

func TestNewAdapter_EmptyType(t *testing.T) {
	_, err := NewAdapter(Config{}, nil)
	require.Error(t, err)
	assert.Equal(t, "adapter type not specified", err.Error())
}

func TestNewAdapter_Unknown(t *testing.T) {
	_, err := NewAdapter(Config{Type: "no_such_db"}, nil)

	var unknown *UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "no_such_db", unknown.Type)
}

func TestNewAdapter_UsesFactory(t *testing.T) {
	var gotLogger *slog.Logger
	Register("test_adapter_factory", func(l *slog.Logger) Adapter {
		gotLogger = l
		return &nopAdapter{BaseSQLAdapter{Logger: l}}
	})

	a, err := NewAdapter(Config{Type: "test_adapter_factory"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, a)
	assert.NotNil(t, gotLogger, "nil logger should be replaced by a discard logger")
}

func TestRegistry_TypeMatching(t *testing.T) {
	Register("Test_Adapter_Case", func(l *slog.Logger) Adapter {
		return &nopAdapter{BaseSQLAdapter{Logger: l}}
	})

	tests := []struct {
		connType string
		want     bool
	}{
		{"test_adapter_case", true},
		{"TEST_ADAPTER_CASE", true},
		{"  test_adapter_case ", true},
		{"test_adapter", false},
	}
	for _, tt := range tests {
		t.Run(tt.connType, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRegistered(tt.connType))
		})
	}

	assert.Contains(t, ListAdapters(), "test_adapter_case", "types are listed in their normalized form")

	a, err := NewAdapter(Config{Type: "Test_Adapter_Case"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, a)

	_, err = NewAdapter(Config{Type: "   "}, nil)
	assert.EqualError(t, err, "adapter type not specified")
}

type nopAdapter struct {
	BaseSQLAdapter
}

func (a *nopAdapter) Connect(_ context.Context, _ Config) error { return nil }
