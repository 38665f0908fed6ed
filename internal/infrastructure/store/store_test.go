package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/auirah-api/internal/config"
)

func TestOpen_Memory(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	st, err := Open(context.Background(), &config.Config{StoreDriver: "memory"}, zap.New(core))
	require.NoError(t, err)
	defer st.Close()

	assert.NotNil(t, st.Users)
	assert.NotNil(t, st.Tasks)
	assert.NotNil(t, st.Tokens)
	assert.Equal(t, 1, logs.FilterMessage("using in-memory stores; data is lost on restart").Len())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreDriver: "sqlite"}, zap.NewNop())
	assert.EqualError(t, err, `unknown store driver "sqlite"`)
}
