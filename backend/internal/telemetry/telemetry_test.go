package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marksboard/backend/internal/logger"
)

func TestInitMeterProvider_NoEndpoint(t *testing.T) {
	ctx := context.Background()

	mp, err := InitMeterProvider(ctx, "marksboard", "test", "", time.Second, logger.Nop())
	require.NoError(t, err)
	require.NotNil(t, mp)

	counter, err := mp.Meter("test").Int64Counter("probe")
	require.NoError(t, err)
	counter.Add(ctx, 1)

	assert.NoError(t, Shutdown(ctx, mp, logger.Nop()))
	assert.NoError(t, Shutdown(ctx, nil, logger.Nop()))
}
