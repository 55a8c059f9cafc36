package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelExposureNullPersistence(t *testing.T) {
	t.Run("invalid exposure serializes to nulls", func(t *testing.T) {
		raw, err := json.Marshal(ChannelExposure{Proxy: "SPY"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"proxy":"SPY","beta":null,"r_squared":null}`, string(raw))

		var restored ChannelExposure
		require.NoError(t, json.Unmarshal(raw, &restored))
		assert.False(t, restored.Valid)
	})

	t.Run("valid exposure keeps its fit", func(t *testing.T) {
		raw, err := json.Marshal(ChannelExposure{Proxy: "SPY", Beta: 1.25, RSquared: 0.9, Valid: true})
		require.NoError(t, err)

		var restored ChannelExposure
		require.NoError(t, json.Unmarshal(raw, &restored))
		assert.True(t, restored.Valid)
		assert.Equal(t, 1.25, restored.Beta)
		assert.Equal(t, 0.9, restored.RSquared)
	})
}
