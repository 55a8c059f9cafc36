package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantfold/riskpulse/models"
)

func TestShouldAlert(t *testing.T) {
	stable := models.MacroScorePayload{MacroMode: models.Mixed, Transition: models.Stable}
	deteriorating := models.MacroScorePayload{MacroMode: models.Mixed, Transition: models.Deteriorating}
	riskOff := models.MacroScorePayload{MacroMode: models.RiskOff, Transition: models.Stable}
	prevMixed := &models.MacroScorePayload{MacroMode: models.Mixed}

	tests := []struct {
		name     string
		payload  models.MacroScorePayload
		previous *models.MacroScorePayload
		want     bool
	}{
		{"stable with no history", stable, nil, false},
		{"stable and unchanged", stable, prevMixed, false},
		{"non-stable transition", deteriorating, prevMixed, true},
		{"mode flipped", riskOff, prevMixed, true},
		{"mode flip without history stays quiet", riskOff, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldAlert(tt.payload, tt.previous))
		})
	}
}
