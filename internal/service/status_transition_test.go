package service

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/maheshrc27/feedqueue-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateTransition(t *testing.T) {
	depub := models.DepubPending
	pub := models.PubPending

	tests := []struct {
		name         string
		autoDeploy   bool
		published    bool
		status       *models.PostPubStatus
		wantRedeploy bool
		wantErr      bool
	}{
		{"auto published depub", true, true, &depub, true, false},
		{"auto published pub", true, true, &pub, false, true},
		{"auto published none", true, true, nil, false, true},
		{"auto unpublished depub", true, false, &depub, false, true},
		{"auto unpublished pub", true, false, &pub, true, false},
		{"auto unpublished none", true, false, nil, false, false},
		{"manual published depub", false, true, &depub, false, false},
		{"manual published pub", false, true, &pub, false, false},
		{"manual published none", false, true, nil, false, false},
		{"manual unpublished depub", false, false, &depub, false, true},
		{"manual unpublished pub", false, false, &pub, false, false},
		{"manual unpublished none", false, false, nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateTransition(tt.autoDeploy, tt.published, tt.status)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, goerrors.IsCategory(err, goerrors.CategoryValidation))
				assert.Contains(t, err.Error(), "Invalid transition")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRedeploy, got.Redeploy)
		})
	}
}

// Manual queues accept PUB_PENDING on a live post without redeploying or
// rejecting it.
func TestEvaluateTransitionManualPublishedPubPendingIsNoop(t *testing.T) {
	pub := models.PubPending
	got, err := EvaluateTransition(false, true, &pub)
	require.NoError(t, err)
	assert.False(t, got.Redeploy)
}

func TestEvaluateTransitionEmptyStatusMatchesNil(t *testing.T) {
	none := models.PubStatusNone
	for _, auto := range []bool{true, false} {
		for _, published := range []bool{true, false} {
			a, errA := EvaluateTransition(auto, published, nil)
			b, errB := EvaluateTransition(auto, published, &none)
			assert.Equal(t, a, b)
			assert.Equal(t, errA == nil, errB == nil)
		}
	}
}
