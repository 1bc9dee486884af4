package detection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	tier       Tier
	detections []Detection
	err        error
	panicWith  any
	calls      int
}

func (s *stubBackend) Tier() Tier { return s.tier }

func (s *stubBackend) Detect(_ context.Context, _ string) ([]Detection, error) {
	s.calls++
	if s.panicWith != nil {
		panic(s.panicWith)
	}
	return s.detections, s.err
}

func allEnabled() BackendConfiguration {
	return BackendConfiguration{VisionEnabled: true, FoodDetectorEnabled: true, LocalThreshold: 0.3}
}

func TestNewOrchestrator_RequiresLocal(t *testing.T) {
	_, err := NewOrchestrator(allEnabled(), Backends{})
	require.Error(t, err)
}

func TestOrchestrator_FirstTierWins(t *testing.T) {
	vision := &stubBackend{tier: TierVision, detections: []Detection{{Name: "tomato", Confidence: 0.9}}}
	food := &stubBackend{tier: TierFoodDetector, detections: []Detection{{Name: "egg", Confidence: 0.8}}}
	local := &stubBackend{tier: TierLocal, detections: []Detection{{Name: "apple", Confidence: 0.5}}}

	o, err := NewOrchestrator(allEnabled(), Backends{Vision: vision, FoodDetector: food, Local: local})
	require.NoError(t, err)

	got, err := o.Detect(context.Background(), "img.jpg")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "tomato", got[0].Name)
	assert.Equal(t, 1, vision.calls)
	assert.Zero(t, food.calls)
	assert.Zero(t, local.calls)
}

func TestOrchestrator_SparseResultStillWins(t *testing.T) {
	vision := &stubBackend{tier: TierVision, detections: []Detection{}}
	local := &stubBackend{tier: TierLocal, detections: []Detection{{Name: "apple", Confidence: 0.5}}}

	o, err := NewOrchestrator(BackendConfiguration{VisionEnabled: true}, Backends{Vision: vision, Local: local})
	require.NoError(t, err)

	got, err := o.Detect(context.Background(), "img.jpg")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, local.calls)
}

func TestOrchestrator_FallsThroughInOrder(t *testing.T) {
	vision := &stubBackend{tier: TierVision, err: ErrSchemaMismatch}
	food := &stubBackend{tier: TierFoodDetector, err: ErrTransportFailure}
	local := &stubBackend{tier: TierLocal, detections: []Detection{{Name: "banana", Confidence: 0.6}}}

	o, err := NewOrchestrator(allEnabled(), Backends{Vision: vision, FoodDetector: food, Local: local})
	require.NoError(t, err)

	got, err := o.Detect(context.Background(), "img.jpg")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "banana", got[0].Name)
	assert.Equal(t, 1, vision.calls)
	assert.Equal(t, 1, food.calls)
	assert.Equal(t, 1, local.calls)
}

func TestOrchestrator_PanicIsTierFailure(t *testing.T) {
	food := &stubBackend{tier: TierFoodDetector, panicWith: "boom"}
	local := &stubBackend{tier: TierLocal, detections: []Detection{{Name: "carrot", Confidence: 0.4}}}

	o, err := NewOrchestrator(BackendConfiguration{FoodDetectorEnabled: true}, Backends{FoodDetector: food, Local: local})
	require.NoError(t, err)

	got, err := o.Detect(context.Background(), "img.jpg")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, local.calls)
}

func TestOrchestrator_DisabledTiersAreSkipped(t *testing.T) {
	vision := &stubBackend{tier: TierVision}
	food := &stubBackend{tier: TierFoodDetector}
	local := &stubBackend{tier: TierLocal, detections: []Detection{}}

	o, err := NewOrchestrator(BackendConfiguration{}, Backends{Vision: vision, FoodDetector: food, Local: local})
	require.NoError(t, err)

	_, err = o.Detect(context.Background(), "img.jpg")
	require.NoError(t, err)
	assert.Zero(t, vision.calls)
	assert.Zero(t, food.calls)
	assert.Equal(t, []Tier{TierLocal}, o.Config().EnabledTiers())
}

func TestOrchestrator_EnabledWithoutBackendIsDemoted(t *testing.T) {
	local := &stubBackend{tier: TierLocal}

	o, err := NewOrchestrator(allEnabled(), Backends{Local: local})
	require.NoError(t, err)
	assert.False(t, o.Config().VisionEnabled)
	assert.False(t, o.Config().FoodDetectorEnabled)
}

func TestOrchestrator_TerminalFailureIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		localErr error
		want     error
	}{
		{"unsupported input", ErrUnsupportedInput, ErrUnsupportedInput},
		{"other failure", errors.New("interpreter exploded"), ErrDetectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vision := &stubBackend{tier: TierVision, err: ErrTransportFailure}
			local := &stubBackend{tier: TierLocal, err: tt.localErr}

			o, err := NewOrchestrator(BackendConfiguration{VisionEnabled: true}, Backends{Vision: vision, Local: local})
			require.NoError(t, err)

			got, err := o.Detect(context.Background(), "img.jpg")
			require.Error(t, err)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, tt.want)

			var de *DetectionError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, TierLocal, de.Tier)
		})
	}
}
