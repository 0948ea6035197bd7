package lights

import (
	"errors"
	"testing"

	"adaptivelighting/internal/ha"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBrightnessToScale(t *testing.T) {
	tests := []struct {
		pct      int
		expected int
	}{
		{0, 0},
		{1, 3},
		{50, 128},
		{75, 191},
		{100, 255},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, BrightnessToScale(tt.pct), "pct=%d", tt.pct)
	}
}

func TestKelvinToMireds(t *testing.T) {
	tests := []struct {
		kelvin   int
		expected int
	}{
		{2000, 500},
		{2700, 370},
		{4000, 250},
		{5000, 200},
		{6500, 154},
		{0, NeutralMireds},
		{-100, NeutralMireds},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, KelvinToMireds(tt.kelvin), "kelvin=%d", tt.kelvin)
	}
}

func onLight(entityID string, colorTemp bool) *ha.State {
	attrs := map[string]interface{}{
		"brightness": 128.0,
	}
	if colorTemp {
		attrs["supported_color_modes"] = []interface{}{"color_temp", "brightness"}
	} else {
		attrs["supported_color_modes"] = []interface{}{"brightness"}
	}
	return &ha.State{EntityID: entityID, State: "on", Attributes: attrs}
}

func newTestApplier(t *testing.T) (*Applier, *ha.MockClient) {
	t.Helper()
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	mock := ha.NewMockClient()
	return NewApplier(mock, logger), mock
}

func TestApplyBothChannels(t *testing.T) {
	applier, mock := newTestApplier(t)
	mock.SetState(onLight("light.desk", true))

	applied := applier.Apply(Request{
		Lights:            []string{"light.desk"},
		BrightnessPct:     80,
		ColorTempKelvin:   4000,
		TransitionSeconds: 3,
		AdaptBrightness:   true,
		AdaptColorTemp:    true,
	})

	assert.Equal(t, []string{"light.desk"}, applied)

	calls := mock.ServiceCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "light", calls[0].Domain)
	assert.Equal(t, "turn_on", calls[0].Service)
	assert.Equal(t, "light.desk", calls[0].Data["entity_id"])
	assert.Equal(t, 204, calls[0].Data["brightness"])
	assert.Equal(t, 250, calls[0].Data["color_temp"])
	assert.Equal(t, 3, calls[0].Data["transition"])

	record, ok := applier.LastApplied("light.desk")
	require.True(t, ok)
	require.NotNil(t, record.Brightness)
	require.NotNil(t, record.ColorTemp)
	assert.Equal(t, 204, *record.Brightness)
	assert.Equal(t, 250, *record.ColorTemp)
}

func TestApplySkipsOffAndAbsentLights(t *testing.T) {
	applier, mock := newTestApplier(t)
	mock.SetState(&ha.State{EntityID: "light.off", State: "off"})
	mock.SetState(onLight("light.on", true))

	applied := applier.Apply(Request{
		Lights:          []string{"light.off", "light.absent", "light.on"},
		BrightnessPct:   50,
		ColorTempKelvin: 3000,
		AdaptBrightness: true,
		AdaptColorTemp:  true,
	})

	assert.Equal(t, []string{"light.on"}, applied)
	require.Len(t, mock.ServiceCalls(), 1)

	_, ok := applier.LastApplied("light.off")
	assert.False(t, ok)
	_, ok = applier.LastApplied("light.absent")
	assert.False(t, ok)
}

func TestApplyOmitsColorTempForUnsupportedLight(t *testing.T) {
	applier, mock := newTestApplier(t)
	mock.SetState(onLight("light.dimmer", false))

	applier.Apply(Request{
		Lights:          []string{"light.dimmer"},
		BrightnessPct:   50,
		ColorTempKelvin: 3000,
		AdaptBrightness: true,
		AdaptColorTemp:  true,
	})

	calls := mock.ServiceCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, 128, calls[0].Data["brightness"])
	assert.NotContains(t, calls[0].Data, "color_temp")

	record, ok := applier.LastApplied("light.dimmer")
	require.True(t, ok)
	assert.NotNil(t, record.Brightness)
	assert.Nil(t, record.ColorTemp)
}

func TestApplyNoBareTransitionCommand(t *testing.T) {
	applier, mock := newTestApplier(t)
	mock.SetState(onLight("light.dimmer", false))

	// Color temp only against a light that cannot do color temp: nothing
	// would remain in the command, so none is sent.
	applied := applier.Apply(Request{
		Lights:          []string{"light.dimmer"},
		BrightnessPct:   50,
		ColorTempKelvin: 3000,
		AdaptBrightness: false,
		AdaptColorTemp:  true,
	})

	assert.Empty(t, applied)
	assert.Empty(t, mock.ServiceCalls())
	_, ok := applier.LastApplied("light.dimmer")
	assert.False(t, ok)
}

func TestApplyNothingAdapted(t *testing.T) {
	applier, mock := newTestApplier(t)
	mock.SetState(onLight("light.desk", true))

	applied := applier.Apply(Request{
		Lights:          []string{"light.desk"},
		BrightnessPct:   50,
		ColorTempKelvin: 3000,
	})

	assert.Nil(t, applied)
	assert.Empty(t, mock.ServiceCalls())
}

func TestApplyZeroKelvinOmitsColorTemp(t *testing.T) {
	applier, mock := newTestApplier(t)
	mock.SetState(onLight("light.desk", true))

	applier.Apply(Request{
		Lights:          []string{"light.desk"},
		BrightnessPct:   50,
		AdaptBrightness: true,
		AdaptColorTemp:  true,
	})

	calls := mock.ServiceCalls()
	require.Len(t, calls, 1)
	assert.NotContains(t, calls[0].Data, "color_temp")
}

func TestApplyInstantForcesZeroTransition(t *testing.T) {
	applier, mock := newTestApplier(t)
	mock.SetState(onLight("light.desk", true))

	applier.Apply(Request{
		Lights:            []string{"light.desk"},
		BrightnessPct:     50,
		ColorTempKelvin:   3000,
		TransitionSeconds: 3,
		AdaptBrightness:   true,
		AdaptColorTemp:    true,
		Instant:           true,
	})

	calls := mock.ServiceCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, 0, calls[0].Data["transition"])
}

func TestApplyFailureIsolation(t *testing.T) {
	applier, mock := newTestApplier(t)
	mock.SetState(onLight("light.broken", true))
	mock.SetState(onLight("light.fine", true))
	mock.FailServiceFor("light.broken", errors.New("unreachable"))

	applied := applier.Apply(Request{
		Lights:          []string{"light.broken", "light.fine"},
		BrightnessPct:   50,
		ColorTempKelvin: 3000,
		AdaptBrightness: true,
		AdaptColorTemp:  true,
	})

	assert.Equal(t, []string{"light.fine"}, applied)
	require.Len(t, mock.ServiceCalls(), 1)
	assert.Equal(t, "light.fine", mock.ServiceCalls()[0].Data["entity_id"])
}

func TestApplyIdempotent(t *testing.T) {
	applier, mock := newTestApplier(t)
	mock.SetState(onLight("light.desk", true))

	req := Request{
		Lights:          []string{"light.desk"},
		BrightnessPct:   50,
		ColorTempKelvin: 3000,
		AdaptBrightness: true,
		AdaptColorTemp:  true,
	}

	applier.Apply(req)
	first, _ := applier.LastApplied("light.desk")
	applier.Apply(req)
	second, _ := applier.LastApplied("light.desk")

	calls := mock.ServiceCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, calls[0].Data, calls[1].Data)
	assert.Equal(t, *first.Brightness, *second.Brightness)
	assert.Equal(t, *first.ColorTemp, *second.ColorTemp)
}
