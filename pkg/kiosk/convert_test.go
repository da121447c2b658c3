package kiosk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-acuity/pkg/acuity"
	"github.com/teslashibe/go-acuity/pkg/camera"
	"github.com/teslashibe/go-acuity/pkg/monitor"
	"github.com/teslashibe/go-acuity/pkg/readiness"
)

func TestReadingDataWithoutFace(t *testing.T) {
	data := ReadingData(monitor.Unavailable())

	assert.Nil(t, data.DistanceM)
	assert.False(t, data.Ready)
	assert.Equal(t, readiness.MsgNoCamera, data.Warning)
	assert.Equal(t, "Adjust", data.Badge)
}

func TestReadingDataWithFace(t *testing.T) {
	r := monitor.Reading{
		Distance: 0.4,
		Forward:  true,
		Status:   readiness.New(readiness.DefaultBounds()).Evaluate(0.4, true),
	}

	data := ReadingData(r)

	require.NotNil(t, data.DistanceM)
	assert.InDelta(t, 0.4, *data.DistanceM, 1e-9)
	assert.True(t, data.Ready)
	assert.True(t, data.Forward)
	assert.Empty(t, data.Adjustment)
}

func TestTrialData(t *testing.T) {
	data := TrialData("t1", acuity.Trial{
		Eye:       acuity.RightEye,
		Direction: acuity.Up,
		StepIndex: 0,
		Pixels:    218,
		Rotation:  270,
	})

	assert.Equal(t, "t1", data.TestID)
	assert.Equal(t, "right", data.Eye)
	assert.Equal(t, "up", data.Direction)
	assert.Equal(t, 270, data.Rotation)
	assert.Equal(t, "6/60", data.Acuity)
	assert.Equal(t, 87.0, data.Millimeters)
}

func TestCameraConfigData(t *testing.T) {
	cfg := camera.DefaultConfig()

	on := CameraConfigData(cfg, true, true)
	assert.True(t, on.Available)
	assert.True(t, on.Enabled)
	assert.Equal(t, cfg.Width, on.Width)
	assert.Equal(t, readiness.MsgStartHint, on.Hint)

	off := CameraConfigData(cfg, false, false)
	assert.False(t, off.Available)
	assert.Equal(t, readiness.MsgNoCamera, off.Hint)
}
