package audio

import (
	"testing"
)

func loudFrame() []int16 {
	frame := make([]int16, 160)
	for i := range frame {
		frame[i] = 2000
	}
	return frame
}

func quietFrame() []int16 {
	return make([]int16, 160)
}

func TestLevelMeter_ActivatesOnLoudFrame(t *testing.T) {
	m := NewLevelMeter(nil)

	if m.ProcessFrame(quietFrame()) {
		t.Error("Quiet frame should not activate the meter")
	}
	if !m.ProcessFrame(loudFrame()) {
		t.Error("Loud frame should activate the meter")
	}
	if !m.Active() {
		t.Error("Meter should stay active")
	}
}

func TestLevelMeter_Hysteresis(t *testing.T) {
	m := NewLevelMeter(&LevelConfig{EnergyThreshold: 500.0, SilenceFrames: 3})

	m.ProcessFrame(loudFrame())

	// Stays active through short pauses
	if !m.ProcessFrame(quietFrame()) {
		t.Error("One quiet frame should not deactivate the meter")
	}
	if !m.ProcessFrame(quietFrame()) {
		t.Error("Two quiet frames should not deactivate the meter")
	}

	// Third quiet frame crosses the silence threshold
	if m.ProcessFrame(quietFrame()) {
		t.Error("Expected meter to deactivate after SilenceFrames quiet frames")
	}
}

func TestLevelMeter_Reset(t *testing.T) {
	m := NewLevelMeter(nil)
	m.ProcessFrame(loudFrame())
	m.Reset()

	if m.Active() {
		t.Error("Expected inactive meter after Reset")
	}
	if m.LastRMS() != 0 {
		t.Errorf("Expected zero RMS after Reset, got %f", m.LastRMS())
	}
}
