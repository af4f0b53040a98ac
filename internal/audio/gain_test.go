package audio

import (
	"math"
	"testing"
)

func leBytes(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

func TestApplyGain(t *testing.T) {
	in := leBytes(100, -200, 0)
	out, err := ApplyGain(in, 6.0)
	if err != nil {
		t.Fatalf("ApplyGain() failed: %v", err)
	}

	samples := SamplesFromLE(out)
	if samples[0] != 600 {
		t.Errorf("Expected sample 600, got %d", samples[0])
	}
	if samples[1] != -1200 {
		t.Errorf("Expected sample -1200, got %d", samples[1])
	}
	if samples[2] != 0 {
		t.Errorf("Expected sample 0, got %d", samples[2])
	}
}

func TestApplyGain_Clipping(t *testing.T) {
	in := leBytes(30000, -30000)
	out, err := ApplyGain(in, 6.0)
	if err != nil {
		t.Fatalf("ApplyGain() failed: %v", err)
	}

	samples := SamplesFromLE(out)
	if samples[0] != math.MaxInt16 {
		t.Errorf("Expected positive clip at %d, got %d", math.MaxInt16, samples[0])
	}
	if samples[1] != math.MinInt16 {
		t.Errorf("Expected negative clip at %d, got %d", math.MinInt16, samples[1])
	}
}

func TestApplyGain_OddLength(t *testing.T) {
	if _, err := ApplyGain([]byte{1, 2, 3}, 6.0); err == nil {
		t.Error("Expected error for odd-length PCM data")
	}
}

func TestApplyGain_InvalidGain(t *testing.T) {
	if _, err := ApplyGain(leBytes(1), 0); err == nil {
		t.Error("Expected error for zero gain")
	}
}

func TestCalculateRMS(t *testing.T) {
	if rms := CalculateRMS(nil); rms != 0 {
		t.Errorf("Expected RMS 0 for empty samples, got %f", rms)
	}

	rms := CalculateRMS([]int16{3, 4, 3, 4})
	expected := math.Sqrt((9.0 + 16.0 + 9.0 + 16.0) / 4.0)
	if math.Abs(rms-expected) > 1e-9 {
		t.Errorf("Expected RMS %f, got %f", expected, rms)
	}
}
