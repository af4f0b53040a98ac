package audio

import (
	"fmt"
	"math"
)

// ApplyGain multiplies 16-bit little-endian PCM samples by the given factor,
// clipping at the int16 range. The capture path runs with all device-side
// processing (noise suppression, AGC) disabled, so quiet microphones are
// compensated here in software.
func ApplyGain(pcmData []byte, gain float64) ([]byte, error) {
	if len(pcmData)%2 != 0 {
		return nil, fmt.Errorf("PCM data length must be even (16-bit samples)")
	}
	if gain <= 0 {
		return nil, fmt.Errorf("gain must be positive, got %f", gain)
	}

	out := make([]byte, len(pcmData))
	for i := 0; i+1 < len(pcmData); i += 2 {
		sample := int16(pcmData[i]) | int16(pcmData[i+1])<<8

		scaled := float64(sample) * gain
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		} else if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}

		s := int16(scaled)
		out[i] = byte(s)
		out[i+1] = byte(s >> 8)
	}

	return out, nil
}

// SamplesFromLE converts 16-bit little-endian PCM bytes to samples. A trailing
// odd byte is ignored.
func SamplesFromLE(pcmData []byte) []int16 {
	samples := make([]int16, len(pcmData)/2)
	for i := range samples {
		samples[i] = int16(pcmData[i*2]) | int16(pcmData[i*2+1])<<8
	}
	return samples
}

// CalculateRMS calculates the root mean square of audio samples. Useful for
// detecting audio levels and silence.
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}

	return math.Sqrt(sum / float64(len(samples)))
}
