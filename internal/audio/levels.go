package audio

// LevelConfig holds configuration for the input level meter.
type LevelConfig struct {
	EnergyThreshold float64 // RMS energy threshold for speech presence
	SilenceFrames   int     // Consecutive quiet frames to mark input as silent
}

// DefaultLevelConfig returns a default level meter configuration.
func DefaultLevelConfig() *LevelConfig {
	return &LevelConfig{
		EnergyThreshold: 500.0,
		SilenceFrames:   10,
	}
}

// LevelMeter tracks the RMS level of captured audio and whether the input
// currently carries speech. It feeds the recording indicator; it never gates
// what gets recorded.
type LevelMeter struct {
	config         *LevelConfig
	silenceCounter int
	active         bool
	lastRMS        float64
}

// NewLevelMeter creates a new level meter.
func NewLevelMeter(config *LevelConfig) *LevelMeter {
	if config == nil {
		config = DefaultLevelConfig()
	}
	return &LevelMeter{config: config}
}

// ProcessFrame consumes one frame of samples and returns whether the input is
// currently active (above the energy threshold, with hysteresis over quiet
// frames).
func (m *LevelMeter) ProcessFrame(samples []int16) bool {
	rms := CalculateRMS(samples)
	m.lastRMS = rms

	if rms > m.config.EnergyThreshold {
		m.silenceCounter = 0
		m.active = true
		return m.active
	}

	m.silenceCounter++
	if m.active && m.silenceCounter >= m.config.SilenceFrames {
		m.active = false
		m.silenceCounter = 0
	}

	return m.active
}

// LastRMS returns the RMS of the most recent frame.
func (m *LevelMeter) LastRMS() float64 {
	return m.lastRMS
}

// Active returns whether the input is currently considered active.
func (m *LevelMeter) Active() bool {
	return m.active
}

// Reset clears the meter state.
func (m *LevelMeter) Reset() {
	m.silenceCounter = 0
	m.active = false
	m.lastRMS = 0
}
