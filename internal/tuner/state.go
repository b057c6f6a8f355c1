package tuner

import "fmt"

// RecordingState is the user-facing toggle.
type RecordingState int32

const (
	Stopped RecordingState = iota
	Recording
)

func (s RecordingState) String() string {
	switch s {
	case Stopped:
		return "STOPPED"
	case Recording:
		return "RECORDING"
	}
	return fmt.Sprintf("RecordingState(%d)", int32(s))
}

// ToggleLabel is the caption of the button that would leave this state.
func (s RecordingState) ToggleLabel() string {
	if s == Recording {
		return "Stop Recording"
	}
	return "Start Recording"
}

// Phase is the analysis scheduler's state.
type Phase int32

const (
	PhaseIdle    Phase = iota // nothing scheduled
	PhaseArmed                // first tick pending
	PhaseTicking              // at least one tick has run since arming
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseArmed:
		return "ARMED"
	case PhaseTicking:
		return "TICKING"
	}
	return fmt.Sprintf("Phase(%d)", int32(p))
}

// Snapshot is everything the UI displays.
type Snapshot struct {
	State        RecordingState
	Frequency    float64 // last accepted estimate in Hz
	HasFrequency bool
	Level        float64 // RMS of the last analysed window
	Status       string
	Err          error // last acquisition or device error
}

// FrequencyText is empty until the first accepted estimate.
func (s Snapshot) FrequencyText() string {
	if !s.HasFrequency {
		return ""
	}
	return fmt.Sprintf("%.2f Hz", s.Frequency)
}

// ToggleLabel is the caption for the recording button.
func (s Snapshot) ToggleLabel() string {
	return s.State.ToggleLabel()
}
