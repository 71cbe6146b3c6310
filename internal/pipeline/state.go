package pipeline

import "fmt"

// State is where the coordinator is in a scan run
type State int

const (
	Idle State = iota
	Scanning
	Extracting
	Aggregating
	Summarizing
	Displaying
)

var stateNames = [...]string{
	Idle:        "idle",
	Scanning:    "scanning",
	Extracting:  "extracting",
	Aggregating: "aggregating",
	Summarizing: "summarizing",
	Displaying:  "displaying",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText lets states appear by name in JSON responses
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name as written by MarshalText
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown pipeline state %q", text)
}

// Busy reports whether a run is in flight
func (s State) Busy() bool { return s != Idle }
