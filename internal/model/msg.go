package model

// Bubble Tea message types

// Every completion carries the generation of the request that produced it so
// the orchestrator can drop answers to requests it has already moved past.

// PositionMsg is sent when a position request succeeds.
type PositionMsg struct {
	Gen      uint64
	Position Position
}

// PositionFailedMsg is sent when a position request fails.
type PositionFailedMsg struct {
	Gen uint64
	Err error
}

// SearchResultMsg is sent when the recommendation provider answers.
type SearchResultMsg struct {
	Gen    uint64
	Result RoadResult
}

// SearchFailedMsg is sent when the recommendation provider fails.
type SearchFailedMsg struct {
	Gen uint64
	Err error
}

// Screen represents different app screens.
type Screen int

const (
	ScreenWelcome Screen = iota
	ScreenDestinationInput
	ScreenLoading
	ScreenSuccess
	ScreenError
	ScreenLibrary
)

func (s Screen) String() string {
	switch s {
	case ScreenWelcome:
		return "welcome"
	case ScreenDestinationInput:
		return "destinationInput"
	case ScreenLoading:
		return "loading"
	case ScreenSuccess:
		return "success"
	case ScreenError:
		return "error"
	case ScreenLibrary:
		return "library"
	default:
		return "unknown"
	}
}
