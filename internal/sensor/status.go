package sensor

type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
	StatusReading      Status = "reading"
)

// transitions lists the allowed next states for every status.
var transitions = map[Status][]Status{
	StatusDisconnected: {StatusConnecting},
	StatusConnecting:   {StatusConnected, StatusError, StatusDisconnected},
	StatusConnected:    {StatusReading, StatusError, StatusDisconnected},
	StatusReading:      {StatusConnected, StatusError, StatusDisconnected},
	StatusError:        {StatusConnecting, StatusDisconnected},
}

func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether moving from s to next is allowed.
// Staying in the same state is always allowed.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return s.IsValid()
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

// Ingesting reports whether readings are accepted in this state.
func (s Status) Ingesting() bool {
	return s == StatusConnected || s == StatusReading
}
