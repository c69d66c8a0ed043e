package playback

// Stats is a snapshot of the Scheduler counters.
type Stats struct {
	State                 string            `json:"state"`
	TargetFPS             int               `json:"targetFps"`
	Buffered              int               `json:"buffered"`
	LastDisplayedSequence uint64            `json:"lastDisplayedSequence"`
	Received              uint64            `json:"received"`
	Duplicates            uint64            `json:"duplicates"`
	Ignored               uint64            `json:"ignored"`
	Displayed             uint64            `json:"displayed"`
	Forced                uint64            `json:"forced"`
	Stale                 uint64            `json:"stale"`
	GapTicks              uint64            `json:"gapTicks"`
	Stalls                uint64            `json:"stalls"`
	ByProducer            map[string]uint64 `json:"byProducer,omitempty"`
}

func (s Stats) clone() Stats {
	out := s
	if s.ByProducer != nil {
		out.ByProducer = make(map[string]uint64, len(s.ByProducer))
		for k, v := range s.ByProducer {
			out.ByProducer[k] = v
		}
	}
	return out
}
