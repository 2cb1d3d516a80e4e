package wire

import "fmt"

// StatusMode says whether a reply begins with a status token.
type StatusMode int

const (
	StatusPresent StatusMode = iota
	StatusAbsent
)

// BodyMode selects how the reply body is consumed after the status token.
type BodyMode int

const (
	BodyNone BodyMode = iota
	BodyToEOF
	BodyLengthPrefixed
)

// Framing is the per-command reply contract passed to Session.Execute.
type Framing struct {
	Status StatusMode
	Body   BodyMode
}

var (
	// HostQuery frames host-scoped queries such as host:version and host:devices.
	HostQuery = Framing{Status: StatusPresent, Body: BodyLengthPrefixed}
	// Stream frames commands whose body ends when the daemon closes the stream (shell:).
	Stream = Framing{Status: StatusPresent, Body: BodyToEOF}
	// Switch frames transport selection, which answers with a bare status token.
	Switch = Framing{Status: StatusPresent, Body: BodyNone}
)

func (m StatusMode) String() string {
	switch m {
	case StatusPresent:
		return "present"
	case StatusAbsent:
		return "absent"
	default:
		return fmt.Sprintf("StatusMode(%d)", int(m))
	}
}

func (m BodyMode) String() string {
	switch m {
	case BodyNone:
		return "none"
	case BodyToEOF:
		return "to-eof"
	case BodyLengthPrefixed:
		return "length-prefixed"
	default:
		return fmt.Sprintf("BodyMode(%d)", int(m))
	}
}

func (f Framing) String() string {
	return "status=" + f.Status.String() + " body=" + f.Body.String()
}
