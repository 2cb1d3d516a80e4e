package wire

// Status is the classified outcome of a status token.
type Status int

const (
	StatusOK Status = iota
	StatusFail
	StatusUnknown
)

const (
	TokenOkay = "OKAY"
	TokenFail = "FAIL"
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Outcome pairs a classified status with the decoded reply body.
type Outcome struct {
	Status Status
	// Token is the raw status token; empty when the framing had no status.
	Token string
	Body  string
}

// Classify maps a status token and body to an Outcome. Anything other than
// OKAY or FAIL, including a missing token, is StatusUnknown.
func Classify(token, body string) Outcome {
	out := Outcome{Token: token, Body: body}
	switch token {
	case TokenOkay:
		out.Status = StatusOK
	case TokenFail:
		out.Status = StatusFail
	default:
		out.Status = StatusUnknown
	}
	return out
}

func (o Outcome) OK() bool {
	return o.Status == StatusOK
}
