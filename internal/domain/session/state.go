package session

// CurrentStateVersion is the version written by this build. Records with any
// other version are ignored on load.
const CurrentStateVersion = 1

// GateState is the durable record behind the gate: the encoded session token
// and the brute-force counters.
type GateState struct {
	Version  int
	Token    string
	Attempts LoginAttemptState
}

// NewGateState returns an empty record at the current version
func NewGateState() *GateState {
	return &GateState{Version: CurrentStateVersion}
}

// HasToken reports whether a session token is stored
func (g *GateState) HasToken() bool {
	return g.Token != ""
}

// ClearToken forgets the stored session token
func (g *GateState) ClearToken() {
	g.Token = ""
}
