package testutil

// FixedSession hands out the same session token on every call.
//
// Scenarios pin their session token so that journal entry ids, and with
// them golden files, are byte-identical across runs. engine.FixedGenerator
// returns a sequence of tokens instead.
type FixedSession struct {
	token string
}

// NewFixedSession returns a generator for token, or for
// "test-session-default" when token is empty.
func NewFixedSession(token string) *FixedSession {
	if token == "" {
		token = "test-session-default"
	}
	return &FixedSession{token: token}
}

// Generate returns the fixed token. It implements engine.SessionGenerator.
func (g *FixedSession) Generate() string {
	return g.token
}
