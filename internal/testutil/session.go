package testutil

// FixedSessionGenerator returns the same session id every time.
//
// Journal entry ids hash the session, so a fixed session makes journals
// byte-identical across runs.
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a generator for id.
// If id is empty, Generate() returns "test-session".
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session"
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed session id.
//
// Implements engine.SessionGenerator.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
