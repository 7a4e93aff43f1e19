// Package rooms defines the fixed escape sequence of puzzle rooms.
package rooms

// ID identifies a puzzle room.
type ID string

const (
	Superposition ID = "superposition"
	DoubleSlit    ID = "double-slit"
	Entanglement  ID = "entanglement"
	Vault         ID = "vault"
	StateLab      ID = "state-lab"
	Decoherence   ID = "decoherence"
)

// Room is one static catalog entry.
type Room struct {
	ID        ID
	Name      string
	BaseScore int
}

// Sequence is the canonical room order. The first entry is where an
// authenticated session is lazily created; completing all of them ends the
// session.
var Sequence = []Room{
	{ID: Superposition, Name: "Superposition Chamber", BaseScore: 100},
	{ID: DoubleSlit, Name: "Double-Slit Gallery", BaseScore: 100},
	{ID: Entanglement, Name: "Entanglement Lab", BaseScore: 150},
	{ID: Vault, Name: "Tunneling Vault", BaseScore: 150},
	{ID: StateLab, Name: "State Reconstruction Lab", BaseScore: 200},
	{ID: Decoherence, Name: "Decoherence Gate", BaseScore: 300},
}

// Total is the number of rooms a full playthrough completes.
const Total = 6

// First returns the canonical first room.
func First() ID {
	return Sequence[0].ID
}

// Valid reports whether id names a catalog room.
func Valid(id ID) bool {
	for _, r := range Sequence {
		if r.ID == id {
			return true
		}
	}
	return false
}

// Get returns the catalog entry for id, or false if it does not exist.
func Get(id ID) (Room, bool) {
	for _, r := range Sequence {
		if r.ID == id {
			return r, true
		}
	}
	return Room{}, false
}
