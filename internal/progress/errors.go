package progress

import "fmt"

// InvalidRoomError indicates an operation named a room that is not in the
// catalog.
type InvalidRoomError struct {
	Room string
}

func (e InvalidRoomError) Error() string {
	return fmt.Sprintf("unknown room %q", e.Room)
}
