package domain

// Actor is the authenticated identity performing an operation, resolved by
// the external auth layer and threaded explicitly into every service call.
// A zero UserID marks a system/administrative actor; its audit rows carry an
// explicit null actor instead of an ambient lookup.
type Actor struct {
	UserID    string
	IPAddress string
	UserAgent string
}

func SystemActor() Actor { return Actor{} }

func (a Actor) System() bool { return a.UserID == "" }

// UserRef returns the actor id as a nullable audit reference.
func (a Actor) UserRef() *string {
	if a.UserID == "" {
		return nil
	}
	id := a.UserID
	return &id
}
