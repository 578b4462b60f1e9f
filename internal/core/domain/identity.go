package domain

import "github.com/google/uuid"

// Identity is who is acting on a request. UserID is uuid.Nil for anonymous
// callers; Address is always set by the resolver.
type Identity struct {
	UserID  uuid.UUID
	Address string
}

func Anonymous(address string) Identity {
	return Identity{Address: address}
}

func Authenticated(userID uuid.UUID, address string) Identity {
	return Identity{UserID: userID, Address: address}
}

func (i Identity) IsAuthenticated() bool {
	return i.UserID != uuid.Nil
}
