package services

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
	RoleGuest = "guest"
)

// Principal is the authenticated actor behind a mutation.
type Principal struct {
	ActorID string
	Role    string
}

func (p Principal) IsStaff() bool {
	return p.Role == RoleStaff || p.Role == RoleAdmin
}

// actorOr returns the actor id, or def when the request is anonymous.
func (p Principal) actorOr(def string) string {
	if p.ActorID == "" {
		return def
	}
	return p.ActorID
}
