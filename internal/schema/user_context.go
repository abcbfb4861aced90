package schema

// Account roles. Litigants fill in their own questionnaires; admins manage
// structure definitions. A promoted account may carry both.
const (
	RoleAdmin    = "admin"
	RoleLitigant = "litigant"
)

// UserContext identifies the authenticated account for one request. Set by
// the auth middleware from access token claims; handlers never look it up.
type UserContext struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles"`
}

func (u *UserContext) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the account may manage structure definitions.
func (u *UserContext) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}
