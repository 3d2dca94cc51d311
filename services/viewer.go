package services

// Viewer is the caller identity decoded from a bearer token. The zero value is an
// anonymous caller.
type Viewer struct {
	UserID uint
	Email  string
	Admin  bool
}

// Authenticated reports whether the viewer carries a user id.
func (v Viewer) Authenticated() bool { return v.UserID != 0 }
