package models

// UserProfile is the authenticated user shown alongside the wizard.
// It is display-only and never consulted for phase gating.
type UserProfile struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Authenticated bool   `json:"authenticated"`
}

// AnonymousUser is the profile used before authentication.
func AnonymousUser() UserProfile {
	return UserProfile{ID: "anonymous", Name: "Guest"}
}
