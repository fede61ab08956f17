package model

// Identity holds the user fields the dashboard displays.
type Identity struct {
	ID          int64  `json:"id,omitempty"`
	Email       string `json:"email"`
	FullName    string `json:"full_name,omitempty"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

// DisplayName returns the best available name for greeting the user.
func (i Identity) DisplayName() string {
	switch {
	case i.FullName != "":
		return i.FullName
	case i.Email != "":
		return i.Email
	default:
		return "User"
	}
}

// Profile is either a BackendProfile or an InferredProfile. The two are never
// merged: an inferred profile stays inferred until the user logs in again.
type Profile interface {
	Identity() Identity
	Kind() string
	profile()
}

// Profile kinds.
const (
	ProfileBackend  = "backend"
	ProfileInferred = "inferred"
)

// BackendProfile is the complete record returned by the profile endpoint.
type BackendProfile struct {
	User Identity
}

func (p BackendProfile) Identity() Identity { return p.User }
func (p BackendProfile) Kind() string       { return ProfileBackend }
func (BackendProfile) profile()             {}

// InferredProfile is synthesized by the dashboard when the backend did not
// return a profile. Source names where the fields came from.
type InferredProfile struct {
	User   Identity
	Source string
}

func (p InferredProfile) Identity() Identity { return p.User }
func (p InferredProfile) Kind() string       { return ProfileInferred }
func (InferredProfile) profile()             {}
