// ABOUTME: Identity of the signed-in user as returned by the backend at login
// ABOUTME: Tolerates numeric or string ids and unknown roles

package session

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ID is an opaque identifier that the backend may send as a JSON number or string.
// Two ids are equal when their textual forms are equal.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes integer-looking ids as numbers so they round-trip
// in the shape the backend issued them.
func (id ID) MarshalJSON() ([]byte, error) {
	if isInteger(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string {
	return string(id)
}

func isInteger(s string) bool {
	if s == "0" {
		return true
	}
	if s == "" || s[0] < '1' || s[0] > '9' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Role is the authorization role attached to an identity
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsAdmin reports whether the role grants unconditional mutation rights.
// Absent or unknown roles are not admin.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Identity is the authenticated user's profile
type Identity struct {
	ID       ID     `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Role     Role   `json:"role,omitempty"`
}

// IsAdmin reports whether the identity holds the admin role
func (i Identity) IsAdmin() bool {
	return i.Role.IsAdmin()
}

// DisplayName returns the username, falling back to the email
func (i Identity) DisplayName() string {
	if i.Username != "" {
		return i.Username
	}
	return i.Email
}

// valid reports whether the identity carries anything to identify the user by
func (i Identity) valid() bool {
	return i.ID != "" || strings.TrimSpace(i.Email) != ""
}

// parseIdentity decodes a persisted identity, rejecting empty profiles
func parseIdentity(raw string) (*Identity, error) {
	var identity Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return nil, err
	}
	if !identity.valid() {
		return nil, fmt.Errorf("identity has neither id nor email")
	}
	return &identity, nil
}
