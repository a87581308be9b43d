// ABOUTME: Decides whether an identity may edit or delete a post
// ABOUTME: Matches the identity against author data in any of the shapes the backend emits

package authz

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ToniTF/clientcd/internal/client"
	"github.com/ToniTF/clientcd/internal/session"
)

// compareBy selects which identity attribute an author candidate is compared with
type compareBy int

const (
	byID compareBy = iota
	byEmail
)

// strategy extracts one author candidate from a post document
type strategy struct {
	path    string
	compare compareBy
}

// strategies are tried in order; the first match allows
var strategies = []strategy{
	{"author.id", byID},
	{"author.userId", byID},
	{"author.email", byEmail},
	{"authorId", byID},
	{"authorUserId", byID},
	{"authorEmail", byEmail},
	{"email", byEmail},
}

// CanMutate reports whether identity may edit or delete the post document.
// A nil identity is never allowed; an admin always is.
func CanMutate(identity *session.Identity, doc []byte) bool {
	if identity == nil {
		return false
	}
	if identity.IsAdmin() {
		return true
	}
	if !gjson.ValidBytes(doc) {
		return false
	}

	for _, s := range strategies {
		candidate := scalar(gjson.GetBytes(doc, s.path))
		if candidate == "" {
			continue
		}
		if matches(identity, candidate, s.compare) {
			return true
		}
	}
	return false
}

// CanMutatePost is CanMutate over a fetched post
func CanMutatePost(identity *session.Identity, post *client.Post) bool {
	if post == nil {
		return identity != nil && identity.IsAdmin()
	}
	return CanMutate(identity, post.Raw)
}

// scalar returns the textual form of a string or number value.
// Objects, arrays, booleans, and null count as absent.
func scalar(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return strings.TrimSpace(v.Str)
	case gjson.Number:
		return v.Raw
	default:
		return ""
	}
}

func matches(identity *session.Identity, candidate string, compare compareBy) bool {
	switch compare {
	case byID:
		return identity.ID != "" && candidate == identity.ID.String()
	case byEmail:
		email := strings.TrimSpace(identity.Email)
		return email != "" && strings.EqualFold(candidate, email)
	default:
		return false
	}
}
