// ABOUTME: In-memory blog backend for command tests
// ABOUTME: Implements the auth and post endpoints with bearer token checks

package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type fakeUser struct {
	ID       int    `json:"id"`
	Email    string `json:"email"`
	Password string `json:"-"`
	Role     string `json:"role"`
}

// fakeBlog mimics the blog API. Created posts get an empty author object,
// like a backend that does not echo authorship.
type fakeBlog struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	users    map[string]*fakeUser
	tokens   map[string]*fakeUser
	posts    map[string]map[string]any
	order    []string
	nextID   int
	requests map[string]int
	lastAuth string
}

func newFakeBlog(t *testing.T) *fakeBlog {
	t.Helper()
	b := &fakeBlog{
		t:        t,
		users:    map[string]*fakeUser{},
		tokens:   map[string]*fakeUser{},
		posts:    map[string]map[string]any{},
		nextID:   100,
		requests: map[string]int{},
	}
	b.users["root@x.com"] = &fakeUser{ID: 99, Email: "root@x.com", Password: "rootpw", Role: "admin"}
	b.server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.server.Close)
	return b
}

// seed stores a post document under its id
func (b *fakeBlog) seed(id string, doc map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	doc["id"] = id
	b.posts[id] = doc
	b.order = append(b.order, id)
}

// count returns how many requests matched "METHOD /path"
func (b *fakeBlog) count(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[route]
}

func (b *fakeBlog) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.requests {
		n += c
	}
	return n
}

func (b *fakeBlog) authorization() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAuth
}

// expireTokens makes every issued token invalid
func (b *fakeBlog) expireTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = map[string]*fakeUser{}
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (b *fakeBlog) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/api")
	route := r.Method + " " + path
	b.requests[route]++
	b.lastAuth = r.Header.Get("Authorization")

	switch {
	case route == "POST /auth/register":
		var body struct{ Email, Password string }
		json.NewDecoder(r.Body).Decode(&body)
		if _, exists := b.users[body.Email]; exists {
			reply(w, http.StatusConflict, map[string]string{"message": "email already registered"})
			return
		}
		b.users[body.Email] = &fakeUser{ID: len(b.users), Email: body.Email, Password: body.Password, Role: "user"}
		reply(w, http.StatusCreated, map[string]string{"message": "user registered"})

	case route == "POST /auth/login":
		var body struct{ Email, Password string }
		json.NewDecoder(r.Body).Decode(&body)
		user, ok := b.users[body.Email]
		if !ok || user.Password != body.Password {
			reply(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
			return
		}
		token := fmt.Sprintf("tok-%d", user.ID)
		b.tokens[token] = user
		reply(w, http.StatusOK, map[string]any{"token": token, "user": user})

	case route == "GET /posts":
		list := make([]map[string]any, 0, len(b.order))
		for _, id := range b.order {
			list = append(list, b.posts[id])
		}
		reply(w, http.StatusOK, list)

	case route == "POST /posts":
		if b.caller(r) == nil {
			reply(w, http.StatusUnauthorized, map[string]string{"message": "token required"})
			return
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		b.nextID++
		id := fmt.Sprint(b.nextID)
		body["id"] = b.nextID
		body["author"] = map[string]any{}
		b.posts[id] = body
		b.order = append(b.order, id)
		reply(w, http.StatusCreated, body)

	case strings.HasPrefix(path, "/posts/"):
		id := strings.TrimPrefix(path, "/posts/")
		post, ok := b.posts[id]
		if !ok {
			reply(w, http.StatusNotFound, map[string]string{"message": "Post not found"})
			return
		}
		switch r.Method {
		case http.MethodGet:
			reply(w, http.StatusOK, post)
		case http.MethodPut:
			if b.caller(r) == nil {
				reply(w, http.StatusUnauthorized, map[string]string{"message": "token required"})
				return
			}
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			b.posts[id] = body
			reply(w, http.StatusOK, body)
		case http.MethodDelete:
			if b.caller(r) == nil {
				reply(w, http.StatusUnauthorized, map[string]string{"message": "token required"})
				return
			}
			delete(b.posts, id)
			for i, existing := range b.order {
				if existing == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

	default:
		http.NotFound(w, r)
	}
}

// caller resolves the bearer token; the mutex is held
func (b *fakeBlog) caller(r *http.Request) *fakeUser {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return nil
	}
	return b.tokens[token]
}
