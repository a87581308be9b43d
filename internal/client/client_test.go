// ABOUTME: Tests for the blog API client and its credential pipeline
// ABOUTME: Uses httptest to mock backend responses

package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ToniTF/clientcd/internal/session"
	"github.com/ToniTF/clientcd/internal/storage"
)

var testUser = session.Identity{ID: "1", Email: "a@x.com", Role: session.RoleUser}

type testEnv struct {
	client  *Client
	store   *session.Store
	storage storage.Storage
	server  *httptest.Server
	calls   atomic.Int32
}

func newTestEnv(t *testing.T, handler http.HandlerFunc) *testEnv {
	t.Helper()
	env := &testEnv{storage: storage.NewMemory()}
	env.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(env.server.Close)

	env.store = session.NewStore(env.storage, zerolog.Nop())
	if _, err := env.store.Rehydrate(); err != nil {
		t.Fatalf("Rehydrate() error: %v", err)
	}
	env.client = New(Options{
		BaseURL: env.server.URL,
		Storage: env.storage,
		Session: env.store,
		Logger:  zerolog.Nop(),
	})
	return env
}

// signIn stores a credential and identity without going through the backend
func (env *testEnv) signIn(t *testing.T, token string) {
	t.Helper()
	if err := env.storage.Set(storage.KeyCredential, token); err != nil {
		t.Fatalf("store credential: %v", err)
	}
	if err := env.store.Login(testUser); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestAuthorizationHeader(t *testing.T) {
	var got atomic.Value
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Values("Authorization"))
		writeJSON(w, http.StatusOK, []any{})
	})

	if _, err := env.client.ListPosts(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if values := got.Load().([]string); len(values) != 0 {
		t.Errorf("expected no Authorization header, got %v", values)
	}

	env.signIn(t, "tok-1")
	if _, err := env.client.ListPosts(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	values := got.Load().([]string)
	if len(values) != 1 || values[0] != "Bearer tok-1" {
		t.Errorf("expected [Bearer tok-1], got %v", values)
	}
}

func TestCallerAuthorizationHeaderIsReplaced(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected []string
	}{
		{"no credential", "", nil},
		{"with credential", "tok-1", []string{"Bearer tok-1"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got []string
			env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Values("Authorization")
				w.WriteHeader(http.StatusNoContent)
			})
			if tc.token != "" {
				env.signIn(t, tc.token)
			}

			req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/posts", nil)
			req.Header.Set("Authorization", "Bearer forged")
			resp, err := env.client.httpClient.Do(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			resp.Body.Close()

			if len(got) != len(tc.expected) {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
			for i := range got {
				if got[i] != tc.expected[i] {
					t.Errorf("expected %v, got %v", tc.expected, got)
				}
			}
			if req.Header.Get("Authorization") != "Bearer forged" {
				t.Error("expected caller's request to be left unmodified")
			}
		})
	}
}

func TestRequestHeaders(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if _, err := uuid.Parse(r.Header.Get("X-Request-ID")); err != nil {
			t.Errorf("expected uuid request id, got %q", r.Header.Get("X-Request-ID"))
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("expected Accept application/json, got %q", r.Header.Get("Accept"))
		}
		if r.Method == http.MethodPost && r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type application/json, got %q", r.Header.Get("Content-Type"))
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": 1, "title": "t", "content": "c"})
	})
	env.signIn(t, "tok-1")

	if _, err := env.client.CreatePost(context.Background(), PostInput{Title: "t", Content: "c"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUnauthorizedWithCredentialInvalidates(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
	})
	env.signIn(t, "tok-1")

	_, err := env.client.ListPosts(context.Background())
	if !IsUnauthorized(err) {
		t.Fatalf("expected 401 APIError, got %v", err)
	}

	if env.store.Snapshot().State != session.StateAnonymous {
		t.Errorf("expected anonymous, got %s", env.store.Snapshot().State)
	}
	if _, err := env.storage.Get(storage.KeyCredential); !errors.Is(err, storage.ErrNotFound) {
		t.Error("expected credential deleted")
	}
	if _, err := env.storage.Get(storage.KeyIdentity); !errors.Is(err, storage.ErrNotFound) {
		t.Error("expected identity deleted")
	}
}

func TestUnauthorizedWithoutCredentialNoChange(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
	})
	before := env.store.Snapshot()

	_, err := env.client.Login(context.Background(), Credentials{Email: "a@x.com", Password: "wrong"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "invalid credentials" {
		t.Fatalf("expected APIError with backend message, got %v", err)
	}

	after := env.store.Snapshot()
	if after.State != before.State || after.Generation != before.Generation {
		t.Errorf("expected no state change, got %+v -> %+v", before, after)
	}
}

func TestUnauthorizedFromEarlierSessionIgnored(t *testing.T) {
	release := make(chan struct{})
	arrived := make(chan struct{})
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
	})
	env.signIn(t, "tok-1")

	errCh := make(chan error, 1)
	go func() {
		_, err := env.client.ListPosts(context.Background())
		errCh <- err
	}()

	<-arrived
	env.store.Logout()
	env.signIn(t, "tok-2")
	close(release)

	if err := <-errCh; !IsUnauthorized(err) {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if env.store.Snapshot().State != session.StateAuthenticated {
		t.Error("expected newer session to survive stale rejection")
	}
	if token, _ := env.storage.Get(storage.KeyCredential); token != "tok-2" {
		t.Errorf("expected tok-2 kept, got %q", token)
	}
}

func TestStaleSuccessDiscarded(t *testing.T) {
	release := make(chan struct{})
	arrived := make(chan struct{})
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		writeJSON(w, http.StatusOK, []any{map[string]any{"id": 1, "title": "t", "content": "c"}})
	})
	env.signIn(t, "tok-1")

	errCh := make(chan error, 1)
	go func() {
		_, err := env.client.ListPosts(context.Background())
		errCh <- err
	}()

	<-arrived
	env.store.Logout()
	close(release)

	if err := <-errCh; !errors.Is(err, session.ErrStaleSession) {
		t.Errorf("expected ErrStaleSession, got %v", err)
	}
}

func TestLoginStoresCredential(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" {
			t.Errorf("expected path /auth/login, got %s", r.URL.Path)
		}
		var creds Credentials
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.Email != "a@x.com" || creds.Password != "secret1" {
			t.Errorf("unexpected credentials %+v", creds)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token": "tok-1",
			"user":  map[string]any{"id": 1, "email": "a@x.com", "role": "user"},
		})
	})

	result, err := env.client.Login(context.Background(), Credentials{Email: " a@x.com ", Password: "secret1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Token != "tok-1" {
		t.Errorf("expected token tok-1, got %s", result.Token)
	}
	if result.User.ID != "1" {
		t.Errorf("expected user id 1, got %s", result.User.ID)
	}
	if token, _ := env.storage.Get(storage.KeyCredential); token != "tok-1" {
		t.Errorf("expected stored credential tok-1, got %q", token)
	}
	if _, err := env.storage.Get(storage.KeyIdentity); !errors.Is(err, storage.ErrNotFound) {
		t.Error("expected identity to be left to the session store")
	}
}

func TestLoginWhileAuthenticated(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token": "tok-2", "user": testUser})
	})
	env.signIn(t, "tok-1")

	_, err := env.client.Login(context.Background(), Credentials{Email: "a@x.com", Password: "secret1"})
	if !errors.Is(err, session.ErrAlreadyAuthenticated) {
		t.Errorf("expected ErrAlreadyAuthenticated, got %v", err)
	}
	if env.calls.Load() != 0 {
		t.Error("expected no network call")
	}
}

func TestLoginAbandonedByLogout(t *testing.T) {
	release := make(chan struct{})
	arrived := make(chan struct{})
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-release
		writeJSON(w, http.StatusOK, map[string]any{"token": "tok-1", "user": testUser})
	})

	errCh := make(chan error, 1)
	go func() {
		_, err := env.client.Login(context.Background(), Credentials{Email: "a@x.com", Password: "secret1"})
		errCh <- err
	}()

	<-arrived
	env.client.Logout()
	close(release)

	if err := <-errCh; !errors.Is(err, session.ErrStaleSession) {
		t.Errorf("expected ErrStaleSession, got %v", err)
	}
	if _, err := env.storage.Get(storage.KeyCredential); !errors.Is(err, storage.ErrNotFound) {
		t.Error("expected no credential after logout won the race")
	}
}

func TestLoginValidation(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
	}{
		{"missing email", Credentials{Password: "secret1"}},
		{"bad email", Credentials{Email: "not-an-email", Password: "secret1"}},
		{"missing password", Credentials{Email: "a@x.com"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			_, err := env.client.Login(context.Background(), tc.creds)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if env.calls.Load() != 0 {
				t.Error("expected no network call")
			}
		})
	}
}

func TestSignIn(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"token": "tok-1",
			"user":  map[string]any{"id": "64b7", "email": "a@x.com", "username": "ana", "role": "admin"},
		})
	})

	identity, err := env.client.SignIn(context.Background(), Credentials{Email: "a@x.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !identity.IsAdmin() {
		t.Error("expected admin identity")
	}
	snap := env.store.Snapshot()
	if !snap.Authenticated() || snap.Identity.Username != "ana" {
		t.Errorf("expected authenticated as ana, got %+v", snap)
	}
}

func TestSignInWithoutUserRemovesCredential(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token": "tok-1"})
	})

	_, err := env.client.SignIn(context.Background(), Credentials{Email: "a@x.com", Password: "secret1"})
	if !errors.Is(err, session.ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity, got %v", err)
	}
	if env.client.HasCredential() {
		t.Error("expected credential removed when identity is refused")
	}
}

func TestLoginWithoutToken(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"user": testUser})
	})

	if _, err := env.client.Login(context.Background(), Credentials{Email: "a@x.com", Password: "secret1"}); err == nil {
		t.Error("expected error for response without token")
	}
	if env.client.HasCredential() {
		t.Error("expected no credential stored")
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/register" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeJSON(w, http.StatusCreated, map[string]string{"message": "user created"})
	})

	if err := env.client.Register(context.Background(), Registration{Email: "a@x.com", Password: "secret1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.store.Snapshot().State != session.StateAnonymous {
		t.Error("expected registration not to sign in")
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	err := env.client.Register(context.Background(), Registration{Email: "a@x.com", Password: "12345"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Error() != "password must be at least 6 characters" {
		t.Errorf("unexpected message %q", ve.Error())
	}
	if env.calls.Load() != 0 {
		t.Error("expected no network call")
	}
}

func TestRegisterConflict(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "email already registered"})
	})

	err := env.client.Register(context.Background(), Registration{Email: "a@x.com", Password: "secret1"})
	if got := UserMessage(err, "registration failed"); got != "email already registered" {
		t.Errorf("expected backend message, got %q", got)
	}
}

func TestErrorResponseMessage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"message field", `{"message":"post not found"}`, "post not found"},
		{"error field", `{"error":"forbidden"}`, "forbidden"},
		{"message wins", `{"message":"a","error":"b"}`, "a"},
		{"non-string message", `{"message":{"code":1}}`, ""},
		{"not json", `<html>oops</html>`, ""},
		{"empty", ``, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(tc.body))
			})

			_, err := env.client.GetPost(context.Background(), "1")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.StatusCode != http.StatusNotFound {
				t.Errorf("expected 404, got %d", apiErr.StatusCode)
			}
			if apiErr.Message != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, apiErr.Message)
			}
			if !IsNotFound(err) {
				t.Error("expected IsNotFound")
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	st := storage.NewMemory()
	store := session.NewStore(st, zerolog.Nop())
	store.Rehydrate()
	c := New(Options{BaseURL: url, Storage: st, Session: store, Logger: zerolog.Nop()})

	_, err := c.ListPosts(context.Background())
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Error("expected transport failure to be distinct from APIError")
	}
	if got := UserMessage(err, "fallback"); got != "couldn't reach the server at "+url+"/posts" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestContextCancellation(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		writeJSON(w, http.StatusOK, []any{})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := env.client.ListPosts(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	defer close(release)
	env.client.httpClient.Timeout = 20 * time.Millisecond

	_, err := env.client.ListPosts(context.Background())
	var transportErr *TransportError
	if !errors.As(err, &transportErr) || !transportErr.Timeout() {
		t.Fatalf("expected timeout TransportError, got %v", err)
	}
	if got := UserMessage(err, "fallback"); got != "the server took too long to respond" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestMutationsRequireCredential(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ctx := context.Background()
	post := &Post{ID: "1", Title: "t", Content: "c"}

	if _, err := env.client.CreatePost(ctx, PostInput{Title: "t", Content: "c"}); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("CreatePost: expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := env.client.UpdatePost(ctx, post, PostInput{Title: "t", Content: "c"}, nil); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("UpdatePost: expected ErrNotAuthenticated, got %v", err)
	}
	if err := env.client.DeletePost(ctx, "1"); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("DeletePost: expected ErrNotAuthenticated, got %v", err)
	}
	if env.calls.Load() != 0 {
		t.Errorf("expected no network calls, got %d", env.calls.Load())
	}
}

func TestCreatePostValidation(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	env.signIn(t, "tok-1")

	_, err := env.client.CreatePost(context.Background(), PostInput{Title: "t"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Error() != "content is required" {
		t.Errorf("unexpected message %q", ve.Error())
	}
}

func TestListAndGetPosts(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/posts":
			w.Write([]byte(`[{"id":1,"title":"one","content":"c1","authorEmail":"a@x.com"},{"id":"2","title":"two","content":"c2"}]`))
		case "/posts/2":
			w.Write([]byte(`{"id":"2","title":"two","content":"c2","tags":["go"]}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	posts, err := env.client.ListPosts(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].ID != "1" || posts[1].ID != "2" {
		t.Errorf("unexpected ids %s, %s", posts[0].ID, posts[1].ID)
	}
	if string(posts[0].Raw) != `{"id":1,"title":"one","content":"c1","authorEmail":"a@x.com"}` {
		t.Errorf("expected raw document kept, got %s", posts[0].Raw)
	}

	post, err := env.client.GetPost(ctx, "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if post.Title != "two" {
		t.Errorf("expected title two, got %s", post.Title)
	}
}

func TestDeletePost(t *testing.T) {
	var method, path string
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})
	env.signIn(t, "tok-1")

	if err := env.client.DeletePost(context.Background(), "42"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if method != http.MethodDelete || path != "/posts/42" {
		t.Errorf("expected DELETE /posts/42, got %s %s", method, path)
	}
}

func TestUpdatePostSendsFullDocument(t *testing.T) {
	var sent map[string]any
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/posts/7" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&sent)
		writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
	})
	env.signIn(t, "tok-1")

	var post Post
	json.Unmarshal([]byte(`{"id":7,"title":"old","content":"old","tags":["go"],"author":{}}`), &post)

	updated, err := env.client.UpdatePost(context.Background(), &post, PostInput{Title: "  new  ", Content: "body"}, &testUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent["title"] != "new" || sent["content"] != "body" {
		t.Errorf("expected trimmed title and content, got %v", sent)
	}
	if _, ok := sent["tags"]; !ok {
		t.Error("expected unknown fields echoed back")
	}
	author, _ := sent["author"].(map[string]any)
	if author["email"] != "a@x.com" || author["username"] != "a@x.com" {
		t.Errorf("expected editor assigned as author, got %v", sent["author"])
	}
	if updated.ID != "7" || updated.Title != "new" {
		t.Errorf("expected updated post from sent document, got %+v", updated)
	}
}

func TestUpdateDocument(t *testing.T) {
	editor := &session.Identity{ID: "9", Email: "e@x.com", Username: "eve"}
	in := PostInput{Title: "T", Content: "C"}

	tests := []struct {
		name        string
		raw         string
		editor      *session.Identity
		expectEmail string
	}{
		{"no author assigned", `{"id":1,"title":"t","content":"c"}`, editor, "e@x.com"},
		{"empty author assigned", `{"id":1,"author":{}}`, editor, "e@x.com"},
		{"null author assigned", `{"id":1,"author":null}`, editor, "e@x.com"},
		{"existing author kept", `{"id":1,"author":{"email":"o@x.com"}}`, editor, "o@x.com"},
		{"no editor leaves it", `{"id":1}`, nil, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var post Post
			if err := json.Unmarshal([]byte(tc.raw), &post); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			doc, err := UpdateDocument(&post, in, tc.editor)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var got struct {
				ID     json.Number `json:"id"`
				Title  string      `json:"title"`
				Author struct {
					ID       json.Number `json:"id"`
					Email    string      `json:"email"`
					Username string      `json:"username"`
				} `json:"author"`
			}
			if err := json.Unmarshal(doc, &got); err != nil {
				t.Fatalf("result not valid JSON: %v (%s)", err, doc)
			}
			if got.ID != "1" || got.Title != "T" {
				t.Errorf("unexpected document %s", doc)
			}
			if got.Author.Email != tc.expectEmail {
				t.Errorf("expected author email %q, got %q", tc.expectEmail, got.Author.Email)
			}
			if tc.expectEmail == "e@x.com" && (got.Author.ID != "9" || got.Author.Username != "eve") {
				t.Errorf("expected full editor author, got %+v", got.Author)
			}
		})
	}
}

func TestPostExcerpt(t *testing.T) {
	long := make([]rune, ExcerptLength+10)
	for i := range long {
		long[i] = 'ñ'
	}

	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{"short", "hello", "hello"},
		{"exact", string(long[:ExcerptLength]), string(long[:ExcerptLength])},
		{"long", string(long), string(long[:ExcerptLength]) + "..."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Post{Content: tc.content}.Excerpt(ExcerptLength)
			if got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil", nil, ""},
		{"backend message", &APIError{StatusCode: 400, Message: "title taken"}, "title taken"},
		{"backend without message", &APIError{StatusCode: 500}, "fallback"},
		{"not authenticated", ErrNotAuthenticated, "you need to log in first"},
		{"validation", &ValidationError{Problems: []string{"title is required"}}, "title is required"},
		{"other", errors.New("boom"), "fallback"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := UserMessage(tc.err, "fallback"); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}
