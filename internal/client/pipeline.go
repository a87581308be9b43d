// ABOUTME: Request pipeline that attaches the stored credential to every outgoing call
// ABOUTME: Invalidates the issuing session when the backend rejects the credential

package client

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ToniTF/clientcd/internal/storage"
)

type generationKey struct{}

// withGeneration records the session generation a request was issued under
func withGeneration(ctx context.Context, generation uint64) context.Context {
	return context.WithValue(ctx, generationKey{}, generation)
}

func generationFrom(ctx context.Context) (uint64, bool) {
	generation, ok := ctx.Value(generationKey{}).(uint64)
	return generation, ok
}

// authTransport wraps the base transport. It never trusts a caller-supplied
// Authorization header; only the stored credential is sent.
type authTransport struct {
	base    http.RoundTripper
	storage storage.Storage
	session Session
	log     zerolog.Logger
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	generation, ok := generationFrom(req.Context())
	if !ok {
		generation = t.session.Generation()
	}

	// RoundTrippers must not modify the caller's request
	req = req.Clone(req.Context())
	req.Header.Del("Authorization")

	token, err := t.storage.Get(storage.KeyCredential)
	switch {
	case err == nil && token != "":
		req.Header.Set("Authorization", "Bearer "+token)
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		t.log.Warn().Err(err).Msg("Failed to read credential, sending request without it")
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.log.Debug().
			Err(err).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Str("request_id", requestID).
			Dur("latency", time.Since(start)).
			Msg("Request failed")
		return nil, err
	}

	t.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("latency", time.Since(start)).
		Msg("Request completed")

	if resp.StatusCode == http.StatusUnauthorized {
		if t.session.Invalidate(generation) {
			t.log.Warn().Str("request_id", requestID).Msg("Credential rejected, signed out")
		}
	}

	return resp, nil
}
