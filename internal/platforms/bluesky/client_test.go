// File: internal/platforms/bluesky/client_test.go
package bluesky

import (
	"context"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/crosspost-cli/api/schemas"
)

func testBskyAccount() schemas.Account {
	return schemas.Account{
		Platform:    schemas.PlatformBluesky,
		AccountID:   "bsky-main",
		ProfileName: "Main",
		Handle:      "me.bsky.social",
		AppPassword: "xxxx-xxxx-xxxx-xxxx",
	}
}

// fakePDS is a minimal XRPC server covering the endpoints the client uses.
type fakePDS struct {
	t *testing.T

	sessionStatus int
	createStatus  int
	uploadStatus  int

	createdRecords []map[string]any
	uploadedBytes  int
}

func (f *fakePDS) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/xrpc/com.atproto.server.createSession", func(w http.ResponseWriter, r *http.Request) {
		if f.sessionStatus != 0 {
			http.Error(w, `{"error":"AuthenticationRequired"}`, f.sessionStatus)
			return
		}
		var creds map[string]string
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(f.t, "me.bsky.social", creds["identifier"])
		writeJSON(f.t, w, map[string]any{"accessJwt": "test-token", "did": "did:plc:abc123"})
	})
	mux.HandleFunc("/xrpc/com.atproto.repo.uploadBlob", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "Bearer test-token", r.Header.Get("Authorization"))
		if f.uploadStatus != 0 {
			http.Error(w, `{"error":"BlobTooLarge"}`, f.uploadStatus)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.uploadedBytes = len(body)
		writeJSON(f.t, w, map[string]any{
			"blob": map[string]any{"$type": "blob", "ref": map[string]any{"$link": "bafyrei"}},
		})
	})
	mux.HandleFunc("/xrpc/com.atproto.repo.createRecord", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "Bearer test-token", r.Header.Get("Authorization"))
		if f.createStatus != 0 {
			http.Error(w, `{"error":"RateLimitExceeded"}`, f.createStatus)
			return
		}
		var req map[string]any
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		f.createdRecords = append(f.createdRecords, req)
		writeJSON(f.t, w, map[string]any{
			"uri": "at://did:plc:abc123/app.bsky.feed.post/3kabc",
			"cid": "bafyreicid",
		})
	})
	return mux
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func newTestClient(t *testing.T, pds *fakePDS) *Client {
	t.Helper()
	srv := httptest.NewServer(pds.handler())
	t.Cleanup(srv.Close)
	return NewClient(zaptest.NewLogger(t), testBskyAccount(), Options{
		Host:            srv.URL,
		RateLimitPerMin: 100000, // effectively unlimited for tests
	})
}

func TestClient_PostSuccess(t *testing.T) {
	pds := &fakePDS{t: t}
	c := newTestClient(t, pds)

	res := c.Post(context.Background(), "hello from the test suite", "")

	assert.True(t, res.Success)
	assert.Equal(t, "Bluesky", res.Platform)
	assert.Equal(t, "https://bsky.app/profile/me.bsky.social/post/3kabc", res.PostURL)
	assert.True(t, res.URLCaptured)

	require.Len(t, pds.createdRecords, 1)
	record := pds.createdRecords[0]["record"].(map[string]any)
	assert.Equal(t, "app.bsky.feed.post", record["$type"])
	assert.Equal(t, "hello from the test suite", record["text"])
	assert.NotContains(t, record, "facets")
}

func TestClient_PostWithLinkFacets(t *testing.T) {
	pds := &fakePDS{t: t}
	c := newTestClient(t, pds)

	res := c.Post(context.Background(), "check https://example.com/page.", "")
	require.True(t, res.Success)

	record := pds.createdRecords[0]["record"].(map[string]any)
	facets, ok := record["facets"].([]any)
	require.True(t, ok)
	require.Len(t, facets, 1)
}

func TestClient_PostWithImage(t *testing.T) {
	pds := &fakePDS{t: t}
	c := newTestClient(t, pds)

	imgPath := writeTestPNG(t, 10, 10)
	res := c.Post(context.Background(), "with a picture", imgPath)
	require.True(t, res.Success)
	assert.Positive(t, pds.uploadedBytes)

	record := pds.createdRecords[0]["record"].(map[string]any)
	embed, ok := record["embed"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "app.bsky.embed.images", embed["$type"])
}

func TestClient_PostValidation(t *testing.T) {
	pds := &fakePDS{t: t}

	res := newTestClient(t, pds).Post(context.Background(), "   ", "")
	assert.Equal(t, schemas.ErrPostEmpty, res.ErrorCode)

	res = newTestClient(t, pds).Post(context.Background(), strings.Repeat("x", 301), "")
	assert.Equal(t, schemas.ErrPostTextTooLong, res.ErrorCode)

	noCreds := NewClient(zaptest.NewLogger(t), schemas.Account{
		Platform: schemas.PlatformBluesky, AccountID: "bsky-2",
	}, Options{})
	res = noCreds.Post(context.Background(), "hi", "")
	assert.Equal(t, schemas.ErrAuthMissing, res.ErrorCode)

	// Local validation failures never touch the network.
	assert.Empty(t, pds.createdRecords)

	// The limit counts characters, not bytes: 300 two-byte runes still post.
	res = newTestClient(t, pds).Post(context.Background(), strings.Repeat("ä", 300), "")
	assert.True(t, res.Success)
}

func TestClient_InvalidPassword(t *testing.T) {
	pds := &fakePDS{t: t, sessionStatus: http.StatusUnauthorized}
	res := newTestClient(t, pds).Post(context.Background(), "hi", "")

	assert.False(t, res.Success)
	assert.Equal(t, schemas.ErrBSAuthInvalid, res.ErrorCode)
}

func TestClient_RateLimited(t *testing.T) {
	pds := &fakePDS{t: t, createStatus: http.StatusTooManyRequests}
	res := newTestClient(t, pds).Post(context.Background(), "hi", "")

	assert.False(t, res.Success)
	assert.Equal(t, schemas.ErrBSRateLimit, res.ErrorCode)
}

func TestClient_MissingImage(t *testing.T) {
	pds := &fakePDS{t: t}
	res := newTestClient(t, pds).Post(context.Background(), "hi", filepath.Join(t.TempDir(), "gone.png"))

	assert.False(t, res.Success)
	assert.Equal(t, schemas.ErrImgNotFound, res.ErrorCode)
}

func TestClient_ConnectionRefused(t *testing.T) {
	c := NewClient(zaptest.NewLogger(t), testBskyAccount(), Options{
		Host:            "http://127.0.0.1:1", // nothing listens here
		RateLimitPerMin: 100000,
	})
	res := c.Post(context.Background(), "hi", "")
	assert.Equal(t, schemas.ErrNetConnection, res.ErrorCode)
}

func TestDetectLinkFacets(t *testing.T) {
	assert.Empty(t, detectLinkFacets("no links here"))

	facets := detectLinkFacets("see https://example.com/a and http://two.example.org!")
	require.Len(t, facets, 2)

	idx := facets[0]["index"].(map[string]any)
	features := facets[0]["features"].([]map[string]any)
	assert.Equal(t, 4, idx["byteStart"])
	assert.Equal(t, "https://example.com/a", features[0]["uri"])

	// Trailing punctuation is not part of the link.
	features = facets[1]["features"].([]map[string]any)
	assert.Equal(t, "http://two.example.org", features[0]["uri"])

	// Offsets are byte offsets over the UTF-8 encoding.
	facets = detectLinkFacets("héllo https://example.com")
	require.Len(t, facets, 1)
	idx = facets[0]["index"].(map[string]any)
	assert.Equal(t, len("héllo "), idx["byteStart"])
}

func TestWebURLFromATURI(t *testing.T) {
	assert.Equal(t,
		"https://bsky.app/profile/me.bsky.social/post/3kabc",
		webURLFromATURI("at://did:plc:abc123/app.bsky.feed.post/3kabc", "me.bsky.social"))

	assert.Empty(t, webURLFromATURI("", "me.bsky.social"))
	assert.Empty(t, webURLFromATURI("not-an-at-uri", "me.bsky.social"))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "image/png", contentTypeFor("a/b.PNG"))
	assert.Equal(t, "image/gif", contentTypeFor("x.gif"))
	assert.Equal(t, "image/webp", contentTypeFor("x.webp"))
	assert.Equal(t, "image/jpeg", contentTypeFor("x.jpg"))
	assert.Equal(t, "image/jpeg", contentTypeFor("unknown.bin"))
}

func writeTestPNG(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
	return path
}
