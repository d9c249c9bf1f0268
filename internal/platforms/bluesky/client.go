// File: internal/platforms/bluesky/client.go
package bluesky

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/crosspost-cli/api/schemas"
)

const defaultHost = "https://bsky.social"

// Client posts to Bluesky through the com.atproto XRPC endpoints using the
// account's handle and app password.
type Client struct {
	logger  *zap.Logger
	account schemas.Account
	host    string
	http    *http.Client
	limiter *rate.Limiter

	accessJwt string
	did       string
}

// Options tunes the client's network behavior.
type Options struct {
	Host            string
	Timeout         time.Duration
	RateLimitPerMin float64
}

// NewClient builds a Bluesky client for one account.
func NewClient(logger *zap.Logger, account schemas.Account, opts Options) *Client {
	host := opts.Host
	if host == "" {
		host = defaultHost
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	perMin := opts.RateLimitPerMin
	if perMin <= 0 {
		perMin = 30
	}
	return &Client{
		logger:  logger.Named("bluesky").With(zap.String("account", account.AccountID)),
		account: account,
		host:    host,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(perMin/60.0), 1),
	}
}

func (c *Client) Account() schemas.Account { return c.account }

func (c *Client) Specs() schemas.PlatformSpecs {
	specs, _ := schemas.SpecsFor(schemas.PlatformBluesky)
	return specs
}

func (c *Client) PostsViaBrowser() bool { return false }

// Post publishes a post record, uploading the image as a blob first when one
// is given. All failures are recovered into the result record.
func (c *Client) Post(ctx context.Context, text, imagePath string) schemas.PostResult {
	fail := func(code, message string) schemas.PostResult {
		return schemas.NewErrorResult("Bluesky", c.account.AccountID, c.account.ProfileName, code, message)
	}

	if strings.TrimSpace(text) == "" {
		return fail(schemas.ErrPostEmpty, "")
	}
	if len([]rune(text)) > c.Specs().MaxTextLength {
		return fail(schemas.ErrPostTextTooLong, "")
	}
	if c.account.Handle == "" || c.account.AppPassword == "" {
		return fail(schemas.ErrAuthMissing, "")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fail(schemas.ErrNetTimeout, err.Error())
	}

	if code, err := c.createSession(ctx); err != nil {
		return fail(code, err.Error())
	}

	record := map[string]any{
		"$type":     "app.bsky.feed.post",
		"text":      text,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	}
	if facets := detectLinkFacets(text); len(facets) > 0 {
		record["facets"] = facets
	}

	if imagePath != "" {
		blob, code, err := c.uploadBlob(ctx, imagePath)
		if err != nil {
			return fail(code, err.Error())
		}
		record["embed"] = map[string]any{
			"$type": "app.bsky.embed.images",
			"images": []map[string]any{
				{"alt": "", "image": blob},
			},
		}
	}

	var created struct {
		URI string `json:"uri"`
	}
	code, err := c.xrpc(ctx, "com.atproto.repo.createRecord", map[string]any{
		"repo":       c.did,
		"collection": "app.bsky.feed.post",
		"record":     record,
	}, &created)
	if err != nil {
		return fail(code, err.Error())
	}

	postURL := webURLFromATURI(created.URI, c.account.Handle)
	c.logger.Info("Posted to Bluesky", zap.String("uri", created.URI))
	return schemas.NewSuccessResult("Bluesky", c.account.AccountID, c.account.ProfileName, postURL)
}

// createSession authenticates with the app password and caches the access
// token. The token's expiry claim is read without verification purely to
// warn about clock problems; the server remains the authority.
func (c *Client) createSession(ctx context.Context) (string, error) {
	if c.accessJwt != "" {
		return "", nil
	}

	var session struct {
		AccessJwt string `json:"accessJwt"`
		DID       string `json:"did"`
	}
	code, err := c.xrpc(ctx, "com.atproto.server.createSession", map[string]any{
		"identifier": c.account.Handle,
		"password":   c.account.AppPassword,
	}, &session)
	if err != nil {
		if code == schemas.ErrPostFailed {
			code = schemas.ErrBSAuthInvalid
		}
		return code, err
	}

	c.accessJwt = session.AccessJwt
	c.did = session.DID

	if claims := (jwt.MapClaims{}); c.accessJwt != "" {
		if _, _, err := jwt.NewParser().ParseUnverified(c.accessJwt, claims); err == nil {
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
				c.logger.Warn("Bluesky issued an already-expired access token; check the system clock",
					zap.Time("exp", exp.Time))
			}
		}
	}
	return "", nil
}

// uploadBlob uploads the image and returns the blob reference for embedding.
func (c *Client) uploadBlob(ctx context.Context, imagePath string) (map[string]any, string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, schemas.ErrImgNotFound, fmt.Errorf("failed to read image: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.host+"/xrpc/com.atproto.repo.uploadBlob", bytes.NewReader(data))
	if err != nil {
		return nil, schemas.ErrPostFailed, err
	}
	req.Header.Set("Content-Type", contentTypeFor(imagePath))
	req.Header.Set("Authorization", "Bearer "+c.accessJwt)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, schemas.ErrNetConnection, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, codeForStatus(resp.StatusCode), fmt.Errorf("uploadBlob: %s: %s", resp.Status, truncate(body))
	}

	var uploaded struct {
		Blob map[string]any `json:"blob"`
	}
	if err := json.Unmarshal(body, &uploaded); err != nil {
		return nil, schemas.ErrPostFailed, fmt.Errorf("uploadBlob: bad response: %w", err)
	}
	return uploaded.Blob, "", nil
}

// xrpc performs a JSON XRPC procedure call and decodes the response into out.
// On failure it returns a catalog error code alongside the error.
func (c *Client) xrpc(ctx context.Context, method string, params any, out any) (string, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return schemas.ErrPostFailed, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.host+"/xrpc/"+method, bytes.NewReader(payload))
	if err != nil {
		return schemas.ErrPostFailed, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessJwt != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessJwt)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return schemas.ErrNetConnection, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return codeForStatus(resp.StatusCode), fmt.Errorf("%s: %s: %s", method, resp.Status, truncate(body))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return schemas.ErrPostFailed, fmt.Errorf("%s: bad response: %w", method, err)
		}
	}
	return "", nil
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return schemas.ErrBSAuthInvalid
	case http.StatusBadRequest:
		return schemas.ErrBSAuthInvalid
	case http.StatusTooManyRequests:
		return schemas.ErrBSRateLimit
	}
	return schemas.ErrPostFailed
}

func contentTypeFor(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	}
	return "image/jpeg"
}

func truncate(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

var linkRe = regexp.MustCompile(`https?://[^\s]+`)

// detectLinkFacets builds app.bsky.richtext link facets for every URL in the
// text. Bluesky does not auto-link; without facets URLs render as plain text.
// Byte offsets are over the UTF-8 encoding, as the lexicon requires.
func detectLinkFacets(text string) []map[string]any {
	matches := linkRe.FindAllStringIndex(text, -1)
	facets := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		uri := strings.TrimRight(text[m[0]:m[1]], ".,;:!?)")
		facets = append(facets, map[string]any{
			"index": map[string]any{
				"byteStart": m[0],
				"byteEnd":   m[0] + len(uri),
			},
			"features": []map[string]any{
				{"$type": "app.bsky.richtext.facet#link", "uri": uri},
			},
		})
	}
	return facets
}

// webURLFromATURI converts an at:// record URI into the public bsky.app URL.
func webURLFromATURI(atURI, handle string) string {
	// at://did:plc:xxxx/app.bsky.feed.post/rkey
	parts := strings.Split(atURI, "/")
	rkey := parts[len(parts)-1]
	if rkey == "" || !strings.HasPrefix(atURI, "at://") {
		return ""
	}
	return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", handle, rkey)
}
