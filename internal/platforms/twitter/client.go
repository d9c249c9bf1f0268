// File: internal/platforms/twitter/client.go
package twitter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/crosspost-cli/api/schemas"
)

const (
	defaultAPIHost    = "https://api.twitter.com"
	defaultUploadHost = "https://upload.twitter.com"
)

// Client posts to Twitter through the v2 API, with media going through the
// v1.1 upload endpoint. Requests are signed with the account's OAuth 1.0a
// user-context credentials.
type Client struct {
	logger     *zap.Logger
	account    schemas.Account
	apiHost    string
	uploadHost string
	http       *http.Client
	limiter    *rate.Limiter

	username string
}

// Options tunes the client's network behavior.
type Options struct {
	APIHost         string
	UploadHost      string
	Timeout         time.Duration
	RateLimitPerMin float64
}

// NewClient builds a Twitter client for one account.
func NewClient(logger *zap.Logger, account schemas.Account, opts Options) *Client {
	apiHost := opts.APIHost
	if apiHost == "" {
		apiHost = defaultAPIHost
	}
	uploadHost := opts.UploadHost
	if uploadHost == "" {
		uploadHost = defaultUploadHost
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	perMin := opts.RateLimitPerMin
	if perMin <= 0 {
		perMin = 30
	}

	oauthCfg := oauth1.NewConfig(account.APIKey, account.APISecret)
	token := oauth1.NewToken(account.AccessToken, account.AccessTokenSecret)
	httpClient := oauthCfg.Client(context.Background(), token)
	httpClient.Timeout = timeout

	return &Client{
		logger:     logger.Named("twitter").With(zap.String("account", account.AccountID)),
		account:    account,
		apiHost:    apiHost,
		uploadHost: uploadHost,
		http:       httpClient,
		limiter:    rate.NewLimiter(rate.Limit(perMin/60.0), 1),
	}
}

func (c *Client) Account() schemas.Account { return c.account }

func (c *Client) Specs() schemas.PlatformSpecs {
	specs, _ := schemas.SpecsFor(schemas.PlatformTwitter)
	return specs
}

func (c *Client) PostsViaBrowser() bool { return false }

// Post publishes a tweet, uploading the image first when one is given. All
// failures are recovered into the result record.
func (c *Client) Post(ctx context.Context, text, imagePath string) schemas.PostResult {
	fail := func(code, message string) schemas.PostResult {
		return schemas.NewErrorResult("Twitter", c.account.AccountID, c.account.ProfileName, code, message)
	}

	if strings.TrimSpace(text) == "" {
		return fail(schemas.ErrPostEmpty, "")
	}
	if len([]rune(text)) > c.Specs().MaxTextLength {
		return fail(schemas.ErrPostTextTooLong, "")
	}
	if c.account.APIKey == "" || c.account.APISecret == "" ||
		c.account.AccessToken == "" || c.account.AccessTokenSecret == "" {
		return fail(schemas.ErrAuthMissing, "")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fail(schemas.ErrNetTimeout, err.Error())
	}

	payload := map[string]any{"text": text}
	if imagePath != "" {
		mediaID, code, err := c.uploadMedia(ctx, imagePath)
		if err != nil {
			return fail(code, err.Error())
		}
		payload["media"] = map[string]any{"media_ids": []string{mediaID}}
	}

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if code, err := c.call(ctx, http.MethodPost, c.apiHost+"/2/tweets", payload, &created); err != nil {
		return fail(code, err.Error())
	}
	if created.Data.ID == "" {
		return fail(schemas.ErrPostFailed, "tweet created but no id returned")
	}

	postURL := fmt.Sprintf("https://twitter.com/%s/status/%s", c.lookupUsername(ctx), created.Data.ID)
	c.logger.Info("Posted to Twitter", zap.String("tweet_id", created.Data.ID))
	return schemas.NewSuccessResult("Twitter", c.account.AccountID, c.account.ProfileName, postURL)
}

// lookupUsername resolves the authenticated handle for the permalink. On any
// failure it falls back to "i", which twitter.com resolves for its own links.
func (c *Client) lookupUsername(ctx context.Context) string {
	if c.username != "" {
		return c.username
	}

	var me struct {
		Data struct {
			Username string `json:"username"`
		} `json:"data"`
	}
	if _, err := c.call(ctx, http.MethodGet, c.apiHost+"/2/users/me", nil, &me); err != nil {
		c.logger.Debug("Username lookup failed; using generic permalink", zap.Error(err))
		return "i"
	}
	if me.Data.Username == "" {
		return "i"
	}
	c.username = me.Data.Username
	return c.username
}

// uploadMedia pushes the image through the v1.1 chunked-upload endpoint's
// simple form and returns the media id string.
func (c *Client) uploadMedia(ctx context.Context, imagePath string) (string, string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", schemas.ErrImgNotFound, fmt.Errorf("failed to read image: %w", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("media", filepath.Base(imagePath))
	if err != nil {
		return "", schemas.ErrImgUploadFailed, err
	}
	if _, err := part.Write(data); err != nil {
		return "", schemas.ErrImgUploadFailed, err
	}
	if err := form.Close(); err != nil {
		return "", schemas.ErrImgUploadFailed, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.uploadHost+"/1.1/media/upload.json", &body)
	if err != nil {
		return "", schemas.ErrImgUploadFailed, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", schemas.ErrNetConnection, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		code := codeForStatus(resp.StatusCode, respBody)
		if code == schemas.ErrPostFailed {
			code = schemas.ErrImgUploadFailed
		}
		return "", code, fmt.Errorf("media upload: %s: %s", resp.Status, truncate(respBody))
	}

	var uploaded struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.Unmarshal(respBody, &uploaded); err != nil || uploaded.MediaIDString == "" {
		return "", schemas.ErrImgUploadFailed, fmt.Errorf("media upload: bad response: %s", truncate(respBody))
	}
	return uploaded.MediaIDString, "", nil
}

// call performs a signed JSON API request and decodes the response into out.
// On failure it returns a catalog error code alongside the error.
func (c *Client) call(ctx context.Context, method, url string, params any, out any) (string, error) {
	var reqBody io.Reader
	if params != nil {
		payload, err := json.Marshal(params)
		if err != nil {
			return schemas.ErrPostFailed, err
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return schemas.ErrPostFailed, err
	}
	if params != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return schemas.ErrNetConnection, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return codeForStatus(resp.StatusCode, body), fmt.Errorf("%s %s: %s: %s", method, url, resp.Status, truncate(body))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return schemas.ErrPostFailed, fmt.Errorf("%s: bad response: %w", url, err)
		}
	}
	return "", nil
}

// codeForStatus maps an HTTP failure to the catalog. A 403 carrying a
// duplicate-content complaint gets its own code so the user knows changing
// the text is the fix.
func codeForStatus(status int, body []byte) string {
	switch status {
	case http.StatusUnauthorized:
		return schemas.ErrTWAuthExpired
	case http.StatusForbidden:
		if strings.Contains(strings.ToLower(string(body)), "duplicate") {
			return schemas.ErrPostDuplicate
		}
		return schemas.ErrTWAuthInvalid
	case http.StatusTooManyRequests:
		return schemas.ErrTWRateLimit
	}
	return schemas.ErrPostFailed
}

func truncate(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
