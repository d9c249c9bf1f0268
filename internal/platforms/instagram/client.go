// File: internal/platforms/instagram/client.go
package instagram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/crosspost-cli/api/schemas"
)

const defaultGraphHost = "https://graph.facebook.com/v21.0"

// Client posts to Instagram Business/Creator accounts through the Graph API
// container flow: host the image on the linked Facebook Page, create a media
// container, publish it, then fetch the permalink.
type Client struct {
	logger  *zap.Logger
	account schemas.Account
	host    string
	http    *http.Client
	limiter *rate.Limiter
}

// Options tunes the client's network behavior.
type Options struct {
	Host            string
	Timeout         time.Duration
	RateLimitPerMin float64
}

// NewClient builds an Instagram client for one account.
func NewClient(logger *zap.Logger, account schemas.Account, opts Options) *Client {
	host := opts.Host
	if host == "" {
		host = defaultGraphHost
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	perMin := opts.RateLimitPerMin
	if perMin <= 0 {
		perMin = 30
	}
	return &Client{
		logger:  logger.Named("instagram").With(zap.String("account", account.AccountID)),
		account: account,
		host:    host,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(perMin/60.0), 1),
	}
}

func (c *Client) Account() schemas.Account { return c.account }

func (c *Client) Specs() schemas.PlatformSpecs {
	specs, _ := schemas.SpecsFor(schemas.PlatformInstagram)
	return specs
}

func (c *Client) PostsViaBrowser() bool { return false }

// Post publishes an image with a caption. Instagram has no text-only posts,
// so a missing image is rejected up front. All failures are recovered into
// the result record.
func (c *Client) Post(ctx context.Context, text, imagePath string) schemas.PostResult {
	fail := func(code, message string) schemas.PostResult {
		return schemas.NewErrorResult("Instagram", c.account.AccountID, c.account.ProfileName, code, message)
	}

	if len([]rune(text)) > c.Specs().MaxTextLength {
		return fail(schemas.ErrPostTextTooLong, "")
	}
	if c.account.AccessToken == "" || c.account.IGUserID == "" {
		return fail(schemas.ErrAuthMissing, "")
	}
	if imagePath == "" {
		return fail(schemas.ErrPostFailed, "Instagram requires an image for each post.")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fail(schemas.ErrNetTimeout, err.Error())
	}

	imageURL, code, err := c.hostImage(ctx, imagePath)
	if err != nil {
		return fail(code, err.Error())
	}

	containerID, code, err := c.createContainer(ctx, imageURL, text)
	if err != nil {
		return fail(code, err.Error())
	}

	mediaID, code, err := c.publishContainer(ctx, containerID)
	if err != nil {
		return fail(code, err.Error())
	}

	// Permalink retrieval is best-effort: the post is already live.
	postURL := c.fetchPermalink(ctx, mediaID)
	c.logger.Info("Posted to Instagram", zap.String("media_id", mediaID))
	return schemas.NewSuccessResult("Instagram", c.account.AccountID, c.account.ProfileName, postURL)
}

// hostImage uploads the image unpublished to the linked Facebook Page and
// returns its hosted URL. The Graph API only accepts container images by
// public URL, so the page doubles as the host.
func (c *Client) hostImage(ctx context.Context, imagePath string) (string, string, error) {
	if c.account.PageID == "" {
		return "", schemas.ErrImgUploadFailed, fmt.Errorf("no Facebook Page id configured for image hosting")
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", schemas.ErrImgNotFound, fmt.Errorf("failed to read image: %w", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("source", filepath.Base(imagePath))
	if err != nil {
		return "", schemas.ErrImgUploadFailed, err
	}
	if _, err := part.Write(data); err != nil {
		return "", schemas.ErrImgUploadFailed, err
	}
	_ = form.WriteField("published", "false")
	_ = form.WriteField("access_token", c.account.AccessToken)
	if err := form.Close(); err != nil {
		return "", schemas.ErrImgUploadFailed, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.host+"/"+c.account.PageID+"/photos", &body)
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
		code := codeForStatus(resp.StatusCode)
		if code == schemas.ErrPostFailed {
			code = schemas.ErrImgUploadFailed
		}
		return "", code, fmt.Errorf("photo upload: %s: %s", resp.Status, truncate(respBody))
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &uploaded); err != nil || uploaded.ID == "" {
		return "", schemas.ErrImgUploadFailed, fmt.Errorf("photo upload: bad response: %s", truncate(respBody))
	}

	var photo struct {
		Images []struct {
			Source string `json:"source"`
		} `json:"images"`
	}
	if code, err := c.get(ctx, uploaded.ID, "images", &photo); err != nil {
		return "", code, err
	}
	if len(photo.Images) == 0 || photo.Images[0].Source == "" {
		return "", schemas.ErrImgUploadFailed, fmt.Errorf("could not retrieve hosted image url")
	}
	return photo.Images[0].Source, "", nil
}

// createContainer creates the IG media container and returns its id.
func (c *Client) createContainer(ctx context.Context, imageURL, caption string) (string, string, error) {
	var created struct {
		ID string `json:"id"`
	}
	code, err := c.postForm(ctx, c.account.IGUserID+"/media", url.Values{
		"image_url": {imageURL},
		"caption":   {caption},
	}, &created)
	if err != nil {
		return "", code, err
	}
	if created.ID == "" {
		return "", schemas.ErrPostFailed, fmt.Errorf("container created but no id returned")
	}
	return created.ID, "", nil
}

// publishContainer publishes the container and returns the media id.
func (c *Client) publishContainer(ctx context.Context, containerID string) (string, string, error) {
	var published struct {
		ID string `json:"id"`
	}
	code, err := c.postForm(ctx, c.account.IGUserID+"/media_publish", url.Values{
		"creation_id": {containerID},
	}, &published)
	if err != nil {
		return "", code, err
	}
	if published.ID == "" {
		return "", schemas.ErrPostFailed, fmt.Errorf("publish succeeded but no media id returned")
	}
	return published.ID, "", nil
}

// fetchPermalink asks for the published media's permalink. Failures only cost
// the link, never the post.
func (c *Client) fetchPermalink(ctx context.Context, mediaID string) string {
	var media struct {
		Permalink string `json:"permalink"`
	}
	if _, err := c.get(ctx, mediaID, "permalink", &media); err != nil {
		c.logger.Warn("Instagram permalink fetch failed", zap.Error(err))
		return ""
	}
	return media.Permalink
}

// postForm performs a form-encoded Graph API POST and decodes into out.
func (c *Client) postForm(ctx context.Context, path string, params url.Values, out any) (string, error) {
	params.Set("access_token", c.account.AccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.host+"/"+path, strings.NewReader(params.Encode()))
	if err != nil {
		return schemas.ErrPostFailed, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return schemas.ErrNetConnection, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return codeForStatus(resp.StatusCode), fmt.Errorf("%s: %s: %s", path, resp.Status, truncate(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return schemas.ErrPostFailed, fmt.Errorf("%s: bad response: %w", path, err)
	}
	return "", nil
}

// get performs a Graph API field read on one object.
func (c *Client) get(ctx context.Context, objectID, fields string, out any) (string, error) {
	u := fmt.Sprintf("%s/%s?fields=%s&access_token=%s",
		c.host, objectID, url.QueryEscape(fields), url.QueryEscape(c.account.AccessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return schemas.ErrPostFailed, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return schemas.ErrNetConnection, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return codeForStatus(resp.StatusCode), fmt.Errorf("%s: %s: %s", objectID, resp.Status, truncate(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return schemas.ErrPostFailed, fmt.Errorf("%s: bad response: %w", objectID, err)
	}
	return "", nil
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return schemas.ErrIGAuthExpired
	case http.StatusBadRequest:
		return schemas.ErrIGAuthInvalid
	case http.StatusTooManyRequests:
		return schemas.ErrIGRateLimit
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
