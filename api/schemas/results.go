package schemas

import "time"

// PostResult is the application-wide record of one post attempt on one
// account. Both API clients and the webview confirmation engine produce these;
// downstream presentation and the history store consume them without caring
// which origin a record came from. A result is immutable once built.
type PostResult struct {
	Success       bool      `json:"success"`
	Platform      string    `json:"platform"`
	AccountID     string    `json:"account_id"`
	ProfileName   string    `json:"profile_name,omitempty"`
	PostURL       string    `json:"post_url,omitempty"`
	URLCaptured   bool      `json:"url_captured"`
	UserConfirmed bool      `json:"user_confirmed"`
	ErrorCode     string    `json:"error_code,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewSuccessResult builds a successful PostResult for an API platform post.
func NewSuccessResult(platform, accountID, profileName, postURL string) PostResult {
	return PostResult{
		Success:     true,
		Platform:    platform,
		AccountID:   accountID,
		ProfileName: profileName,
		PostURL:     postURL,
		URLCaptured: postURL != "",
		Timestamp:   time.Now(),
	}
}

// NewErrorResult builds a failed PostResult carrying a catalog error code.
// The operator message is resolved from the catalog when message is empty.
func NewErrorResult(platform, accountID, profileName, code, message string) PostResult {
	if message == "" {
		message = MessageFor(code)
	}
	return PostResult{
		Success:      false,
		Platform:     platform,
		AccountID:    accountID,
		ProfileName:  profileName,
		ErrorCode:    code,
		ErrorMessage: message,
		Timestamp:    time.Now(),
	}
}
