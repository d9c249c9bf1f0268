package schemas

// Error codes produced by the posting pipeline. Webview (WV-*) codes come
// from the browser confirmation engine; the rest from API clients and the
// image pre-check. All of them are recovered into PostResults, never fatal.
const (
	ErrWVLoadFailed       = "WV-LOAD-FAILED"
	ErrWVPrefillFailed    = "WV-PREFILL-FAILED"
	ErrWVSubmitTimeout    = "WV-SUBMIT-TIMEOUT"
	ErrWVSessionExpired   = "WV-SESSION-EXPIRED"
	ErrWVURLCaptureFailed = "WV-URL-CAPTURE-FAILED"

	ErrBSAuthInvalid = "BS-AUTH-INVALID"
	ErrBSAuthExpired = "BS-AUTH-EXPIRED"
	ErrBSRateLimit   = "BS-RATE-LIMIT"
	ErrTWAuthInvalid = "TW-AUTH-INVALID"
	ErrTWAuthExpired = "TW-AUTH-EXPIRED"
	ErrTWRateLimit   = "TW-RATE-LIMIT"
	ErrIGAuthInvalid = "IG-AUTH-INVALID"
	ErrIGAuthExpired = "IG-AUTH-EXPIRED"
	ErrIGRateLimit   = "IG-RATE-LIMIT"
	ErrAuthMissing   = "AUTH-MISSING"

	ErrImgNotFound      = "IMG-NOT-FOUND"
	ErrImgTooLarge      = "IMG-TOO-LARGE"
	ErrImgInvalidFormat = "IMG-INVALID-FORMAT"
	ErrImgCorrupt       = "IMG-CORRUPT"
	ErrImgUploadFailed  = "IMG-UPLOAD-FAILED"

	ErrNetTimeout    = "NET-TIMEOUT"
	ErrNetConnection = "NET-CONNECTION"

	ErrPostTextTooLong = "POST-TEXT-TOO-LONG"
	ErrPostFailed      = "POST-FAILED"
	ErrPostEmpty       = "POST-EMPTY"
	ErrPostDuplicate   = "POST-DUPLICATE"
)

// errorMessages maps codes to terse operator descriptions (logs, history).
var errorMessages = map[string]string{
	ErrWVLoadFailed:       "Composer page failed to load.",
	ErrWVPrefillFailed:    "Platform requires the browser panel for posting.",
	ErrWVSubmitTimeout:    "Post was not confirmed before the timeout.",
	ErrWVSessionExpired:   "No stored browser session for this account.",
	ErrWVURLCaptureFailed: "Post confirmed but no permalink was captured.",
	ErrBSAuthInvalid:      "Bluesky app password is invalid.",
	ErrBSAuthExpired:      "Bluesky session has expired.",
	ErrBSRateLimit:        "Bluesky rate limit exceeded.",
	ErrTWAuthInvalid:      "Twitter credentials are invalid.",
	ErrTWAuthExpired:      "Twitter access token has expired.",
	ErrTWRateLimit:        "Twitter rate limit exceeded.",
	ErrIGAuthInvalid:      "Instagram credentials are invalid.",
	ErrIGAuthExpired:      "Instagram access token has expired.",
	ErrIGRateLimit:        "Instagram rate limit exceeded.",
	ErrAuthMissing:        "No credentials found for platform.",
	ErrImgNotFound:        "Image file does not exist.",
	ErrImgTooLarge:        "Image file size exceeds platform limits.",
	ErrImgInvalidFormat:   "Image format not supported.",
	ErrImgCorrupt:         "Image file is corrupted or unreadable.",
	ErrImgUploadFailed:    "Image upload to platform failed.",
	ErrNetTimeout:         "Request timed out.",
	ErrNetConnection:      "Could not connect to platform.",
	ErrPostTextTooLong:    "Post text exceeds character limit.",
	ErrPostFailed:         "Post submission failed.",
	ErrPostEmpty:          "Post text cannot be empty.",
	ErrPostDuplicate:      "Platform rejected duplicate post.",
}

// friendlyMessages maps codes to guidance shown directly to the user.
var friendlyMessages = map[string]string{
	ErrWVLoadFailed:     "The page didn't load. Check your connection and try again.",
	ErrWVSubmitTimeout:  "We couldn't tell whether this posted. If it did, use 'mark done' next time.",
	ErrWVSessionExpired: "You appear to be logged out on this site. Log in inside the window and post manually.",
	ErrBSAuthInvalid:    "Your Bluesky app password is incorrect. Please check it in the config.",
	ErrBSAuthExpired:    "Your Bluesky session expired. Please reconnect.",
	ErrBSRateLimit:      "Bluesky says you're posting too fast. Try again in a few minutes.",
	ErrTWAuthInvalid:    "Your Twitter credentials don't seem to be working. Please check them in the config.",
	ErrTWAuthExpired:    "Your Twitter access token has expired. Please update it in the config.",
	ErrTWRateLimit:      "Twitter says you're posting too fast. Try again in about 15 minutes.",
	ErrIGAuthInvalid:    "Your Instagram credentials don't seem to be working. Please check them in the config.",
	ErrIGAuthExpired:    "Your Instagram access token has expired. Please reconnect the account.",
	ErrIGRateLimit:      "Instagram says you're posting too fast. Try again in a few minutes.",
	ErrAuthMissing:      "No credentials found. Add the account to your config first.",
	ErrImgNotFound:      "The selected image file can't be found. It may have been moved or deleted.",
	ErrImgTooLarge:      "This image is too big for the platform.",
	ErrImgInvalidFormat: "This image format isn't supported. Please use JPEG or PNG.",
	ErrImgCorrupt:       "This image file appears to be corrupted. Please try a different image.",
	ErrImgUploadFailed:  "Image upload failed. Please try again.",
	ErrPostTextTooLong:  "Your post is too long for this platform. Please shorten it.",
	ErrPostEmpty:        "Please enter some text before posting.",
	ErrPostDuplicate:    "This platform thinks this is a duplicate post. Try changing the text slightly.",
}

// MessageFor returns the operator description for a code, or the code itself
// when the catalog has no entry.
func MessageFor(code string) string {
	if m, ok := errorMessages[code]; ok {
		return m
	}
	return code
}

// FriendlyMessageFor returns user guidance for a code, falling back to the
// operator description.
func FriendlyMessageFor(code string) string {
	if m, ok := friendlyMessages[code]; ok {
		return m
	}
	return MessageFor(code)
}
