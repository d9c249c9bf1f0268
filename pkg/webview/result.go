// pkg/webview/result.go
package webview

import (
	"time"

	"github.com/xkilldash9x/crosspost-cli/api/schemas"
)

// BuildResult converts a job's terminal state into the application-wide
// result record. This is the seam where webview outcomes and direct-API
// outcomes converge into one homogeneous list; a non-terminal machine is
// reported as a timeout so callers always receive a definite outcome.
func BuildResult(job Job, m *Machine) schemas.PostResult {
	platformName := string(job.Account.Platform)
	if specs, ok := schemas.SpecsFor(job.Account.Platform); ok {
		platformName = specs.PlatformName
	}

	res := schemas.PostResult{
		Platform:    platformName,
		AccountID:   job.Account.AccountID,
		ProfileName: job.Account.ProfileName,
		Timestamp:   time.Now(),
	}

	switch m.State() {
	case StateConfirmed, StateManuallyConfirmed:
		res.Success = true
		res.UserConfirmed = true
		res.PostURL = m.Permalink()
		res.URLCaptured = res.PostURL != ""
	case StateLoadFailed:
		res.ErrorCode = schemas.ErrWVLoadFailed
		res.ErrorMessage = schemas.MessageFor(res.ErrorCode)
	default:
		// TimedOut, or torn down before resolving.
		res.ErrorCode = schemas.ErrWVSubmitTimeout
		if m.SessionExpired() {
			res.ErrorCode = schemas.ErrWVSessionExpired
		}
		res.ErrorMessage = schemas.MessageFor(res.ErrorCode)
	}
	return res
}
