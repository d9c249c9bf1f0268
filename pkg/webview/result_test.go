// pkg/webview/result_test.go
package webview_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/crosspost-cli/api/schemas"
	"github.com/xkilldash9x/crosspost-cli/pkg/webview"
)

func TestBuildResult_ConfirmedWithPermalink(t *testing.T) {
	job := webview.NewJob(testAccount(schemas.PlatformFetLife, "fl-1"), "hi", "")
	m := webview.NewMachine()
	require.True(t, m.Confirm("https://fetlife.com/users/1/statuses/2"))

	res := webview.BuildResult(job, m)
	assert.True(t, res.Success)
	assert.True(t, res.UserConfirmed)
	assert.Equal(t, "https://fetlife.com/users/1/statuses/2", res.PostURL)
	assert.True(t, res.URLCaptured)
	assert.Equal(t, "FetLife", res.Platform)
	assert.Equal(t, "fl-1", res.AccountID)
	assert.Empty(t, res.ErrorCode)
	assert.False(t, res.Timestamp.IsZero())
}

func TestBuildResult_ConfirmedWithoutPermalink(t *testing.T) {
	job := webview.NewJob(testAccount(schemas.PlatformSnapchat, "sc-1"), "hi", "")
	m := webview.NewMachine()
	require.True(t, m.Confirm(""))

	res := webview.BuildResult(job, m)
	assert.True(t, res.Success)
	assert.True(t, res.UserConfirmed)
	assert.Empty(t, res.PostURL)
	assert.False(t, res.URLCaptured)
}

func TestBuildResult_ManuallyConfirmed(t *testing.T) {
	job := webview.NewJob(testAccount(schemas.PlatformOnlyFans, "of-1"), "hi", "")
	m := webview.NewMachine()
	require.True(t, m.MarkManuallyConfirmed())

	res := webview.BuildResult(job, m)
	assert.True(t, res.Success)
	assert.True(t, res.UserConfirmed)
	assert.False(t, res.URLCaptured)
}

func TestBuildResult_LoadFailed(t *testing.T) {
	job := webview.NewJob(testAccount(schemas.PlatformFetLife, "fl-1"), "hi", "")
	m := webview.NewMachine()
	require.True(t, m.FailLoad())

	res := webview.BuildResult(job, m)
	assert.False(t, res.Success)
	assert.Equal(t, schemas.ErrWVLoadFailed, res.ErrorCode)
	assert.NotEmpty(t, res.ErrorMessage)
}

func TestBuildResult_TimedOut(t *testing.T) {
	job := webview.NewJob(testAccount(schemas.PlatformOnlyFans, "of-1"), "hi", "")
	m := webview.NewMachine()
	require.True(t, m.TimeOut())

	res := webview.BuildResult(job, m)
	assert.False(t, res.Success)
	assert.False(t, res.UserConfirmed)
	assert.Equal(t, schemas.ErrWVSubmitTimeout, res.ErrorCode)
}

func TestBuildResult_TimedOutWithExpiredSession(t *testing.T) {
	job := webview.NewJob(testAccount(schemas.PlatformOnlyFans, "of-1"), "hi", "")
	m := webview.NewMachine()
	m.NoteSessionExpired()
	require.True(t, m.TimeOut())

	res := webview.BuildResult(job, m)
	assert.False(t, res.Success)
	assert.Equal(t, schemas.ErrWVSessionExpired, res.ErrorCode)
}

func TestBuildResult_UnresolvedReportsTimeout(t *testing.T) {
	job := webview.NewJob(testAccount(schemas.PlatformFansly, "fy-1"), "hi", "")
	m := webview.NewMachine()

	// A machine torn down mid-flight still yields a definite outcome.
	res := webview.BuildResult(job, m)
	assert.False(t, res.Success)
	assert.Equal(t, schemas.ErrWVSubmitTimeout, res.ErrorCode)
}
