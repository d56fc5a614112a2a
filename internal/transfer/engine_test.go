package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}

func TestEngine_Download(t *testing.T) {
	payload := bytes.Repeat([]byte("z"), 20000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "Weekly Sync 2024-01-20 at 15-04", "audio_only_duration_30_minutes.m4a")
	engine := New(Config{Retry: fastRetry})

	require.NoError(t, engine.Download(context.Background(), srv.URL, dest, int64(len(payload))))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestEngine_Download_SizeMismatchDeletesAndDoesNotRetry(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		_, _ = w.Write([]byte("short body"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "rec.mp4")
	engine := New(Config{Retry: fastRetry})

	err := engine.Download(context.Background(), srv.URL, dest, 1000)

	var mismatch *SizeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int64(1000), mismatch.Expected)
	assert.Equal(t, int64(10), mismatch.Actual)
	assert.NoFileExists(t, dest)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestEngine_Download_UnknownSizeAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("transcript"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "rec.vtt")
	require.NoError(t, New(Config{Retry: fastRetry}).Download(context.Background(), srv.URL, dest, 0))
	assert.FileExists(t, dest)
}

func TestEngine_Download_RetriesNetworkErrors(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "rec.mp4")
	require.NoError(t, New(Config{Retry: fastRetry}).Download(context.Background(), srv.URL, dest, 10))
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestEngine_Download_GivesUpAfterMaxAttempts(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "rec.mp4")
	err := New(Config{Retry: fastRetry}).Download(context.Background(), srv.URL+"/rec?access_token=secret", dest, 10)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusServiceUnavailable, netErr.StatusCode)
	assert.NotContains(t, err.Error(), "secret")
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
	assert.NoFileExists(t, dest)
}

func TestEngine_Download_LocalErrorNotRetried(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	// The destination is a directory, so creating the file fails locally.
	dest := filepath.Join(t.TempDir(), "rec.mp4")
	require.NoError(t, os.Mkdir(dest, 0o755))

	err := New(Config{Retry: fastRetry}).Download(context.Background(), srv.URL+"/rec", dest, 10)
	require.Error(t, err)
	var netErr *NetworkError
	assert.False(t, errors.As(err, &netErr))
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

type renewingTokens struct {
	current string
	renews  int32
}

func (r *renewingTokens) Token(context.Context) (string, error) { return r.current, nil }

func (r *renewingTokens) Renew(_ context.Context, stale string) (string, error) {
	atomic.AddInt32(&r.renews, 1)
	r.current = stale + "-renewed"
	return r.current, nil
}

func TestEngine_Download_RenewsTokenOn401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-renewed" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	tokens := &renewingTokens{current: "tok"}
	engine := New(Config{Retry: fastRetry, Tokens: tokens})

	dest := filepath.Join(t.TempDir(), "rec.mp4")
	require.NoError(t, engine.Download(context.Background(), srv.URL, dest, 10))
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokens.renews))
}

func TestEngine_Download_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	engine := New(Config{Retry: RetryPolicy{MaxAttempts: 3, Delay: time.Hour}})

	errCh := make(chan error, 1)
	go func() {
		errCh <- engine.Download(ctx, srv.URL, filepath.Join(t.TempDir(), "rec.mp4"), 10)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("download did not stop after cancel")
	}
}

type fakeUploader struct {
	calls    int32
	failures int32
	err      error
	progress bool
}

func (f *fakeUploader) UploadFile(_ context.Context, path, folderID string, progress ProgressFunc) (string, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if progress != nil {
		f.progress = true
		progress(4, 8)
	}
	if n <= f.failures {
		return "", f.err
	}
	return folderID + "/" + filepath.Base(path), nil
}

func writeFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rec.mp4")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), size), 0o644))
	return path
}

func TestEngine_Upload(t *testing.T) {
	uploader := &fakeUploader{failures: 1, err: errors.New("googleapi: Error 503")}
	var progress strings.Builder
	engine := New(Config{Retry: fastRetry, Uploader: uploader, Progress: &progress})

	id, err := engine.Upload(context.Background(), writeFile(t, 64), "folder-1")
	require.NoError(t, err)
	assert.Equal(t, "folder-1/rec.mp4", id)
	assert.Equal(t, int32(2), atomic.LoadInt32(&uploader.calls))
	assert.True(t, uploader.progress)
}

func TestEngine_Upload_TooSmall(t *testing.T) {
	uploader := &fakeUploader{}
	engine := New(Config{Retry: fastRetry, Uploader: uploader})

	_, err := engine.Upload(context.Background(), writeFile(t, 7), "folder-1")

	var tooSmall *TooSmallError
	require.ErrorAs(t, err, &tooSmall)
	assert.Equal(t, int64(7), tooSmall.Size)
	assert.Equal(t, int64(DefaultMinUploadSize), tooSmall.Minimum)
	assert.Zero(t, atomic.LoadInt32(&uploader.calls))
}

func TestEngine_Upload_ExactlyMinimum(t *testing.T) {
	uploader := &fakeUploader{}
	engine := New(Config{Retry: fastRetry, Uploader: uploader})

	_, err := engine.Upload(context.Background(), writeFile(t, 8), "folder-1")
	require.NoError(t, err)
}

func TestEngine_Upload_GivesUp(t *testing.T) {
	uploader := &fakeUploader{failures: 10, err: errors.New("quota exceeded")}
	engine := New(Config{Retry: fastRetry, Uploader: uploader})

	_, err := engine.Upload(context.Background(), writeFile(t, 64), "folder-1")
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&uploader.calls))
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(&NetworkError{URL: "u", StatusCode: 502}))
	assert.True(t, retryable(errors.New("boom")))
	assert.False(t, retryable(nil))
	assert.False(t, retryable(&SizeMismatchError{}))
	assert.False(t, retryable(&TooSmallError{}))
	assert.False(t, retryable(context.Canceled))
}

func TestRetryableDownload(t *testing.T) {
	assert.True(t, retryableDownload(&NetworkError{URL: "u", StatusCode: 502}))
	assert.True(t, retryableDownload(fmt.Errorf("attempt: %w", &NetworkError{URL: "u", Err: errors.New("reset")})))
	assert.False(t, retryableDownload(errors.New("create rec.mp4: is a directory")))
	assert.False(t, retryableDownload(&SizeMismatchError{}))
	assert.False(t, retryableDownload(nil))
}
