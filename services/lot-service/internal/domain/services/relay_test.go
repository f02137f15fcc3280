package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/athebyme/funpay-bridge/services/lot-service/internal/adapters/logger"
	"github.com/stretchr/testify/assert"
)

func newImageHost(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/1.jpg", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("1")) })
	mux.HandleFunc("/2.jpg", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) })
	mux.HandleFunc("/3.jpg", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("3")) })
	mux.HandleFunc("/big.jpg", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write(make([]byte, 64)) })
	mux.HandleFunc("/slow.jpg", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte("slow"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type failingUploader struct {
	failOn string
	calls  int
}

func (u *failingUploader) UploadImage(_ context.Context, data []byte) (string, error) {
	u.calls++
	if string(data) == u.failOn {
		return "", errors.New("upload rejected")
	}
	return "id" + string(data), nil
}

func TestImageRelaySkipsFailedDownloads(t *testing.T) {
	srv := newImageHost(t)
	relay := NewImageRelay(time.Second, 0, logger.NewNop())

	ids := relay.Relay(context.Background(), []string{srv.URL + "/1.jpg", srv.URL + "/2.jpg", srv.URL + "/3.jpg"}, &failingUploader{})
	assert.Equal(t, []string{"id1", "id3"}, ids)
}

func TestImageRelaySkipsFailedUploads(t *testing.T) {
	srv := newImageHost(t)
	relay := NewImageRelay(time.Second, 0, logger.NewNop())
	uploader := &failingUploader{failOn: "1"}

	ids := relay.Relay(context.Background(), []string{srv.URL + "/1.jpg", srv.URL + "/3.jpg"}, uploader)
	assert.Equal(t, []string{"id3"}, ids)
	assert.Equal(t, 2, uploader.calls)
}

func TestImageRelayTimeoutIsPerImage(t *testing.T) {
	srv := newImageHost(t)
	relay := NewImageRelay(100*time.Millisecond, 0, logger.NewNop())

	start := time.Now()
	ids := relay.Relay(context.Background(), []string{srv.URL + "/slow.jpg", srv.URL + "/3.jpg"}, &failingUploader{})
	assert.Equal(t, []string{"id3"}, ids)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestImageRelaySizeLimit(t *testing.T) {
	srv := newImageHost(t)
	relay := NewImageRelay(time.Second, 10, logger.NewNop())

	ids := relay.Relay(context.Background(), []string{srv.URL + "/big.jpg", srv.URL + "/1.jpg"}, &failingUploader{})
	assert.Equal(t, []string{"id1"}, ids)
}

func TestImageRelayNoURLs(t *testing.T) {
	relay := NewImageRelay(time.Second, 0, logger.NewNop())
	assert.Empty(t, relay.Relay(context.Background(), nil, &failingUploader{}))
}
