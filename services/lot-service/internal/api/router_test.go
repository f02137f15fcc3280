package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/athebyme/funpay-bridge/pkg/dto"
	perrors "github.com/athebyme/funpay-bridge/pkg/errors"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/adapters/cache"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/adapters/logger"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/models"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/services"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/funpay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const copyForm = `<form>
<input type="hidden" name="csrf_token" value="">
<input type="hidden" name="offer_id" value="0">
<input type="hidden" name="node_id" value="10">
<input name="price" value="">
<textarea name="fields[summary][ru]"></textarea>
<textarea name="fields[desc][ru]"></textarea>
</form>`

// marketSession сессия маркетплейса в памяти для проверки маршрутов целиком
type marketSession struct {
	mu      sync.Mutex
	images  string
	saved   []models.FieldMap
	uploads int
}

func (s *marketSession) UserID() int64                 { return 77 }
func (s *marketSession) Username() string              { return "target" }
func (s *marketSession) CSRFToken() string             { return "tok" }
func (s *marketSession) Refresh(context.Context) error { return nil }

func (s *marketSession) SubcategoryPublicLots(_ context.Context, _ models.SubcategoryType, id int64, _ string) ([]models.Listing, error) {
	if id != 10 {
		return nil, nil
	}
	lot := func(lotID int64, seller int64) models.Listing {
		return models.Listing{
			ID:              lotID,
			SubcategoryID:   10,
			SubcategoryType: models.SubcategoryCommon,
			Description:     fmt.Sprintf("lot %d", lotID),
			Price:           "100",
			Currency:        "RUB",
			Seller:          models.Seller{ID: seller, Username: "source"},
		}
	}
	return []models.Listing{lot(1, 123), lot(2, 123), lot(3, 999)}, nil
}

func (s *marketSession) LotPage(_ context.Context, lotID int64, _ string) (*models.ListingDetail, error) {
	image := s.images + "/ok.jpg"
	if lotID == 2 {
		image = s.images + "/broken.jpg"
	}
	return &models.ListingDetail{LotID: lotID, FullDescription: "full", ImageURLs: []string{image}}, nil
}

func (s *marketSession) UserProfile(_ context.Context, userID int64) (*models.UserProfile, error) {
	if userID != 123 {
		return nil, perrors.ErrNotFound
	}
	return &models.UserProfile{ID: 123, Username: "source", Listings: []models.Listing{
		{ID: 1, SubcategoryID: 10, SubcategoryType: models.SubcategoryCommon},
		{ID: 2, SubcategoryID: 10, SubcategoryType: models.SubcategoryCommon},
		{ID: 4, SubcategoryID: 50, SubcategoryType: models.SubcategoryCurrency},
	}}, nil
}

func (s *marketSession) OfferEditForm(context.Context, int64, int64) (string, error) {
	return copyForm, nil
}

func (s *marketSession) SaveLot(_ context.Context, fields models.FieldMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, fields)
	return nil
}

func (s *marketSession) UploadImage(context.Context, []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads++
	return fmt.Sprintf("%d", s.uploads), nil
}

func newTestServer(t *testing.T) (*httptest.Server, *marketSession) {
	t.Helper()

	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken.jpg" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("jpeg"))
	}))
	t.Cleanup(images.Close)

	session := &marketSession{images: images.URL}
	open := func(_ context.Context, key, _ string) (services.MarketSession, error) {
		if key != "abc" {
			return nil, perrors.ErrUnauthorized
		}
		return session, nil
	}

	return serveLots(t, open), session
}

// serveLots поднимает роутер над LotService с заданным способом открытия сессий
func serveLots(t *testing.T, open services.SessionOpener) *httptest.Server {
	t.Helper()

	log := logger.NewNop()
	store := cache.NewMemoryCache(time.Minute)
	runner := services.NewJobRunner(2, 4, log)
	t.Cleanup(func() { _ = runner.Shutdown(context.Background()) })

	layout := models.DefaultFieldLayout()
	copier := services.NewCopier(
		services.NewFieldExtractor(),
		services.NewComposer(layout),
		services.NewImageRelay(time.Second, 0, log),
		nil,
		services.CopyOptions{},
		log,
	)
	svc := services.NewLotService(open, copier, services.NewFieldExtractor(), layout, runner,
		services.NewJobStore(store, time.Minute), store, services.LotServiceOptions{Locale: "ru"}, log)

	srv := httptest.NewServer(SetupRouter(svc, log, RouterOptions{
		CORSAllowOrigins: []string{"*"},
		RateLimit:        1000,
		MetricsEnabled:   true,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCopyLotsEndToEnd(t *testing.T) {
	srv, session := newTestServer(t)

	resp, err := http.Post(srv.URL+"/copy-lots", "application/json",
		strings.NewReader(`{"user_id": 123, "subcategory_id": null, "golden_key": "abc"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body dto.CopyLotsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.Total)
	require.Len(t, body.CopiedLots, 2)
	assert.Empty(t, body.Failed)

	for _, lot := range body.CopiedLots {
		assert.Equal(t, int64(0), lot.ID)
		assert.Equal(t, int64(77), lot.SellerID)
		assert.Equal(t, int64(10), lot.SubcategoryID)
		assert.Equal(t, 100.0, lot.Price)
	}

	// второй лот уходит без фото, потому что картинка не скачалась
	require.Len(t, session.saved, 2)
	assert.Equal(t, "1", session.saved[0]["photos[0]"])
	_, hasPhoto := session.saved[1]["photos[0]"]
	assert.False(t, hasPhoto)
}

func TestAsyncCopyJob(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/copy-lots/async", "application/json",
		strings.NewReader(`{"user_id": 123, "subcategory_id": 10, "golden_key": "abc"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var job dto.CopyJobDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	require.NotEmpty(t, job.ID)

	require.Eventually(t, func() bool {
		r, err := http.Get(srv.URL + "/copy-jobs/" + job.ID)
		if err != nil {
			return false
		}
		defer r.Body.Close()
		var current dto.CopyJobDTO
		if json.NewDecoder(r.Body).Decode(&current) != nil {
			return false
		}
		return current.Status == string(models.JobCompleted) && current.Result != nil && current.Result.Total == 2
	}, 3*time.Second, 20*time.Millisecond)
}

func TestRouterServiceEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/lots/offerEdit?node=10&golden_key=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fields dto.OfferFieldsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fields))
	assert.Equal(t, "10", fields.Fields["node_id"])

	resp, err = http.Get(srv.URL + "/get_user_subcategories/123?golden_key=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	var ids []int64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ids))
	assert.Equal(t, []int64{10}, ids)
}

func TestMarketplaceNotFoundIsBadRequest(t *testing.T) {
	market := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<html><body data-app-data='{"locale":"ru","csrf-token":"tok","userId":77}'>
<div class="user-link-name">seller77</div></body></html>`))
	}))
	t.Cleanup(market.Close)

	gateway, err := funpay.NewGateway(funpay.Options{BaseURL: market.URL}, logger.NewNop())
	require.NoError(t, err)
	srv := serveLots(t, func(ctx context.Context, key, userAgent string) (services.MarketSession, error) {
		session, err := gateway.Authenticate(ctx, key, userAgent)
		if err != nil {
			return nil, err
		}
		return session, nil
	})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"subcategory lots", http.MethodGet, "/lots/5?golden_key=abc", ""},
		{"offer form", http.MethodGet, "/lots/offerEdit?offer=0&node=5&golden_key=abc", ""},
		{"create lot", http.MethodPost, "/create-lot?golden_key=abc", `{"subcategory_id": 5, "price": 10, "description": "d"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}
