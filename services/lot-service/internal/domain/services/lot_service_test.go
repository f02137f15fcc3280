package services

import (
	"context"
	"errors"
	"testing"
	"time"

	perrors "github.com/athebyme/funpay-bridge/pkg/errors"
	"github.com/athebyme/funpay-bridge/pkg/interfaces"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/adapters/cache"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/adapters/logger"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	service *LotService
	session *fakeSession
	cache   interfaces.CachePort
	runner  *JobRunner
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	session := newFakeSession()
	store := cache.NewMemoryCache(time.Minute)
	runner := NewJobRunner(2, 4, logger.NewNop())
	t.Cleanup(func() { _ = runner.Shutdown(context.Background()) })

	open := func(_ context.Context, goldenKey, _ string) (MarketSession, error) {
		if goldenKey != "abc" {
			return nil, perrors.ErrUnauthorized
		}
		return session, nil
	}

	layout := models.DefaultFieldLayout()
	svc := NewLotService(
		open,
		newTestCopier(nil, CopyOptions{}),
		NewFieldExtractor(),
		layout,
		runner,
		NewJobStore(store, time.Minute),
		store,
		LotServiceOptions{Locale: "ru", LockTTL: time.Minute},
		logger.NewNop(),
	)

	return &serviceFixture{service: svc, session: session, cache: store, runner: runner}
}

func TestLotServiceAuthenticate(t *testing.T) {
	f := newServiceFixture(t)

	info, err := f.service.Authenticate(context.Background(), "abc", "")
	require.NoError(t, err)
	assert.Equal(t, models.AccountInfo{ID: 77, Username: "target", CSRFToken: "tok-1"}, info)

	_, err = f.service.Authenticate(context.Background(), "nope", "")
	assert.ErrorIs(t, err, perrors.ErrUnauthorized)
}

func TestLotServiceUserLots(t *testing.T) {
	f := newServiceFixture(t)
	f.session.lots[10] = []models.Listing{listing(1, 123, "1"), listing(2, 5, "2")}

	lots, err := f.service.UserLots(context.Background(), "abc", 10, 123)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, int64(1), lots[0].ID)

	_, err = f.service.UserLots(context.Background(), "abc", 10, 999)
	assert.True(t, IsNotFound(err))
}

func TestLotServiceCreateLot(t *testing.T) {
	f := newServiceFixture(t)

	lot, err := f.service.CreateLot(context.Background(), "abc", 10, 99.5, "Новый лот")
	require.NoError(t, err)
	assert.Equal(t, "99.5", lot.Price)
	assert.Equal(t, int64(77), lot.Seller.ID)

	require.Len(t, f.session.saved, 1)
	saved := f.session.saved[0]
	assert.Equal(t, "tok-1", saved["csrf_token"])
	assert.Equal(t, "10", saved["node_id"])
	assert.Equal(t, "Новый лот", saved["fields[summary][ru]"])

	_, err = f.service.CreateLot(context.Background(), "abc", 10, 0, "x")
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
}

func TestLotServiceOfferFields(t *testing.T) {
	f := newServiceFixture(t)

	fields, csrf, err := f.service.OfferFields(context.Background(), "abc", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", csrf)
	assert.Equal(t, "10", fields["node_id"])

	_, _, err = f.service.OfferFields(context.Background(), "abc", 0, 0)
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
}

func TestLotServiceSaveFields(t *testing.T) {
	f := newServiceFixture(t)

	res, err := f.service.SaveFields(context.Background(), "abc", models.FieldMap{"node_id": "10", "price": "5"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.SubcategoryID)
	assert.Equal(t, "target", res.Seller.Username)
	assert.Equal(t, "tok-1", f.session.saved[0]["csrf_token"])
	assert.Equal(t, "0", f.session.saved[0]["offer_id"])

	_, err = f.service.SaveFields(context.Background(), "abc", models.FieldMap{"price": "5"})
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)

	f.session.saveErr = func(models.FieldMap) error {
		return &perrors.ValidationError{Fields: map[string]string{"price": "bad"}}
	}
	_, err = f.service.SaveFields(context.Background(), "abc", models.FieldMap{"node_id": "10"})
	var verr *perrors.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestLotServiceCopyLots(t *testing.T) {
	f := newServiceFixture(t)
	f.session.lots[10] = []models.Listing{listing(1, 123, "1"), listing(2, 123, "2")}
	ten := int64(10)

	report, err := f.service.CopyLots(context.Background(), "abc", models.CopyRequest{SourceUserID: 123, SubcategoryID: &ten})
	require.NoError(t, err)
	assert.Len(t, report.Created(), 2)

	// блокировка снимается после завершения
	report, err = f.service.CopyLots(context.Background(), "abc", models.CopyRequest{SourceUserID: 123, SubcategoryID: &ten})
	require.NoError(t, err)
	assert.Len(t, report.Created(), 2)
}

func TestLotServiceCopyLotsRejectsConcurrentRunForAccount(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	release, err := f.service.acquireAccount(ctx, "abc")
	require.NoError(t, err)
	defer release()

	_, err = f.service.CopyLots(ctx, "abc", models.CopyRequest{SourceUserID: 123})
	assert.ErrorIs(t, err, perrors.ErrCopyInProgress)
}

func TestLotServiceStaleReleaseKeepsNewerLock(t *testing.T) {
	f := newServiceFixture(t)
	f.service.opts.LockTTL = 20 * time.Millisecond
	ctx := context.Background()

	stale, err := f.service.acquireAccount(ctx, "abc")
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)

	f.service.opts.LockTTL = time.Minute
	current, err := f.service.acquireAccount(ctx, "abc")
	require.NoError(t, err)
	defer current()

	// копирование, пережившее свою блокировку, не снимает чужую
	stale()
	_, err = f.service.acquireAccount(ctx, "abc")
	assert.ErrorIs(t, err, perrors.ErrCopyInProgress)
}

func TestLotServiceCopyLotsValidation(t *testing.T) {
	f := newServiceFixture(t)
	zero := int64(0)

	_, err := f.service.CopyLots(context.Background(), "abc", models.CopyRequest{SourceUserID: 0})
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)

	_, err = f.service.CopyLots(context.Background(), "abc", models.CopyRequest{SourceUserID: 1, SubcategoryID: &zero})
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)

	_, err = f.service.CopyLots(context.Background(), "", models.CopyRequest{SourceUserID: 1})
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
}

func TestLotServiceCopyLotsAuthFailure(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.CopyLots(context.Background(), "wrong", models.CopyRequest{SourceUserID: 123})
	assert.ErrorIs(t, err, perrors.ErrUnauthorized)
}

func TestLotServiceCopyJobLifecycle(t *testing.T) {
	f := newServiceFixture(t)
	f.session.lots[10] = []models.Listing{listing(1, 123, "1")}
	ten := int64(10)
	ctx := context.Background()

	job, err := f.service.StartCopyJob(ctx, "abc", models.CopyRequest{SourceUserID: 123, SubcategoryID: &ten})
	require.NoError(t, err)
	assert.Equal(t, models.JobQueued, job.Status)

	require.Eventually(t, func() bool {
		loaded, err := f.service.CopyJob(ctx, job.ID)
		return err == nil && loaded.Status == models.JobCompleted
	}, 2*time.Second, 10*time.Millisecond)

	loaded, err := f.service.CopyJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Report)
	assert.Len(t, loaded.Report.Created(), 1)
	assert.NotNil(t, loaded.FinishedAt)

	_, err = f.service.CopyJob(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
}

func TestLotServiceCopyJobRecordsFailure(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	job, err := f.service.StartCopyJob(ctx, "wrong", models.CopyRequest{SourceUserID: 123})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		loaded, err := f.service.CopyJob(ctx, job.ID)
		return err == nil && loaded.Status == models.JobFailed && loaded.Error != ""
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLotServiceCopyStats(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.cache.Increment(ctx, StatsKey(123, "copied"), 4)
	require.NoError(t, err)
	_, err = f.cache.Increment(ctx, StatsKey(123, "failed"), 1)
	require.NoError(t, err)

	stats, err := f.service.CopyStats(ctx, 123)
	require.NoError(t, err)
	assert.Equal(t, &CopyStats{UserID: 123, Copied: 4, Failed: 1}, stats)
}

func TestLotServiceUserSubcategoriesFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.session.profileErr = errors.New("down")

	discovery, err := f.service.UserSubcategories(context.Background(), "abc", 123)
	assert.Error(t, err)
	assert.Empty(t, discovery.SubcategoryIDs)
}
