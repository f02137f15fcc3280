package services

import (
	"context"
	"errors"
	"testing"
	"time"

	perrors "github.com/athebyme/funpay-bridge/pkg/errors"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/adapters/logger"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/adapters/messaging"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCopier(events EventPublisher, opts CopyOptions) *Copier {
	return NewCopier(
		NewFieldExtractor(),
		NewComposer(models.DefaultFieldLayout()),
		NewImageRelay(time.Second, 0, logger.NewNop()),
		events,
		opts,
		logger.NewNop(),
	)
}

func subcategory(id int64) *int64 {
	return &id
}

func TestCopyIsolatesListingFailures(t *testing.T) {
	session := newFakeSession()
	session.lots[10] = []models.Listing{listing(1, 123, "10"), listing(2, 123, "20"), listing(3, 123, "30")}
	session.pageErr[2] = errors.New("lot page unavailable")

	report := newTestCopier(nil, CopyOptions{}).Copy(context.Background(), session, models.CopyRequest{
		SourceUserID:  123,
		SubcategoryID: subcategory(10),
	})

	created := report.Created()
	require.Len(t, created, 2)
	assert.Equal(t, int64(1), created[0].SourceLotID)
	assert.Equal(t, int64(3), created[1].SourceLotID)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, int64(2), failed[0].SourceLotID)
	assert.Contains(t, failed[0].Error, "lot page unavailable")
	assert.Len(t, session.saved, 2)
}

func TestCopySkipsOtherSellers(t *testing.T) {
	session := newFakeSession()
	session.lots[10] = []models.Listing{listing(1, 999, "10"), listing(2, 123, "20")}

	report := newTestCopier(nil, CopyOptions{}).Copy(context.Background(), session, models.CopyRequest{
		SourceUserID:  123,
		SubcategoryID: subcategory(10),
	})

	require.Len(t, report.Results, 1)
	assert.Equal(t, int64(2), report.Results[0].SourceLotID)
}

func TestCopyEchoesCreatedLot(t *testing.T) {
	session := newFakeSession()
	lot := listing(1, 123, "1234,56")
	lot.Currency = ""
	lot.HTML = "<a></a>"
	session.lots[10] = []models.Listing{lot}

	report := newTestCopier(nil, CopyOptions{}).Copy(context.Background(), session, models.CopyRequest{
		SourceUserID:  123,
		SubcategoryID: subcategory(10),
	})

	require.Len(t, report.Created(), 1)
	echo := report.Created()[0].Lot
	assert.Equal(t, int64(0), echo.ID)
	assert.Equal(t, models.Seller{ID: 77, Username: "target"}, echo.Seller)
	assert.Equal(t, int64(10), echo.SubcategoryID)
	assert.Equal(t, "RUB", echo.Currency)
	assert.Empty(t, echo.HTML)

	require.Len(t, session.saved, 1)
	assert.Equal(t, "1234.56", session.saved[0]["price"])
	assert.Equal(t, "tok-1", session.saved[0]["csrf_token"])
}

func TestCopyAllSubcategoriesIsolatesSubcategoryFailures(t *testing.T) {
	session := newFakeSession()
	session.profile = &models.UserProfile{ID: 123, Listings: []models.Listing{
		{SubcategoryID: 5, SubcategoryType: models.SubcategoryCommon},
		{SubcategoryID: 7, SubcategoryType: models.SubcategoryCommon},
	}}
	session.lotsErr[5] = errors.New("subcategory page broken")
	session.lots[7] = []models.Listing{listing(70, 123, "1")}

	report := newTestCopier(nil, CopyOptions{}).Copy(context.Background(), session, models.CopyRequest{SourceUserID: 123})

	assert.Equal(t, []int64{5, 7}, report.Subcategories)
	assert.Contains(t, report.SubcategoryErrors[5], "subcategory page broken")
	require.Len(t, report.Created(), 1)
	assert.Equal(t, int64(70), report.Created()[0].SourceLotID)
}

func TestCopyDiscoveryFailureIsNotFatal(t *testing.T) {
	session := newFakeSession()
	session.profileErr = errors.New("user page down")
	all := models.AllSubcategories

	report := newTestCopier(nil, CopyOptions{}).Copy(context.Background(), session, models.CopyRequest{
		SourceUserID:  123,
		SubcategoryID: &all,
	})

	assert.Empty(t, report.Results)
	assert.Contains(t, report.DiscoveryError, "user page down")
}

func TestDiscoverSubcategoriesCollapsesDuplicates(t *testing.T) {
	session := newFakeSession()
	session.profile = &models.UserProfile{ID: 123, Listings: []models.Listing{
		{SubcategoryID: 5, SubcategoryType: models.SubcategoryCommon},
		{SubcategoryID: 5, SubcategoryType: models.SubcategoryCommon},
		{SubcategoryID: 7, SubcategoryType: models.SubcategoryCommon},
		{SubcategoryID: 9, SubcategoryType: models.SubcategoryCurrency},
	}}

	discovery, err := newTestCopier(nil, CopyOptions{}).DiscoverSubcategories(context.Background(), session, 123)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{5, 7}, discovery.SubcategoryIDs)
}

func TestDiscoverSubcategoriesReportsFailure(t *testing.T) {
	session := newFakeSession()
	session.profileErr = errors.New("boom")

	discovery, err := newTestCopier(nil, CopyOptions{}).DiscoverSubcategories(context.Background(), session, 123)
	assert.Error(t, err)
	assert.Empty(t, discovery.SubcategoryIDs)
}

func TestCopySubmitsWithoutPhotosWhenRelayFails(t *testing.T) {
	srv := newImageHost(t)
	session := newFakeSession()
	session.lots[10] = []models.Listing{listing(1, 123, "10"), listing(2, 123, "20")}
	session.pages[1] = &models.ListingDetail{LotID: 1, ImageURLs: []string{srv.URL + "/2.jpg"}}
	session.pages[2] = &models.ListingDetail{LotID: 2, ImageURLs: []string{srv.URL + "/1.jpg", srv.URL + "/3.jpg"}}

	report := newTestCopier(nil, CopyOptions{}).Copy(context.Background(), session, models.CopyRequest{
		SourceUserID:  123,
		SubcategoryID: subcategory(10),
	})

	require.Len(t, report.Created(), 2)
	assert.Equal(t, 0, report.Created()[0].Images)
	assert.NotContains(t, session.saved[0], "photos[0]")
	assert.Equal(t, "img-1", session.saved[1]["photos[0]"])
	assert.Equal(t, "img-3", session.saved[1]["photos[1]"])
}

func TestCopySessionExpiryFailsFastByDefault(t *testing.T) {
	session := newFakeSession()
	session.lots[10] = []models.Listing{listing(1, 123, "10"), listing(2, 123, "20"), listing(3, 123, "30")}
	session.expireAfterSaves = 1

	report := newTestCopier(nil, CopyOptions{}).Copy(context.Background(), session, models.CopyRequest{
		SourceUserID:  123,
		SubcategoryID: subcategory(10),
	})

	assert.Len(t, report.Created(), 1)
	assert.Len(t, report.Failed(), 2)
	assert.Equal(t, 0, session.refreshes)
	assert.Equal(t, 0, report.SessionRefreshes)
}

func TestCopySessionExpiryRefreshesWhenEnabled(t *testing.T) {
	session := newFakeSession()
	session.lots[10] = []models.Listing{listing(1, 123, "10"), listing(2, 123, "20"), listing(3, 123, "30")}
	session.expireAfterSaves = 1

	report := newTestCopier(nil, CopyOptions{RetryOnSessionExpiry: true, MaxSessionRefreshes: 2}).Copy(
		context.Background(), session, models.CopyRequest{SourceUserID: 123, SubcategoryID: subcategory(10)},
	)

	assert.Len(t, report.Created(), 3)
	assert.Equal(t, 1, session.refreshes)
	assert.Equal(t, 1, report.SessionRefreshes)
	assert.Equal(t, "tok-2", session.saved[1]["csrf_token"], "refreshed token is used after refresh")
}

func TestCopySessionRefreshBudget(t *testing.T) {
	session := newFakeSession()
	session.lots[10] = []models.Listing{listing(1, 123, "10"), listing(2, 123, "20")}
	session.expired = true
	session.refreshErr = errors.New("golden key revoked")

	report := newTestCopier(nil, CopyOptions{RetryOnSessionExpiry: true, MaxSessionRefreshes: 1}).Copy(
		context.Background(), session, models.CopyRequest{SourceUserID: 123, SubcategoryID: subcategory(10)},
	)

	assert.Empty(t, report.Results)
	assert.Contains(t, report.SubcategoryErrors[10], perrors.ErrSessionExpired.Error())
	assert.Equal(t, 1, session.refreshes)
}

func TestCopyPublishesEvents(t *testing.T) {
	session := newFakeSession()
	session.lots[10] = []models.Listing{listing(1, 123, "10"), listing(2, 123, "bad price")}
	events := &recordingPublisher{}

	newTestCopier(events, CopyOptions{}).Copy(context.Background(), session, models.CopyRequest{
		SourceUserID:  123,
		SubcategoryID: subcategory(10),
	})

	assert.Equal(t, []string{
		messaging.LotCopiedEvent,
		messaging.LotCopyFailedEvent,
		messaging.CopyCompletedEvent,
	}, events.types())

	completed := events.events[2]
	assert.Equal(t, 1, completed.Copied)
	assert.Equal(t, 1, completed.Failed)
	assert.NotEmpty(t, completed.ID)
}

func TestCopyValidationErrorIsIsolated(t *testing.T) {
	session := newFakeSession()
	session.lots[10] = []models.Listing{listing(1, 123, "10"), listing(2, 123, "20")}
	session.saveErr = func(fields models.FieldMap) error {
		if fields["price"] == "10" {
			return &perrors.ValidationError{Fields: map[string]string{"price": "too low"}}
		}
		return nil
	}

	report := newTestCopier(nil, CopyOptions{}).Copy(context.Background(), session, models.CopyRequest{
		SourceUserID:  123,
		SubcategoryID: subcategory(10),
	})

	require.Len(t, report.Failed(), 1)
	assert.Contains(t, report.Failed()[0].Error, "price: too low")
	assert.Len(t, report.Created(), 1)
}
