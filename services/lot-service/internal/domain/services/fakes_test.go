package services

import (
	"context"
	"fmt"
	"sync"

	perrors "github.com/athebyme/funpay-bridge/pkg/errors"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/models"
)

const blankForm = `<form>
<input type="hidden" name="csrf_token" value="stale">
<input type="hidden" name="offer_id" value="0">
<input type="hidden" name="node_id" value="10">
<input name="price" value="">
<input name="amount" value="">
<input name="param_0" value="">
<textarea name="fields[summary][ru]"></textarea>
<textarea name="fields[summary][en]"></textarea>
<textarea name="fields[desc][ru]"></textarea>
<textarea name="fields[desc][en]"></textarea>
<input type="checkbox" name="auto_delivery">
<input type="checkbox" name="active" checked>
</form>`

// fakeSession имитирует сессию маркетплейса в памяти
type fakeSession struct {
	mu sync.Mutex

	id       int64
	username string
	csrf     string

	lots       map[int64][]models.Listing
	lotsErr    map[int64]error
	pages      map[int64]*models.ListingDetail
	pageErr    map[int64]error
	profile    *models.UserProfile
	profileErr error
	form       string
	formErr    error
	saveErr    func(models.FieldMap) error

	// expireAfterSaves > 0 истекает сессию после указанного числа сохранений
	expireAfterSaves int
	expired          bool
	refreshErr       error

	saved     []models.FieldMap
	uploads   int
	refreshes int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		id:       77,
		username: "target",
		csrf:     "tok-1",
		lots:     map[int64][]models.Listing{},
		lotsErr:  map[int64]error{},
		pages:    map[int64]*models.ListingDetail{},
		pageErr:  map[int64]error{},
		form:     blankForm,
	}
}

func (f *fakeSession) UserID() int64    { return f.id }
func (f *fakeSession) Username() string { return f.username }

func (f *fakeSession) CSRFToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.csrf
}

func (f *fakeSession) Refresh(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.expired = false
	f.csrf = fmt.Sprintf("tok-%d", f.refreshes+1)
	return nil
}

func (f *fakeSession) checkExpired() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expired {
		return perrors.ErrSessionExpired
	}
	return nil
}

func (f *fakeSession) SubcategoryPublicLots(_ context.Context, _ models.SubcategoryType, id int64, _ string) ([]models.Listing, error) {
	if err := f.checkExpired(); err != nil {
		return nil, err
	}
	if err := f.lotsErr[id]; err != nil {
		return nil, err
	}
	return f.lots[id], nil
}

func (f *fakeSession) LotPage(_ context.Context, lotID int64, _ string) (*models.ListingDetail, error) {
	if err := f.checkExpired(); err != nil {
		return nil, err
	}
	if err := f.pageErr[lotID]; err != nil {
		return nil, err
	}
	if page, ok := f.pages[lotID]; ok {
		return page, nil
	}
	return &models.ListingDetail{LotID: lotID, FullDescription: "full", ImageURLs: []string{}}, nil
}

func (f *fakeSession) UserProfile(context.Context, int64) (*models.UserProfile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeSession) OfferEditForm(context.Context, int64, int64) (string, error) {
	if err := f.checkExpired(); err != nil {
		return "", err
	}
	return f.form, f.formErr
}

func (f *fakeSession) SaveLot(_ context.Context, fields models.FieldMap) error {
	if err := f.checkExpired(); err != nil {
		return err
	}
	if f.saveErr != nil {
		if err := f.saveErr(fields); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, fields)
	if f.expireAfterSaves > 0 && len(f.saved) == f.expireAfterSaves {
		f.expired = true
	}
	return nil
}

func (f *fakeSession) UploadImage(_ context.Context, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	return fmt.Sprintf("img-%s", data), nil
}

// recordingPublisher запоминает опубликованные события
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.CopyEvent
}

func (p *recordingPublisher) PublishCopyEvent(_ context.Context, e *models.CopyEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func listing(id, sellerID int64, price string) models.Listing {
	return models.Listing{
		ID:              id,
		SubcategoryType: models.SubcategoryCommon,
		Description:     fmt.Sprintf("lot %d", id),
		Price:           price,
		Currency:        "RUB",
		Seller:          models.Seller{ID: sellerID, Username: "source"},
		Attributes:      map[string]string{"server": "eu"},
	}
}
