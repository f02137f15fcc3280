package funpay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	perrors "github.com/athebyme/funpay-bridge/pkg/errors"
	"github.com/athebyme/funpay-bridge/pkg/interfaces"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/models"
	"github.com/go-resty/resty/v2"
)

// Session аутентифицированная сессия одного аккаунта
// Живет в пределах одного запроса; CSRF токен меняется только в Refresh
type Session struct {
	mu      sync.Mutex
	http    *resty.Client
	baseURL *url.URL
	locale  string
	logger  interfaces.LoggerPort
	account models.AccountInfo
}

func (s *Session) UserID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account.ID
}

func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account.Username
}

func (s *Session) CSRFToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account.CSRFToken
}

// Account возвращает снимок данных аккаунта
func (s *Session) Account() models.AccountInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account
}

// BaseURL адрес маркетплейса, с которым работает сессия
func (s *Session) BaseURL() string {
	return s.baseURL.String()
}

// Refresh заново загружает главную страницу и обновляет CSRF токен
func (s *Session) Refresh(ctx context.Context) error {
	res, err := s.send(s.http.R().SetContext(ctx), http.MethodGet, "/")
	if err != nil {
		if errors.Is(err, perrors.ErrSessionExpired) {
			return fmt.Errorf("%w: %v", perrors.ErrUnauthorized, err)
		}
		return err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return fmt.Errorf("failed to parse account page: %w", err)
	}

	account, err := parseAccount(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.account = account
	if s.locale == "" {
		s.locale = account.Locale
	}
	s.mu.Unlock()
	return nil
}

// SubcategoryPublicLots возвращает публичные лоты подкатегории
func (s *Session) SubcategoryPublicLots(ctx context.Context, typ models.SubcategoryType, subcategoryID int64, locale string) ([]models.Listing, error) {
	req := s.http.R().SetContext(ctx)
	s.setLocale(req, locale)

	res, err := s.send(req, http.MethodGet, fmt.Sprintf("/%s/%d/", typ, subcategoryID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subcategory %d: %w", subcategoryID, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse subcategory %d: %w", subcategoryID, err)
	}

	ref := models.SubcategoryRef{ID: subcategoryID, Type: typ, Name: parseCategoryName(doc)}
	return parseListings(doc.Selection, ref, nil, s.baseURL), nil
}

// LotPage возвращает страницу лота в указанной локали
func (s *Session) LotPage(ctx context.Context, lotID int64, locale string) (*models.ListingDetail, error) {
	req := s.http.R().SetContext(ctx).SetQueryParam("id", strconv.FormatInt(lotID, 10))
	locale = s.setLocale(req, locale)

	res, err := s.send(req, http.MethodGet, "/lots/offer")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lot %d: %w", lotID, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse lot %d: %w", lotID, err)
	}

	detail := parseLotPage(doc, lotID, s.baseURL)
	detail.Locale = locale
	return detail, nil
}

// UserProfile возвращает профиль пользователя вместе с его лотами
func (s *Session) UserProfile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	res, err := s.send(s.http.R().SetContext(ctx), http.MethodGet, fmt.Sprintf("/users/%d/", userID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %d: %w", userID, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse user %d: %w", userID, err)
	}

	return parseUserProfile(doc, userID, s.baseURL), nil
}

// OfferEditForm возвращает HTML формы редактирования лота
// offerID 0 означает новый лот в подкатегории nodeID
func (s *Session) OfferEditForm(ctx context.Context, offerID, nodeID int64) (string, error) {
	req := s.http.R().SetContext(ctx).SetQueryParams(map[string]string{
		"offer": strconv.FormatInt(offerID, 10),
		"node":  strconv.FormatInt(nodeID, 10),
	})

	res, err := s.send(req, http.MethodGet, "/lots/offerEdit")
	if err != nil {
		return "", fmt.Errorf("failed to fetch offer form for node %d: %w", nodeID, err)
	}
	return string(res.Body()), nil
}

// SaveLot отправляет форму лота
// Ошибки полей, которые вернул маркетплейс, возвращаются как *perrors.ValidationError
func (s *Session) SaveLot(ctx context.Context, fields models.FieldMap) error {
	form := make(map[string]string, len(fields)+1)
	for k, v := range fields {
		form[k] = v
	}
	form["location"] = "trade"

	req := s.http.R().
		SetContext(ctx).
		SetHeader("accept", "application/json, text/javascript, */*; q=0.01").
		SetHeader("x-requested-with", "XMLHttpRequest").
		SetFormData(form)

	res, err := s.send(req, http.MethodPost, "/lots/offerSave")
	if err != nil {
		return fmt.Errorf("failed to save lot: %w", err)
	}
	return parseSaveResponse(res.Body())
}

// UploadImage загружает изображение для лота и возвращает его идентификатор
func (s *Session) UploadImage(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty image", perrors.ErrInvalidInput)
	}

	req := s.http.R().
		SetContext(ctx).
		SetHeader("accept", "application/json, text/javascript, */*; q=0.01").
		SetHeader("x-requested-with", "XMLHttpRequest").
		SetFileReader("file", "image.jpg", bytes.NewReader(data))

	res, err := s.send(req, http.MethodPost, "/file/addOfferImage")
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return parseUploadResponse(res.Body())
}

// setLocale добавляет локаль запроса; без явной локали берется локаль сессии
func (s *Session) setLocale(req *resty.Request, locale string) string {
	if locale == "" {
		s.mu.Lock()
		locale = s.locale
		s.mu.Unlock()
	}
	if locale != "" {
		req.SetQueryParam("setlocale", locale)
	}
	return locale
}

func (s *Session) send(req *resty.Request, method, path string) (*resty.Response, error) {
	res, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if err := checkStatus(res); err != nil {
		s.logger.Debug("Маркетплейс вернул ошибку",
			interfaces.LogField{Key: "method", Value: method},
			interfaces.LogField{Key: "path", Value: path},
			interfaces.LogField{Key: "status", Value: res.StatusCode()},
		)
		return nil, err
	}
	return res, nil
}

// checkStatus переводит коды ответа маркетплейса в ошибки
func checkStatus(res *resty.Response) error {
	code := res.StatusCode()
	switch {
	case code >= 300 && code < 400:
		location := res.Header().Get("Location")
		if strings.Contains(location, loginPath) {
			return perrors.ErrSessionExpired
		}
		return fmt.Errorf("unexpected redirect to %q", location)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return perrors.ErrSessionExpired
	case code >= 400:
		return fmt.Errorf("marketplace responded with status %d", code)
	}
	return nil
}
