package services

import (
	"context"

	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/models"
)

// ImageUploader загружает изображение в маркетплейс и возвращает его идентификатор
type ImageUploader interface {
	UploadImage(ctx context.Context, data []byte) (string, error)
}

// MarketSession аутентифицированная сессия аккаунта маркетплейса
// Одна сессия используется одним запросом и не разделяется между горутинами
type MarketSession interface {
	ImageUploader

	UserID() int64
	Username() string
	CSRFToken() string
	// Refresh заново получает CSRF токен и cookie сессии
	Refresh(ctx context.Context) error

	SubcategoryPublicLots(ctx context.Context, typ models.SubcategoryType, subcategoryID int64, locale string) ([]models.Listing, error)
	LotPage(ctx context.Context, lotID int64, locale string) (*models.ListingDetail, error)
	UserProfile(ctx context.Context, userID int64) (*models.UserProfile, error)
	OfferEditForm(ctx context.Context, offerID, nodeID int64) (string, error)
	SaveLot(ctx context.Context, fields models.FieldMap) error
}

// SessionOpener открывает новую сессию по golden_key
type SessionOpener func(ctx context.Context, goldenKey, userAgent string) (MarketSession, error)
