package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	perrors "github.com/athebyme/funpay-bridge/pkg/errors"
	"github.com/athebyme/funpay-bridge/pkg/interfaces"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/adapters/messaging"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/models"
	"github.com/google/uuid"
)

// CopyOptions настройки копирования
type CopyOptions struct {
	// Locale локаль, в которой читаются списки и страницы лотов
	Locale string
	// RetryOnSessionExpiry включает обновление сессии и повтор лота при истечении сессии
	// По умолчанию выключено: истекшая сессия проваливает оставшиеся лоты
	RetryOnSessionExpiry bool
	// MaxSessionRefreshes ограничивает число обновлений сессии за одно копирование
	MaxSessionRefreshes int
	// DefaultCurrency подставляется в ответ, если у исходного лота нет валюты
	DefaultCurrency string
}

// Relayer переносит изображения лота
type Relayer interface {
	Relay(ctx context.Context, urls []string, uploader ImageUploader) []string
}

// EventPublisher публикует события копирования
type EventPublisher interface {
	PublishCopyEvent(ctx context.Context, event *models.CopyEvent) error
}

// Copier копирует лоты пользователя в аккаунт сессии
// Подкатегории и лоты обрабатываются последовательно
type Copier struct {
	extractor *FieldExtractor
	composer  *Composer
	relay     Relayer
	events    EventPublisher
	opts      CopyOptions
	logger    interfaces.LoggerPort
}

// NewCopier создает новый экземпляр Copier
func NewCopier(extractor *FieldExtractor, composer *Composer, relay Relayer, events EventPublisher, opts CopyOptions, logger interfaces.LoggerPort) *Copier {
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "RUB"
	}
	if opts.MaxSessionRefreshes < 0 {
		opts.MaxSessionRefreshes = 0
	}
	return &Copier{
		extractor: extractor,
		composer:  composer,
		relay:     relay,
		events:    events,
		opts:      opts,
		logger:    logger,
	}
}

// DiscoverSubcategories возвращает подкатегории обычного типа, в которых у пользователя есть лоты
// Идентификаторы уникальны и отсортированы
func (c *Copier) DiscoverSubcategories(ctx context.Context, session MarketSession, userID int64) (models.SubcategoryDiscovery, error) {
	discovery := models.SubcategoryDiscovery{UserID: userID, SubcategoryIDs: []int64{}}

	profile, err := session.UserProfile(ctx, userID)
	if err != nil {
		return discovery, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	seen := make(map[int64]struct{})
	for _, l := range profile.Listings {
		if l.SubcategoryType != models.SubcategoryCommon || l.SubcategoryID <= 0 {
			continue
		}
		if _, ok := seen[l.SubcategoryID]; ok {
			continue
		}
		seen[l.SubcategoryID] = struct{}{}
		discovery.SubcategoryIDs = append(discovery.SubcategoryIDs, l.SubcategoryID)
	}
	sort.Slice(discovery.SubcategoryIDs, func(i, j int) bool {
		return discovery.SubcategoryIDs[i] < discovery.SubcategoryIDs[j]
	})

	return discovery, nil
}

// Copy копирует лоты и всегда возвращает отчет
// Ошибки отдельных лотов и подкатегорий попадают в отчет и не прерывают операцию
func (c *Copier) Copy(ctx context.Context, session MarketSession, req models.CopyRequest) *models.CopyReport {
	report := &models.CopyReport{
		SourceUserID:      req.SourceUserID,
		Subcategories:     []int64{},
		SubcategoryErrors: make(map[int64]string),
		Results:           []models.CopyResult{},
		StartedAt:         time.Now().UTC(),
	}

	log := c.logger.WithFields(
		interfaces.LogField{Key: "source_user_id", Value: req.SourceUserID},
		interfaces.LogField{Key: "account_id", Value: session.UserID()},
	)

	if req.All() {
		var discovery models.SubcategoryDiscovery
		err := c.withSessionRetry(ctx, session, report, func() error {
			var err error
			discovery, err = c.DiscoverSubcategories(ctx, session, req.SourceUserID)
			return err
		})
		if err != nil {
			log.ErrorWithContext(ctx, "Не удалось определить подкатегории пользователя",
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
			report.DiscoveryError = err.Error()
		}
		report.Subcategories = discovery.SubcategoryIDs
		log.InfoWithContext(ctx, "Найдены подкатегории пользователя",
			interfaces.LogField{Key: "count", Value: len(discovery.SubcategoryIDs)},
		)
	} else {
		report.Subcategories = []int64{*req.SubcategoryID}
	}

	for _, subcategoryID := range report.Subcategories {
		c.copySubcategory(ctx, session, req.SourceUserID, subcategoryID, report, log)
	}

	report.FinishedAt = time.Now().UTC()
	duration := report.FinishedAt.Sub(report.StartedAt)
	copyDuration.Observe(duration.Seconds())

	created, failed := len(report.Created()), len(report.Failed())
	log.InfoWithContext(ctx, "Копирование завершено",
		interfaces.LogField{Key: "copied", Value: created},
		interfaces.LogField{Key: "failed", Value: failed},
		interfaces.LogField{Key: "duration", Value: duration.String()},
	)
	c.publish(ctx, &models.CopyEvent{
		Type:         messaging.CopyCompletedEvent,
		SourceUserID: req.SourceUserID,
		AccountID:    session.UserID(),
		Copied:       created,
		Failed:       failed,
		DurationMs:   duration.Milliseconds(),
	})

	return report
}

func (c *Copier) copySubcategory(ctx context.Context, session MarketSession, sourceUserID, subcategoryID int64, report *models.CopyReport, log interfaces.LoggerPort) {
	log = log.WithField("subcategory_id", subcategoryID)

	var lots []models.Listing
	err := c.withSessionRetry(ctx, session, report, func() error {
		var err error
		lots, err = session.SubcategoryPublicLots(ctx, models.SubcategoryCommon, subcategoryID, c.opts.Locale)
		return err
	})
	if err != nil {
		subcategoryFailuresTotal.Inc()
		report.SubcategoryErrors[subcategoryID] = err.Error()
		log.ErrorWithContext(ctx, "Не удалось получить лоты подкатегории",
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
		return
	}

	for _, lot := range lots {
		if lot.Seller.ID != sourceUserID {
			continue
		}

		var result models.CopyResult
		err := c.withSessionRetry(ctx, session, report, func() error {
			var err error
			result, err = c.copyListing(ctx, session, lot, subcategoryID)
			return err
		})

		if err != nil {
			result = models.CopyResult{
				Outcome:       models.CopyFailed,
				SourceLotID:   lot.ID,
				SubcategoryID: subcategoryID,
				Lot:           lot,
				Error:         err.Error(),
			}
			lotCopyTotal.WithLabelValues(string(models.CopyFailed)).Inc()
			log.WarnWithContext(ctx, "Не удалось скопировать лот",
				interfaces.LogField{Key: "lot_id", Value: lot.ID},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
			c.publish(ctx, &models.CopyEvent{
				Type:          messaging.LotCopyFailedEvent,
				SourceUserID:  sourceUserID,
				AccountID:     session.UserID(),
				LotID:         lot.ID,
				SubcategoryID: subcategoryID,
				Error:         err.Error(),
			})
		} else {
			lotCopyTotal.WithLabelValues(string(models.CopyCreated)).Inc()
			log.InfoWithContext(ctx, "Лот скопирован",
				interfaces.LogField{Key: "lot_id", Value: lot.ID},
				interfaces.LogField{Key: "images", Value: result.Images},
			)
			c.publish(ctx, &models.CopyEvent{
				Type:          messaging.LotCopiedEvent,
				SourceUserID:  sourceUserID,
				AccountID:     session.UserID(),
				LotID:         lot.ID,
				SubcategoryID: subcategoryID,
				Images:        result.Images,
			})
		}

		report.Results = append(report.Results, result)
	}
}

// copyListing создает в аккаунте сессии копию одного лота
func (c *Copier) copyListing(ctx context.Context, session MarketSession, lot models.Listing, subcategoryID int64) (models.CopyResult, error) {
	detail, err := session.LotPage(ctx, lot.ID, c.opts.Locale)
	if err != nil {
		return models.CopyResult{}, fmt.Errorf("fetch lot page: %w", err)
	}

	html, err := session.OfferEditForm(ctx, 0, subcategoryID)
	if err != nil {
		return models.CopyResult{}, fmt.Errorf("fetch offer form: %w", err)
	}

	blank := c.extractor.Extract(html)
	if len(blank) == 0 {
		return models.CopyResult{}, fmt.Errorf("offer form for subcategory %d has no fields", subcategoryID)
	}

	imageIDs := c.relay.Relay(ctx, detail.ImageURLs, session)

	fields, err := c.composer.Compose(ComposeInput{
		Blank:         blank,
		Listing:       lot,
		Detail:        detail,
		SubcategoryID: subcategoryID,
		CSRFToken:     session.CSRFToken(),
		ImageIDs:      imageIDs,
	})
	if err != nil {
		return models.CopyResult{}, fmt.Errorf("compose fields: %w", err)
	}

	if err := session.SaveLot(ctx, fields); err != nil {
		return models.CopyResult{}, fmt.Errorf("save lot: %w", err)
	}

	return models.CopyResult{
		Outcome:       models.CopyCreated,
		SourceLotID:   lot.ID,
		SubcategoryID: subcategoryID,
		Lot:           c.echo(lot, subcategoryID, session),
		Images:        len(imageIDs),
	}, nil
}

// echo описывает созданный лот; маркетплейс не возвращает его id
func (c *Copier) echo(lot models.Listing, subcategoryID int64, session MarketSession) models.Listing {
	copied := lot
	copied.ID = 0
	copied.SubcategoryID = subcategoryID
	copied.Seller = models.Seller{ID: session.UserID(), Username: session.Username()}
	copied.HTML = ""
	copied.PublicLink = ""
	if copied.Currency == "" {
		copied.Currency = c.opts.DefaultCurrency
	}
	if copied.Attributes == nil {
		copied.Attributes = map[string]string{}
	}
	return copied
}

// withSessionRetry выполняет fn и при истечении сессии, если это разрешено,
// обновляет сессию и повторяет fn один раз
func (c *Copier) withSessionRetry(ctx context.Context, session MarketSession, report *models.CopyReport, fn func() error) error {
	err := fn()
	if err == nil || !errors.Is(err, perrors.ErrSessionExpired) {
		return err
	}
	if !c.opts.RetryOnSessionExpiry || report.SessionRefreshes >= c.opts.MaxSessionRefreshes {
		return err
	}

	report.SessionRefreshes++
	sessionRefreshesTotal.Inc()
	if refreshErr := session.Refresh(ctx); refreshErr != nil {
		c.logger.ErrorWithContext(ctx, "Не удалось обновить сессию",
			interfaces.LogField{Key: "error", Value: refreshErr.Error()},
		)
		return fmt.Errorf("%w (refresh failed: %v)", err, refreshErr)
	}

	c.logger.InfoWithContext(ctx, "Сессия обновлена, повтор операции",
		interfaces.LogField{Key: "refreshes", Value: report.SessionRefreshes},
	)
	return fn()
}

func (c *Copier) publish(ctx context.Context, event *models.CopyEvent) {
	if c.events == nil {
		return
	}
	event.ID = uuid.New().String()
	event.OccurredAt = time.Now().UTC()

	if err := c.events.PublishCopyEvent(ctx, event); err != nil {
		c.logger.WarnWithContext(ctx, "Не удалось опубликовать событие копирования",
			interfaces.LogField{Key: "type", Value: event.Type},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
	}
}
