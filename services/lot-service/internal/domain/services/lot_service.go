package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	perrors "github.com/athebyme/funpay-bridge/pkg/errors"
	"github.com/athebyme/funpay-bridge/pkg/interfaces"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/models"
	"github.com/google/uuid"
)

// LotServiceOptions настройки LotService
type LotServiceOptions struct {
	Locale string
	// LockTTL срок блокировки копирования для одного аккаунта
	LockTTL time.Duration
	// OperationTimeout ограничивает все копирование; 0 без ограничения
	OperationTimeout time.Duration
}

// SaveResult результат отправки формы лота
type SaveResult struct {
	SubcategoryID int64
	Seller        models.Seller
}

// CopyStats счетчики копирования, которые ведет воркер событий
type CopyStats struct {
	UserID int64
	Copied int64
	Failed int64
}

// LotServiceInterface операции, которые HTTP слой вызывает у сервиса лотов
type LotServiceInterface interface {
	Authenticate(ctx context.Context, goldenKey, userAgent string) (models.AccountInfo, error)
	SubcategoryLots(ctx context.Context, goldenKey string, subcategoryID int64) ([]models.Listing, error)
	UserLots(ctx context.Context, goldenKey string, subcategoryID, userID int64) ([]models.Listing, error)
	CreateLot(ctx context.Context, goldenKey string, subcategoryID int64, price float64, description string) (*models.Listing, error)
	OfferFields(ctx context.Context, goldenKey string, offerID, nodeID int64) (models.FieldMap, string, error)
	SaveFields(ctx context.Context, goldenKey string, fields models.FieldMap) (*SaveResult, error)
	UserSubcategories(ctx context.Context, goldenKey string, userID int64) (models.SubcategoryDiscovery, error)
	CopyLots(ctx context.Context, goldenKey string, req models.CopyRequest) (*models.CopyReport, error)
	StartCopyJob(ctx context.Context, goldenKey string, req models.CopyRequest) (*models.CopyJob, error)
	CopyJob(ctx context.Context, id string) (*models.CopyJob, error)
	CopyStats(ctx context.Context, userID int64) (*CopyStats, error)
}

var _ LotServiceInterface = (*LotService)(nil)

// LotService предоставляет операции фасада над сессией маркетплейса
// Каждая операция открывает собственную сессию и не делит ее с другими запросами
type LotService struct {
	open      SessionOpener
	copier    *Copier
	extractor *FieldExtractor
	layout    models.FieldLayout
	runner    *JobRunner
	jobs      *JobStore
	cache     interfaces.CachePort
	opts      LotServiceOptions
	logger    interfaces.LoggerPort
}

// NewLotService создает новый экземпляр LotService
func NewLotService(
	open SessionOpener,
	copier *Copier,
	extractor *FieldExtractor,
	layout models.FieldLayout,
	runner *JobRunner,
	jobs *JobStore,
	cache interfaces.CachePort,
	opts LotServiceOptions,
	logger interfaces.LoggerPort,
) *LotService {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}
	return &LotService{
		open:      open,
		copier:    copier,
		extractor: extractor,
		layout:    layout,
		runner:    runner,
		jobs:      jobs,
		cache:     cache,
		opts:      opts,
		logger:    logger,
	}
}

// Authenticate проверяет golden_key и возвращает данные аккаунта
func (s *LotService) Authenticate(ctx context.Context, goldenKey, userAgent string) (models.AccountInfo, error) {
	session, err := s.open(ctx, goldenKey, userAgent)
	if err != nil {
		return models.AccountInfo{}, err
	}
	return models.AccountInfo{
		ID:        session.UserID(),
		Username:  session.Username(),
		CSRFToken: session.CSRFToken(),
	}, nil
}

// SubcategoryLots возвращает публичные лоты подкатегории
func (s *LotService) SubcategoryLots(ctx context.Context, goldenKey string, subcategoryID int64) ([]models.Listing, error) {
	session, err := s.open(ctx, goldenKey, "")
	if err != nil {
		return nil, err
	}
	return session.SubcategoryPublicLots(ctx, models.SubcategoryCommon, subcategoryID, s.opts.Locale)
}

// UserLots возвращает лоты пользователя в подкатегории
// Если лотов нет, возвращает perrors.ErrNotFound
func (s *LotService) UserLots(ctx context.Context, goldenKey string, subcategoryID, userID int64) ([]models.Listing, error) {
	lots, err := s.SubcategoryLots(ctx, goldenKey, subcategoryID)
	if err != nil {
		return nil, err
	}

	userLots := make([]models.Listing, 0, len(lots))
	for _, l := range lots {
		if l.Seller.ID == userID {
			userLots = append(userLots, l)
		}
	}
	if len(userLots) == 0 {
		return nil, fmt.Errorf("no lots of user %d in subcategory %d: %w", userID, subcategoryID, perrors.ErrNotFound)
	}
	return userLots, nil
}

// CreateLot создает лот с минимальным набором полей: цена и описание
// Остальные поля берутся из пустой формы подкатегории как есть
func (s *LotService) CreateLot(ctx context.Context, goldenKey string, subcategoryID int64, price float64, description string) (*models.Listing, error) {
	if subcategoryID <= 0 {
		return nil, fmt.Errorf("%w: subcategory_id must be positive", perrors.ErrInvalidInput)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", perrors.ErrInvalidInput)
	}

	session, err := s.open(ctx, goldenKey, "")
	if err != nil {
		return nil, err
	}

	html, err := session.OfferEditForm(ctx, 0, subcategoryID)
	if err != nil {
		return nil, err
	}

	l := s.layout
	fields := s.extractor.Extract(html)
	fields[l.CSRFToken] = session.CSRFToken()
	fields[l.OfferID] = l.OfferIDValue
	fields[l.NodeID] = strconv.FormatInt(subcategoryID, 10)
	fields[l.Price] = strconv.FormatFloat(price, 'f', -1, 64)
	for _, locale := range l.Locales {
		fields[l.SummaryKey(locale)] = description
	}

	if err := session.SaveLot(ctx, fields); err != nil {
		return nil, err
	}

	s.logger.InfoWithContext(ctx, "Лот создан",
		interfaces.LogField{Key: "subcategory_id", Value: subcategoryID},
		interfaces.LogField{Key: "account_id", Value: session.UserID()},
	)

	return &models.Listing{
		ID:            0,
		SubcategoryID: subcategoryID,
		Price:         fields[l.Price],
		Description:   description,
		Seller:        models.Seller{ID: session.UserID(), Username: session.Username()},
	}, nil
}

// OfferFields возвращает поля формы лота и текущий CSRF токен
func (s *LotService) OfferFields(ctx context.Context, goldenKey string, offerID, nodeID int64) (models.FieldMap, string, error) {
	if offerID < 0 || nodeID <= 0 {
		return nil, "", fmt.Errorf("%w: offer must be >= 0 and node must be positive", perrors.ErrInvalidInput)
	}

	session, err := s.open(ctx, goldenKey, "")
	if err != nil {
		return nil, "", err
	}

	html, err := session.OfferEditForm(ctx, offerID, nodeID)
	if err != nil {
		return nil, "", err
	}
	return s.extractor.Extract(html), session.CSRFToken(), nil
}

// SaveFields отправляет заполненную клиентом форму лота
// Если клиент не передал CSRF токен, подставляется токен сессии
func (s *LotService) SaveFields(ctx context.Context, goldenKey string, fields models.FieldMap) (*SaveResult, error) {
	l := s.layout
	subcategoryID, err := strconv.ParseInt(strings.TrimSpace(fields[l.NodeID]), 10, 64)
	if err != nil || subcategoryID <= 0 {
		return nil, fmt.Errorf("%w: field %s must be a positive subcategory id", perrors.ErrInvalidInput, l.NodeID)
	}

	session, err := s.open(ctx, goldenKey, "")
	if err != nil {
		return nil, err
	}

	payload := fields.Clone()
	if payload[l.CSRFToken] == "" {
		payload[l.CSRFToken] = session.CSRFToken()
	}
	if _, ok := payload[l.OfferID]; !ok {
		payload[l.OfferID] = l.OfferIDValue
	}

	if err := session.SaveLot(ctx, payload); err != nil {
		return nil, err
	}

	return &SaveResult{
		SubcategoryID: subcategoryID,
		Seller:        models.Seller{ID: session.UserID(), Username: session.Username()},
	}, nil
}

// UserSubcategories возвращает подкатегории обычного типа, в которых у пользователя есть лоты
func (s *LotService) UserSubcategories(ctx context.Context, goldenKey string, userID int64) (models.SubcategoryDiscovery, error) {
	session, err := s.open(ctx, goldenKey, "")
	if err != nil {
		return models.SubcategoryDiscovery{UserID: userID, SubcategoryIDs: []int64{}}, err
	}
	return s.copier.DiscoverSubcategories(ctx, session, userID)
}

// CopyLots копирует лоты пользователя и ждет результат
// Копирование выполняется в пуле воркеров и не прерывается при отключении клиента
func (s *LotService) CopyLots(ctx context.Context, goldenKey string, req models.CopyRequest) (*models.CopyReport, error) {
	if err := validateCopyRequest(req); err != nil {
		return nil, err
	}

	release, err := s.acquireAccount(ctx, goldenKey)
	if err != nil {
		return nil, err
	}

	type outcome struct {
		report *models.CopyReport
		err    error
	}
	done := make(chan outcome, 1)
	detached := context.WithoutCancel(ctx)

	err = s.runner.Submit(func() {
		defer release()
		report, err := s.runCopy(detached, goldenKey, req)
		done <- outcome{report: report, err: err}
	})
	if err != nil {
		release()
		return nil, err
	}

	select {
	case out := <-done:
		return out.report, out.err
	case <-ctx.Done():
		s.logger.WarnWithContext(ctx, "Клиент отключился, копирование продолжается",
			interfaces.LogField{Key: "source_user_id", Value: req.SourceUserID},
		)
		return nil, ctx.Err()
	}
}

// StartCopyJob ставит копирование в очередь и сразу возвращает запись задачи
func (s *LotService) StartCopyJob(ctx context.Context, goldenKey string, req models.CopyRequest) (*models.CopyJob, error) {
	if err := validateCopyRequest(req); err != nil {
		return nil, err
	}

	release, err := s.acquireAccount(ctx, goldenKey)
	if err != nil {
		return nil, err
	}

	job := &models.CopyJob{
		ID:           uuid.New().String(),
		Status:       models.JobQueued,
		SourceUserID: req.SourceUserID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		release()
		return nil, err
	}

	detached := context.WithoutCancel(ctx)
	snapshot := *job

	err = s.runner.Submit(func() {
		defer release()
		s.runJob(detached, goldenKey, req, snapshot)
	})
	if err != nil {
		release()
		job.Status = models.JobFailed
		job.Error = err.Error()
		_ = s.jobs.Save(ctx, job)
		return nil, err
	}

	return job, nil
}

func (s *LotService) runJob(ctx context.Context, goldenKey string, req models.CopyRequest, job models.CopyJob) {
	started := time.Now().UTC()
	job.Status = models.JobRunning
	job.StartedAt = &started
	s.saveJob(ctx, &job)

	report, err := s.runCopy(ctx, goldenKey, req)

	finished := time.Now().UTC()
	job.FinishedAt = &finished
	if err != nil {
		job.Status = models.JobFailed
		job.Error = err.Error()
	} else {
		job.Status = models.JobCompleted
		job.Report = report
	}
	s.saveJob(ctx, &job)
}

func (s *LotService) saveJob(ctx context.Context, job *models.CopyJob) {
	if err := s.jobs.Save(ctx, job); err != nil {
		s.logger.ErrorWithContext(ctx, "Не удалось сохранить задачу копирования",
			interfaces.LogField{Key: "job_id", Value: job.ID},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
	}
}

// CopyJob возвращает запись асинхронной задачи
func (s *LotService) CopyJob(ctx context.Context, id string) (*models.CopyJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: malformed job id", perrors.ErrInvalidInput)
	}
	return s.jobs.Get(ctx, id)
}

// CopyStats возвращает счетчики копирования исходного пользователя
func (s *LotService) CopyStats(ctx context.Context, userID int64) (*CopyStats, error) {
	stats := &CopyStats{UserID: userID}

	// IncrBy 0 читает счетчик, не меняя его
	copied, err := s.cache.Increment(ctx, StatsKey(userID, "copied"), 0)
	if err != nil {
		return nil, err
	}
	failed, err := s.cache.Increment(ctx, StatsKey(userID, "failed"), 0)
	if err != nil {
		return nil, err
	}

	stats.Copied, stats.Failed = copied, failed
	return stats, nil
}

// StatsKey ключ счетчика копирования для пользователя
func StatsKey(userID int64, outcome string) string {
	return fmt.Sprintf("copy-stats:%d:%s", userID, outcome)
}

func (s *LotService) runCopy(ctx context.Context, goldenKey string, req models.CopyRequest) (*models.CopyReport, error) {
	if s.opts.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.OperationTimeout)
		defer cancel()
	}

	session, err := s.open(ctx, goldenKey, "")
	if err != nil {
		return nil, err
	}
	return s.copier.Copy(ctx, session, req), nil
}

// acquireAccount не дает запустить два копирования для одного golden_key
func (s *LotService) acquireAccount(ctx context.Context, goldenKey string) (func(), error) {
	if strings.TrimSpace(goldenKey) == "" {
		return nil, fmt.Errorf("%w: golden_key is required", perrors.ErrInvalidInput)
	}

	sum := sha256.Sum256([]byte(goldenKey))
	key := "copy-account:" + hex.EncodeToString(sum[:8])

	token := uuid.NewString()
	ok, err := s.cache.Lock(ctx, key, token, s.opts.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	if !ok {
		return nil, perrors.ErrCopyInProgress
	}

	release := func() {
		if err := s.cache.Unlock(context.Background(), key, token); err != nil {
			// блокировка истекла раньше копирования; чужую блокировку не трогаем
			s.logger.Warn("Не удалось снять блокировку аккаунта",
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}
	}
	return release, nil
}

func validateCopyRequest(req models.CopyRequest) error {
	if req.SourceUserID <= 0 {
		return fmt.Errorf("%w: user_id must be positive", perrors.ErrInvalidInput)
	}
	if !req.All() && *req.SubcategoryID <= 0 {
		return fmt.Errorf("%w: subcategory_id must be positive, -1 or null", perrors.ErrInvalidInput)
	}
	return nil
}

// IsNotFound сообщает, должна ли ошибка отдаваться как 404
func IsNotFound(err error) bool {
	return errors.Is(err, perrors.ErrNotFound)
}
