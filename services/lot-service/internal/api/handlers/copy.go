package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/athebyme/funpay-bridge/pkg/dto"
	"github.com/athebyme/funpay-bridge/pkg/interfaces"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/models"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// CopyHandler обработчик запросов копирования лотов
type CopyHandler struct {
	lotService services.LotServiceInterface
	logger     interfaces.LoggerPort
}

// NewCopyHandler создает новый обработчик копирования
func NewCopyHandler(lotService services.LotServiceInterface, logger interfaces.LoggerPort) *CopyHandler {
	return &CopyHandler{
		lotService: lotService,
		logger:     logger,
	}
}

func (h *CopyHandler) decode(w http.ResponseWriter, r *http.Request) (string, models.CopyRequest, bool) {
	var req dto.CopyLotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "Некорректный формат данных")
		return "", models.CopyRequest{}, false
	}

	key := req.GoldenKey
	if key == "" {
		key = goldenKey(r)
	}
	return key, models.CopyRequest{SourceUserID: req.UserID, SubcategoryID: req.SubcategoryID}, true
}

// CopyLots копирует лоты пользователя и возвращает созданные лоты
// @Summary  Копирование лотов пользователя
// @Tags     copy
// @Accept   json
// @Produce  json
// @Param    request body dto.CopyLotsRequest true "Источник копирования"
// @Success  200 {object} dto.CopyLotsResponse
// @Failure  400 {object} errorResponse
// @Router   /copy-lots [post]
func (h *CopyHandler) CopyLots(w http.ResponseWriter, r *http.Request) {
	key, req, ok := h.decode(w, r)
	if !ok {
		return
	}

	report, err := h.lotService.CopyLots(r.Context(), key, req)
	if err != nil {
		writeError(w, r, h.logger, "Ошибка копирования лотов", err)
		return
	}

	resp := toCopyResponse(report)
	h.logger.InfoWithContext(r.Context(), "Копирование завершено",
		interfaces.LogField{Key: "source_user_id", Value: req.SourceUserID},
		interfaces.LogField{Key: "copied", Value: resp.Total},
		interfaces.LogField{Key: "failed", Value: len(resp.Failed)},
	)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// StartCopyJob ставит копирование в очередь
// @Summary  Асинхронное копирование лотов
// @Tags     copy
// @Accept   json
// @Produce  json
// @Param    request body dto.CopyLotsRequest true "Источник копирования"
// @Success  202 {object} dto.CopyJobDTO
// @Failure  400 {object} errorResponse
// @Router   /copy-lots/async [post]
func (h *CopyHandler) StartCopyJob(w http.ResponseWriter, r *http.Request) {
	key, req, ok := h.decode(w, r)
	if !ok {
		return
	}

	job, err := h.lotService.StartCopyJob(r.Context(), key, req)
	if err != nil {
		writeError(w, r, h.logger, "Ошибка запуска копирования", err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, toCopyJobDTO(job))
}

// GetCopyJob возвращает состояние задачи копирования
// @Summary  Состояние задачи копирования
// @Tags     copy
// @Produce  json
// @Param    jobId path string true "ID задачи"
// @Success  200 {object} dto.CopyJobDTO
// @Failure  400 {object} errorResponse
// @Failure  404 {object} errorResponse
// @Router   /copy-jobs/{jobId} [get]
func (h *CopyHandler) GetCopyJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.lotService.CopyJob(r.Context(), chi.URLParam(r, "jobId"))
	if err != nil {
		writeError(w, r, h.logger, "Ошибка получения задачи копирования", err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toCopyJobDTO(job))
}

// GetCopyStats возвращает счетчики копирования пользователя
// @Summary  Статистика копирования
// @Tags     copy
// @Produce  json
// @Param    userId path int true "ID исходного пользователя"
// @Success  200 {object} dto.CopyStatsDTO
// @Failure  400 {object} errorResponse
// @Router   /copy-stats/{userId} [get]
func (h *CopyHandler) GetCopyStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := int64Param(r, "userId")
	if !ok || userID <= 0 {
		badRequest(w, r, "Некорректный ID пользователя")
		return
	}

	stats, err := h.lotService.CopyStats(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, "Ошибка получения статистики", err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toCopyStatsDTO(stats))
}
