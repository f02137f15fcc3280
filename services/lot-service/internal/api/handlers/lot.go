package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/athebyme/funpay-bridge/pkg/dto"
	"github.com/athebyme/funpay-bridge/pkg/interfaces"
	"github.com/athebyme/funpay-bridge/pkg/utils"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/models"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/services"
	"github.com/go-chi/render"
)

// maxPageSize ограничивает page_size в GET /lots/{subcategoryId}
const maxPageSize = 100

// LotHandler обработчик запросов для лотов
type LotHandler struct {
	lotService services.LotServiceInterface
	logger     interfaces.LoggerPort
}

// NewLotHandler создает новый обработчик лотов
func NewLotHandler(lotService services.LotServiceInterface, logger interfaces.LoggerPort) *LotHandler {
	return &LotHandler{
		lotService: lotService,
		logger:     logger,
	}
}

// Authenticate проверяет golden_key и возвращает данные аккаунта
// @Summary  Аутентификация аккаунта
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    request body dto.AuthRequest true "golden_key"
// @Success  200 {object} dto.AuthResponse
// @Failure  400 {object} errorResponse
// @Router   /auth [post]
func (h *LotHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req dto.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "Некорректный формат данных")
		return
	}
	if strings.TrimSpace(req.GoldenKey) == "" {
		badRequest(w, r, "golden_key не указан")
		return
	}

	info, err := h.lotService.Authenticate(r.Context(), req.GoldenKey, req.UserAgent)
	if err != nil {
		writeError(w, r, h.logger, "Ошибка аутентификации", err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, dto.AuthResponse{
		Username:  info.Username,
		ID:        info.ID,
		CSRFToken: info.CSRFToken,
	})
}

// ListLots возвращает публичные лоты подкатегории
// @Summary  Лоты подкатегории
// @Tags     lots
// @Produce  json
// @Param    subcategoryId path  int    true  "ID подкатегории"
// @Param    golden_key    query string true  "golden_key"
// @Param    page          query int    false "Номер страницы"
// @Param    page_size     query int    false "Размер страницы"
// @Success  200 {array}  dto.LotSummaryDTO
// @Failure  400 {object} errorResponse
// @Router   /lots/{subcategoryId} [get]
func (h *LotHandler) ListLots(w http.ResponseWriter, r *http.Request) {
	subcategoryID, ok := int64Param(r, "subcategoryId")
	if !ok {
		badRequest(w, r, "Некорректный ID подкатегории")
		return
	}

	lots, err := h.lotService.SubcategoryLots(r.Context(), goldenKey(r), subcategoryID)
	if err != nil {
		writeError(w, r, h.logger, "Ошибка получения лотов", err)
		return
	}

	// Пагинация применяется только если клиент ее запросил
	if pagination, ok := utils.PaginationFromRequest(r, maxPageSize); ok {
		start, end := pagination.Bounds(len(lots))
		lots = lots[start:end]
		pagination.WriteHeaders(w)
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toLotSummaries(lots))
}

// ListUserLots возвращает лоты пользователя в подкатегории
// @Summary  Лоты пользователя в подкатегории
// @Tags     lots
// @Produce  json
// @Param    subcategoryId path  int    true "ID подкатегории"
// @Param    userId        path  int    true "ID пользователя"
// @Param    golden_key    query string true "golden_key"
// @Success  200 {array}  dto.LotDTO
// @Failure  400 {object} errorResponse
// @Failure  404 {object} errorResponse
// @Router   /lots-by-user/{subcategoryId}/{userId} [get]
func (h *LotHandler) ListUserLots(w http.ResponseWriter, r *http.Request) {
	subcategoryID, ok := int64Param(r, "subcategoryId")
	if !ok {
		badRequest(w, r, "Некорректный ID подкатегории")
		return
	}
	userID, ok := int64Param(r, "userId")
	if !ok {
		badRequest(w, r, "Некорректный ID пользователя")
		return
	}

	lots, err := h.lotService.UserLots(r.Context(), goldenKey(r), subcategoryID, userID)
	if err != nil {
		writeError(w, r, h.logger, "Ошибка получения лотов пользователя", err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toLotDTOs(lots))
}

// CreateLot создает лот с ценой и описанием
// @Summary  Создание лота
// @Tags     lots
// @Accept   json
// @Produce  json
// @Param    golden_key query string               true "golden_key"
// @Param    request    body  dto.CreateLotRequest true "Лот"
// @Success  200 {object} dto.LotSummaryDTO
// @Failure  400 {object} errorResponse
// @Router   /create-lot [post]
func (h *LotHandler) CreateLot(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "Некорректный формат данных")
		return
	}

	lot, err := h.lotService.CreateLot(r.Context(), goldenKey(r), req.SubcategoryID, req.Price, req.Description)
	if err != nil {
		writeError(w, r, h.logger, "Ошибка создания лота", err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toLotSummary(lot))
}

// OfferFields возвращает поля формы лота
// @Summary  Поля формы лота
// @Tags     lots
// @Produce  json
// @Param    offer      query int    false "ID лота, 0 для нового"
// @Param    node       query int    true  "ID подкатегории"
// @Param    golden_key query string true  "golden_key"
// @Success  200 {object} dto.OfferFieldsResponse
// @Failure  400 {object} errorResponse
// @Router   /lots/offerEdit [get]
func (h *LotHandler) OfferFields(w http.ResponseWriter, r *http.Request) {
	var offerID int64
	if r.URL.Query().Get("offer") != "" {
		v, ok := int64Query(r, "offer")
		if !ok {
			badRequest(w, r, "Некорректный параметр offer")
			return
		}
		offerID = v
	}
	nodeID, ok := int64Query(r, "node")
	if !ok {
		badRequest(w, r, "Некорректный параметр node")
		return
	}

	fields, csrf, err := h.lotService.OfferFields(r.Context(), goldenKey(r), offerID, nodeID)
	if err != nil {
		writeError(w, r, h.logger, "Ошибка получения формы лота", err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, dto.OfferFieldsResponse{
		Fields:    fields,
		CSRFToken: csrf,
	})
}

// SaveFields отправляет полный набор полей лота
// @Summary  Создание лота из полей формы
// @Tags     lots
// @Accept   x-www-form-urlencoded
// @Produce  json
// @Param    golden_key query string true "golden_key"
// @Success  200 {object} dto.SaveLotResponse
// @Failure  400 {object} errorResponse
// @Router   /create-lot-from-fields [post]
func (h *LotHandler) SaveFields(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		badRequest(w, r, "Некорректное тело формы")
		return
	}

	key := goldenKey(r)
	fields := make(models.FieldMap, len(r.PostForm))
	for name, values := range r.PostForm {
		if name == "golden_key" {
			if key == "" && len(values) > 0 {
				key = strings.TrimSpace(values[0])
			}
			continue
		}
		if len(values) > 0 {
			fields[name] = values[len(values)-1]
		}
	}

	res, err := h.lotService.SaveFields(r.Context(), key, fields)
	if err != nil {
		writeError(w, r, h.logger, "Ошибка сохранения лота", err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, dto.SaveLotResponse{
		Success:        true,
		Message:        "Лот успешно сохранен",
		SubcategoryID:  res.SubcategoryID,
		SellerID:       res.Seller.ID,
		SellerUsername: res.Seller.Username,
	})
}

// UserSubcategories возвращает ID подкатегорий, где у пользователя есть лоты
// При любой ошибке отдается пустой список
// @Summary  Подкатегории пользователя
// @Tags     lots
// @Produce  json
// @Param    userId     path  int    true "ID пользователя"
// @Param    golden_key query string true "golden_key"
// @Success  200 {array} int
// @Router   /get_user_subcategories/{userId} [get]
func (h *LotHandler) UserSubcategories(w http.ResponseWriter, r *http.Request) {
	ids := []int64{}

	userID, ok := int64Param(r, "userId")
	if !ok {
		h.logger.WarnWithContext(r.Context(), "Некорректный ID пользователя",
			interfaces.LogField{Key: "path", Value: r.URL.Path},
		)
		render.JSON(w, r, ids)
		return
	}

	discovery, err := h.lotService.UserSubcategories(r.Context(), goldenKey(r), userID)
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения подкатегорий пользователя",
			interfaces.LogField{Key: "user_id", Value: userID},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
	} else if discovery.SubcategoryIDs != nil {
		ids = discovery.SubcategoryIDs
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ids)
}
