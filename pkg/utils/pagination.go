package utils

import (
	"net/http"
	"strconv"
)

// Pagination представляет модель для постраничной выдачи
type Pagination struct {
	Page       int   `json:"page"`        // Номер страницы (начиная с 1)
	PageSize   int   `json:"page_size"`   // Размер страницы
	TotalItems int64 `json:"total_items"` // Общее количество элементов
	TotalPages int   `json:"total_pages"` // Общее количество страниц
	HasNext    bool  `json:"has_next"`    // Есть ли следующая страница
	HasPrev    bool  `json:"has_prev"`    // Есть ли предыдущая страница
}

// DefaultPageSize используется, если размер страницы не задан или некорректен
const DefaultPageSize = 10

// NewPagination создает новый экземпляр Pagination с заданными параметрами
func NewPagination(page, pageSize int) *Pagination {
	if page < 1 {
		page = 1
	}

	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	return &Pagination{
		Page:     page,
		PageSize: pageSize,
	}
}

// PaginationFromRequest читает page и page_size из query string
// Второе значение false, если клиент пагинацию не запрашивал
func PaginationFromRequest(r *http.Request, maxPageSize int) (*Pagination, bool) {
	q := r.URL.Query()
	rawPage, rawSize := q.Get("page"), q.Get("page_size")
	if rawPage == "" && rawSize == "" {
		return nil, false
	}

	page, _ := strconv.Atoi(rawPage)
	size, _ := strconv.Atoi(rawSize)
	if maxPageSize > 0 && size > maxPageSize {
		size = maxPageSize
	}
	return NewPagination(page, size), true
}

// SetTotal устанавливает общее количество элементов и пересчитывает зависимые поля
func (p *Pagination) SetTotal(totalItems int64) {
	p.TotalItems = totalItems
	p.TotalPages = int((totalItems + int64(p.PageSize) - 1) / int64(p.PageSize))
	p.HasNext = p.Page < p.TotalPages
	p.HasPrev = p.Page > 1
}

// GetOffset возвращает смещение первого элемента страницы
func (p *Pagination) GetOffset() int {
	return (p.Page - 1) * p.PageSize
}

// GetLimit возвращает размер страницы
func (p *Pagination) GetLimit() int {
	return p.PageSize
}

// Bounds возвращает границы среза [start:end) для коллекции длины n
// и заодно выставляет TotalItems
func (p *Pagination) Bounds(n int) (int, int) {
	p.SetTotal(int64(n))

	start := p.GetOffset()
	if start > n {
		start = n
	}
	end := start + p.GetLimit()
	if end > n {
		end = n
	}
	return start, end
}

// WriteHeaders выставляет заголовки X-Total-Count и X-Total-Pages
func (p *Pagination) WriteHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Total-Count", strconv.FormatInt(p.TotalItems, 10))
	w.Header().Set("X-Total-Pages", strconv.Itoa(p.TotalPages))
}
