package models

import "time"

// AllSubcategories значение subcategory_id, означающее "все подкатегории"
const AllSubcategories int64 = -1

// CopyRequest параметры копирования лотов
type CopyRequest struct {
	SourceUserID  int64  `json:"source_user_id"`
	SubcategoryID *int64 `json:"subcategory_id,omitempty"`
}

// All сообщает, нужно ли обойти все подкатегории пользователя
func (r CopyRequest) All() bool {
	return r.SubcategoryID == nil || *r.SubcategoryID == AllSubcategories
}

// CopyOutcome результат обработки одного лота
type CopyOutcome string

const (
	CopyCreated CopyOutcome = "created"
	CopyFailed  CopyOutcome = "failed"
)

// CopyResult запись об одном обработанном лоте
type CopyResult struct {
	Outcome       CopyOutcome `json:"outcome"`
	SourceLotID   int64       `json:"source_lot_id"`
	SubcategoryID int64       `json:"subcategory_id"`
	Lot           Listing     `json:"lot"`
	Images        int         `json:"images"`
	Error         string      `json:"error,omitempty"`
}

// CopyReport результат всего копирования
// Results упорядочены в порядке обработки
type CopyReport struct {
	SourceUserID      int64            `json:"source_user_id"`
	Subcategories     []int64          `json:"subcategories"`
	DiscoveryError    string           `json:"discovery_error,omitempty"`
	SubcategoryErrors map[int64]string `json:"subcategory_errors,omitempty"`
	Results           []CopyResult     `json:"results"`
	SessionRefreshes  int              `json:"session_refreshes"`
	StartedAt         time.Time        `json:"started_at"`
	FinishedAt        time.Time        `json:"finished_at"`
}

// Created возвращает успешно созданные лоты в порядке обработки
func (r *CopyReport) Created() []CopyResult {
	return r.filter(CopyCreated)
}

// Failed возвращает лоты, которые не удалось скопировать
func (r *CopyReport) Failed() []CopyResult {
	return r.filter(CopyFailed)
}

func (r *CopyReport) filter(outcome CopyOutcome) []CopyResult {
	out := make([]CopyResult, 0, len(r.Results))
	for _, res := range r.Results {
		if res.Outcome == outcome {
			out = append(out, res)
		}
	}
	return out
}

// SubcategoryDiscovery множество подкатегорий обычного типа, в которых есть лоты пользователя
type SubcategoryDiscovery struct {
	UserID         int64   `json:"user_id"`
	SubcategoryIDs []int64 `json:"subcategory_ids"`
}

// CopyJobStatus состояние асинхронной задачи копирования
type CopyJobStatus string

const (
	JobQueued    CopyJobStatus = "queued"
	JobRunning   CopyJobStatus = "running"
	JobCompleted CopyJobStatus = "completed"
	JobFailed    CopyJobStatus = "failed"
)

// CopyJob запись об асинхронной задаче копирования
type CopyJob struct {
	ID           string        `json:"id"`
	Status       CopyJobStatus `json:"status"`
	SourceUserID int64         `json:"source_user_id"`
	CreatedAt    time.Time     `json:"created_at"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
	Report       *CopyReport   `json:"report,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// ---------------------------- KAFKA MODELS ----------------------------

// CopyEvent событие копирования для топика copy-events
type CopyEvent struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	SourceUserID  int64     `json:"source_user_id"`
	AccountID     int64     `json:"account_id"`
	LotID         int64     `json:"lot_id,omitempty"`
	SubcategoryID int64     `json:"subcategory_id,omitempty"`
	Images        int       `json:"images,omitempty"`
	Error         string    `json:"error,omitempty"`
	Copied        int       `json:"copied,omitempty"`
	Failed        int       `json:"failed,omitempty"`
	DurationMs    int64     `json:"duration_ms,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
