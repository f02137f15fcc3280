package dto

import "time"

// CopyLotsRequest тело запроса POST /copy-lots
// SubcategoryID равный nil или -1 означает "все подкатегории пользователя"
type CopyLotsRequest struct {
	UserID        int64  `json:"user_id"`
	SubcategoryID *int64 `json:"subcategory_id"`
	GoldenKey     string `json:"golden_key"`
}

// CopyFailureDTO описывает лот, который не удалось скопировать
type CopyFailureDTO struct {
	LotID         int64  `json:"lot_id"`
	SubcategoryID int64  `json:"subcategory_id"`
	Error         string `json:"error"`
}

// CopyLotsResponse результат копирования
type CopyLotsResponse struct {
	CopiedLots []LotDTO         `json:"copied_lots"`
	Total      int              `json:"total"`
	Failed     []CopyFailureDTO `json:"failed,omitempty"`
}

// CopyJobDTO состояние асинхронной задачи копирования
type CopyJobDTO struct {
	ID           string            `json:"job_id"`
	Status       string            `json:"status"`
	SourceUserID int64             `json:"user_id"`
	CreatedAt    time.Time         `json:"created_at"`
	FinishedAt   *time.Time        `json:"finished_at,omitempty"`
	Result       *CopyLotsResponse `json:"result,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// CopyStatsDTO счетчики копирования по исходному пользователю
type CopyStatsDTO struct {
	UserID int64 `json:"user_id"`
	Copied int64 `json:"copied"`
	Failed int64 `json:"failed"`
}
