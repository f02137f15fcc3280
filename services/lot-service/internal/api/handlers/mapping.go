package handlers

import (
	"sort"

	"github.com/athebyme/funpay-bridge/pkg/dto"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/models"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/services"
)

func priceOf(l *models.Listing) float64 {
	v, err := l.PriceValue()
	if err != nil {
		return 0
	}
	return v
}

func toLotSummary(l *models.Listing) dto.LotSummaryDTO {
	return dto.LotSummaryDTO{
		ID:             l.ID,
		Price:          priceOf(l),
		Description:    l.Description,
		SellerID:       l.Seller.ID,
		SellerUsername: l.Seller.Username,
	}
}

func toLotSummaries(lots []models.Listing) []dto.LotSummaryDTO {
	out := make([]dto.LotSummaryDTO, 0, len(lots))
	for i := range lots {
		out = append(out, toLotSummary(&lots[i]))
	}
	return out
}

func toLotDTO(l *models.Listing) dto.LotDTO {
	attrs := l.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	return dto.LotDTO{
		ID:             l.ID,
		Server:         l.Server,
		Description:    l.Description,
		Title:          l.Title,
		Amount:         l.Amount,
		Price:          priceOf(l),
		Currency:       l.Currency,
		SellerID:       l.Seller.ID,
		SellerUsername: l.Seller.Username,
		AutoDelivery:   l.AutoDelivery,
		IsPromo:        l.IsPromo,
		Attributes:     attrs,
		SubcategoryID:  l.SubcategoryID,
		CategoryName:   l.CategoryName,
		HTML:           l.HTML,
		PublicLink:     l.PublicLink,
	}
}

func toLotDTOs(lots []models.Listing) []dto.LotDTO {
	out := make([]dto.LotDTO, 0, len(lots))
	for i := range lots {
		out = append(out, toLotDTO(&lots[i]))
	}
	return out
}

func toCopyResponse(report *models.CopyReport) dto.CopyLotsResponse {
	resp := dto.CopyLotsResponse{CopiedLots: []dto.LotDTO{}}
	if report == nil {
		return resp
	}

	for _, res := range report.Created() {
		resp.CopiedLots = append(resp.CopiedLots, toLotDTO(&res.Lot))
	}
	for _, res := range report.Failed() {
		resp.Failed = append(resp.Failed, dto.CopyFailureDTO{
			LotID:         res.SourceLotID,
			SubcategoryID: res.SubcategoryID,
			Error:         res.Error,
		})
	}
	if report.DiscoveryError != "" {
		resp.Failed = append(resp.Failed, dto.CopyFailureDTO{Error: report.DiscoveryError})
	}

	ids := make([]int64, 0, len(report.SubcategoryErrors))
	for id := range report.SubcategoryErrors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		resp.Failed = append(resp.Failed, dto.CopyFailureDTO{SubcategoryID: id, Error: report.SubcategoryErrors[id]})
	}
	resp.Total = len(resp.CopiedLots)
	return resp
}

func toCopyJobDTO(job *models.CopyJob) dto.CopyJobDTO {
	out := dto.CopyJobDTO{
		ID:           job.ID,
		Status:       string(job.Status),
		SourceUserID: job.SourceUserID,
		CreatedAt:    job.CreatedAt,
		FinishedAt:   job.FinishedAt,
		Error:        job.Error,
	}
	if job.Report != nil {
		resp := toCopyResponse(job.Report)
		out.Result = &resp
	}
	return out
}

func toCopyStatsDTO(s *services.CopyStats) dto.CopyStatsDTO {
	return dto.CopyStatsDTO{UserID: s.UserID, Copied: s.Copied, Failed: s.Failed}
}
