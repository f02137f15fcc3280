package services

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/models"
)

// CheckedMarker значение, которое форма отправляет для отмеченного чекбокса
const CheckedMarker = "on"

// FieldExtractor извлекает поля и их текущие значения из HTML формы
type FieldExtractor struct{}

// NewFieldExtractor создает новый экземпляр FieldExtractor
func NewFieldExtractor() *FieldExtractor {
	return &FieldExtractor{}
}

// Extract возвращает значения всех именованных полей формы
// Некорректный HTML не считается ошибкой: нераспознанные элементы просто пропускаются
func (e *FieldExtractor) Extract(html string) models.FieldMap {
	fields := make(models.FieldMap)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fields
	}

	doc.Find("input").Each(func(_ int, input *goquery.Selection) {
		if name := fieldName(input); name != "" {
			fields[name] = input.AttrOr("value", "")
		}
	})

	doc.Find("textarea").Each(func(_ int, textarea *goquery.Selection) {
		if name := fieldName(textarea); name != "" {
			fields[name] = strings.TrimSpace(textarea.Text())
		}
	})

	// select учитывается, только если его .form-group видима
	doc.Find("select").Each(func(_ int, sel *goquery.Selection) {
		name := fieldName(sel)
		if name == "" {
			return
		}
		group := sel.Closest(".form-group")
		if group.Length() == 0 || group.HasClass("hidden") {
			return
		}
		if value, ok := sel.Find("option[selected]").First().Attr("value"); ok {
			fields[name] = value
		}
	})

	doc.Find(`input[type="checkbox"]`).Each(func(_ int, checkbox *goquery.Selection) {
		name := fieldName(checkbox)
		if _, checked := checkbox.Attr("checked"); checked && name != "" {
			fields[name] = CheckedMarker
		}
	})

	return fields
}

func fieldName(s *goquery.Selection) string {
	return strings.TrimSpace(s.AttrOr("name", ""))
}
