package models

import (
	"fmt"
	"sort"
	"strings"
)

// FieldMap отображение имени поля формы в его строковое значение
type FieldMap map[string]string

// Clone возвращает независимую копию
func (f FieldMap) Clone() FieldMap {
	out := make(FieldMap, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Keys возвращает имена полей в алфавитном порядке
func (f FieldMap) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FieldLayout описывает имена полей формы лота
// Имена зависят от текущей верстки маркетплейса, поэтому задаются конфигурацией
type FieldLayout struct {
	CSRFToken    string   `mapstructure:"csrfToken"`
	OfferID      string   `mapstructure:"offerId"`
	OfferIDValue string   `mapstructure:"offerIdValue"`
	NodeID       string   `mapstructure:"nodeId"`
	Price        string   `mapstructure:"price"`
	Summary      string   `mapstructure:"summary"`     // шаблон с %s для локали
	Description  string   `mapstructure:"description"` // шаблон с %s для локали
	Server       string   `mapstructure:"server"`
	Amount       string   `mapstructure:"amount"`
	AutoDelivery string   `mapstructure:"autoDelivery"`
	CheckedValue string   `mapstructure:"checkedValue"`
	Attributes   string   `mapstructure:"attributes"`
	PairFormat   string   `mapstructure:"pairFormat"` // шаблон с двумя %s: ключ и значение
	PairJoiner   string   `mapstructure:"pairJoiner"`
	Photo        string   `mapstructure:"photo"` // шаблон с %d для индекса
	Locales      []string `mapstructure:"locales"`
}

// DefaultFieldLayout текущая верстка формы offerEdit
func DefaultFieldLayout() FieldLayout {
	return FieldLayout{
		CSRFToken:    "csrf_token",
		OfferID:      "offer_id",
		OfferIDValue: "0",
		NodeID:       "node_id",
		Price:        "price",
		Summary:      "fields[summary][%s]",
		Description:  "fields[desc][%s]",
		Server:       "param_0",
		Amount:       "amount",
		AutoDelivery: "auto_delivery",
		CheckedValue: "on",
		Attributes:   "fields[attributes]",
		PairFormat:   "%s:%s",
		PairJoiner:   ",",
		Photo:        "photos[%d]",
		Locales:      []string{"ru", "en"},
	}
}

// Validate проверяет, что все шаблоны заданы и содержат нужные плейсхолдеры
func (l FieldLayout) Validate() error {
	required := map[string]string{
		"csrfToken":    l.CSRFToken,
		"offerId":      l.OfferID,
		"nodeId":       l.NodeID,
		"price":        l.Price,
		"server":       l.Server,
		"amount":       l.Amount,
		"autoDelivery": l.AutoDelivery,
		"attributes":   l.Attributes,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("field layout: %s is empty", name)
		}
	}

	if strings.Count(l.Summary, "%s") != 1 || strings.Count(l.Description, "%s") != 1 {
		return fmt.Errorf("field layout: summary and description must contain exactly one %%s")
	}
	if strings.Count(l.PairFormat, "%s") != 2 {
		return fmt.Errorf("field layout: pairFormat must contain two %%s")
	}
	if strings.Count(l.Photo, "%d") != 1 {
		return fmt.Errorf("field layout: photo must contain exactly one %%d")
	}
	if len(l.Locales) == 0 {
		return fmt.Errorf("field layout: at least one locale is required")
	}
	return nil
}

// SummaryKey имя поля краткого описания для локали
func (l FieldLayout) SummaryKey(locale string) string {
	return fmt.Sprintf(l.Summary, locale)
}

// DescriptionKey имя поля подробного описания для локали
func (l FieldLayout) DescriptionKey(locale string) string {
	return fmt.Sprintf(l.Description, locale)
}

// PhotoKey имя поля изображения с индексом
func (l FieldLayout) PhotoKey(index int) string {
	return fmt.Sprintf(l.Photo, index)
}

// IsOverrideKey сообщает, может ли поле появиться в форме помимо полей пустой формы
func (l FieldLayout) IsOverrideKey(key string) bool {
	switch key {
	case l.CSRFToken, l.OfferID, l.NodeID, l.Price, l.Server, l.Amount, l.AutoDelivery, l.Attributes:
		return true
	}
	for _, locale := range l.Locales {
		if key == l.SummaryKey(locale) || key == l.DescriptionKey(locale) {
			return true
		}
	}

	var idx int
	if n, err := fmt.Sscanf(key, l.Photo, &idx); err == nil && n == 1 && key == l.PhotoKey(idx) {
		return true
	}
	return false
}
