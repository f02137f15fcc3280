package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SubcategoryType тип подкатегории маркетплейса
type SubcategoryType string

const (
	// SubcategoryCommon обычные лоты с ручной выдачей (/lots/)
	SubcategoryCommon SubcategoryType = "lots"
	// SubcategoryCurrency лоты игровой валюты (/chips/)
	SubcategoryCurrency SubcategoryType = "chips"
)

// SubcategoryRef ссылка на подкатегорию
type SubcategoryRef struct {
	ID   int64           `json:"id"`
	Type SubcategoryType `json:"type"`
	Name string          `json:"name,omitempty"`
}

// Seller продавец лота
type Seller struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Listing снимок лота из публичного списка подкатегории
// Цена хранится как строка в том виде, в каком ее отдает маркетплейс
type Listing struct {
	ID              int64             `json:"id"`
	SubcategoryID   int64             `json:"subcategory_id"`
	SubcategoryType SubcategoryType   `json:"subcategory_type"`
	CategoryName    string            `json:"category_name"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Server          string            `json:"server"`
	Amount          *int              `json:"amount,omitempty"`
	Price           string            `json:"price"`
	Currency        string            `json:"currency"`
	Seller          Seller            `json:"seller"`
	AutoDelivery    bool              `json:"auto_delivery"`
	IsPromo         bool              `json:"is_promo"`
	Attributes      map[string]string `json:"attributes,omitempty"`
	HTML            string            `json:"html,omitempty"`
	PublicLink      string            `json:"public_link"`
}

// PriceValue возвращает цену лота числом
func (l *Listing) PriceValue() (float64, error) {
	normalized, err := NormalizePrice(l.Price)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(normalized, 64)
}

// NormalizePrice приводит цену к виду, который принимает форма лота:
// без пробелов, с точкой в качестве десятичного разделителя
func NormalizePrice(raw string) (string, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\t':
			return -1
		case ',':
			return '.'
		}
		return r
	}, raw)

	if s == "" {
		return "", fmt.Errorf("empty price")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", fmt.Errorf("invalid price %q: %w", raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("invalid price %q", raw)
	}
	if v < 0 {
		return "", fmt.Errorf("negative price %q", raw)
	}

	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

// ListingDetail расширенная страница лота для конкретной локали
type ListingDetail struct {
	LotID            int64    `json:"lot_id"`
	Locale           string   `json:"locale"`
	ShortDescription string   `json:"short_description"`
	FullDescription  string   `json:"full_description"`
	ImageURLs        []string `json:"image_urls"`
}

// UserProfile страница пользователя с его лотами
type UserProfile struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Listings []Listing `json:"listings"`
}

// AccountInfo данные аутентифицированного аккаунта
type AccountInfo struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	CSRFToken string `json:"csrf_token"`
	Locale    string `json:"locale"`
}
