package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	perrors "github.com/athebyme/funpay-bridge/pkg/errors"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/models"
)

// ComposeInput данные для сборки формы нового лота
type ComposeInput struct {
	Blank         models.FieldMap
	Listing       models.Listing
	Detail        *models.ListingDetail
	SubcategoryID int64
	CSRFToken     string
	ImageIDs      []string
}

// Composer собирает форму нового лота из пустой формы подкатегории и исходного лота
// Не обращается к сети
type Composer struct {
	layout models.FieldLayout
}

// NewComposer создает Composer для заданной верстки формы
func NewComposer(layout models.FieldLayout) *Composer {
	return &Composer{layout: layout}
}

// Layout возвращает верстку формы, с которой работает Composer
func (c *Composer) Layout() models.FieldLayout {
	return c.layout
}

// Compose возвращает поля для отправки
// Множество ключей результата не выходит за поля пустой формы и фиксированные поля верстки
func (c *Composer) Compose(in ComposeInput) (models.FieldMap, error) {
	price, err := models.NormalizePrice(in.Listing.Price)
	if err != nil {
		return nil, fmt.Errorf("%w: lot %d: %v", perrors.ErrInvalidInput, in.Listing.ID, err)
	}

	l := c.layout
	out := in.Blank.Clone()

	out[l.CSRFToken] = in.CSRFToken
	out[l.OfferID] = l.OfferIDValue
	out[l.NodeID] = strconv.FormatInt(in.SubcategoryID, 10)
	out[l.Price] = price

	summary := in.Listing.Description
	var full string
	if in.Detail != nil {
		full = in.Detail.FullDescription
		if summary == "" {
			summary = in.Detail.ShortDescription
		}
	}
	for _, locale := range c.formLocales(in.Blank) {
		out[l.SummaryKey(locale)] = summary
		out[l.DescriptionKey(locale)] = full
	}

	out[l.Server] = in.Listing.Server

	out[l.Amount] = ""
	if in.Listing.Amount != nil {
		out[l.Amount] = strconv.Itoa(*in.Listing.Amount)
	}

	out[l.AutoDelivery] = ""
	if in.Listing.AutoDelivery {
		out[l.AutoDelivery] = l.CheckedValue
	}

	out[l.Attributes] = c.attributes(in.Listing.Attributes)

	for i, id := range in.ImageIDs {
		out[l.PhotoKey(i)] = id
	}

	return out, nil
}

// formLocales возвращает локали, поля которых есть в пустой форме
// Если форма не содержит ни одного локализованного поля, используются все локали верстки
func (c *Composer) formLocales(blank models.FieldMap) []string {
	var present []string
	for _, locale := range c.layout.Locales {
		_, hasSummary := blank[c.layout.SummaryKey(locale)]
		_, hasDesc := blank[c.layout.DescriptionKey(locale)]
		if hasSummary || hasDesc {
			present = append(present, locale)
		}
	}
	if len(present) == 0 {
		return c.layout.Locales
	}
	return present
}

// attributes сериализует характеристики в строку; ключи сортируются,
// чтобы одинаковый лот давал одинаковую форму
func (c *Composer) attributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf(c.layout.PairFormat, k, attrs[k]))
	}
	return strings.Join(pairs, c.layout.PairJoiner)
}
