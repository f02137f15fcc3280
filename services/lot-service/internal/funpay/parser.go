package funpay

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	perrors "github.com/athebyme/funpay-bridge/pkg/errors"
	"github.com/athebyme/funpay-bridge/services/lot-service/internal/domain/models"
)

// appData содержимое атрибута data-app-data у body
type appData struct {
	Locale    string `json:"locale"`
	CSRFToken string `json:"csrf-token"`
	UserID    int64  `json:"userId"`
}

func parseAccount(doc *goquery.Document) (models.AccountInfo, error) {
	username := strings.TrimSpace(doc.Find(".user-link-name").First().Text())
	if username == "" {
		return models.AccountInfo{}, perrors.ErrUnauthorized
	}

	raw, ok := doc.Find("body").Attr("data-app-data")
	if !ok {
		return models.AccountInfo{}, fmt.Errorf("account page has no app data")
	}

	var data appData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return models.AccountInfo{}, fmt.Errorf("failed to decode app data: %w", err)
	}
	if data.UserID == 0 || data.CSRFToken == "" {
		return models.AccountInfo{}, fmt.Errorf("app data has no user id or csrf token")
	}

	return models.AccountInfo{
		ID:        data.UserID,
		Username:  username,
		CSRFToken: data.CSRFToken,
		Locale:    data.Locale,
	}, nil
}

func parseCategoryName(doc *goquery.Document) string {
	name := strings.TrimSpace(doc.Find(".content-with-cd h1").First().Text())
	if name == "" {
		name = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	return name
}

// служебные data-атрибуты карточки, которые не являются характеристиками лота
var skippedAttributes = map[string]bool{
	"data-online": true,
	"data-user":   true,
	"data-auto":   true,
}

// parseListings разбирает карточки a.tc-item внутри root
// seller задается, если карточки не содержат блока продавца (страница пользователя)
func parseListings(root *goquery.Selection, ref models.SubcategoryRef, seller *models.Seller, base *url.URL) []models.Listing {
	var listings []models.Listing

	root.Find("a.tc-item").Each(func(_ int, item *goquery.Selection) {
		href, _ := item.Attr("href")
		id, ok := queryID(href)
		if !ok {
			return
		}

		title := strings.TrimSpace(item.Find(".tc-desc-text").First().Text())
		price := item.Find(".tc-price").First()

		l := models.Listing{
			ID:              id,
			SubcategoryID:   ref.ID,
			SubcategoryType: ref.Type,
			CategoryName:    ref.Name,
			Title:           title,
			Description:     title,
			Server:          strings.TrimSpace(item.Find(".tc-server").First().Text()),
			Amount:          parseAmount(item.Find(".tc-amount").First().Text()),
			Price:           strings.TrimSpace(price.AttrOr("data-s", "")),
			Currency:        currencyCode(price.Find("span.unit").First().Text()),
			AutoDelivery:    item.AttrOr("data-auto", "") == "1",
			IsPromo:         item.HasClass("offer-promo"),
			Attributes:      dataAttributes(item),
			PublicLink:      absoluteURL(base, href),
		}
		if l.Price == "" {
			l.Price = strings.TrimSpace(price.Contents().First().Text())
		}
		if html, err := goquery.OuterHtml(item); err == nil {
			l.HTML = html
		}

		if seller != nil {
			l.Seller = *seller
		} else {
			user := item.Find(".tc-user").First()
			l.Seller = models.Seller{
				ID:       pathID(user.Find(".avatar-photo").AttrOr("data-href", "")),
				Username: strings.TrimSpace(user.Find(".media-user-name").First().Text()),
			}
		}

		listings = append(listings, l)
	})

	return listings
}

func parseLotPage(doc *goquery.Document, lotID int64, base *url.URL) *models.ListingDetail {
	detail := &models.ListingDetail{LotID: lotID, ImageURLs: []string{}}

	doc.Find("div.param-item").Each(func(_ int, param *goquery.Selection) {
		heading := strings.TrimSpace(param.Find("h5").First().Text())
		body := param.Find("div").First()
		body.Find("br").ReplaceWithHtml("\n")
		text := strings.TrimSpace(body.Text())

		switch heading {
		case "Краткое описание", "Short description", "Короткий опис":
			detail.ShortDescription = text
		case "Подробное описание", "Detailed description", "Докладний опис":
			detail.FullDescription = text
		}
	})

	doc.Find("a.attachments-thumb").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok && href != "" {
			detail.ImageURLs = append(detail.ImageURLs, absoluteURL(base, href))
		}
	})

	return detail
}

func parseUserProfile(doc *goquery.Document, userID int64, base *url.URL) *models.UserProfile {
	username := strings.TrimSpace(doc.Find(".profile span.mr4").First().Text())
	if username == "" {
		username = strings.TrimSpace(doc.Find("span.mr4").First().Text())
	}

	profile := &models.UserProfile{ID: userID, Username: username, Listings: []models.Listing{}}
	seller := &models.Seller{ID: userID, Username: username}

	doc.Find("div.offer").Each(func(_ int, offer *goquery.Selection) {
		link := offer.Find("div.offer-list-title-container h3 a").First()
		ref, ok := subcategoryRef(link.AttrOr("href", ""))
		if !ok {
			return
		}
		ref.Name = strings.TrimSpace(link.Text())

		profile.Listings = append(profile.Listings, parseListings(offer, ref, seller, base)...)
	})

	return profile
}

// saveResponse ответ lots/offerSave
type saveResponse struct {
	Error  json.RawMessage `json:"error"`
	Errors json.RawMessage `json:"errors"`
	Msg    string          `json:"msg"`
}

func parseSaveResponse(body []byte) error {
	var resp saveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("unexpected save response: %w", err)
	}

	fields := decodeFieldErrors(resp.Errors)
	message, failed := decodeErrorFlag(resp.Error)
	if message == "" && failed {
		message = resp.Msg
	}

	if len(fields) == 0 && !failed {
		return nil
	}
	return &perrors.ValidationError{Message: message, Fields: fields}
}

// decodeFieldErrors принимает как список пар [поле, сообщение], так и объект
func decodeFieldErrors(raw json.RawMessage) map[string]string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	fields := make(map[string]string)

	var pairs [][]string
	if err := json.Unmarshal(raw, &pairs); err == nil {
		for _, pair := range pairs {
			if len(pair) >= 2 {
				fields[pair[0]] = pair[1]
			}
		}
		return fields
	}

	var object map[string]string
	if err := json.Unmarshal(raw, &object); err == nil {
		return object
	}
	return nil
}

// decodeErrorFlag поле error бывает строкой, булевым значением или числом
func decodeErrorFlag(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, text != ""
	}

	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil {
		return "", flag
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return "", number != 0
	}
	return "", true
}

type uploadResponse struct {
	FileID json.RawMessage `json:"fileId"`
	Msg    string          `json:"msg"`
}

func parseUploadResponse(body []byte) (string, error) {
	var resp uploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unexpected upload response: %w", err)
	}

	raw := strings.TrimSpace(string(resp.FileID))
	if raw == "" || raw == "null" || raw == `""` {
		if resp.Msg != "" {
			return "", fmt.Errorf("image upload rejected: %s", resp.Msg)
		}
		return "", fmt.Errorf("image upload returned no file id")
	}

	if unquoted, err := strconv.Unquote(raw); err == nil {
		return unquoted, nil
	}
	return raw, nil
}

// queryID извлекает параметр id из ссылки на лот
func queryID(href string) (int64, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(u.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// pathID извлекает числовой идентификатор из ссылки вида /users/123/
func pathID(href string) int64 {
	u, err := url.Parse(href)
	if err != nil {
		return 0
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	id, _ := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	return id
}

// subcategoryRef разбирает ссылку вида /lots/210/ или /chips/3/
func subcategoryRef(href string) (models.SubcategoryRef, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return models.SubcategoryRef{}, false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return models.SubcategoryRef{}, false
	}

	id, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil {
		return models.SubcategoryRef{}, false
	}

	typ := models.SubcategoryType(parts[len(parts)-2])
	if typ != models.SubcategoryCommon && typ != models.SubcategoryCurrency {
		return models.SubcategoryRef{}, false
	}
	return models.SubcategoryRef{ID: id, Type: typ}, true
}

func parseAmount(text string) *int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}

func currencyCode(unit string) string {
	switch strings.TrimSpace(unit) {
	case "₽":
		return "RUB"
	case "$":
		return "USD"
	case "€":
		return "EUR"
	case "":
		return ""
	default:
		return "UNKNOWN"
	}
}

func dataAttributes(item *goquery.Selection) map[string]string {
	attrs := make(map[string]string)
	if len(item.Nodes) == 0 {
		return attrs
	}
	for _, attr := range item.Nodes[0].Attr {
		if !strings.HasPrefix(attr.Key, "data-") || skippedAttributes[attr.Key] {
			continue
		}
		attrs[strings.TrimPrefix(attr.Key, "data-")] = attr.Val
	}
	return attrs
}

func absoluteURL(base *url.URL, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(u).String()
}
