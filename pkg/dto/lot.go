package dto

// AuthRequest тело запроса POST /auth
type AuthRequest struct {
	GoldenKey string `json:"golden_key"`
	UserAgent string `json:"user_agent,omitempty"`
}

// AuthResponse данные аутентифицированного аккаунта
type AuthResponse struct {
	Username  string `json:"username"`
	ID        int64  `json:"id"`
	CSRFToken string `json:"csrftoken"`
}

// LotSummaryDTO краткое представление лота для GET /lots/{subcategoryId} и POST /create-lot
type LotSummaryDTO struct {
	ID             int64   `json:"id"`
	Price          float64 `json:"price"`
	Description    string  `json:"description"`
	SellerID       int64   `json:"seller_id"`
	SellerUsername string  `json:"seller_username"`
}

// LotDTO полное представление лота; имена полей совпадают с тем, что ожидает
// панель управления ботом
type LotDTO struct {
	ID             int64             `json:"Id"`
	Server         string            `json:"Server"`
	Description    string            `json:"Description"`
	Title          string            `json:"Title"`
	Amount         *int              `json:"Amount"`
	Price          float64           `json:"Price"`
	Currency       string            `json:"Currency"`
	SellerID       int64             `json:"SellerId"`
	SellerUsername string            `json:"SellerUsername"`
	AutoDelivery   bool              `json:"AutoDelivery"`
	IsPromo        bool              `json:"IsPromo"`
	Attributes     map[string]string `json:"Attributes"`
	SubcategoryID  int64             `json:"SubcategoryId"`
	CategoryName   string            `json:"CategoryName"`
	HTML           string            `json:"Html"`
	PublicLink     string            `json:"PublicLink"`
}

// CreateLotRequest тело запроса POST /create-lot
type CreateLotRequest struct {
	SubcategoryID int64   `json:"subcategory_id"`
	Price         float64 `json:"price"`
	Description   string  `json:"description"`
}

// OfferFieldsResponse поля пустой формы лота и актуальный CSRF токен
type OfferFieldsResponse struct {
	Fields    map[string]string `json:"fields"`
	CSRFToken string            `json:"csrf_token"`
}

// SaveLotResponse результат POST /create-lot-from-fields
type SaveLotResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	SubcategoryID  int64  `json:"subcategory_id"`
	SellerID       int64  `json:"seller_id"`
	SellerUsername string `json:"seller_username"`
}
