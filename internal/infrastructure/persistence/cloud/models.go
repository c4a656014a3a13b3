package cloud

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tallypro/storefront/internal/domain/catalog"
	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/sales"
	"github.com/tallypro/storefront/internal/domain/support"
)

// ProductModel is the persistence model for catalog.Product
type ProductModel struct {
	ID           string          `gorm:"type:varchar(64);primaryKey"`
	Name         string          `gorm:"type:varchar(200);not null"`
	Description  string          `gorm:"type:text"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Category     string          `gorm:"type:varchar(50);not null"`
	DemoURL      string          `gorm:"type:varchar(500)"`
	ImageURL     string          `gorm:"type:varchar(500)"`
	YouTubeURL   string          `gorm:"column:youtube_url;type:varchar(500)"`
	Features     string          `gorm:"type:text;not null;default:'[]'"`
	Active       bool            `gorm:"not null;default:true"`
	Version      string          `gorm:"type:varchar(50)"`
	LicenseType  string          `gorm:"type:varchar(50)"`
	FileName     string          `gorm:"type:varchar(255)"`
	FileURL      string          `gorm:"type:varchar(1000)"`
	FileSize     int64           `gorm:"not null;default:0"`
	DemoFileName string          `gorm:"type:varchar(255)"`
	DemoFileURL  string          `gorm:"type:varchar(1000)"`
	CreatedAt    time.Time       `gorm:"not null"`
	UpdatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the model to a domain product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		ID:           m.ID,
		Name:         m.Name,
		Description:  m.Description,
		Price:        m.Price,
		Category:     catalog.Category(m.Category),
		DemoURL:      m.DemoURL,
		ImageURL:     m.ImageURL,
		YouTubeURL:   m.YouTubeURL,
		Features:     decodeStrings(m.Features),
		Active:       m.Active,
		Version:      m.Version,
		LicenseType:  catalog.LicenseType(m.LicenseType),
		FileName:     m.FileName,
		FileURL:      m.FileURL,
		FileSize:     m.FileSize,
		DemoFileName: m.DemoFileName,
		DemoFileURL:  m.DemoFileURL,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ProductModelFromDomain builds a model from p. CreatedAt is left to the caller.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	return &ProductModel{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		Category:     string(p.Category),
		DemoURL:      p.DemoURL,
		ImageURL:     p.ImageURL,
		YouTubeURL:   p.YouTubeURL,
		Features:     encodeStrings(p.Features),
		Active:       p.Active,
		Version:      p.Version,
		LicenseType:  string(p.LicenseType),
		FileName:     p.FileName,
		FileURL:      p.FileURL,
		FileSize:     p.FileSize,
		DemoFileName: p.DemoFileName,
		DemoFileURL:  p.DemoFileURL,
		UpdatedAt:    p.UpdatedAt,
	}
}

// ProfileModel is the public profile of an account
type ProfileModel struct {
	ID                string    `gorm:"type:varchar(64);primaryKey"`
	Name              string    `gorm:"type:varchar(100);not null"`
	Email             string    `gorm:"type:varchar(200);not null;uniqueIndex"`
	Role              string    `gorm:"type:varchar(20);not null;default:'customer'"`
	Status            string    `gorm:"type:varchar(20);not null;default:'active'"`
	PurchasedProducts string    `gorm:"type:text;not null;default:'[]'"`
	PhoneNumber       string    `gorm:"type:varchar(20)"`
	TallySerial       string    `gorm:"type:varchar(50)"`
	JoinedAt          time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProfileModel) TableName() string {
	return "profiles"
}

// ToDomain converts the model to a domain user
func (m *ProfileModel) ToDomain() *identity.User {
	return &identity.User{
		ID:                m.ID,
		Name:              m.Name,
		Email:             m.Email,
		Role:              identity.Role(m.Role),
		Status:            identity.UserStatus(m.Status),
		PurchasedProducts: decodeStrings(m.PurchasedProducts),
		JoinedAt:          m.JoinedAt,
		PhoneNumber:       m.PhoneNumber,
		TallySerial:       m.TallySerial,
	}
}

// ProfileModelFromDomain builds a model from u
func ProfileModelFromDomain(u *identity.User) *ProfileModel {
	return &ProfileModel{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              string(u.Role),
		Status:            string(u.Status),
		PurchasedProducts: encodeStrings(u.PurchasedProducts),
		PhoneNumber:       u.PhoneNumber,
		TallySerial:       u.TallySerial,
		JoinedAt:          u.JoinedAt,
	}
}

// CredentialModel is the identity-provider side of an account. Profiles of
// guest purchasers have no credential until they sign up.
type CredentialModel struct {
	UserID       string     `gorm:"type:varchar(64);primaryKey"`
	Email        string     `gorm:"type:varchar(200);not null;uniqueIndex"`
	PasswordHash string     `gorm:"type:varchar(255);not null"`
	SignedOutAt  *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CredentialModel) TableName() string {
	return "credentials"
}

// OrderModel is the persistence model for sales.Order
type OrderModel struct {
	ID          string          `gorm:"type:varchar(64);primaryKey"`
	UserID      string          `gorm:"type:varchar(64);not null;index"`
	UserName    string          `gorm:"type:varchar(100);not null"`
	ProductID   string          `gorm:"type:varchar(64);not null"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Status      string          `gorm:"type:varchar(20);not null;index"`
	Date        time.Time       `gorm:"not null;index"`
	PhoneNumber string          `gorm:"type:varchar(20)"`
	TallySerial string          `gorm:"type:varchar(50)"`
	PaymentID   string          `gorm:"type:varchar(100);uniqueIndex:idx_orders_payment_id,where:payment_id <> ''"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the model to a domain order
func (m *OrderModel) ToDomain() *sales.Order {
	return &sales.Order{
		ID:          m.ID,
		UserID:      m.UserID,
		UserName:    m.UserName,
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		Amount:      m.Amount,
		Status:      sales.OrderStatus(m.Status),
		Date:        m.Date,
		PhoneNumber: m.PhoneNumber,
		TallySerial: m.TallySerial,
		PaymentID:   m.PaymentID,
	}
}

// OrderModelFromDomain builds a model from o
func OrderModelFromDomain(o *sales.Order) *OrderModel {
	return &OrderModel{
		ID:          o.ID,
		UserID:      o.UserID,
		UserName:    o.UserName,
		ProductID:   o.ProductID,
		ProductName: o.ProductName,
		Amount:      o.Amount,
		Status:      string(o.Status),
		Date:        o.Date,
		PhoneNumber: o.PhoneNumber,
		TallySerial: o.TallySerial,
		PaymentID:   o.PaymentID,
	}
}

// TicketModel is the persistence model for support.Ticket
type TicketModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	UserID    string    `gorm:"type:varchar(64);not null;index"`
	Subject   string    `gorm:"type:varchar(200);not null"`
	Status    string    `gorm:"type:varchar(20);not null"`
	Priority  string    `gorm:"type:varchar(10);not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (TicketModel) TableName() string {
	return "tickets"
}

func (m *TicketModel) toDomain() support.Ticket {
	return support.Ticket{
		ID:        m.ID,
		UserID:    m.UserID,
		Subject:   m.Subject,
		Status:    support.TicketStatus(m.Status),
		Priority:  support.TicketPriority(m.Priority),
		CreatedAt: m.CreatedAt,
	}
}

// FeedbackModel is the persistence model for support.Feedback
type FeedbackModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	UserName  string    `gorm:"type:varchar(100);not null"`
	UserEmail string    `gorm:"type:varchar(200)"`
	Rating    int       `gorm:"not null"`
	Comment   string    `gorm:"type:text"`
	Date      time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (FeedbackModel) TableName() string {
	return "feedbacks"
}

func (m *FeedbackModel) toDomain() support.Feedback {
	return support.Feedback{
		ID:        m.ID,
		UserName:  m.UserName,
		UserEmail: m.UserEmail,
		Rating:    m.Rating,
		Comment:   m.Comment,
		Date:      m.Date,
	}
}

// OTPModel is a one-time login code
type OTPModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	Email     string    `gorm:"type:varchar(200);not null;index"`
	Code      string    `gorm:"type:varchar(10);not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Used      bool      `gorm:"not null;default:false"`
	Attempts  int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (OTPModel) TableName() string {
	return "otps"
}

// ToDomain converts the model to a domain code
func (m *OTPModel) ToDomain() *identity.OTP {
	return &identity.OTP{ID: m.ID, Email: m.Email, Code: m.Code, ExpiresAt: m.ExpiresAt, Used: m.Used, Attempts: m.Attempts}
}

// AllModels lists every model in dependency order, for AutoMigrate in tests
func AllModels() []any {
	return []any{
		&ProductModel{},
		&ProfileModel{},
		&CredentialModel{},
		&OrderModel{},
		&TicketModel{},
		&FeedbackModel{},
		&OTPModel{},
	}
}

func encodeStrings(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func decodeStrings(raw string) []string {
	out := make([]string, 0)
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return make([]string, 0)
	}
	return out
}
