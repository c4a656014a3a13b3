package checkout

import (
	"github.com/tallypro/storefront/internal/domain/payment"
)

// WidgetOptions configure the hosted checkout widget in the browser
type WidgetOptions struct {
	Key         string        `json:"key"`
	Amount      int64         `json:"amount"`
	Currency    string        `json:"currency"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	OrderID     string        `json:"order_id"`
	Prefill     WidgetPrefill `json:"prefill"`
	Notes       WidgetNotes   `json:"notes"`
	Theme       WidgetTheme   `json:"theme"`
}

// WidgetPrefill pre-populates the payer form
type WidgetPrefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// WidgetNotes are shown on the gateway dashboard
type WidgetNotes struct {
	Address string `json:"address"`
}

// WidgetTheme styles the widget
type WidgetTheme struct {
	Color string `json:"color"`
}

func (b *Bridge) widgetOptions(order *payment.GatewayOrder, p Purchase) *WidgetOptions {
	return &WidgetOptions{
		Key:         b.gateway.KeyID(),
		Amount:      order.Amount,
		Currency:    order.Currency,
		Name:        b.config.MerchantName,
		Description: "Purchase " + p.Product.Name,
		OrderID:     order.ID,
		Prefill: WidgetPrefill{
			Name:  p.User.Name,
			Email: p.User.Email,
		},
		Notes: WidgetNotes{Address: b.config.NotesAddress},
		Theme: WidgetTheme{Color: b.config.ThemeColor},
	}
}
