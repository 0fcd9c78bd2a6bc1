package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type CategoryRequest struct {
	Name string `json:"name"`
}

type Product struct {
	ID         string          `json:"id"`
	SKU        string          `json:"sku"`
	Barcode    string          `json:"barcode"`
	Name       string          `json:"name"`
	CategoryID string          `json:"category_id,omitempty"`
	SellPrice  decimal.Decimal `json:"sell_price"`
	CostPrice  decimal.Decimal `json:"cost_price"`
	Stock      int             `json:"stock"`
	Unit       string          `json:"unit,omitempty"`
	Active     bool            `json:"active"`
	CreatedAt  time.Time       `json:"created_at"`
}

type ProductCreateRequest struct {
	Name       string          `json:"name"`
	SKU        string          `json:"sku"`
	Barcode    string          `json:"barcode"`
	CategoryID string          `json:"category_id,omitempty"`
	SellPrice  decimal.Decimal `json:"sell_price"`
	CostPrice  decimal.Decimal `json:"cost_price"`
	Stock      int             `json:"stock"`
	Unit       string          `json:"unit,omitempty"`
}

type ProductUpdateRequest struct {
	Name       *string          `json:"name,omitempty"`
	SKU        *string          `json:"sku,omitempty"`
	Barcode    *string          `json:"barcode,omitempty"`
	CategoryID *string          `json:"category_id,omitempty"`
	SellPrice  *decimal.Decimal `json:"sell_price,omitempty"`
	CostPrice  *decimal.Decimal `json:"cost_price,omitempty"`
	Active     *bool            `json:"active,omitempty"`
}

type ProductListFilter struct {
	Search     string
	CategoryID string
	Limit      int
}

type ImportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

const (
	CartStatusActive     = "active"
	CartStatusCheckedOut = "checked_out"
)

type Cart struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	Items     []CartItem `json:"items"`
}

// CartItem.Price is the sell price snapshot captured when the line was first
// added; it is never re-read from the product afterwards.
type CartItem struct {
	ID        string          `json:"id"`
	CartID    string          `json:"cart_id"`
	ProductID string          `json:"product_id"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}

// CartView is the fully materialized read projection of a cart: each line
// carries its resolved product details so callers never chase references.
type CartView struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	Items     []CartItemView  `json:"items"`
	Total     decimal.Decimal `json:"total"`
}

type CartItemView struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	SKU         string          `json:"sku"`
	ProductName string          `json:"product_name"`
	Qty         int             `json:"qty"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type AddItemRequest struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

type UpdateItemRequest struct {
	Qty int `json:"qty"`
}

type CheckoutRequest struct {
	CashPaid decimal.Decimal `json:"cash_paid"`
}

type Transaction struct {
	ID              string            `json:"id"`
	InvoiceNumber   string            `json:"invoice_number"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	CashPaid        decimal.Decimal   `json:"cash_paid"`
	ChangeAmount    decimal.Decimal   `json:"change_amount"`
	TransactionDate time.Time         `json:"transaction_date"`
	PaidAt          time.Time         `json:"paid_at"`
	CashierID       string            `json:"cashier_id,omitempty"`
	Items           []TransactionItem `json:"items"`
}

type TransactionItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	SKU       string          `json:"sku"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

const (
	MovementIn     = "in"
	MovementOut    = "out"
	MovementAdjust = "adjust"
)

// StockMovement is an append-only ledger row; it is never mutated after
// insert. For type adjust, Qty holds the signed delta applied to stock.
type StockMovement struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Type      string    `json:"type"`
	Qty       int       `json:"qty"`
	Note      string    `json:"note,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type StockAdjustRequest struct {
	Type string `json:"type"`
	Qty  int    `json:"qty"`
	Note string `json:"note,omitempty"`
}

type StockAdjustResponse struct {
	ProductID string `json:"product_id"`
	NewStock  int    `json:"new_stock"`
}

type Receipt struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	ReceiptNumber string    `json:"receipt_number"`
	FilePath      string    `json:"file_path,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type DashboardSummary struct {
	TotalSales        decimal.Decimal     `json:"total_sales"`
	TotalTransactions int64               `json:"total_transactions"`
	TodaySales        decimal.Decimal     `json:"today_sales"`
	BestSelling       *BestSellingProduct `json:"best_selling_product,omitempty"`
}

type BestSellingProduct struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	TotalQty  int64  `json:"total_qty"`
}

type SalesChartPoint struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}
