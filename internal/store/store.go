package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"warungpos/backend/internal/domain"
)

// Error kinds surfaced to callers. The HTTP layer maps these to status codes;
// everything else is treated as an internal fault.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("already exists")
	ErrInvalidState        = errors.New("invalid state")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnavailable         = errors.New("storage unavailable")
)

// CheckoutParams carries everything the checkout unit of work needs. The
// repository executes the whole unit atomically: authoritative stock re-check,
// transaction + item insert, stock decrement, ledger append, cart close.
type CheckoutParams struct {
	CartCode      string
	CashPaid      decimal.Decimal
	InvoiceNumber string
	CashierID     string
	At            time.Time
}

type Repository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	ListProducts(ctx context.Context, filter domain.ProductListFilter) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	FindProductByCode(ctx context.Context, code string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	CreateCart(ctx context.Context, cart domain.Cart) (*domain.Cart, error)
	GetCartByCode(ctx context.Context, code string) (*domain.CartView, error)
	AddCartItem(ctx context.Context, cartCode string, sku string, qty int) (*domain.CartItem, error)
	UpdateCartItem(ctx context.Context, cartCode string, itemID string, qty int) error
	RemoveCartItem(ctx context.Context, cartCode string, itemID string) error

	CheckoutCart(ctx context.Context, params CheckoutParams) (*domain.Transaction, error)
	FindTransactionByInvoice(ctx context.Context, invoice string) (*domain.Transaction, error)

	AdjustStock(ctx context.Context, movement domain.StockMovement) (int, error)
	ListStockMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error)

	GetOrCreateReceipt(ctx context.Context, receipt domain.Receipt) (*domain.Receipt, error)

	GetDashboardSummary(ctx context.Context) (domain.DashboardSummary, error)
	GetSalesChart(ctx context.Context, from time.Time, to time.Time) ([]domain.SalesChartPoint, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
