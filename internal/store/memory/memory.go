package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
)

// Store is an in-memory Repository used for dev mode and tests. A single
// RWMutex stands in for the row locking a real database provides: every
// checkout runs fully under the write lock, so the stock re-check and the
// decrement can never interleave with another checkout.
type Store struct {
	mu           sync.RWMutex
	categories   map[string]domain.Category
	products     map[string]domain.Product
	cartsByCode  map[string]*domain.Cart
	transactions map[string]domain.Transaction // keyed by invoice number
	movements    []domain.StockMovement
	receiptsByTx map[string]domain.Receipt
	users        map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		categories:   make(map[string]domain.Category),
		products:     make(map[string]domain.Product),
		cartsByCode:  make(map[string]*domain.Cart),
		transactions: make(map[string]domain.Transaction),
		movements:    make([]domain.StockMovement, 0, 128),
		receiptsByTx: make(map[string]domain.Receipt),
		users:        seedUsers(),
	}
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables, with hardcoded dev defaults and a warning if unset.
// Production deployments use PostgreSQL (DATABASE_URL) and never hit this.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	grocery := domain.Category{ID: uuid.NewString(), Name: "Sembako", CreatedAt: now}
	beverage := domain.Category{ID: uuid.NewString(), Name: "Minuman", CreatedAt: now}
	s.categories[grocery.ID] = grocery
	s.categories[beverage.ID] = beverage

	seed := []domain.Product{
		{SKU: "SKU-MIE-01", Barcode: "8991002100015", Name: "Mie Goreng Instan", CategoryID: grocery.ID, SellPrice: decimal.NewFromInt(3500), CostPrice: decimal.NewFromInt(2800), Stock: 120, Unit: "pcs"},
		{SKU: "SKU-TELUR-01", Barcode: "8991002100022", Name: "Telur 10 Butir", CategoryID: grocery.ID, SellPrice: decimal.NewFromInt(26500), CostPrice: decimal.NewFromInt(23000), Stock: 60, Unit: "pak"},
		{SKU: "SKU-KOPI-01", Barcode: "8991002100039", Name: "Kopi Sachet", CategoryID: beverage.ID, SellPrice: decimal.NewFromInt(2600), CostPrice: decimal.NewFromInt(1900), Stock: 200, Unit: "pcs"},
		{SKU: "SKU-AIR-01", Barcode: "8991002100046", Name: "Air Mineral 600ml", CategoryID: beverage.ID, SellPrice: decimal.NewFromInt(3900), CostPrice: decimal.NewFromInt(2700), Stock: 150, Unit: "btl"},
		{SKU: "SKU-GULA-01", Barcode: "8991002100053", Name: "Gula 1kg", CategoryID: grocery.ID, SellPrice: decimal.NewFromInt(17400), CostPrice: decimal.NewFromInt(15500), Stock: 80, Unit: "kg"},
	}
	for _, p := range seed {
		p.ID = uuid.NewString()
		p.Active = true
		p.CreatedAt = now
		s.products[p.ID] = p
	}
	return s
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return strings.Compare(a.Name, b.Name)
	})
	return categories, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category.ID == "" || strings.TrimSpace(category.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	for _, existing := range s.categories {
		if strings.EqualFold(existing.Name, category.Name) {
			return nil, fmt.Errorf("%w: category %s", store.ErrConflict, category.Name)
		}
	}

	s.categories[category.ID] = category
	created := category
	return &created, nil
}

func (s *Store) UpdateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[category.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	for id, other := range s.categories {
		if id != category.ID && strings.EqualFold(other.Name, category.Name) {
			return nil, fmt.Errorf("%w: category %s", store.ErrConflict, category.Name)
		}
	}

	existing.Name = category.Name
	s.categories[category.ID] = existing
	updated := existing
	return &updated, nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return store.ErrNotFound
	}
	for _, p := range s.products {
		if p.CategoryID == id {
			return fmt.Errorf("%w: category still used by products", store.ErrConflict)
		}
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) ListProducts(_ context.Context, filter domain.ProductListFilter) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.SKU), search) &&
			!strings.Contains(strings.ToLower(p.Barcode), search) {
			continue
		}
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return strings.Compare(a.Name, b.Name)
	})
	if filter.Limit > 0 && len(products) > filter.Limit {
		products = products[:filter.Limit]
	}
	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || product.SKU == "" || product.Barcode == "" || product.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if product.SellPrice.IsNegative() || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	for _, existing := range s.products {
		if existing.SKU == product.SKU {
			return nil, fmt.Errorf("%w: sku %s", store.ErrConflict, product.SKU)
		}
		if existing.Barcode == product.Barcode {
			return nil, fmt.Errorf("%w: barcode %s", store.ErrConflict, product.Barcode)
		}
	}

	product.Active = true
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) FindProductByCode(_ context.Context, code string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.findProductByCodeLocked(code)
	if !ok {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) findProductByCodeLocked(code string) (domain.Product, bool) {
	for _, p := range s.products {
		if p.Active && (p.SKU == code || p.Barcode == code) {
			return p, true
		}
	}
	return domain.Product{}, false
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if product.SKU == "" || product.Barcode == "" || product.Name == "" || product.SellPrice.IsNegative() {
		return nil, store.ErrInvalidInput
	}
	for id, other := range s.products {
		if id == product.ID {
			continue
		}
		if other.SKU == product.SKU {
			return nil, fmt.Errorf("%w: sku %s", store.ErrConflict, product.SKU)
		}
		if other.Barcode == product.Barcode {
			return nil, fmt.Errorf("%w: barcode %s", store.ErrConflict, product.Barcode)
		}
	}

	// Stock is only mutated through checkout and stock adjustments.
	product.Stock = existing.Stock
	product.CreatedAt = existing.CreatedAt
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	for _, tx := range s.transactions {
		for _, item := range tx.Items {
			if item.ProductID == id {
				return fmt.Errorf("%w: product used by transactions", store.ErrConflict)
			}
		}
	}
	for _, m := range s.movements {
		if m.ProductID == id {
			return fmt.Errorf("%w: product has stock movements", store.ErrConflict)
		}
	}
	for _, cart := range s.cartsByCode {
		for _, item := range cart.Items {
			if item.ProductID == id {
				return fmt.Errorf("%w: product present in carts", store.ErrConflict)
			}
		}
	}
	delete(s.products, id)
	return nil
}

func (s *Store) CreateCart(_ context.Context, cart domain.Cart) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cart.ID == "" || cart.Code == "" {
		return nil, store.ErrInvalidInput
	}
	if _, exists := s.cartsByCode[cart.Code]; exists {
		return nil, fmt.Errorf("%w: cart code %s", store.ErrConflict, cart.Code)
	}

	cart.Status = domain.CartStatusActive
	cart.Items = make([]domain.CartItem, 0, 8)
	stored := cart
	s.cartsByCode[cart.Code] = &stored
	created := cart
	return &created, nil
}

func (s *Store) GetCartByCode(_ context.Context, code string) (*domain.CartView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart, ok := s.cartsByCode[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	view := s.buildCartViewLocked(cart)
	return &view, nil
}

func (s *Store) buildCartViewLocked(cart *domain.Cart) domain.CartView {
	view := domain.CartView{
		ID:        cart.ID,
		Code:      cart.Code,
		Status:    cart.Status,
		CreatedAt: cart.CreatedAt,
		Items:     make([]domain.CartItemView, 0, len(cart.Items)),
		Total:     decimal.Zero,
	}
	for _, item := range cart.Items {
		subtotal := item.Price.Mul(decimal.NewFromInt(int64(item.Qty)))
		line := domain.CartItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			Qty:       item.Qty,
			Price:     item.Price,
			Subtotal:  subtotal,
		}
		if p, ok := s.products[item.ProductID]; ok {
			line.SKU = p.SKU
			line.ProductName = p.Name
		}
		view.Items = append(view.Items, line)
		view.Total = view.Total.Add(subtotal)
	}
	return view
}

func (s *Store) AddCartItem(_ context.Context, cartCode string, sku string, qty int) (*domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if qty < 1 {
		return nil, store.ErrInvalidInput
	}
	cart, ok := s.cartsByCode[cartCode]
	if !ok {
		return nil, store.ErrNotFound
	}
	if cart.Status != domain.CartStatusActive {
		return nil, fmt.Errorf("%w: cart is not active", store.ErrInvalidState)
	}
	product, ok := s.findProductByCodeLocked(sku)
	if !ok {
		return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, sku)
	}

	for i := range cart.Items {
		if cart.Items[i].ProductID != product.ID {
			continue
		}
		// Re-add merges qty; the original price snapshot is kept.
		merged := cart.Items[i].Qty + qty
		if merged > product.Stock {
			return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
		}
		cart.Items[i].Qty = merged
		item := cart.Items[i]
		return &item, nil
	}

	if qty > product.Stock {
		return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
	}
	item := domain.CartItem{
		ID:        uuid.NewString(),
		CartID:    cart.ID,
		ProductID: product.ID,
		Qty:       qty,
		Price:     product.SellPrice,
	}
	cart.Items = append(cart.Items, item)
	return &item, nil
}

func (s *Store) UpdateCartItem(_ context.Context, cartCode string, itemID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if qty < 1 {
		return store.ErrInvalidInput
	}
	cart, ok := s.cartsByCode[cartCode]
	if !ok {
		return store.ErrNotFound
	}
	if cart.Status != domain.CartStatusActive {
		return fmt.Errorf("%w: cart is not active", store.ErrInvalidState)
	}
	for i := range cart.Items {
		if cart.Items[i].ID != itemID {
			continue
		}
		product, ok := s.products[cart.Items[i].ProductID]
		if !ok {
			return store.ErrNotFound
		}
		if qty > product.Stock {
			return fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
		}
		cart.Items[i].Qty = qty
		return nil
	}
	return store.ErrNotFound
}

func (s *Store) RemoveCartItem(_ context.Context, cartCode string, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.cartsByCode[cartCode]
	if !ok {
		return store.ErrNotFound
	}
	if cart.Status != domain.CartStatusActive {
		return fmt.Errorf("%w: cart is not active", store.ErrInvalidState)
	}
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// CheckoutCart runs the whole checkout unit under the write lock. All
// validations happen before the first mutation, so a failed checkout leaves
// every product, the movement ledger, and the cart untouched.
func (s *Store) CheckoutCart(_ context.Context, params store.CheckoutParams) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.cartsByCode[params.CartCode]
	if !ok {
		return nil, fmt.Errorf("%w: cart %s", store.ErrNotFound, params.CartCode)
	}
	if cart.Status != domain.CartStatusActive {
		return nil, fmt.Errorf("%w: cart already checked out", store.ErrInvalidState)
	}
	if len(cart.Items) == 0 {
		return nil, store.ErrEmptyCart
	}
	if _, exists := s.transactions[params.InvoiceNumber]; exists {
		return nil, fmt.Errorf("%w: invoice %s", store.ErrConflict, params.InvoiceNumber)
	}

	// Authoritative stock re-check over current stock, not the advisory
	// snapshot taken while scanning.
	total := decimal.Zero
	for _, item := range cart.Items {
		product, ok := s.products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, item.ProductID)
		}
		if item.Qty > product.Stock {
			return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
		}
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Qty))))
	}
	if params.CashPaid.LessThan(total) {
		return nil, store.ErrInsufficientPayment
	}

	at := params.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	tx := domain.Transaction{
		ID:              uuid.NewString(),
		InvoiceNumber:   params.InvoiceNumber,
		TotalAmount:     total,
		CashPaid:        params.CashPaid,
		ChangeAmount:    params.CashPaid.Sub(total),
		TransactionDate: at,
		PaidAt:          at,
		CashierID:       params.CashierID,
		Items:           make([]domain.TransactionItem, 0, len(cart.Items)),
	}

	for _, item := range cart.Items {
		product := s.products[item.ProductID]
		tx.Items = append(tx.Items, domain.TransactionItem{
			ID:        uuid.NewString(),
			ProductID: item.ProductID,
			SKU:       product.SKU,
			Qty:       item.Qty,
			Price:     item.Price,
			Subtotal:  item.Price.Mul(decimal.NewFromInt(int64(item.Qty))),
		})

		product.Stock -= item.Qty
		s.products[item.ProductID] = product

		s.movements = append(s.movements, domain.StockMovement{
			ID:        uuid.NewString(),
			ProductID: item.ProductID,
			Type:      domain.MovementOut,
			Qty:       item.Qty,
			Note:      "Penjualan " + params.InvoiceNumber,
			CreatedBy: params.CashierID,
			CreatedAt: at,
		})
	}

	cart.Status = domain.CartStatusCheckedOut
	s.transactions[params.InvoiceNumber] = tx

	created := tx
	created.Items = slices.Clone(tx.Items)
	return &created, nil
}

func (s *Store) FindTransactionByInvoice(_ context.Context, invoice string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[invoice]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := tx
	found.Items = slices.Clone(tx.Items)
	return &found, nil
}

func (s *Store) AdjustStock(_ context.Context, movement domain.StockMovement) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[movement.ProductID]
	if !ok {
		return 0, store.ErrNotFound
	}

	switch movement.Type {
	case domain.MovementIn:
		if movement.Qty < 1 {
			return 0, store.ErrInvalidInput
		}
		product.Stock += movement.Qty
	case domain.MovementOut:
		if movement.Qty < 1 {
			return 0, store.ErrInvalidInput
		}
		if product.Stock < movement.Qty {
			return 0, fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
		}
		product.Stock -= movement.Qty
	case domain.MovementAdjust:
		// Signed delta; resulting stock must stay non-negative.
		if movement.Qty == 0 {
			return 0, store.ErrInvalidInput
		}
		if product.Stock+movement.Qty < 0 {
			return 0, fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
		}
		product.Stock += movement.Qty
	default:
		return 0, store.ErrInvalidInput
	}

	if movement.ID == "" {
		movement.ID = uuid.NewString()
	}
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC()
	}
	s.products[movement.ProductID] = product
	s.movements = append(s.movements, movement)
	return product.Stock, nil
}

func (s *Store) ListStockMovements(_ context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}
	result := make([]domain.StockMovement, 0, limit)
	for i := len(s.movements) - 1; i >= 0 && len(result) < limit; i-- {
		if productID != "" && s.movements[i].ProductID != productID {
			continue
		}
		result = append(result, s.movements[i])
	}
	return result, nil
}

func (s *Store) GetOrCreateReceipt(_ context.Context, receipt domain.Receipt) (*domain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.receiptsByTx[receipt.TransactionID]; ok {
		found := existing
		return &found, nil
	}
	if receipt.ID == "" || receipt.ReceiptNumber == "" {
		return nil, store.ErrInvalidInput
	}
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now().UTC()
	}
	s.receiptsByTx[receipt.TransactionID] = receipt
	created := receipt
	return &created, nil
}

func (s *Store) GetDashboardSummary(_ context.Context) (domain.DashboardSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.DashboardSummary{
		TotalSales: decimal.Zero,
		TodaySales: decimal.Zero,
	}
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	qtyByProduct := make(map[string]int64)
	for _, tx := range s.transactions {
		summary.TotalSales = summary.TotalSales.Add(tx.TotalAmount)
		summary.TotalTransactions++
		if !tx.TransactionDate.Before(today) {
			summary.TodaySales = summary.TodaySales.Add(tx.TotalAmount)
		}
		for _, item := range tx.Items {
			qtyByProduct[item.ProductID] += int64(item.Qty)
		}
	}

	var best *domain.BestSellingProduct
	for productID, qty := range qtyByProduct {
		if best != nil && (qty < best.TotalQty || (qty == best.TotalQty && productID > best.ProductID)) {
			continue
		}
		candidate := domain.BestSellingProduct{ProductID: productID, TotalQty: qty}
		if p, ok := s.products[productID]; ok {
			candidate.Name = p.Name
		}
		best = &candidate
	}
	summary.BestSelling = best
	return summary, nil
}

func (s *Store) GetSalesChart(_ context.Context, from time.Time, to time.Time) ([]domain.SalesChartPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]decimal.Decimal)
	for _, tx := range s.transactions {
		if tx.TransactionDate.Before(from) || !tx.TransactionDate.Before(to) {
			continue
		}
		day := tx.TransactionDate.UTC().Format("2006-01-02")
		totals[day] = totals[day].Add(tx.TotalAmount)
	}

	days := make([]string, 0, len(totals))
	for day := range totals {
		days = append(days, day)
	}
	slices.Sort(days)

	points := make([]domain.SalesChartPoint, 0, len(days))
	for _, day := range days {
		points = append(points, domain.SalesChartPoint{Date: day, Total: totals[day]})
	}
	return points, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.users[user.Username]; exists {
		return fmt.Errorf("%w: user %s", store.ErrConflict, user.Username)
	}
	s.users[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.users[username] = user
	return nil
}
