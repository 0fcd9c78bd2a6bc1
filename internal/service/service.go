package service

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"warungpos/backend/internal/cache"
	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
	"warungpos/backend/internal/xid"
)

const (
	summaryCacheKey = "dashboard:summary"
	summaryCacheTTL = 30 * time.Second

	// Code generators can collide on the unique index; nothing is persisted
	// when they do, so the operation is simply retried with a fresh code.
	codeRetries = 3
)

type Service struct {
	repo         store.Repository
	summaryCache cache.SummaryCache
}

func New(repo store.Repository, summaryCache cache.SummaryCache) *Service {
	if summaryCache == nil {
		summaryCache = cache.NoopSummaryCache{}
	}
	return &Service{
		repo:         repo,
		summaryCache: summaryCache,
	}
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, actor domain.Actor, req domain.CategoryRequest) (domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Category{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateCategory(ctx, domain.Category{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.Category{}, err
	}

	log.Printf("[service] category created id=%s name=%s by=%s", created.ID, created.Name, actor.Username)
	return *created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, actor domain.Actor, id string, req domain.CategoryRequest) (domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if strings.TrimSpace(id) == "" || name == "" {
		return domain.Category{}, store.ErrInvalidInput
	}

	updated, err := s.repo.UpdateCategory(ctx, domain.Category{ID: id, Name: name})
	if err != nil {
		return domain.Category{}, err
	}

	log.Printf("[service] category updated id=%s name=%s by=%s", updated.ID, updated.Name, actor.Username)
	return *updated, nil
}

func (s *Service) DeleteCategory(ctx context.Context, actor domain.Actor, id string) error {
	if strings.TrimSpace(id) == "" {
		return store.ErrInvalidInput
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	log.Printf("[service] category deleted id=%s by=%s", id, actor.Username)
	return nil
}

func (s *Service) ListProducts(ctx context.Context, filter domain.ProductListFilter) ([]domain.Product, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	filter.CategoryID = strings.TrimSpace(filter.CategoryID)
	return s.repo.ListProducts(ctx, filter)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, actor domain.Actor, req domain.ProductCreateRequest) (domain.Product, error) {
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Barcode = strings.TrimSpace(req.Barcode)
	req.Name = strings.TrimSpace(req.Name)
	req.CategoryID = strings.TrimSpace(req.CategoryID)
	req.Unit = strings.TrimSpace(req.Unit)

	if req.SKU == "" || req.Barcode == "" || req.Name == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.SellPrice.IsNegative() || req.CostPrice.IsNegative() || req.Stock < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		ID:         uuid.NewString(),
		SKU:        req.SKU,
		Barcode:    req.Barcode,
		Name:       req.Name,
		CategoryID: req.CategoryID,
		SellPrice:  req.SellPrice,
		CostPrice:  req.CostPrice,
		Stock:      req.Stock,
		Unit:       req.Unit,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return domain.Product{}, err
	}

	log.Printf("[service] product created sku=%s name=%s stock=%d by=%s", created.SKU, created.Name, created.Stock, actor.Username)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, actor domain.Actor, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Product{}, store.ErrInvalidInput
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	product := *existing
	if req.SKU != nil {
		product.SKU = strings.ToUpper(strings.TrimSpace(*req.SKU))
	}
	if req.Barcode != nil {
		product.Barcode = strings.TrimSpace(*req.Barcode)
	}
	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.CategoryID != nil {
		product.CategoryID = strings.TrimSpace(*req.CategoryID)
	}
	if req.SellPrice != nil {
		product.SellPrice = *req.SellPrice
	}
	if req.CostPrice != nil {
		product.CostPrice = *req.CostPrice
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	if product.SKU == "" || product.Barcode == "" || product.Name == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	if product.SellPrice.IsNegative() || product.CostPrice.IsNegative() {
		return domain.Product{}, store.ErrInvalidInput
	}

	updated, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	log.Printf("[service] product updated id=%s sku=%s by=%s", updated.ID, updated.SKU, actor.Username)
	return *updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, actor domain.Actor, id string) error {
	if strings.TrimSpace(id) == "" {
		return store.ErrInvalidInput
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	log.Printf("[service] product deleted id=%s by=%s", id, actor.Username)
	return nil
}

// ImportProductsCSV reads a product CSV with a header row and creates one
// product per data row. Rows with missing required fields, malformed numbers,
// or an already-used SKU/barcode are counted as skipped, not fatal.
func (s *Service) ImportProductsCSV(ctx context.Context, actor domain.Actor, r io.Reader) (domain.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return domain.ImportResult{}, store.ErrInvalidInput
	}
	columns := make(map[string]int, len(header))
	for idx, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = idx
	}
	for _, required := range []string{"sku", "barcode", "name", "sell_price"} {
		if _, ok := columns[required]; !ok {
			return domain.ImportResult{}, store.ErrInvalidInput
		}
	}

	field := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var result domain.ImportResult
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Skipped++
			continue
		}

		req := domain.ProductCreateRequest{
			SKU:        field(record, "sku"),
			Barcode:    field(record, "barcode"),
			Name:       field(record, "name"),
			CategoryID: field(record, "category_id"),
			Unit:       field(record, "unit"),
		}
		sellPrice, priceErr := decimal.NewFromString(field(record, "sell_price"))
		if priceErr != nil {
			result.Skipped++
			continue
		}
		req.SellPrice = sellPrice
		if raw := field(record, "cost_price"); raw != "" {
			costPrice, err := decimal.NewFromString(raw)
			if err != nil {
				result.Skipped++
				continue
			}
			req.CostPrice = costPrice
		}
		if raw := field(record, "stock"); raw != "" {
			stock, err := strconv.Atoi(raw)
			if err != nil {
				result.Skipped++
				continue
			}
			req.Stock = stock
		}

		if _, err := s.CreateProduct(ctx, actor, req); err != nil {
			if errors.Is(err, store.ErrInvalidInput) || errors.Is(err, store.ErrConflict) {
				result.Skipped++
				continue
			}
			return domain.ImportResult{}, err
		}
		result.Created++
	}

	log.Printf("[service] product import created=%d skipped=%d by=%s", result.Created, result.Skipped, actor.Username)
	return result, nil
}

func (s *Service) CreateCart(ctx context.Context) (domain.Cart, error) {
	var lastErr error
	for attempt := 0; attempt < codeRetries; attempt++ {
		cart, err := s.repo.CreateCart(ctx, domain.Cart{
			ID:        uuid.NewString(),
			Code:      xid.Token("CART", 8),
			CreatedAt: time.Now().UTC(),
		})
		if err == nil {
			return *cart, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return domain.Cart{}, err
		}
		lastErr = err
	}
	return domain.Cart{}, lastErr
}

func (s *Service) ShowCart(ctx context.Context, code string) (domain.CartView, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.CartView{}, store.ErrInvalidInput
	}
	view, err := s.repo.GetCartByCode(ctx, code)
	if err != nil {
		return domain.CartView{}, err
	}
	return *view, nil
}

func (s *Service) AddItem(ctx context.Context, code string, req domain.AddItemRequest) (domain.CartItem, error) {
	code = strings.TrimSpace(code)
	sku := strings.TrimSpace(req.SKU)
	if code == "" || sku == "" || req.Qty < 1 {
		return domain.CartItem{}, store.ErrInvalidInput
	}
	item, err := s.repo.AddCartItem(ctx, code, sku, req.Qty)
	if err != nil {
		return domain.CartItem{}, err
	}
	return *item, nil
}

func (s *Service) UpdateItem(ctx context.Context, code string, itemID string, req domain.UpdateItemRequest) error {
	code = strings.TrimSpace(code)
	itemID = strings.TrimSpace(itemID)
	if code == "" || itemID == "" || req.Qty < 1 {
		return store.ErrInvalidInput
	}
	return s.repo.UpdateCartItem(ctx, code, itemID, req.Qty)
}

func (s *Service) RemoveItem(ctx context.Context, code string, itemID string) error {
	code = strings.TrimSpace(code)
	itemID = strings.TrimSpace(itemID)
	if code == "" || itemID == "" {
		return store.ErrInvalidInput
	}
	return s.repo.RemoveCartItem(ctx, code, itemID)
}

// Checkout converts an active cart into a paid transaction. The store layer
// does the whole unit of work atomically; this layer owns invoice numbering
// and retries generation when a number collides.
func (s *Service) Checkout(ctx context.Context, actor domain.Actor, code string, req domain.CheckoutRequest) (domain.Transaction, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Transaction{}, store.ErrInvalidInput
	}
	if req.CashPaid.IsNegative() {
		return domain.Transaction{}, store.ErrInvalidInput
	}

	now := time.Now().UTC()
	var lastErr error
	for attempt := 0; attempt < codeRetries; attempt++ {
		tx, err := s.repo.CheckoutCart(ctx, store.CheckoutParams{
			CartCode:      code,
			CashPaid:      req.CashPaid,
			InvoiceNumber: xid.Invoice(now),
			CashierID:     actor.Username,
			At:            now,
		})
		if err == nil {
			log.Printf("[service] checkout cart=%s invoice=%s total=%s cashier=%s", code, tx.InvoiceNumber, tx.TotalAmount, actor.Username)
			s.invalidateSummary(ctx)
			return *tx, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return domain.Transaction{}, err
		}
		lastErr = err
	}
	return domain.Transaction{}, lastErr
}

func (s *Service) GetTransaction(ctx context.Context, invoice string) (domain.Transaction, error) {
	invoice = strings.TrimSpace(invoice)
	if invoice == "" {
		return domain.Transaction{}, store.ErrInvalidInput
	}
	tx, err := s.repo.FindTransactionByInvoice(ctx, invoice)
	if err != nil {
		return domain.Transaction{}, err
	}
	return *tx, nil
}

func (s *Service) AdjustStock(ctx context.Context, actor domain.Actor, productID string, req domain.StockAdjustRequest) (domain.StockAdjustResponse, error) {
	productID = strings.TrimSpace(productID)
	movementType := strings.ToLower(strings.TrimSpace(req.Type))
	if productID == "" {
		return domain.StockAdjustResponse{}, store.ErrInvalidInput
	}
	switch movementType {
	case domain.MovementIn, domain.MovementOut, domain.MovementAdjust:
	default:
		return domain.StockAdjustResponse{}, store.ErrInvalidInput
	}

	newStock, err := s.repo.AdjustStock(ctx, domain.StockMovement{
		ID:        uuid.NewString(),
		ProductID: productID,
		Type:      movementType,
		Qty:       req.Qty,
		Note:      strings.TrimSpace(req.Note),
		CreatedBy: actor.Username,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.StockAdjustResponse{}, err
	}

	log.Printf("[service] stock %s product=%s qty=%d new_stock=%d by=%s", movementType, productID, req.Qty, newStock, actor.Username)
	s.invalidateSummary(ctx)
	return domain.StockAdjustResponse{ProductID: productID, NewStock: newStock}, nil
}

func (s *Service) ListStockMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	return s.repo.ListStockMovements(ctx, strings.TrimSpace(productID), limit)
}

func (s *Service) DashboardSummary(ctx context.Context) (domain.DashboardSummary, error) {
	cached, ok, err := s.summaryCache.Get(ctx, summaryCacheKey)
	if err != nil {
		log.Printf("[service] WARN: summary cache get: %v", err)
	} else if ok {
		return *cached, nil
	}

	summary, err := s.repo.GetDashboardSummary(ctx)
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	if err := s.summaryCache.Set(ctx, summaryCacheKey, &summary, summaryCacheTTL); err != nil {
		log.Printf("[service] WARN: summary cache set: %v", err)
	}
	return summary, nil
}

// SalesChart returns one point per day over the window, zero-filled so the
// chart always has exactly `days` points.
func (s *Service) SalesChart(ctx context.Context, days int) ([]domain.SalesChartPoint, error) {
	if days < 1 || days > 90 {
		days = 7
	}

	now := time.Now().UTC()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	from := to.AddDate(0, 0, -days)

	points, err := s.repo.GetSalesChart(ctx, from, to)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal, len(points))
	for _, p := range points {
		totals[p.Date] = p.Total
	}

	filled := make([]domain.SalesChartPoint, 0, days)
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		total, ok := totals[key]
		if !ok {
			total = decimal.Zero
		}
		filled = append(filled, domain.SalesChartPoint{Date: key, Total: total})
	}
	return filled, nil
}

func (s *Service) invalidateSummary(ctx context.Context) {
	if err := s.summaryCache.Invalidate(ctx, summaryCacheKey); err != nil {
		log.Printf("[service] WARN: summary cache invalidate: %v", err)
	}
}
