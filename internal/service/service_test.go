package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
	"warungpos/backend/internal/store/memory"
)

var testActor = domain.Actor{Username: "kasir1", Role: "cashier"}
var adminActor = domain.Actor{Username: "admin", Role: "admin"}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(memory.New(), nil)
}

func mustPrice(t *testing.T, raw string) decimal.Decimal {
	t.Helper()
	price, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("parse price %q: %v", raw, err)
	}
	return price
}

func createProduct(t *testing.T, svc *Service, sku string, price string, stock int) domain.Product {
	t.Helper()
	product, err := svc.CreateProduct(context.Background(), adminActor, domain.ProductCreateRequest{
		Name:      "Produk " + sku,
		SKU:       sku,
		Barcode:   "899" + sku,
		SellPrice: mustPrice(t, price),
		Stock:     stock,
		Unit:      "pcs",
	})
	if err != nil {
		t.Fatalf("create product %s: %v", sku, err)
	}
	return product
}

func addItem(t *testing.T, svc *Service, code string, sku string, qty int) domain.CartItem {
	t.Helper()
	item, err := svc.AddItem(context.Background(), code, domain.AddItemRequest{SKU: sku, Qty: qty})
	if err != nil {
		t.Fatalf("add item %s x%d: %v", sku, qty, err)
	}
	return item
}

func TestCreateCartGeneratesCode(t *testing.T) {
	svc := newTestService(t)

	cart, err := svc.CreateCart(context.Background())
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	if !strings.HasPrefix(cart.Code, "CART-") || len(cart.Code) != len("CART-")+8 {
		t.Fatalf("unexpected cart code %q", cart.Code)
	}
	if cart.Status != domain.CartStatusActive {
		t.Fatalf("expected active cart, got %q", cart.Status)
	}

	view, err := svc.ShowCart(context.Background(), cart.Code)
	if err != nil {
		t.Fatalf("show cart: %v", err)
	}
	if len(view.Items) != 0 || !view.Total.IsZero() {
		t.Fatalf("expected empty cart, got %d items total %s", len(view.Items), view.Total)
	}
}

func TestCheckoutComputesTotalsAndLedger(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	coffee := createProduct(t, svc, "KOPI01", "10.00", 5)
	sugar := createProduct(t, svc, "GULA01", "25.00", 5)

	cart, err := svc.CreateCart(ctx)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	addItem(t, svc, cart.Code, "KOPI01", 2)
	addItem(t, svc, cart.Code, "GULA01", 1)

	tx, err := svc.Checkout(ctx, testActor, cart.Code, domain.CheckoutRequest{CashPaid: mustPrice(t, "50.00")})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if !tx.TotalAmount.Equal(mustPrice(t, "45.00")) {
		t.Fatalf("expected total 45.00, got %s", tx.TotalAmount)
	}
	if !tx.ChangeAmount.Equal(mustPrice(t, "5.00")) {
		t.Fatalf("expected change 5.00, got %s", tx.ChangeAmount)
	}
	if !strings.HasPrefix(tx.InvoiceNumber, "INV-") {
		t.Fatalf("unexpected invoice %q", tx.InvoiceNumber)
	}
	if len(tx.Items) != 2 {
		t.Fatalf("expected 2 transaction items, got %d", len(tx.Items))
	}
	if tx.CashierID != testActor.Username {
		t.Fatalf("expected cashier %q, got %q", testActor.Username, tx.CashierID)
	}

	// Line subtotals must sum to the charged total.
	sum := decimal.Zero
	for _, item := range tx.Items {
		if !item.Subtotal.Equal(item.Price.Mul(decimal.NewFromInt(int64(item.Qty)))) {
			t.Fatalf("item %s subtotal mismatch: %s", item.SKU, item.Subtotal)
		}
		sum = sum.Add(item.Subtotal)
	}
	if !sum.Equal(tx.TotalAmount) {
		t.Fatalf("item subtotals %s do not add up to total %s", sum, tx.TotalAmount)
	}

	for _, expected := range []struct {
		id    string
		stock int
	}{{coffee.ID, 3}, {sugar.ID, 4}} {
		product, err := svc.GetProduct(ctx, expected.id)
		if err != nil {
			t.Fatalf("get product: %v", err)
		}
		if product.Stock != expected.stock {
			t.Fatalf("product %s: expected stock %d, got %d", product.SKU, expected.stock, product.Stock)
		}
	}

	movements, err := svc.ListStockMovements(ctx, "", 10)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(movements))
	}
	for _, m := range movements {
		if m.Type != domain.MovementOut {
			t.Fatalf("expected out movement, got %q", m.Type)
		}
		if m.Note != "Penjualan "+tx.InvoiceNumber {
			t.Fatalf("unexpected movement note %q", m.Note)
		}
		if m.CreatedBy != testActor.Username {
			t.Fatalf("expected movement created_by %q, got %q", testActor.Username, m.CreatedBy)
		}
	}

	view, err := svc.ShowCart(ctx, cart.Code)
	if err != nil {
		t.Fatalf("show cart: %v", err)
	}
	if view.Status != domain.CartStatusCheckedOut {
		t.Fatalf("expected cart checked_out, got %q", view.Status)
	}

	loaded, err := svc.GetTransaction(ctx, tx.InvoiceNumber)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if loaded.ID != tx.ID {
		t.Fatalf("expected transaction %s, got %s", tx.ID, loaded.ID)
	}
}

func TestCheckoutInsufficientStockLeavesCartOpen(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	product := createProduct(t, svc, "MIE001", "3.50", 3)

	cart, err := svc.CreateCart(ctx)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	addItem(t, svc, cart.Code, "MIE001", 2)

	// Stock drops after the item was scanned; the authoritative re-check at
	// checkout must catch it.
	if _, err := svc.AdjustStock(ctx, adminActor, product.ID, domain.StockAdjustRequest{Type: domain.MovementOut, Qty: 2, Note: "rusak"}); err != nil {
		t.Fatalf("adjust stock: %v", err)
	}

	_, err = svc.Checkout(ctx, testActor, cart.Code, domain.CheckoutRequest{CashPaid: mustPrice(t, "100.00")})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	view, err := svc.ShowCart(ctx, cart.Code)
	if err != nil {
		t.Fatalf("show cart: %v", err)
	}
	if view.Status != domain.CartStatusActive {
		t.Fatalf("failed checkout must leave the cart active, got %q", view.Status)
	}

	after, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != 1 {
		t.Fatalf("failed checkout must not touch stock: expected 1, got %d", after.Stock)
	}

	movements, err := svc.ListStockMovements(ctx, product.ID, 10)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("failed checkout must not append to the ledger: got %d entries", len(movements))
	}
}

func TestCheckoutInsufficientPayment(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	product := createProduct(t, svc, "SUSU01", "15.00", 10)

	cart, err := svc.CreateCart(ctx)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	addItem(t, svc, cart.Code, "SUSU01", 3)

	_, err = svc.Checkout(ctx, testActor, cart.Code, domain.CheckoutRequest{CashPaid: mustPrice(t, "10.00")})
	if !errors.Is(err, store.ErrInsufficientPayment) {
		t.Fatalf("expected ErrInsufficientPayment, got %v", err)
	}

	after, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != 10 {
		t.Fatalf("expected stock untouched at 10, got %d", after.Stock)
	}

	view, err := svc.ShowCart(ctx, cart.Code)
	if err != nil {
		t.Fatalf("show cart: %v", err)
	}
	if view.Status != domain.CartStatusActive {
		t.Fatalf("expected cart still active, got %q", view.Status)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cart, err := svc.CreateCart(ctx)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}

	_, err = svc.Checkout(ctx, testActor, cart.Code, domain.CheckoutRequest{CashPaid: mustPrice(t, "10.00")})
	if !errors.Is(err, store.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestCheckoutIsAtMostOncePerCart(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	createProduct(t, svc, "TEH001", "5.00", 10)

	cart, err := svc.CreateCart(ctx)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	addItem(t, svc, cart.Code, "TEH001", 1)

	if _, err := svc.Checkout(ctx, testActor, cart.Code, domain.CheckoutRequest{CashPaid: mustPrice(t, "5.00")}); err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	_, err = svc.Checkout(ctx, testActor, cart.Code, domain.CheckoutRequest{CashPaid: mustPrice(t, "5.00")})
	if !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on second checkout, got %v", err)
	}
}

func TestConcurrentCheckoutHasExactlyOneWinner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	product := createProduct(t, svc, "ROTI01", "8.00", 2)

	cart, err := svc.CreateCart(ctx)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	addItem(t, svc, cart.Code, "ROTI01", 2)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, results[slot] = svc.Checkout(ctx, testActor, cart.Code, domain.CheckoutRequest{CashPaid: mustPrice(t, "16.00")})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else if !errors.Is(err, store.ErrInvalidState) {
			t.Fatalf("loser must fail with ErrInvalidState, got %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one successful checkout, got %d", winners)
	}

	after, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != 0 {
		t.Fatalf("stock must be decremented exactly once: expected 0, got %d", after.Stock)
	}
}

func TestCartPriceSnapshotIsLockedAtAddTime(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	product := createProduct(t, svc, "BERAS1", "12.00", 10)

	cart, err := svc.CreateCart(ctx)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	addItem(t, svc, cart.Code, "BERAS1", 2)

	newPrice := mustPrice(t, "99.00")
	if _, err := svc.UpdateProduct(ctx, adminActor, product.ID, domain.ProductUpdateRequest{SellPrice: &newPrice}); err != nil {
		t.Fatalf("update price: %v", err)
	}

	tx, err := svc.Checkout(ctx, testActor, cart.Code, domain.CheckoutRequest{CashPaid: mustPrice(t, "24.00")})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !tx.TotalAmount.Equal(mustPrice(t, "24.00")) {
		t.Fatalf("expected total at snapshot price 24.00, got %s", tx.TotalAmount)
	}
}

func TestAddItemMergesQuantityAndKeepsSnapshot(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	product := createProduct(t, svc, "MINYAK", "20.00", 10)

	cart, err := svc.CreateCart(ctx)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	first := addItem(t, svc, cart.Code, "MINYAK", 1)

	newPrice := mustPrice(t, "30.00")
	if _, err := svc.UpdateProduct(ctx, adminActor, product.ID, domain.ProductUpdateRequest{SellPrice: &newPrice}); err != nil {
		t.Fatalf("update price: %v", err)
	}

	second := addItem(t, svc, cart.Code, "MINYAK", 2)
	if second.ID != first.ID {
		t.Fatalf("expected merged line, got new line %q", second.ID)
	}
	if second.Qty != 3 {
		t.Fatalf("expected merged qty 3, got %d", second.Qty)
	}
	if !second.Price.Equal(mustPrice(t, "20.00")) {
		t.Fatalf("merge must keep the original snapshot price, got %s", second.Price)
	}

	view, err := svc.ShowCart(ctx, cart.Code)
	if err != nil {
		t.Fatalf("show cart: %v", err)
	}
	if len(view.Items) != 1 {
		t.Fatalf("expected a single cart line, got %d", len(view.Items))
	}
}

func TestAddItemAdvisoryStockCheck(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	createProduct(t, svc, "TELUR1", "2.00", 3)

	cart, err := svc.CreateCart(ctx)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	addItem(t, svc, cart.Code, "TELUR1", 2)

	_, err = svc.AddItem(ctx, cart.Code, domain.AddItemRequest{SKU: "TELUR1", Qty: 2})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock when merged qty exceeds stock, got %v", err)
	}
}

func TestAdjustStockSignedDelta(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	product := createProduct(t, svc, "SABUN1", "4.00", 10)

	resp, err := svc.AdjustStock(ctx, adminActor, product.ID, domain.StockAdjustRequest{Type: domain.MovementAdjust, Qty: 5, Note: "opname"})
	if err != nil {
		t.Fatalf("adjust +5: %v", err)
	}
	if resp.NewStock != 15 {
		t.Fatalf("expected 15 after +5, got %d", resp.NewStock)
	}

	resp, err = svc.AdjustStock(ctx, adminActor, product.ID, domain.StockAdjustRequest{Type: domain.MovementAdjust, Qty: -3, Note: "opname"})
	if err != nil {
		t.Fatalf("adjust -3: %v", err)
	}
	if resp.NewStock != 12 {
		t.Fatalf("expected 12 after -3, got %d", resp.NewStock)
	}

	if _, err := svc.AdjustStock(ctx, adminActor, product.ID, domain.StockAdjustRequest{Type: domain.MovementAdjust, Qty: 0}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero delta, got %v", err)
	}
	if _, err := svc.AdjustStock(ctx, adminActor, product.ID, domain.StockAdjustRequest{Type: domain.MovementAdjust, Qty: -100}); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock for delta below zero stock, got %v", err)
	}

	// in/out require a positive quantity.
	if _, err := svc.AdjustStock(ctx, adminActor, product.ID, domain.StockAdjustRequest{Type: domain.MovementIn, Qty: 0}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for in qty 0, got %v", err)
	}
	if _, err := svc.AdjustStock(ctx, adminActor, product.ID, domain.StockAdjustRequest{Type: domain.MovementOut, Qty: 100}); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock for out beyond stock, got %v", err)
	}

	movements, err := svc.ListStockMovements(ctx, product.ID, 10)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("only applied adjustments may hit the ledger: expected 2, got %d", len(movements))
	}
}

func TestStockConservationAcrossOperations(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	product := createProduct(t, svc, "KECAP1", "7.00", 10)

	if _, err := svc.AdjustStock(ctx, adminActor, product.ID, domain.StockAdjustRequest{Type: domain.MovementIn, Qty: 5, Note: "restock"}); err != nil {
		t.Fatalf("stock in: %v", err)
	}

	cart, err := svc.CreateCart(ctx)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	addItem(t, svc, cart.Code, "KECAP1", 4)
	if _, err := svc.Checkout(ctx, testActor, cart.Code, domain.CheckoutRequest{CashPaid: mustPrice(t, "28.00")}); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if _, err := svc.AdjustStock(ctx, adminActor, product.ID, domain.StockAdjustRequest{Type: domain.MovementAdjust, Qty: -1, Note: "opname"}); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	after, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.Stock != 10 {
		t.Fatalf("expected stock 10 (10+5-4-1), got %d", after.Stock)
	}

	// Replaying the ledger from the initial stock must land on the same number.
	movements, err := svc.ListStockMovements(ctx, product.ID, 50)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	replayed := 10
	for _, m := range movements {
		switch m.Type {
		case domain.MovementIn:
			replayed += m.Qty
		case domain.MovementOut:
			replayed -= m.Qty
		case domain.MovementAdjust:
			replayed += m.Qty
		}
	}
	if replayed != after.Stock {
		t.Fatalf("ledger replay gives %d, stock says %d", replayed, after.Stock)
	}
}

func TestImportProductsCSV(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	createProduct(t, svc, "DUPE01", "1.00", 1)

	input := strings.Join([]string{
		"sku,barcode,name,sell_price,cost_price,stock,unit",
		"KOPI02,8991001,Kopi Hitam,12000,9000,20,pcs",
		"DUPE01,8991002,Duplikat,5000,,5,pcs",
		"BAD001,8991003,Harga Rusak,abc,,5,pcs",
		"NONAME,8991004,,5000,,5,pcs",
	}, "\n")

	result, err := svc.ImportProductsCSV(ctx, adminActor, strings.NewReader(input))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("expected 1 created, got %d", result.Created)
	}
	if result.Skipped != 3 {
		t.Fatalf("expected 3 skipped, got %d", result.Skipped)
	}

	products, err := svc.ListProducts(ctx, domain.ProductListFilter{Search: "kopi hitam"})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) != 1 || products[0].Stock != 20 {
		t.Fatalf("imported product missing or wrong: %+v", products)
	}
}

func TestImportProductsCSVRejectsMissingHeader(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ImportProductsCSV(context.Background(), adminActor, strings.NewReader("sku,name\nA,B\n"))
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing columns, got %v", err)
	}
}

func TestDeleteCategoryInUse(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, adminActor, domain.CategoryRequest{Name: "Sembako"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	if _, err := svc.CreateProduct(ctx, adminActor, domain.ProductCreateRequest{
		Name:       "Gula Pasir",
		SKU:        "GULA02",
		Barcode:    "8991005",
		CategoryID: category.ID,
		SellPrice:  mustPrice(t, "18000"),
		Stock:      5,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	if err := svc.DeleteCategory(ctx, adminActor, category.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict deleting in-use category, got %v", err)
	}
}

func TestSalesChartZeroFillsWindow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	createProduct(t, svc, "AIR001", "3.00", 10)
	cart, err := svc.CreateCart(ctx)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	addItem(t, svc, cart.Code, "AIR001", 2)
	if _, err := svc.Checkout(ctx, testActor, cart.Code, domain.CheckoutRequest{CashPaid: mustPrice(t, "6.00")}); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	points, err := svc.SalesChart(ctx, 7)
	if err != nil {
		t.Fatalf("sales chart: %v", err)
	}
	if len(points) != 7 {
		t.Fatalf("expected 7 chart points, got %d", len(points))
	}

	today := points[len(points)-1]
	if !today.Total.Equal(mustPrice(t, "6.00")) {
		t.Fatalf("expected today's total 6.00, got %s", today.Total)
	}
	for _, p := range points[:len(points)-1] {
		if !p.Total.IsZero() {
			t.Fatalf("expected zero-filled day %s, got %s", p.Date, p.Total)
		}
	}
}

func TestDashboardSummaryAfterCheckout(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	createProduct(t, svc, "GAS001", "22.00", 10)
	cart, err := svc.CreateCart(ctx)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	addItem(t, svc, cart.Code, "GAS001", 2)
	if _, err := svc.Checkout(ctx, testActor, cart.Code, domain.CheckoutRequest{CashPaid: mustPrice(t, "44.00")}); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	summary, err := svc.DashboardSummary(ctx)
	if err != nil {
		t.Fatalf("dashboard summary: %v", err)
	}
	if summary.TotalTransactions != 1 {
		t.Fatalf("expected 1 transaction, got %d", summary.TotalTransactions)
	}
	if !summary.TotalSales.Equal(mustPrice(t, "44.00")) {
		t.Fatalf("expected total sales 44.00, got %s", summary.TotalSales)
	}
	if summary.BestSelling == nil || summary.BestSelling.TotalQty != 2 {
		t.Fatalf("unexpected best seller: %+v", summary.BestSelling)
	}
}
