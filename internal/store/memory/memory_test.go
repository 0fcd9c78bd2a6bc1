package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
)

func TestCreateCartRejectsDuplicateCode(t *testing.T) {
	s := New()
	ctx := context.Background()

	cart := domain.Cart{ID: "c1", Code: "CART-SAMECODE", CreatedAt: time.Now().UTC()}
	if _, err := s.CreateCart(ctx, cart); err != nil {
		t.Fatalf("first create: %v", err)
	}

	cart.ID = "c2"
	if _, err := s.CreateCart(ctx, cart); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate code, got %v", err)
	}
}

func TestFindProductByCodeMatchesSKUAndBarcode(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	bySKU, err := s.FindProductByCode(ctx, "SKU-KOPI-01")
	if err != nil {
		t.Fatalf("find by sku: %v", err)
	}
	byBarcode, err := s.FindProductByCode(ctx, bySKU.Barcode)
	if err != nil {
		t.Fatalf("find by barcode: %v", err)
	}
	if bySKU.ID != byBarcode.ID {
		t.Fatalf("sku and barcode lookups disagree: %s vs %s", bySKU.ID, byBarcode.ID)
	}

	if _, err := s.FindProductByCode(ctx, "no-such-code"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetOrCreateReceiptIsRaceSafe(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	cart, err := s.CreateCart(ctx, domain.Cart{ID: "c-rcpt", Code: "CART-RCPTRACE", CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	if _, err := s.AddCartItem(ctx, cart.Code, "SKU-AIR-01", 1); err != nil {
		t.Fatalf("add item: %v", err)
	}
	tx, err := s.CheckoutCart(ctx, store.CheckoutParams{
		CartCode:      cart.Code,
		CashPaid:      decimal.NewFromInt(10000),
		InvoiceNumber: "INV-20260829-RACE01",
		At:            time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	const attempts = 8
	receipts := make([]*domain.Receipt, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			receipts[slot], _ = s.GetOrCreateReceipt(ctx, domain.Receipt{
				ID:            "rcpt-" + string(rune('a'+slot)),
				TransactionID: tx.ID,
				ReceiptNumber: "RCPT-RACE" + string(rune('A'+slot)),
				CreatedAt:     time.Now().UTC(),
			})
		}(i)
	}
	wg.Wait()

	first := receipts[0]
	if first == nil {
		t.Fatal("expected a receipt")
	}
	for _, r := range receipts[1:] {
		if r == nil || r.ReceiptNumber != first.ReceiptNumber {
			t.Fatalf("expected every caller to see the same receipt, got %+v vs %+v", first, r)
		}
	}
}

func TestDeleteProductWithHistoryConflicts(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	product, err := s.FindProductByCode(ctx, "SKU-MIE-01")
	if err != nil {
		t.Fatalf("find product: %v", err)
	}

	cart, err := s.CreateCart(ctx, domain.Cart{ID: "c-del", Code: "CART-DELGUARD", CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	if _, err := s.AddCartItem(ctx, cart.Code, product.SKU, 1); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := s.CheckoutCart(ctx, store.CheckoutParams{
		CartCode:      cart.Code,
		CashPaid:      decimal.NewFromInt(100000),
		InvoiceNumber: "INV-20260829-DELGD1",
		At:            time.Now().UTC(),
	}); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if err := s.DeleteProduct(ctx, product.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict deleting sold product, got %v", err)
	}
}
