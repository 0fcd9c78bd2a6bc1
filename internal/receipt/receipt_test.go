package receipt

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
	"warungpos/backend/internal/store/memory"
)

func seedTransaction(t *testing.T, repo *memory.Store) *domain.Transaction {
	t.Helper()
	ctx := context.Background()

	products, err := repo.ListProducts(ctx, domain.ProductListFilter{})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) == 0 {
		t.Fatal("seeded store has no products")
	}

	cart, err := repo.CreateCart(ctx, domain.Cart{
		ID:        "cart-receipt-test",
		Code:      "CART-RCPTTEST",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	if _, err := repo.AddCartItem(ctx, cart.Code, products[0].SKU, 1); err != nil {
		t.Fatalf("add cart item: %v", err)
	}

	tx, err := repo.CheckoutCart(ctx, store.CheckoutParams{
		CartCode:      cart.Code,
		CashPaid:      products[0].SellPrice.Add(decimal.NewFromInt(10000)),
		InvoiceNumber: "INV-20260829-RCPTT1",
		CashierID:     "kasir1",
		At:            time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	return tx
}

func TestIssueIsAtMostOncePerTransaction(t *testing.T) {
	repo := memory.NewSeeded()
	issuer := NewIssuer(repo, "Warung Tester")
	tx := seedTransaction(t, repo)

	first, _, err := issuer.Issue(context.Background(), tx.InvoiceNumber)
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	if !strings.HasPrefix(first.ReceiptNumber, "RCPT-") {
		t.Fatalf("unexpected receipt number %q", first.ReceiptNumber)
	}

	second, _, err := issuer.Issue(context.Background(), tx.InvoiceNumber)
	if err != nil {
		t.Fatalf("second issue: %v", err)
	}
	if second.ReceiptNumber != first.ReceiptNumber {
		t.Fatalf("expected same receipt number, got %q then %q", first.ReceiptNumber, second.ReceiptNumber)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same receipt row, got %q then %q", first.ID, second.ID)
	}
}

func TestIssueUnknownInvoice(t *testing.T) {
	repo := memory.NewSeeded()
	issuer := NewIssuer(repo, "")

	_, _, err := issuer.Issue(context.Background(), "INV-20260829-NOPE00")
	if err == nil {
		t.Fatal("expected error for unknown invoice")
	}
}

func TestRenderProducesDownloadableDocument(t *testing.T) {
	repo := memory.NewSeeded()
	issuer := NewIssuer(repo, "Warung Tester")
	tx := seedTransaction(t, repo)

	rcpt, loaded, err := issuer.Issue(context.Background(), tx.InvoiceNumber)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	doc, err := issuer.Render(rcpt, loaded)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if doc.FileName != "struk-"+tx.InvoiceNumber+".html" {
		t.Fatalf("unexpected file name %q", doc.FileName)
	}
	body := string(doc.Bytes)
	if !strings.Contains(body, tx.InvoiceNumber) {
		t.Fatal("rendered receipt is missing the invoice number")
	}
	if !strings.Contains(body, rcpt.ReceiptNumber) {
		t.Fatal("rendered receipt is missing the receipt number")
	}
	if !strings.Contains(body, "Terima kasih") {
		t.Fatal("rendered receipt is missing the footer")
	}
}
