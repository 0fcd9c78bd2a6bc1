package receipt

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
	"warungpos/backend/internal/xid"
)

// Issuer creates receipts lazily: the first request for a transaction's
// receipt assigns the receipt number, later requests get the same one back.
type Issuer struct {
	repo     store.Repository
	shopName string
}

func NewIssuer(repo store.Repository, shopName string) *Issuer {
	if strings.TrimSpace(shopName) == "" {
		shopName = "WarungPOS"
	}
	return &Issuer{repo: repo, shopName: shopName}
}

func (i *Issuer) Issue(ctx context.Context, invoice string) (*domain.Receipt, *domain.Transaction, error) {
	invoice = strings.TrimSpace(invoice)
	if invoice == "" {
		return nil, nil, store.ErrInvalidInput
	}

	tx, err := i.repo.FindTransactionByInvoice(ctx, invoice)
	if err != nil {
		return nil, nil, err
	}

	rcpt, err := i.repo.GetOrCreateReceipt(ctx, domain.Receipt{
		ID:            uuid.NewString(),
		TransactionID: tx.ID,
		ReceiptNumber: xid.Token("RCPT", 8),
		FilePath:      fmt.Sprintf("struk-%s.html", tx.InvoiceNumber),
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return nil, nil, err
	}
	return rcpt, tx, nil
}

type Document struct {
	FileName    string
	ContentType string
	Bytes       []byte
}

type receiptLine struct {
	SKU      string
	Qty      int
	Price    string
	Subtotal string
}

type receiptView struct {
	ShopName      string
	ReceiptNumber string
	InvoiceNumber string
	PaidAt        string
	Cashier       string
	Lines         []receiptLine
	Total         string
	CashPaid      string
	Change        string
}

// receiptHTMLTmpl renders the printable receipt. All user-controlled fields
// are auto-escaped by html/template to prevent XSS.
var receiptHTMLTmpl = template.Must(template.New("receipt").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Struk {{.InvoiceNumber}}</title>
  <style>
    body { font-family: monospace; margin: 24px; max-width: 320px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    td { padding: 2px; font-size: 13px; }
    .right { text-align: right; }
    hr { border: none; border-top: 1px dashed #333; }
  </style>
</head>
<body>
  <h3>{{.ShopName}}</h3>
  <p>Struk: {{.ReceiptNumber}}<br/>Invoice: {{.InvoiceNumber}}<br/>Kasir: {{.Cashier}}<br/>{{.PaidAt}}</p>
  <hr/>
  <table>
    <tbody>{{range .Lines}}<tr><td>{{.SKU}} x{{.Qty}}</td><td class="right">{{.Subtotal}}</td></tr>{{end}}</tbody>
  </table>
  <hr/>
  <table>
    <tbody>
      <tr><td>Total</td><td class="right">{{.Total}}</td></tr>
      <tr><td>Bayar</td><td class="right">{{.CashPaid}}</td></tr>
      <tr><td>Kembali</td><td class="right">{{.Change}}</td></tr>
    </tbody>
  </table>
  <hr/>
  <p>Terima kasih</p>
</body>
</html>
`))

func (i *Issuer) Render(rcpt *domain.Receipt, tx *domain.Transaction) (Document, error) {
	if rcpt == nil || tx == nil {
		return Document{}, store.ErrInvalidInput
	}

	cashier := tx.CashierID
	if cashier == "" {
		cashier = "-"
	}
	view := receiptView{
		ShopName:      i.shopName,
		ReceiptNumber: rcpt.ReceiptNumber,
		InvoiceNumber: tx.InvoiceNumber,
		PaidAt:        tx.PaidAt.UTC().Format("2006-01-02 15:04:05"),
		Cashier:       cashier,
		Total:         tx.TotalAmount.String(),
		CashPaid:      tx.CashPaid.String(),
		Change:        tx.ChangeAmount.String(),
	}
	for _, item := range tx.Items {
		view.Lines = append(view.Lines, receiptLine{
			SKU:      item.SKU,
			Qty:      item.Qty,
			Price:    item.Price.String(),
			Subtotal: item.Subtotal.String(),
		})
	}

	var buf bytes.Buffer
	if err := receiptHTMLTmpl.Execute(&buf, view); err != nil {
		return Document{}, err
	}
	return Document{
		FileName:    fmt.Sprintf("struk-%s.html", tx.InvoiceNumber),
		ContentType: "text/html; charset=utf-8",
		Bytes:       buf.Bytes(),
	}, nil
}
