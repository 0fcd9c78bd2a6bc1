package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// translate maps driver-level failures to the store error kinds. Unique and
// foreign-key violations become ErrConflict; serialization failures,
// deadlocks, and timeouts become retryable ErrUnavailable.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
		case "40001", "40P01":
			return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return err
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 32)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if category.ID == "" || strings.TrimSpace(category.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, created_at)
		VALUES ($1,$2,$3)
	`, category.ID, category.Name, category.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	created := category
	return &created, nil
}

func (s *Store) UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories SET name = $2 WHERE id = $1
	`, category.ID, category.Name)
	if err != nil {
		return nil, translate(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := category
	return &updated, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	var inUse bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE category_id = $1)
	`, id).Scan(&inUse)
	if err != nil {
		return translate(err)
	}
	if inUse {
		return fmt.Errorf("%w: category still used by products", store.ErrConflict)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

const productColumns = `id, sku, barcode, name, COALESCE(category_id::text,''), sell_price, cost_price, stock, COALESCE(unit,''), active, created_at`

func scanProduct(row interface{ Scan(...any) error }) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Barcode, &p.Name, &p.CategoryID, &p.SellPrice, &p.CostPrice, &p.Stock, &p.Unit, &p.Active, &p.CreatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, filter domain.ProductListFilter) ([]domain.Product, error) {
	limit := filter.Limit
	if limit < 1 {
		limit = 100
	}
	search := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true
			AND ($1 = '%%' OR lower(name) LIKE $1 OR lower(sku) LIKE $1 OR lower(barcode) LIKE $1)
			AND ($2 = '' OR category_id::text = $2)
		ORDER BY name
		LIMIT $3
	`, search, filter.CategoryID, limit)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.SKU == "" || product.Barcode == "" || product.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if product.SellPrice.IsNegative() || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, sku, barcode, name, category_id, sell_price, cost_price, stock, unit, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,true,$10,now())
	`, product.ID, product.SKU, product.Barcode, product.Name, nullIfEmpty(product.CategoryID),
		product.SellPrice, product.CostPrice, product.Stock, nullIfEmpty(product.Unit), product.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}

	product.Active = true
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) FindProductByCode(ctx context.Context, code string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = true AND (sku = $1 OR barcode = $1)
	`, code)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.SKU == "" || product.Barcode == "" || product.Name == "" || product.SellPrice.IsNegative() {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET sku = $2, barcode = $3, name = $4, category_id = $5, sell_price = $6,
			cost_price = $7, unit = $8, active = $9, updated_at = now()
		WHERE id = $1
	`, product.ID, product.SKU, product.Barcode, product.Name, nullIfEmpty(product.CategoryID),
		product.SellPrice, product.CostPrice, nullIfEmpty(product.Unit), product.Active)
	if err != nil {
		return nil, translate(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetProductByID(ctx, product.ID)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		// FK violations from transaction_items / stock_movements / cart_items
		// surface as Conflict: history is never silently deleted.
		return translate(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateCart(ctx context.Context, cart domain.Cart) (*domain.Cart, error) {
	if cart.ID == "" || cart.Code == "" {
		return nil, store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO carts (id, code, status, created_at)
		VALUES ($1,$2,$3,$4)
	`, cart.ID, cart.Code, domain.CartStatusActive, cart.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	cart.Status = domain.CartStatusActive
	cart.Items = []domain.CartItem{}
	created := cart
	return &created, nil
}

func (s *Store) GetCartByCode(ctx context.Context, code string) (*domain.CartView, error) {
	var view domain.CartView
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, status, created_at
		FROM carts
		WHERE code = $1
	`, code).Scan(&view.ID, &view.Code, &view.Status, &view.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, translate(err)
	}
	view.CreatedAt = view.CreatedAt.UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT ci.id, ci.product_id, p.sku, p.name, ci.qty, ci.price
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.added_at, ci.id
	`, view.ID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	view.Items = make([]domain.CartItemView, 0, 8)
	view.Total = decimal.Zero
	for rows.Next() {
		var item domain.CartItemView
		if err := rows.Scan(&item.ID, &item.ProductID, &item.SKU, &item.ProductName, &item.Qty, &item.Price); err != nil {
			return nil, err
		}
		item.Subtotal = item.Price.Mul(decimal.NewFromInt(int64(item.Qty)))
		view.Total = view.Total.Add(item.Subtotal)
		view.Items = append(view.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &view, nil
}

// lockActiveCart loads and row-locks a cart by code inside tx.
func lockActiveCart(ctx context.Context, tx *sql.Tx, code string) (string, error) {
	var cartID, status string
	err := tx.QueryRowContext(ctx, `
		SELECT id, status
		FROM carts
		WHERE code = $1
		FOR UPDATE
	`, code).Scan(&cartID, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: cart %s", store.ErrNotFound, code)
		}
		return "", translate(err)
	}
	if status != domain.CartStatusActive {
		return "", fmt.Errorf("%w: cart is not active", store.ErrInvalidState)
	}
	return cartID, nil
}

func (s *Store) AddCartItem(ctx context.Context, cartCode string, sku string, qty int) (*domain.CartItem, error) {
	if qty < 1 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, translate(err)
	}
	defer func() { _ = tx.Rollback() }()

	cartID, err := lockActiveCart(ctx, tx, cartCode)
	if err != nil {
		return nil, err
	}

	var product domain.Product
	err = tx.QueryRowContext(ctx, `
		SELECT id, name, sell_price, stock
		FROM products
		WHERE active = true AND (sku = $1 OR barcode = $1)
		FOR UPDATE
	`, sku).Scan(&product.ID, &product.Name, &product.SellPrice, &product.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, sku)
		}
		return nil, translate(err)
	}

	item := domain.CartItem{CartID: cartID, ProductID: product.ID}
	var existingID string
	var existingQty int
	err = tx.QueryRowContext(ctx, `
		SELECT id, qty, price
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
	`, cartID, product.ID).Scan(&existingID, &existingQty, &item.Price)
	switch {
	case err == nil:
		// Merge quantity; keep the original price snapshot.
		merged := existingQty + qty
		if merged > product.Stock {
			return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE cart_items SET qty = $2 WHERE id = $1
		`, existingID, merged); err != nil {
			return nil, translate(err)
		}
		item.ID = existingID
		item.Qty = merged
	case errors.Is(err, sql.ErrNoRows):
		if qty > product.Stock {
			return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
		}
		item.ID = uuid.NewString()
		item.Qty = qty
		item.Price = product.SellPrice
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cart_items (id, cart_id, product_id, qty, price, added_at)
			VALUES ($1,$2,$3,$4,$5,now())
		`, item.ID, cartID, product.ID, qty, item.Price); err != nil {
			return nil, translate(err)
		}
	default:
		return nil, translate(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (s *Store) UpdateCartItem(ctx context.Context, cartCode string, itemID string, qty int) error {
	if qty < 1 {
		return store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return translate(err)
	}
	defer func() { _ = tx.Rollback() }()

	cartID, err := lockActiveCart(ctx, tx, cartCode)
	if err != nil {
		return err
	}

	var productName string
	var stock int
	err = tx.QueryRowContext(ctx, `
		SELECT p.name, p.stock
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.id = $1 AND ci.cart_id = $2
	`, itemID, cartID).Scan(&productName, &stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return translate(err)
	}
	if qty > stock {
		return fmt.Errorf("%w: %s", store.ErrInsufficientStock, productName)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE cart_items SET qty = $3 WHERE id = $1 AND cart_id = $2
	`, itemID, cartID, qty); err != nil {
		return translate(err)
	}
	return translate(tx.Commit())
}

func (s *Store) RemoveCartItem(ctx context.Context, cartCode string, itemID string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return translate(err)
	}
	defer func() { _ = tx.Rollback() }()

	cartID, err := lockActiveCart(ctx, tx, cartCode)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM cart_items WHERE id = $1 AND cart_id = $2
	`, itemID, cartID)
	if err != nil {
		return translate(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return translate(tx.Commit())
}

// CheckoutCart is the atomic checkout unit: cart row lock, authoritative
// stock re-check under product row locks, transaction + item insert, stock
// decrement, ledger append, and cart close all commit or roll back together.
func (s *Store) CheckoutCart(ctx context.Context, params store.CheckoutParams) (*domain.Transaction, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, translate(err)
	}
	defer func() { _ = pgTx.Rollback() }()

	cartID, err := lockActiveCart(ctx, pgTx, params.CartCode)
	if err != nil {
		return nil, err
	}

	itemRows, err := pgTx.QueryContext(ctx, `
		SELECT id, product_id, qty, price
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY added_at, id
	`, cartID)
	if err != nil {
		return nil, translate(err)
	}
	items := make([]domain.CartItem, 0, 8)
	for itemRows.Next() {
		var item domain.CartItem
		if err := itemRows.Scan(&item.ID, &item.ProductID, &item.Qty, &item.Price); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		items = append(items, item)
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return nil, err
	}
	_ = itemRows.Close()

	if len(items) == 0 {
		return nil, store.ErrEmptyCart
	}

	productIDs := make([]string, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}
	productRows, err := pgTx.QueryContext(ctx, `
		SELECT id, sku, name, stock
		FROM products
		WHERE id = ANY($1)
		FOR UPDATE
	`, productIDs)
	if err != nil {
		return nil, translate(err)
	}
	type productState struct {
		sku   string
		name  string
		stock int
	}
	productMap := make(map[string]productState, len(items))
	for productRows.Next() {
		var id string
		var st productState
		if err := productRows.Scan(&id, &st.sku, &st.name, &st.stock); err != nil {
			_ = productRows.Close()
			return nil, err
		}
		productMap[id] = st
	}
	if err := productRows.Err(); err != nil {
		_ = productRows.Close()
		return nil, err
	}
	_ = productRows.Close()

	// Authoritative re-check: current stock, not the advisory snapshot from
	// scan time. The price snapshot from the cart line is what gets charged.
	total := decimal.Zero
	for _, item := range items {
		product, exists := productMap[item.ProductID]
		if !exists {
			return nil, fmt.Errorf("%w: product %s", store.ErrNotFound, item.ProductID)
		}
		if item.Qty > product.stock {
			return nil, fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.name)
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
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO transactions (id, invoice_number, total_amount, cash_paid, change_amount, transaction_date, paid_at, cashier_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, tx.ID, tx.InvoiceNumber, tx.TotalAmount, tx.CashPaid, tx.ChangeAmount, tx.TransactionDate, tx.PaidAt, nullIfEmpty(tx.CashierID))
	if err != nil {
		return nil, translate(err)
	}

	tx.Items = make([]domain.TransactionItem, 0, len(items))
	for _, item := range items {
		product := productMap[item.ProductID]
		line := domain.TransactionItem{
			ID:        uuid.NewString(),
			ProductID: item.ProductID,
			SKU:       product.sku,
			Qty:       item.Qty,
			Price:     item.Price,
			Subtotal:  item.Price.Mul(decimal.NewFromInt(int64(item.Qty))),
		}
		if _, err := pgTx.ExecContext(ctx, `
			INSERT INTO transaction_items (id, transaction_id, product_id, qty, price, subtotal)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, line.ID, tx.ID, line.ProductID, line.Qty, line.Price, line.Subtotal); err != nil {
			return nil, translate(err)
		}

		if _, err := pgTx.ExecContext(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1
		`, item.ProductID, item.Qty); err != nil {
			return nil, translate(err)
		}

		if _, err := pgTx.ExecContext(ctx, `
			INSERT INTO stock_movements (id, product_id, type, qty, note, created_by, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, uuid.NewString(), item.ProductID, domain.MovementOut, item.Qty,
			"Penjualan "+tx.InvoiceNumber, nullIfEmpty(params.CashierID), at); err != nil {
			return nil, translate(err)
		}

		tx.Items = append(tx.Items, line)
	}

	res, err := pgTx.ExecContext(ctx, `
		UPDATE carts SET status = $2 WHERE id = $1 AND status = $3
	`, cartID, domain.CartStatusCheckedOut, domain.CartStatusActive)
	if err != nil {
		return nil, translate(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: cart is not active", store.ErrInvalidState)
	}

	if err := pgTx.Commit(); err != nil {
		return nil, translate(err)
	}
	return &tx, nil
}

func (s *Store) FindTransactionByInvoice(ctx context.Context, invoice string) (*domain.Transaction, error) {
	var tx domain.Transaction
	var cashierID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, invoice_number, total_amount, cash_paid, change_amount, transaction_date, paid_at, cashier_id
		FROM transactions
		WHERE invoice_number = $1
	`, invoice).Scan(&tx.ID, &tx.InvoiceNumber, &tx.TotalAmount, &tx.CashPaid, &tx.ChangeAmount, &tx.TransactionDate, &tx.PaidAt, &cashierID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, translate(err)
	}
	if cashierID.Valid {
		tx.CashierID = cashierID.String
	}
	tx.TransactionDate = tx.TransactionDate.UTC()
	tx.PaidAt = tx.PaidAt.UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT ti.id, ti.product_id, p.sku, ti.qty, ti.price, ti.subtotal
		FROM transaction_items ti
		JOIN products p ON p.id = ti.product_id
		WHERE ti.transaction_id = $1
		ORDER BY ti.id
	`, tx.ID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	tx.Items = make([]domain.TransactionItem, 0, 8)
	for rows.Next() {
		var item domain.TransactionItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.SKU, &item.Qty, &item.Price, &item.Subtotal); err != nil {
			return nil, err
		}
		tx.Items = append(tx.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *Store) AdjustStock(ctx context.Context, movement domain.StockMovement) (int, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return 0, translate(err)
	}
	defer func() { _ = pgTx.Rollback() }()

	var name string
	var stock int
	err = pgTx.QueryRowContext(ctx, `
		SELECT name, stock
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, movement.ProductID).Scan(&name, &stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrNotFound
		}
		return 0, translate(err)
	}

	switch movement.Type {
	case domain.MovementIn:
		if movement.Qty < 1 {
			return 0, store.ErrInvalidInput
		}
		stock += movement.Qty
	case domain.MovementOut:
		if movement.Qty < 1 {
			return 0, store.ErrInvalidInput
		}
		if stock < movement.Qty {
			return 0, fmt.Errorf("%w: %s", store.ErrInsufficientStock, name)
		}
		stock -= movement.Qty
	case domain.MovementAdjust:
		if movement.Qty == 0 {
			return 0, store.ErrInvalidInput
		}
		if stock+movement.Qty < 0 {
			return 0, fmt.Errorf("%w: %s", store.ErrInsufficientStock, name)
		}
		stock += movement.Qty
	default:
		return 0, store.ErrInvalidInput
	}

	if _, err := pgTx.ExecContext(ctx, `
		UPDATE products SET stock = $2, updated_at = now() WHERE id = $1
	`, movement.ProductID, stock); err != nil {
		return 0, translate(err)
	}

	if movement.ID == "" {
		movement.ID = uuid.NewString()
	}
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC()
	}
	if _, err := pgTx.ExecContext(ctx, `
		INSERT INTO stock_movements (id, product_id, type, qty, note, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, movement.ID, movement.ProductID, movement.Type, movement.Qty,
		nullIfEmpty(movement.Note), nullIfEmpty(movement.CreatedBy), movement.CreatedAt); err != nil {
		return 0, translate(err)
	}

	if err := pgTx.Commit(); err != nil {
		return 0, translate(err)
	}
	return stock, nil
}

func (s *Store) ListStockMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, type, qty, COALESCE(note,''), COALESCE(created_by,''), created_at
		FROM stock_movements
		WHERE ($1 = '' OR product_id::text = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	movements := make([]domain.StockMovement, 0, limit)
	for rows.Next() {
		var m domain.StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Type, &m.Qty, &m.Note, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}

func (s *Store) GetOrCreateReceipt(ctx context.Context, receipt domain.Receipt) (*domain.Receipt, error) {
	if receipt.ID == "" || receipt.TransactionID == "" || receipt.ReceiptNumber == "" {
		return nil, store.ErrInvalidInput
	}
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now().UTC()
	}

	// The unique index on transaction_id makes the insert race-safe: the
	// loser of a concurrent insert reads the winner's row.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO receipts (id, transaction_id, receipt_number, file_path, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (transaction_id) DO NOTHING
	`, receipt.ID, receipt.TransactionID, receipt.ReceiptNumber, nullIfEmpty(receipt.FilePath), receipt.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}

	var existing domain.Receipt
	var filePath sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, receipt_number, file_path, created_at
		FROM receipts
		WHERE transaction_id = $1
	`, receipt.TransactionID).Scan(&existing.ID, &existing.TransactionID, &existing.ReceiptNumber, &filePath, &existing.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	if filePath.Valid {
		existing.FilePath = filePath.String
	}
	existing.CreatedAt = existing.CreatedAt.UTC()
	return &existing, nil
}

func (s *Store) GetDashboardSummary(ctx context.Context) (domain.DashboardSummary, error) {
	var summary domain.DashboardSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount), 0), COUNT(*),
			COALESCE(SUM(total_amount) FILTER (WHERE transaction_date >= date_trunc('day', now() AT TIME ZONE 'utc')), 0)
		FROM transactions
	`).Scan(&summary.TotalSales, &summary.TotalTransactions, &summary.TodaySales)
	if err != nil {
		return domain.DashboardSummary{}, translate(err)
	}

	var best domain.BestSellingProduct
	err = s.db.QueryRowContext(ctx, `
		SELECT ti.product_id, COALESCE(p.name,''), SUM(ti.qty)::bigint AS total_qty
		FROM transaction_items ti
		LEFT JOIN products p ON p.id = ti.product_id
		GROUP BY ti.product_id, p.name
		ORDER BY total_qty DESC, ti.product_id
		LIMIT 1
	`).Scan(&best.ProductID, &best.Name, &best.TotalQty)
	switch {
	case err == nil:
		summary.BestSelling = &best
	case errors.Is(err, sql.ErrNoRows):
	default:
		return domain.DashboardSummary{}, translate(err)
	}
	return summary, nil
}

func (s *Store) GetSalesChart(ctx context.Context, from time.Time, to time.Time) ([]domain.SalesChartPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(transaction_date AT TIME ZONE 'utc', 'YYYY-MM-DD') AS day, SUM(total_amount)
		FROM transactions
		WHERE transaction_date >= $1 AND transaction_date < $2
		GROUP BY day
		ORDER BY day
	`, from, to)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	points := make([]domain.SalesChartPoint, 0, 8)
	for rows.Next() {
		var p domain.SalesChartPoint
		if err := rows.Scan(&p.Date, &p.Total); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return points, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	return translate(err)
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.CreatedAt = u.CreatedAt.UTC()
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return translate(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
