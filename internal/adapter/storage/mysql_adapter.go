package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rl1809/cart-service/internal/core/domain"
)

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS carts (
	user_id     VARCHAR(64)    NOT NULL PRIMARY KEY,
	total_price DECIMAL(14, 2) NOT NULL DEFAULT 0,
	total_items INT            NOT NULL DEFAULT 0,
	version     BIGINT         NOT NULL DEFAULT 1,
	created_at  DATETIME(6)    NOT NULL,
	updated_at  DATETIME(6)    NOT NULL
);
CREATE TABLE IF NOT EXISTS cart_items (
	user_id      VARCHAR(64)    NOT NULL,
	product_id   VARCHAR(64)    NOT NULL,
	product_name VARCHAR(255)   NOT NULL,
	unit_price   DECIMAL(14, 2) NOT NULL,
	quantity     INT            NOT NULL,
	image_url    VARCHAR(1024)  NOT NULL DEFAULT '',
	position     INT            NOT NULL,
	added_at     DATETIME(6)    NOT NULL,
	PRIMARY KEY (user_id, product_id)
);`

// MySQLAdapter is the durable cart store. One carts row per user holds the
// totals; cart_items holds the ordered lines.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// EnsureSchema creates the cart tables when they do not exist.
func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(mysqlSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	cart := domain.Cart{Lines: []domain.CartLine{}}
	err := m.db.QueryRowContext(ctx, `
		SELECT user_id, total_price, total_items, created_at, updated_at
		FROM carts WHERE user_id = ?`, userID,
	).Scan(&cart.UserID, &cart.TotalPrice, &cart.TotalItems, &cart.CreatedAt, &cart.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT product_id, product_name, unit_price, quantity, image_url, added_at
		FROM cart_items WHERE user_id = ? ORDER BY position`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.UnitPrice, &l.Quantity, &l.ImageURL, &l.AddedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Lines = append(cart.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}

	return &cart, nil
}

// Put replaces the full cart for cart.UserID in one transaction.
func (m *MySQLAdapter) Put(ctx context.Context, cart domain.Cart) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO carts (user_id, total_price, total_items, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON DUPLICATE KEY UPDATE
			total_price = VALUES(total_price),
			total_items = VALUES(total_items),
			version = version + 1,
			updated_at = VALUES(updated_at)`,
		cart.UserID, cart.TotalPrice.String(), cart.TotalItems, cart.CreatedAt, cart.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, cart.UserID); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}

	if len(cart.Lines) > 0 {
		query, args := insertItemsQuery(cart, mysqlPlaceholder)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert cart items: %w", err)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) Delete(ctx context.Context, userID string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}

	return tx.Commit()
}

func mysqlPlaceholder(int) string { return "?" }

func (m *MySQLAdapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// insertItemsQuery builds a multi-row insert for the cart lines. placeholder
// returns the bind marker for the n-th (1-based) argument.
func insertItemsQuery(cart domain.Cart, placeholder func(n int) string) (string, []any) {
	const cols = 8

	var b strings.Builder
	b.WriteString(`INSERT INTO cart_items (user_id, product_id, product_name, unit_price, quantity, image_url, position, added_at) VALUES `)

	args := make([]any, 0, len(cart.Lines)*cols)
	for i, l := range cart.Lines {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := 0; j < cols; j++ {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(placeholder(i*cols + j + 1))
		}
		b.WriteByte(')')
		args = append(args, cart.UserID, l.ProductID, l.ProductName, l.UnitPrice.String(), l.Quantity, l.ImageURL, i, l.AddedAt)
	}
	return b.String(), args
}
