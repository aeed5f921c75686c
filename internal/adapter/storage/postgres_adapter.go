package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/rl1809/cart-service/internal/core/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS carts (
	user_id     TEXT           PRIMARY KEY,
	total_price NUMERIC(14, 2) NOT NULL DEFAULT 0,
	total_items INT            NOT NULL DEFAULT 0,
	version     BIGINT         NOT NULL DEFAULT 1,
	created_at  TIMESTAMPTZ    NOT NULL,
	updated_at  TIMESTAMPTZ    NOT NULL
);
CREATE TABLE IF NOT EXISTS cart_items (
	user_id      TEXT           NOT NULL REFERENCES carts (user_id) ON DELETE CASCADE,
	product_id   TEXT           NOT NULL,
	product_name TEXT           NOT NULL,
	unit_price   NUMERIC(14, 2) NOT NULL,
	quantity     INT            NOT NULL CHECK (quantity > 0),
	image_url    TEXT           NOT NULL DEFAULT '',
	position     INT            NOT NULL,
	added_at     TIMESTAMPTZ    NOT NULL,
	PRIMARY KEY (user_id, product_id)
)`

// PgxPool is the subset of *pgxpool.Pool used by PostgresAdapter.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresAdapter is the durable cart store on PostgreSQL, using the same
// two-table layout as MySQLAdapter.
type PostgresAdapter struct {
	pool PgxPool
}

func NewPostgresAdapter(pool PgxPool) *PostgresAdapter {
	return &PostgresAdapter{pool: pool}
}

func (p *PostgresAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	cart := domain.Cart{Lines: []domain.CartLine{}}
	var total string
	err := p.pool.QueryRow(ctx, `
		SELECT user_id, total_price::text, total_items, created_at, updated_at
		FROM carts WHERE user_id = $1`, userID,
	).Scan(&cart.UserID, &total, &cart.TotalItems, &cart.CreatedAt, &cart.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	if cart.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse cart total: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT product_id, product_name, unit_price::text, quantity, image_url, added_at
		FROM cart_items WHERE user_id = $1 ORDER BY position`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l     domain.CartLine
			price string
		)
		if err := rows.Scan(&l.ProductID, &l.ProductName, &price, &l.Quantity, &l.ImageURL, &l.AddedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse unit price: %w", err)
		}
		cart.Lines = append(cart.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}

	return &cart, nil
}

func (p *PostgresAdapter) Put(ctx context.Context, cart domain.Cart) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO carts (user_id, total_price, total_items, version, created_at, updated_at)
		VALUES ($1, $2::text::numeric, $3, 1, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			total_price = EXCLUDED.total_price,
			total_items = EXCLUDED.total_items,
			version = carts.version + 1,
			updated_at = EXCLUDED.updated_at`,
		cart.UserID, cart.TotalPrice.String(), cart.TotalItems, cart.CreatedAt, cart.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, cart.UserID); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}

	if len(cart.Lines) > 0 {
		query, args := insertItemsQuery(cart, postgresPlaceholder)
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert cart items: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Delete relies on ON DELETE CASCADE for cart_items.
func (p *PostgresAdapter) Delete(ctx context.Context, userID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

func (p *PostgresAdapter) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// unit_price is the 4th column of each row and is cast from text.
func postgresPlaceholder(n int) string {
	if n%8 == 4 {
		return "$" + strconv.Itoa(n) + "::text::numeric"
	}
	return "$" + strconv.Itoa(n)
}
