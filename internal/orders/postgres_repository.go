package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agamenonmacondo/avashop-sub000/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	var shippingJSON []byte
	if order.ShippingDetails != nil {
		shippingJSON, err = json.Marshal(order.ShippingDetails)
		if err != nil {
			return fmt.Errorf("failed to marshal shipping details: %w", err)
		}
	}

	query := `INSERT INTO orders
	          (id, owner_email, items, subtotal, tax_amount, shipping_cost, total, currency, status, shipping_details, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())`

	_, insertErr := r.db.ExecContext(ctx, query,
		order.ID,
		order.OwnerEmail,
		itemsJSON,
		order.Subtotal,
		order.TaxAmount,
		order.ShippingCost,
		order.Total,
		order.Currency,
		order.Status,
		shippingJSON)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}
	return nil
}

const orderColumns = `id, owner_email, items, subtotal, tax_amount, shipping_cost, total, currency, status, shipping_details, created_at, updated_at, paid_at`

func (r *Repository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return order, nil
}

func (r *Repository) ListOrdersByEmail(ctx context.Context, email string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE owner_email = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("query orders by email: %w", err)
	}
	defer rows.Close()

	var result []*domain.Order
	for rows.Next() {
		order, scanErr := scanOrder(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan order row: %w", scanErr)
		}
		result = append(result, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

// TransitionStatus is the only write path for an order's status. The
// conditional WHERE makes the pending -> terminal move atomic: of any
// number of racing reconciliation attempts, exactly one sees rows=1.
func (r *Repository) TransitionStatus(ctx context.Context, id string, status domain.OrderStatus, paidAt *time.Time) (bool, error) {
	query := `UPDATE orders SET status = $2, paid_at = $3, updated_at = NOW()
	          WHERE id = $1 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, id, status, paidAt, domain.OrderStatusPending)
	if err != nil {
		return false, fmt.Errorf("transition order status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition rows affected: %w", err)
	}
	if rows > 0 {
		return true, nil
	}

	// No row moved: either the order is already terminal (fine) or it
	// never existed (integrity anomaly the caller must see).
	var exists bool
	checkErr := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists)
	if checkErr != nil {
		return false, fmt.Errorf("check order existence: %w", checkErr)
	}
	if !exists {
		return false, ErrOrderNotFound
	}
	return false, nil
}

func (r *Repository) EnqueueReviewRequest(ctx context.Context, req *ReviewRequest) error {
	productsJSON, err := json.Marshal(req.Products)
	if err != nil {
		return fmt.Errorf("failed to marshal review products: %w", err)
	}

	query := `INSERT INTO review_outbox (id, order_id, email, products, due_at, created_at, published)
	          VALUES ($1, $2, $3, $4, $5, NOW(), FALSE)`

	if _, err := r.db.ExecContext(ctx, query, req.ID, req.OrderID, req.Email, productsJSON, req.DueAt); err != nil {
		return fmt.Errorf("insert review request: %w", err)
	}
	return nil
}

func (r *Repository) DueReviewRequests(ctx context.Context, limit int) ([]*ReviewRequest, error) {
	query := `SELECT id, order_id, email, products, due_at, created_at, published
	          FROM review_outbox
	          WHERE published = FALSE AND due_at <= NOW()
	          ORDER BY due_at ASC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query due review requests: %w", err)
	}
	defer rows.Close()

	var result []*ReviewRequest
	for rows.Next() {
		var req ReviewRequest
		var productsJSON []byte
		if err := rows.Scan(&req.ID, &req.OrderID, &req.Email, &productsJSON, &req.DueAt, &req.CreatedAt, &req.Published); err != nil {
			return nil, fmt.Errorf("scan review request: %w", err)
		}
		if err := json.Unmarshal(productsJSON, &req.Products); err != nil {
			return nil, fmt.Errorf("unmarshal review products: %w", err)
		}
		result = append(result, &req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return result, nil
}

func (r *Repository) MarkReviewRequestPublished(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE review_outbox SET published = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark review request published: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark published rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("review request %s: %w", id, ErrReviewRequestNotFound)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var itemsJSON []byte
	var shippingJSON []byte
	var paidAt sql.NullTime

	err := row.Scan(
		&order.ID,
		&order.OwnerEmail,
		&itemsJSON,
		&order.Subtotal,
		&order.TaxAmount,
		&order.ShippingCost,
		&order.Total,
		&order.Currency,
		&order.Status,
		&shippingJSON,
		&order.CreatedAt,
		&order.UpdatedAt,
		&paidAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}

	// Shipping details are best-effort: a missing or malformed blob must
	// not make the order unreadable.
	if len(shippingJSON) > 0 {
		var shipping domain.ShippingDetails
		if err := json.Unmarshal(shippingJSON, &shipping); err == nil {
			order.ShippingDetails = &shipping
		}
	}

	if paidAt.Valid {
		t := paidAt.Time
		order.PaidAt = &t
	}

	return &order, nil
}
