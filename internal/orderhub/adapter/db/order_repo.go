package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"tableflow/internal/orderhub/app/core"
	"tableflow/internal/orderhub/domain/models"
	xdb "tableflow/internal/xpkg/db"
	"tableflow/internal/xpkg/logger"
)

type OrderRepo struct {
	pool  *xdb.Pool
	mylog logger.Logger
}

func NewOrderRepo(pool *xdb.Pool, mylog logger.Logger) *OrderRepo {
	return &OrderRepo{pool: pool, mylog: mylog}
}

func (r *OrderRepo) Create(ctx context.Context, order models.Order) (models.Order, error) {
	if err := r.pool.IsAlive(ctx); err != nil {
		return models.Order{}, core.ErrDBConn
	}

	currentDate := time.Now().UTC().Format("20060102")

	tx, err := r.pool.Get().Begin(ctx)
	if err != nil {
		return models.Order{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Per-restaurant daily sequence keeps order numbers monotonic:
	// ORD_YYYYMMDD_NNN sorts in creation order.
	var count int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders
		WHERE restaurant_id = $1 AND created_at::DATE = $2::DATE
	`, order.RestaurantID, currentDate).Scan(&count)
	if err != nil {
		return models.Order{}, fmt.Errorf("count today's orders: %w", err)
	}

	order.OrderID = uuid.New().String()
	order.OrderNumber = fmt.Sprintf("ORD_%s_%03d", currentDate, count+1)
	order.CreatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			order_id, order_number, restaurant_id, table_id, status,
			subtotal, tax, discount, total, last_seq, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10)
	`, order.OrderID, order.OrderNumber, order.RestaurantID, order.TableID,
		order.Status, order.Subtotal, order.Tax, order.Discount, order.Total,
		order.CreatedAt)
	if err != nil {
		return models.Order{}, fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		order.Items[i].ItemID = uuid.New().String()
		it := order.Items[i]
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (item_id, order_id, name, quantity, price, station, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, it.ItemID, order.OrderID, it.Name, it.Quantity, it.Price, it.Station, it.Status)
		if err != nil {
			return models.Order{}, fmt.Errorf("insert item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Order{}, fmt.Errorf("commit transaction: %w", err)
	}
	return order, nil
}

func (r *OrderRepo) GetByNumber(ctx context.Context, restaurantID, orderNumber string) (models.Order, error) {
	var order models.Order
	err := r.pool.Get().QueryRow(ctx, `
		SELECT order_id, order_number, restaurant_id, table_id, status,
		       subtotal, tax, discount, total, last_seq, created_at, closed_at
		FROM orders
		WHERE restaurant_id = $1 AND order_number = $2
	`, restaurantID, orderNumber).Scan(
		&order.OrderID, &order.OrderNumber, &order.RestaurantID, &order.TableID,
		&order.Status, &order.Subtotal, &order.Tax, &order.Discount, &order.Total,
		&order.LastSeq, &order.CreatedAt, &order.ClosedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, core.ErrOrderNotFound
		}
		return models.Order{}, err
	}

	items, err := r.loadItems(ctx, order.OrderID)
	if err != nil {
		return models.Order{}, err
	}
	order.Items = items
	return order, nil
}

func (r *OrderRepo) loadItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	rows, err := r.pool.Get().Query(ctx, `
		SELECT item_id, name, quantity, price, station, status
		FROM order_items
		WHERE order_id = $1
		ORDER BY item_id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ItemID, &it.Name, &it.Quantity, &it.Price, &it.Station, &it.Status); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *OrderRepo) ListActive(ctx context.Context, restaurantID, station string) ([]models.Order, error) {
	q := `
		SELECT DISTINCT o.order_id, o.order_number, o.restaurant_id, o.table_id,
		       o.status, o.subtotal, o.tax, o.discount, o.total, o.last_seq,
		       o.created_at, o.closed_at
		FROM orders o
		JOIN order_items i ON i.order_id = o.order_id
		WHERE o.restaurant_id = $1 AND o.closed_at IS NULL`
	args := []any{restaurantID}
	if station != "" {
		q += ` AND i.station = $2`
		args = append(args, station)
	}
	q += ` ORDER BY o.order_number`

	rows, err := r.pool.Get().Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.OrderID, &o.OrderNumber, &o.RestaurantID, &o.TableID,
			&o.Status, &o.Subtotal, &o.Tax, &o.Discount, &o.Total, &o.LastSeq,
			&o.CreatedAt, &o.ClosedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].OrderID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

// CommitTransition writes the new item state, bumps the order row and
// appends the event in one transaction. The order update is conditioned on
// last_seq; zero affected rows means another writer won the race.
func (r *OrderRepo) CommitTransition(ctx context.Context, order models.Order, ev models.TransitionEvent, expectedSeq uint64) error {
	if err := r.pool.IsAlive(ctx); err != nil {
		return core.ErrDBConn
	}

	tx, err := r.pool.Get().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE orders SET status = $1, last_seq = $2
		WHERE order_id = $3 AND last_seq = $4
	`, order.Status, order.LastSeq, order.OrderID, expectedSeq)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrConflict
	}

	item := order.Item(ev.ItemID)
	if item == nil {
		return core.ErrItemNotFound
	}
	_, err = tx.Exec(ctx, `
		UPDATE order_items SET status = $1 WHERE item_id = $2
	`, item.Status, item.ItemID)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO order_events (
			order_id, sequence_no, event_id, order_number, restaurant_id,
			table_id, station, item_id, from_status, to_status, order_status,
			actor_id, actor_role, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, ev.OrderID, ev.SequenceNo, ev.EventID, ev.OrderNumber, ev.RestaurantID,
		ev.TableID, ev.Station, ev.ItemID, ev.FromStatus, ev.ToStatus,
		ev.OrderStatus, ev.ActorID, ev.ActorRole, ev.OccurredAt)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *OrderRepo) Archive(ctx context.Context, restaurantID, orderNumber string, expectedSeq uint64, closedAt time.Time) error {
	tag, err := r.pool.Get().Exec(ctx, `
		UPDATE orders SET closed_at = $1
		WHERE restaurant_id = $2 AND order_number = $3
		  AND last_seq = $4 AND closed_at IS NULL
	`, closedAt, restaurantID, orderNumber, expectedSeq)
	if err != nil {
		return fmt.Errorf("archive order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrConflict
	}
	return nil
}

func (r *OrderRepo) ListEvents(ctx context.Context, orderID string) ([]models.TransitionEvent, error) {
	rows, err := r.pool.Get().Query(ctx, `
		SELECT event_id, order_id, sequence_no, order_number, restaurant_id,
		       table_id, station, item_id, from_status, to_status,
		       order_status, actor_id, actor_role, occurred_at
		FROM order_events
		WHERE order_id = $1
		ORDER BY sequence_no
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evs []models.TransitionEvent
	for rows.Next() {
		var ev models.TransitionEvent
		if err := rows.Scan(&ev.EventID, &ev.OrderID, &ev.SequenceNo, &ev.OrderNumber,
			&ev.RestaurantID, &ev.TableID, &ev.Station, &ev.ItemID, &ev.FromStatus,
			&ev.ToStatus, &ev.OrderStatus, &ev.ActorID, &ev.ActorRole, &ev.OccurredAt); err != nil {
			return nil, err
		}
		evs = append(evs, ev)
	}
	return evs, rows.Err()
}
