package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/flightorders/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const orderProjection = `SELECT o.id, o.flight_id, o.user_id, o.seats, o.order_date, o.total_price,
	f.flight_num, TRIM(u.first_name || ' ' || u.last_name)
	FROM orders o
	JOIN flights f ON f.id = o.flight_id
	JOIN users u ON u.id = o.user_id`

type PGOrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) OrderRepository {
	return &PGOrderRepository{db: db}
}

func scanOrderProjection(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(&o.ID, &o.FlightID, &o.UserID, &o.Seats, &o.OrderDate, &o.TotalPrice, &o.FlightNum, &o.UserName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan order")
	}
	return &o, nil
}

func (r *PGOrderRepository) List(ctx context.Context, filter OrderFilter) ([]domain.Order, error) {
	query, args := buildOrderListQuery(filter)
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrderProjection(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func buildOrderListQuery(filter OrderFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.UserID != 0 {
		add("o.user_id = $%d", filter.UserID)
	}
	if filter.FlightID != 0 {
		add("o.flight_id = $%d", filter.FlightID)
	}
	if filter.FlightNum != "" {
		add("f.flight_num = $%d", filter.FlightNum)
	}
	conds, args = appendNameConds(conds, args, filter.Name, "u.")

	query := orderProjection
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	return query + " ORDER BY o.id", args
}

// appendNameConds adds the ILIKE conditions for a name search on the
// first_name/last_name columns behind alias.
func appendNameConds(conds []string, args []any, q domain.NameQuery, alias string) ([]string, []any) {
	switch {
	case q.Any != "":
		args = append(args, q.Any)
		n := len(args)
		conds = append(conds, fmt.Sprintf("(%[1]sfirst_name ILIKE '%%' || $%[2]d || '%%' OR %[1]slast_name ILIKE '%%' || $%[2]d || '%%')", alias, n))
	case q.First != "" || q.Last != "":
		args = append(args, q.First, q.Last)
		n := len(args)
		conds = append(conds, fmt.Sprintf("%[1]sfirst_name ILIKE '%%' || $%[2]d || '%%' AND %[1]slast_name ILIKE '%%' || $%[3]d || '%%'", alias, n-1, n))
	}
	return conds, args
}

func (r *PGOrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return scanOrderProjection(conn(ctx, r.db).QueryRow(ctx, orderProjection+` WHERE o.id=$1`, id))
}

func (r *PGOrderRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT id, flight_id, user_id, seats, order_date, total_price FROM orders WHERE id=$1 FOR UPDATE`, id)
	var o domain.Order
	if err := row.Scan(&o.ID, &o.FlightID, &o.UserID, &o.Seats, &o.OrderDate, &o.TotalPrice); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "lock order")
	}
	return &o, nil
}

func (r *PGOrderRepository) Create(ctx context.Context, o *domain.Order) error {
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO orders (flight_id, user_id, seats, order_date, total_price)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		o.FlightID, o.UserID, o.Seats, o.OrderDate, o.TotalPrice).Scan(&o.ID)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return domain.ErrNotFound
		}
		return errors.Wrap(err, "insert order")
	}
	return nil
}

func (r *PGOrderRepository) Update(ctx context.Context, o *domain.Order) error {
	res, err := conn(ctx, r.db).Exec(ctx, `UPDATE orders SET seats=$2, order_date=$3, total_price=$4 WHERE id=$1`,
		o.ID, o.Seats, o.OrderDate, o.TotalPrice)
	if err != nil {
		return errors.Wrap(err, "update order")
	}
	if res.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGOrderRepository) Delete(ctx context.Context, id int64) error {
	res, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return errors.Wrap(err, "delete order")
	}
	if res.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGOrderRepository) DeleteByFlight(ctx context.Context, flightID int64) (int64, error) {
	res, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM orders WHERE flight_id=$1`, flightID)
	if err != nil {
		return 0, errors.Wrap(err, "delete flight orders")
	}
	return res.RowsAffected(), nil
}

var _ OrderRepository = (*PGOrderRepository)(nil)
