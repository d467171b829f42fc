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

const flightColumns = `id, flight_num, origin_country, origin_city, origin_code, destination_country, destination_city, destination_code,
	origin_dt, destination_dt, total_seats, seats_left, is_cancelled, price, created_at, updated_at`

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

func scanFlight(row rowScanner) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FlightNum, &f.OriginCountry, &f.OriginCity, &f.OriginCode, &f.DestinationCountry, &f.DestinationCity, &f.DestinationCode,
		&f.OriginTime, &f.DestinationTime, &f.TotalSeats, &f.SeatsLeft, &f.IsCancelled, &f.Price, &f.CreatedAt, &f.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan flight")
	}
	return &f, nil
}

func (r *PGFlightRepository) List(ctx context.Context, filter FlightFilter) ([]domain.Flight, error) {
	query, args := buildFlightListQuery(filter)
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query flights")
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func buildFlightListQuery(filter FlightFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.OriginCity != "" {
		add("lower(origin_city) = lower($%d)", filter.OriginCity)
	}
	if filter.DestinationCity != "" {
		add("lower(destination_city) = lower($%d)", filter.DestinationCity)
	}
	if filter.FlightNum != "" {
		add("lower(flight_num) = lower($%d)", filter.FlightNum)
	}
	if filter.MinPrice != nil {
		add("price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		add("price <= $%d", *filter.MaxPrice)
	}
	if filter.IsCancelled != nil {
		add("is_cancelled = $%d", *filter.IsCancelled)
	}
	if filter.DepartsFrom != nil {
		add("origin_dt >= $%d", *filter.DepartsFrom)
	}
	if filter.ArrivesBy != nil {
		add("destination_dt <= $%d", *filter.ArrivesBy)
	}

	query := "SELECT " + flightColumns + " FROM flights"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	return query + " ORDER BY origin_dt, id", args
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id)
	return scanFlight(row)
}

func (r *PGFlightRepository) Create(ctx context.Context, f *domain.Flight) error {
	row := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO flights (flight_num, origin_country, origin_city, origin_code, destination_country, destination_city, destination_code,
		origin_dt, destination_dt, total_seats, seats_left, is_cancelled, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`,
		f.FlightNum, f.OriginCountry, f.OriginCity, f.OriginCode, f.DestinationCountry, f.DestinationCity, f.DestinationCode,
		f.OriginTime, f.DestinationTime, f.TotalSeats, f.SeatsLeft, f.IsCancelled, f.Price)
	if err := row.Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return errors.Wrap(err, "insert flight")
	}
	return nil
}

func (r *PGFlightRepository) Update(ctx context.Context, f *domain.Flight) error {
	row := conn(ctx, r.db).QueryRow(ctx, `UPDATE flights SET flight_num=$2, origin_country=$3, origin_city=$4, origin_code=$5,
		destination_country=$6, destination_city=$7, destination_code=$8, origin_dt=$9, destination_dt=$10,
		is_cancelled=$11, price=$12, updated_at=now()
		WHERE id=$1
		RETURNING `+flightColumns,
		f.ID, f.FlightNum, f.OriginCountry, f.OriginCity, f.OriginCode, f.DestinationCountry, f.DestinationCity, f.DestinationCode,
		f.OriginTime, f.DestinationTime, f.IsCancelled, f.Price)
	updated, err := scanFlight(row)
	if err != nil {
		return err
	}
	*f = *updated
	return nil
}

func (r *PGFlightRepository) Delete(ctx context.Context, id int64) error {
	res, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM flights WHERE id=$1`, id)
	if err != nil {
		return errors.Wrap(err, "delete flight")
	}
	if res.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// adjustSeatsQuery applies a signed seat delta in one statement. A decrease
// never drops seats_left below zero or touches a cancelled flight, an
// increase is capped at total_seats.
const adjustSeatsQuery = `UPDATE flights
	SET seats_left = LEAST(total_seats, seats_left + $2::int), updated_at = now()
	WHERE id = $1 AND seats_left + $2::int >= 0 AND ($2::int >= 0 OR NOT is_cancelled)
	RETURNING ` + flightColumns

func (r *PGFlightRepository) AdjustSeats(ctx context.Context, id int64, delta int) (*domain.Flight, error) {
	q := conn(ctx, r.db)
	row := q.QueryRow(ctx, adjustSeatsQuery, id, delta)
	f, err := scanFlight(row)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, errors.Wrap(err, "adjust seats")
	}

	// No row matched: tell a missing flight from a refused change.
	var cancelled bool
	if err := q.QueryRow(ctx, `SELECT is_cancelled FROM flights WHERE id=$1`, id).Scan(&cancelled); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "read flight")
	}
	if cancelled && delta < 0 {
		return nil, domain.ErrFlightCancelled
	}
	return nil, domain.ErrInsufficientSeats
}

var _ FlightRepository = (*PGFlightRepository)(nil)
