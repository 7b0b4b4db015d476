package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/frontdesk/internal/domain"
)

type BookingRepository interface {
	List(ctx context.Context, limit, offset int) ([]domain.Booking, error)
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	MarkCheckedIn(ctx context.Context, id string, at time.Time) error
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingCols = `id, guest_name, first_name, last_name,
phone, channel, target_date, adults, children,
checked_in, checked_in_at, created_at, updated_at`

func (r *bookingRepository) List(ctx context.Context, limit, offset int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + bookingCols + ` FROM bookings ORDER BY target_date NULLS LAST, id LIMIT $1 OFFSET $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(
			&b.ID, &b.GuestName, &b.FirstName, &b.LastName,
			&b.Phone, &b.Channel, &b.TargetDate, &b.Adults, &b.Children,
			&b.CheckedIn, &b.CheckedInAt, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}

	return bookings, rows.Err()
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var b domain.Booking
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&b.ID, &b.GuestName, &b.FirstName, &b.LastName,
		&b.Phone, &b.Channel, &b.TargetDate, &b.Adults, &b.Children,
		&b.CheckedIn, &b.CheckedInAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) MarkCheckedIn(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE bookings SET checked_in=true, checked_in_at=$2, updated_at=now() WHERE id=$1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id, at)
	return err
}
