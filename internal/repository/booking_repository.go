package repository

import (
	"context"
	"errors"
	"fmt"

	"ochre-shop/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type bookingRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewBookingRepository creates a new PostgreSQL-backed booking repository.
func NewBookingRepository(pool *pgxpool.Pool, logger zerolog.Logger) BookingRepository {
	return &bookingRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "booking").Logger(),
	}
}

func (r *bookingRepository) Create(ctx context.Context, b *model.ExperienceBooking) error {
	query := `
		INSERT INTO experience_bookings (
			uuid, experience_id, user_id, customer_name, customer_email, customer_phone,
			date, time_slot, notes, status, payment_required, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		b.UUID, b.ExperienceID, b.UserID, b.CustomerName, b.CustomerEmail, b.CustomerPhone,
		b.Date, b.TimeSlot, b.Notes, b.Status, b.PaymentRequired, b.Amount,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Int64("experience_id", b.ExperienceID).Msg("failed to create booking")
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *bookingRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*model.ExperienceBooking, error) {
	query := `
		SELECT id, uuid, experience_id, user_id, customer_name, customer_email, customer_phone,
			date, time_slot, notes, status, payment_required, amount, payment_ref,
			gateway_payment_id, created_at, updated_at
		FROM experience_bookings
		WHERE uuid = $1
	`
	var b model.ExperienceBooking
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.UUID, &b.ExperienceID, &b.UserID, &b.CustomerName, &b.CustomerEmail, &b.CustomerPhone,
		&b.Date, &b.TimeSlot, &b.Notes, &b.Status, &b.PaymentRequired, &b.Amount, &b.PaymentRef,
		&b.GatewayPaymentID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrBookingNotFound
		}
		r.logger.Error().Err(err).Str("booking_id", id.String()).Msg("failed to query booking")
		return nil, fmt.Errorf("failed to query booking: %w", err)
	}
	return &b, nil
}

func (r *bookingRepository) SetPaymentRef(ctx context.Context, id int64, ref string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE experience_bookings SET payment_ref = $2, updated_at = NOW()
		WHERE id = $1 AND payment_ref IS NULL`, id, ref)
	if err != nil {
		return fmt.Errorf("failed to store booking payment ref: %w", err)
	}
	return nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id int64, from, to model.BookingStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE experience_bookings SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		r.logger.Error().Err(err).Int64("booking_id", id).Msg("failed to update booking status")
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrInvalidTransition
	}
	return nil
}

func (r *bookingRepository) MarkPaid(ctx context.Context, id int64, paymentID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE experience_bookings
		SET status = 'paid', gateway_payment_id = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'confirmed')`, id, paymentID)
	if err != nil {
		r.logger.Error().Err(err).Int64("booking_id", id).Msg("failed to mark booking paid")
		return fmt.Errorf("failed to mark booking paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrInvalidTransition
	}
	return nil
}
