package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/kahan44/airdine/internal/model"
)

// ErrOfferNotFound is returned by GetOfferByID when the offer is not cached.
var ErrOfferNotFound = errors.New("offer not found")

// UpsertOffers inserts or replaces a batch of offers. The full offer is kept
// as JSON in raw_data; the other columns exist for filtering and sorting.
func (s *SQLiteStore) UpsertOffers(ctx context.Context, offers []model.Offer) error {
	if len(offers) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO offers (
			id, title, description, restaurant_name,
			is_featured, valid_until, fetched_at, raw_data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, o := range offers {
		if o.FetchedAt.IsZero() {
			o.FetchedAt = now
		}

		raw, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("marshaling offer %d: %w", o.ID, err)
		}

		var validUntil interface{}
		if !o.ValidUntil.IsZero() {
			validUntil = o.ValidUntil.UTC()
		}

		_, err = stmt.ExecContext(ctx,
			o.ID, o.Title, o.Description, o.RestaurantName,
			boolToInt(o.IsFeatured), validUntil, o.FetchedAt.UTC(), string(raw),
		)
		if err != nil {
			return fmt.Errorf("upserting offer %d: %w", o.ID, err)
		}
	}

	return tx.Commit()
}

// GetOffers retrieves cached offers matching the provided filter options.
func (s *SQLiteStore) GetOffers(
	ctx context.Context,
	opts OfferFilter,
) ([]model.Offer, error) {
	var conditions []string
	var args []interface{}

	if opts.FeaturedOnly {
		conditions = append(conditions, "is_featured = 1")
	}
	if opts.Query != nil && *opts.Query != "" {
		conditions = append(conditions,
			"(title LIKE ? OR description LIKE ? OR restaurant_name LIKE ?)")
		q := "%" + *opts.Query + "%"
		args = append(args, q, q, q)
	}

	query := "SELECT raw_data, fetched_at FROM offers"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy := "fetched_at"
	if opts.SortBy != "" {
		allowedSorts := map[string]bool{
			"title":           true,
			"restaurant_name": true,
			"valid_until":     true,
			"fetched_at":      true,
		}
		if allowedSorts[opts.SortBy] {
			sortBy = opts.SortBy
		}
	}

	direction := "ASC"
	if opts.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id ASC", sortBy, direction)

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying offers: %w", err)
	}
	defer rows.Close()

	var offers []model.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}

	return offers, rows.Err()
}

// GetOfferByID retrieves a single cached offer by its backend ID.
func (s *SQLiteStore) GetOfferByID(
	ctx context.Context,
	id int64,
) (*model.Offer, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT raw_data, fetched_at FROM offers WHERE id = ?", id)

	o, err := scanOffer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting offer %d: %w", id, ErrOfferNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting offer %d: %w", id, err)
	}

	return &o, nil
}

// scanOffer decodes an offer from its raw_data column. Works for both
// *sqlx.Rows and *sqlx.Row.
func scanOffer(sc sqlx.ColScanner) (model.Offer, error) {
	var (
		raw       string
		fetchedAt time.Time
	)

	if err := sc.Scan(&raw, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Offer{}, err
		}
		return model.Offer{}, fmt.Errorf("scanning offer row: %w", err)
	}

	var o model.Offer
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return model.Offer{}, fmt.Errorf("unmarshaling offer raw_data: %w", err)
	}
	o.FetchedAt = fetchedAt

	return o, nil
}
