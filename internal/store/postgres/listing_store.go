package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brandlab/exchange/internal/domain"
)

// ListingStore implements domain.ListingStore using PostgreSQL. All rows are
// scoped by the application id so one database can back several deployments.
type ListingStore struct {
	pool  *pgxpool.Pool
	appID string
}

// NewListingStore creates a ListingStore backed by the given connection pool.
func NewListingStore(pool *pgxpool.Pool, appID string) *ListingStore {
	return &ListingStore{pool: pool, appID: appID}
}

const listingCols = `id, owner_id, name, kind, condition, description,
	price_mode, payment_method, currency, price, barter_want, image_url,
	created_at, created_at_ts, updated_at_ts`

// Create inserts a new listing, assigning its id and the server-side
// creation/update timestamps. The caller's listing must already be validated.
func (s *ListingStore) Create(ctx context.Context, l domain.Listing) (string, error) {
	id := uuid.NewString()

	const query = `
		INSERT INTO listings (
			id, app_id, owner_id, name, kind, condition, description,
			price_mode, payment_method, currency, price, barter_want,
			image_url, created_at, created_at_ts, updated_at_ts
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, NOW(), NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		id, s.appID, l.OwnerID, l.Name, string(l.Kind), condStr(l.Condition), l.Description,
		string(l.PriceMode), pmStr(l.PaymentMethod), l.Currency, l.Price, l.BarterWant,
		l.ImageURL, l.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("postgres: create listing: %w", errors.Join(domain.ErrWriteFailed, err))
	}
	return id, nil
}

// Update replaces the mutable fields of an existing listing and bumps the
// server-side update timestamp. Owner, created_at, and created_at_ts are
// preserved from the prior record. Returns domain.ErrNotFound when the row no
// longer exists.
func (s *ListingStore) Update(ctx context.Context, id string, l domain.Listing) error {
	const query = `
		UPDATE listings SET
			name           = $3,
			kind           = $4,
			condition      = $5,
			description    = $6,
			price_mode     = $7,
			payment_method = $8,
			currency       = $9,
			price          = $10,
			barter_want    = $11,
			image_url      = $12,
			updated_at_ts  = NOW()
		WHERE id = $1 AND app_id = $2`

	tag, err := s.pool.Exec(ctx, query,
		id, s.appID, l.Name, string(l.Kind), condStr(l.Condition), l.Description,
		string(l.PriceMode), pmStr(l.PaymentMethod), l.Currency, l.Price, l.BarterWant,
		l.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("postgres: update listing %s: %w", id, errors.Join(domain.ErrWriteFailed, err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a listing. Deleting an id that does not exist is not an
// error.
func (s *ListingStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM listings WHERE id = $1 AND app_id = $2`, id, s.appID)
	if err != nil {
		return fmt.Errorf("postgres: delete listing %s: %w", id, errors.Join(domain.ErrWriteFailed, err))
	}
	return nil
}

// condStr and pmStr lower nullable enum fields to plain *string for the
// driver.
func condStr(c *domain.Condition) *string {
	if c == nil {
		return nil
	}
	s := string(*c)
	return &s
}

func pmStr(p *domain.PaymentMethod) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

// scanListing scans a single listing row into a domain.Listing.
func scanListing(row pgx.Row) (domain.Listing, error) {
	var l domain.Listing
	var kind, mode string
	var cond, pm *string
	err := row.Scan(
		&l.ID, &l.OwnerID, &l.Name, &kind, &cond, &l.Description,
		&mode, &pm, &l.Currency, &l.Price, &l.BarterWant, &l.ImageURL,
		&l.CreatedAt, &l.CreatedAtTS, &l.UpdatedAtTS,
	)
	if err != nil {
		return domain.Listing{}, err
	}
	l.Kind = domain.Kind(kind)
	l.PriceMode = domain.PriceMode(mode)
	if cond != nil {
		c := domain.Condition(*cond)
		l.Condition = &c
	}
	if pm != nil {
		p := domain.PaymentMethod(*pm)
		l.PaymentMethod = &p
	}
	return l, nil
}

// GetByID retrieves a listing by its primary key.
func (s *ListingStore) GetByID(ctx context.Context, id string) (domain.Listing, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+listingCols+` FROM listings WHERE id = $1 AND app_id = $2`,
		id, s.appID)
	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Listing{}, domain.ErrNotFound
		}
		return domain.Listing{}, fmt.Errorf("postgres: get listing %s: %w", id, err)
	}
	return l, nil
}

// ListRecent returns the newest listings, ordered by the store-assigned
// creation timestamp descending with id as the deterministic tie-break.
func (s *ListingStore) ListRecent(ctx context.Context, limit int) ([]domain.Listing, error) {
	if limit <= 0 || limit > domain.FeedCap {
		limit = domain.FeedCap
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+listingCols+` FROM listings
		 WHERE app_id = $1
		 ORDER BY created_at_ts DESC, id DESC
		 LIMIT $2`,
		s.appID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent listings: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recent listings rows: %w", err)
	}
	return listings, nil
}

// Count returns the total number of listings for this application.
func (s *ListingStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM listings WHERE app_id = $1`, s.appID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count listings: %w", err)
	}
	return count, nil
}

// ImageURLs returns the image URL of every listing carrying one, across the
// whole application scope. The result has no inherent ordering.
func (s *ListingStore) ImageURLs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT image_url FROM listings WHERE app_id = $1 AND image_url IS NOT NULL`,
		s.appID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list image urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("postgres: scan image url: %w", err)
		}
		urls = append(urls, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list image urls rows: %w", err)
	}
	return urls, nil
}

// Compile-time interface check.
var _ domain.ListingStore = (*ListingStore)(nil)
