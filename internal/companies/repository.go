package companies

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrotrade/agrotrade/internal/platform/db"
	"github.com/agrotrade/agrotrade/internal/shared"
)

// Repository persists company details.
type Repository interface {
	Get(ctx context.Context, userID int64) (Details, error)
	Upsert(ctx context.Context, userID int64, in Input) (Details, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const columns = `user_id, company_name, COALESCE(registration_number, ''), COALESCE(tax_number, ''),
	COALESCE(address_line1, ''), COALESCE(address_line2, ''), COALESCE(city, ''), COALESCE(state, ''),
	COALESCE(postal_code, ''), COALESCE(country, ''), COALESCE(website, ''), created_at, updated_at`

func scan(row pgx.Row) (Details, error) {
	var d Details
	err := row.Scan(&d.UserID, &d.CompanyName, &d.RegistrationNumber, &d.TaxNumber,
		&d.AddressLine1, &d.AddressLine2, &d.City, &d.State, &d.PostalCode, &d.Country,
		&d.Website, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Details{}, shared.ErrNotFound
	}
	return d, err
}

// Get loads the company details of a user.
func (r *PGRepository) Get(ctx context.Context, userID int64) (Details, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM company_details WHERE user_id = $1`, userID))
}

// Upsert inserts or replaces the company details and mirrors the name onto the user row.
func (r *PGRepository) Upsert(ctx context.Context, userID int64, in Input) (Details, error) {
	var out Details
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		d, err := scan(tx.QueryRow(ctx, `INSERT INTO company_details
				(user_id, company_name, registration_number, tax_number, address_line1, address_line2,
				 city, state, postal_code, country, website)
			VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''),
				NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''))
			ON CONFLICT (user_id) DO UPDATE SET
				company_name = EXCLUDED.company_name,
				registration_number = EXCLUDED.registration_number,
				tax_number = EXCLUDED.tax_number,
				address_line1 = EXCLUDED.address_line1,
				address_line2 = EXCLUDED.address_line2,
				city = EXCLUDED.city,
				state = EXCLUDED.state,
				postal_code = EXCLUDED.postal_code,
				country = EXCLUDED.country,
				website = EXCLUDED.website,
				updated_at = NOW()
			RETURNING `+columns,
			userID, in.CompanyName, in.RegistrationNumber, in.TaxNumber, in.AddressLine1, in.AddressLine2,
			in.City, in.State, in.PostalCode, in.Country, in.Website))
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				return shared.ErrNotFound
			}
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET company_name = $2, updated_at = NOW() WHERE id = $1`, userID, in.CompanyName); err != nil {
			return err
		}
		out = d
		return nil
	})
	return out, err
}
