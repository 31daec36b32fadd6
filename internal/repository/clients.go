package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// maxPhoneLength bounds the phone column; longer values are truncated
// rather than rejected because imported data is frequently messy.
const maxPhoneLength = 50

// InsertClient stores one client unless a row with the same email already
// exists. It reports whether a row was written.
func (r *Repository) InsertClient(ctx context.Context, c Client) (bool, error) {
	if c.Email == "" {
		return false, fmt.Errorf("client email cannot be empty")
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clients WHERE email = $1`, c.Email).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check existing client: %w", err)
	}
	if count > 0 {
		r.logger.Debug("client already exists, skipping", "email", c.Email)
		return false, nil
	}

	if len(c.Phone) > maxPhoneLength {
		c.Phone = c.Phone[:maxPhoneLength]
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO clients
			(id, first_name, last_name, company_name, email, phone,
			 address, city, state, zip, country, last_changed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		c.ID, c.FirstName, c.LastName, c.CompanyName, c.Email, c.Phone,
		c.Address, c.City, c.State, c.Zip, c.Country, c.LastChanged)
	if err != nil {
		return false, fmt.Errorf("insert client %s: %w", c.Email, err)
	}

	r.logger.Info("client inserted", "email", c.Email)
	return true, nil
}

// GetClientByEmail returns the client stored under email, or sql.ErrNoRows
// wrapped when there is none.
func (r *Repository) GetClientByEmail(ctx context.Context, email string) (*Client, error) {
	var c Client
	err := r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, company_name, email, phone,
		       address, city, state, zip, country, last_changed
		FROM clients WHERE email = $1`, email).Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.CompanyName, &c.Email, &c.Phone,
		&c.Address, &c.City, &c.State, &c.Zip, &c.Country, &c.LastChanged)
	if err != nil {
		return nil, fmt.Errorf("get client %s: %w", email, err)
	}
	return &c, nil
}

// CountClients returns the number of stored clients.
func (r *Repository) CountClients(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count clients: %w", err)
	}
	return n, nil
}
