package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// InsertQuote stores one quote unless a row with the same quote number
// already exists. It reports whether a row was written.
func (r *Repository) InsertQuote(ctx context.Context, q Quote) (bool, error) {
	if q.QuoteNumber <= 0 {
		return false, fmt.Errorf("quote number must be positive, got %d", q.QuoteNumber)
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quotes WHERE quote_number = $1`, q.QuoteNumber).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check existing quote: %w", err)
	}
	if count > 0 {
		r.logger.Debug("quote already exists, skipping", "quote_number", q.QuoteNumber)
		return false, nil
	}

	if q.ID == "" {
		q.ID = uuid.NewString()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO quotes
			(id, quote_number, quote_title, from_name, for_name, email,
			 total_value, currency, quote_status, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		q.ID, q.QuoteNumber, q.QuoteTitle, q.FromName, q.ForName, q.Email,
		q.TotalValue, q.Currency, q.QuoteStatus, q.ExpiryDate)
	if err != nil {
		return false, fmt.Errorf("insert quote %d: %w", q.QuoteNumber, err)
	}

	r.logger.Info("quote inserted", "quote_number", q.QuoteNumber)
	return true, nil
}

// InsertLineItem stores one line item unless a row with the same item code
// already exists. It reports whether a row was written.
func (r *Repository) InsertLineItem(ctx context.Context, li LineItem) (bool, error) {
	if li.ItemCode <= 0 {
		return false, fmt.Errorf("item code must be positive, got %d", li.ItemCode)
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM line_items WHERE item_code = $1`, li.ItemCode).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check existing line item: %w", err)
	}
	if count > 0 {
		r.logger.Debug("line item already exists, skipping", "item_code", li.ItemCode)
		return false, nil
	}

	if li.ID == "" {
		li.ID = uuid.NewString()
	}
	if li.Discount == "" {
		li.Discount = "0.00"
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO line_items
			(id, quote_number, item_code, item_title, unit_price,
			 quantity, discount, item_total, sales_category)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		li.ID, li.QuoteNumber, li.ItemCode, li.ItemTitle, li.UnitPrice,
		li.Quantity, li.Discount, li.ItemTotal, li.SalesCategory)
	if err != nil {
		return false, fmt.Errorf("insert line item %d: %w", li.ItemCode, err)
	}

	r.logger.Info("line item inserted", "item_code", li.ItemCode, "quote_number", li.QuoteNumber)
	return true, nil
}

// GetQuoteByNumber returns one quote by its quote number.
func (r *Repository) GetQuoteByNumber(ctx context.Context, quoteNumber int64) (*Quote, error) {
	var q Quote
	err := r.db.QueryRowContext(ctx, `
		SELECT id, quote_number, quote_title, from_name, for_name, email,
		       total_value, currency, quote_status, expiry_date
		FROM quotes WHERE quote_number = $1`, quoteNumber).Scan(
		&q.ID, &q.QuoteNumber, &q.QuoteTitle, &q.FromName, &q.ForName, &q.Email,
		&q.TotalValue, &q.Currency, &q.QuoteStatus, &q.ExpiryDate)
	if err != nil {
		return nil, fmt.Errorf("get quote %d: %w", quoteNumber, err)
	}
	return &q, nil
}

// GetQuotesByClient returns all quotes addressed to one client email,
// newest quote number first.
func (r *Repository) GetQuotesByClient(ctx context.Context, email string) ([]Quote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, quote_number, quote_title, from_name, for_name, email,
		       total_value, currency, quote_status, expiry_date
		FROM quotes WHERE email = $1
		ORDER BY quote_number DESC`, email)
	if err != nil {
		return nil, fmt.Errorf("query quotes for %s: %w", email, err)
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		var q Quote
		if err := rows.Scan(
			&q.ID, &q.QuoteNumber, &q.QuoteTitle, &q.FromName, &q.ForName, &q.Email,
			&q.TotalValue, &q.Currency, &q.QuoteStatus, &q.ExpiryDate); err != nil {
			return nil, fmt.Errorf("scan quote row: %w", err)
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quote rows: %w", err)
	}
	return quotes, nil
}

// GetLineItems returns the line items belonging to one quote, in item code
// order.
func (r *Repository) GetLineItems(ctx context.Context, quoteNumber int64) ([]LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, quote_number, item_code, item_title, unit_price,
		       quantity, discount, item_total, sales_category
		FROM line_items WHERE quote_number = $1
		ORDER BY item_code`, quoteNumber)
	if err != nil {
		return nil, fmt.Errorf("query line items for quote %d: %w", quoteNumber, err)
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(
			&li.ID, &li.QuoteNumber, &li.ItemCode, &li.ItemTitle, &li.UnitPrice,
			&li.Quantity, &li.Discount, &li.ItemTotal, &li.SalesCategory); err != nil {
			return nil, fmt.Errorf("scan line item row: %w", err)
		}
		items = append(items, li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line item rows: %w", err)
	}
	return items, nil
}

// SearchQuote resolves a free-form query, either a quote number or a
// client-name fragment, to one quote joined with its line items. A query
// matching nothing returns (nil, nil) so callers can produce a not-found
// message instead of an error.
func (r *Repository) SearchQuote(ctx context.Context, query string) (*QuoteDetails, error) {
	var (
		q   *Quote
		err error
	)
	if n, convErr := strconv.ParseInt(strings.TrimSpace(query), 10, 64); convErr == nil {
		q, err = r.GetQuoteByNumber(ctx, n)
	} else {
		q, err = r.getQuoteByClientName(ctx, query)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	items, err := r.GetLineItems(ctx, q.QuoteNumber)
	if err != nil {
		return nil, err
	}
	return &QuoteDetails{Quote: *q, Items: items}, nil
}

func (r *Repository) getQuoteByClientName(ctx context.Context, fragment string) (*Quote, error) {
	var q Quote
	err := r.db.QueryRowContext(ctx, `
		SELECT id, quote_number, quote_title, from_name, for_name, email,
		       total_value, currency, quote_status, expiry_date
		FROM quotes WHERE for_name LIKE $1
		ORDER BY quote_number DESC LIMIT 1`, "%"+fragment+"%").Scan(
		&q.ID, &q.QuoteNumber, &q.QuoteTitle, &q.FromName, &q.ForName, &q.Email,
		&q.TotalValue, &q.Currency, &q.QuoteStatus, &q.ExpiryDate)
	if err != nil {
		return nil, fmt.Errorf("search quote by client name: %w", err)
	}
	return &q, nil
}

// DeleteQuote removes a quote and its line items. It reports whether the
// quote existed.
func (r *Repository) DeleteQuote(ctx context.Context, quoteNumber int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM quotes WHERE quote_number = $1`, quoteNumber)
	if err != nil {
		return false, fmt.Errorf("delete quote %d: %w", quoteNumber, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM line_items WHERE quote_number = $1`, quoteNumber); err != nil {
		return false, fmt.Errorf("delete line items for quote %d: %w", quoteNumber, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
