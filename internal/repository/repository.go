package repository

import (
	"database/sql"
	"log/slog"
)

// Repository wraps the database handle with the insert and query operations
// the CSV importer and the MCP tools need.
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a Repository over an opened database handle.
func New(db *sql.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

// DB exposes the underlying handle for schema setup and shutdown.
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Client is one imported client row. Email is the dedup key.
type Client struct {
	ID          string
	FirstName   string
	LastName    string
	CompanyName string
	Email       string
	Phone       string
	Address     string
	City        string
	State       string
	Zip         string
	Country     string
	LastChanged string
}

// Quote is one imported quote row. QuoteNumber is the dedup key.
type Quote struct {
	ID          string
	QuoteNumber int64
	QuoteTitle  string
	FromName    string
	ForName     string
	Email       string
	TotalValue  string
	Currency    string
	QuoteStatus string
	ExpiryDate  string
}

// LineItem is one imported line item row. ItemCode is the dedup key.
type LineItem struct {
	ID            string
	QuoteNumber   int64
	ItemCode      int64
	ItemTitle     string
	UnitPrice     string
	Quantity      int64
	Discount      string
	ItemTotal     string
	SalesCategory string
}

// QuoteDetails is a quote joined with its line items, as returned by search.
type QuoteDetails struct {
	Quote Quote
	Items []LineItem
}
