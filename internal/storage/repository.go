// Package storage persists accounts in SQLite. An account's cursor, queue,
// conversation state and ledger are written in a single transaction.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"spendsync/internal/core"
	"spendsync/internal/engine"
	applog "spendsync/internal/log"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ engine.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: applog.WithComponent(slog.Default(), applog.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// withTx runs fn in a transaction, rolling back when fn fails.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) LoadAccount(ctx context.Context, phone string) (*core.Account, error) {
	var acct *core.Account
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		acct, err = loadAccount(ctx, tx, phone)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func loadAccount(ctx context.Context, tx *sql.Tx, phone string) (*core.Account, error) {
	var (
		month              string
		awaiting           sql.NullString
		createdAt, updated string
	)
	acct := &core.Account{Phone: phone, Resolved: make(map[string]core.Month)}
	err := tx.QueryRowContext(ctx, `
		SELECT access_token, item_id, sync_cursor, ledger_month, awaiting_tx, created_at, updated_at
		FROM users WHERE phone = ?`, phone).
		Scan(&acct.AccessToken, &acct.ItemID, &acct.Cursor, &month, &awaiting, &createdAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}

	if acct.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if acct.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	ledgerMonth, err := core.ParseMonth(month)
	if err != nil {
		return nil, fmt.Errorf("parse ledger month: %w", err)
	}
	acct.Ledger = core.NewLedger(ledgerMonth)

	acct.State = core.Idle()
	if awaiting.Valid {
		var pending core.PendingTransaction
		if err := json.Unmarshal([]byte(awaiting.String), &pending); err != nil {
			return nil, fmt.Errorf("decode awaiting transaction: %w", err)
		}
		acct.State = core.AwaitingReply(pending)
	}

	if err := loadQueue(ctx, tx, acct); err != nil {
		return nil, err
	}
	if err := loadResolved(ctx, tx, acct); err != nil {
		return nil, err
	}
	if err := loadLedger(ctx, tx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

func loadQueue(ctx context.Context, tx *sql.Tx, acct *core.Account) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT tx_id, details FROM reconciliation_queue
		WHERE phone = ? ORDER BY position`, acct.Phone)
	if err != nil {
		return fmt.Errorf("select queue: %w", err)
	}
	defer rows.Close()

	var items []core.QueueItem
	for rows.Next() {
		var (
			item    core.QueueItem
			details sql.NullString
		)
		if err := rows.Scan(&item.ID, &details); err != nil {
			return fmt.Errorf("scan queue item: %w", err)
		}
		if details.Valid {
			var pending core.PendingTransaction
			if err := json.Unmarshal([]byte(details.String), &pending); err != nil {
				return fmt.Errorf("decode queued transaction %s: %w", item.ID, err)
			}
			item.Tx = &pending
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate queue: %w", err)
	}
	acct.Queue = core.NewQueue(items...)
	return nil
}

func loadResolved(ctx context.Context, tx *sql.Tx, acct *core.Account) error {
	rows, err := tx.QueryContext(ctx, `SELECT tx_id, month FROM resolved_transactions WHERE phone = ?`, acct.Phone)
	if err != nil {
		return fmt.Errorf("select resolved: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, month string
		if err := rows.Scan(&id, &month); err != nil {
			return fmt.Errorf("scan resolved: %w", err)
		}
		m, err := core.ParseMonth(month)
		if err != nil {
			return fmt.Errorf("parse resolved month for %s: %w", id, err)
		}
		acct.Resolved[id] = m
	}
	return rows.Err()
}

func loadLedger(ctx context.Context, tx *sql.Tx, acct *core.Account) error {
	rows, err := tx.QueryContext(ctx, `SELECT category, limit_amount, spent FROM budget_ledger WHERE phone = ?`, acct.Phone)
	if err != nil {
		return fmt.Errorf("select ledger: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category, limit, spent string
		if err := rows.Scan(&category, &limit, &spent); err != nil {
			return fmt.Errorf("scan ledger entry: %w", err)
		}
		var entry core.LedgerEntry
		if entry.Limit, err = decimal.NewFromString(limit); err != nil {
			return fmt.Errorf("parse limit for %s: %w", category, err)
		}
		if entry.Spent, err = decimal.NewFromString(spent); err != nil {
			return fmt.Errorf("parse spent for %s: %w", category, err)
		}
		acct.Ledger.Restore(core.Category(category), entry)
	}
	return rows.Err()
}

// SaveAccount replaces the stored account with acct. Either every part of it
// is written or none is.
func (r *SQLiteRepository) SaveAccount(ctx context.Context, acct *core.Account) error {
	var awaiting sql.NullString
	if pending, ok := acct.State.Awaiting(); ok {
		b, err := json.Marshal(pending)
		if err != nil {
			return fmt.Errorf("encode awaiting transaction: %w", err)
		}
		awaiting = sql.NullString{String: string(b), Valid: true}
	}

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (phone, access_token, item_id, sync_cursor, ledger_month, awaiting_tx, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(phone) DO UPDATE SET
				access_token = excluded.access_token,
				item_id      = excluded.item_id,
				sync_cursor  = excluded.sync_cursor,
				ledger_month = excluded.ledger_month,
				awaiting_tx  = excluded.awaiting_tx,
				updated_at   = excluded.updated_at`,
			acct.Phone, acct.AccessToken, acct.ItemID, acct.Cursor, monthColumn(acct.Ledger.Month), awaiting,
			acct.CreatedAt.UTC().Format(timeLayout), acct.UpdatedAt.UTC().Format(timeLayout))
		if err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}

		if err := deleteChildren(ctx, tx, acct.Phone); err != nil {
			return err
		}
		if err := insertQueue(ctx, tx, acct); err != nil {
			return err
		}
		if err := insertResolved(ctx, tx, acct); err != nil {
			return err
		}
		return insertLedger(ctx, tx, acct)
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to save account",
			applog.FieldPhone, acct.Phone, applog.FieldErrorType, applog.ErrorTypeDatabase, applog.FieldError, err)
		return err
	}
	return nil
}

func monthColumn(m core.Month) string {
	if m.IsZero() {
		return ""
	}
	return m.String()
}

func deleteChildren(ctx context.Context, tx *sql.Tx, phone string) error {
	for _, table := range []string{"reconciliation_queue", "resolved_transactions", "budget_ledger"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE phone = ?", phone); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func insertQueue(ctx context.Context, tx *sql.Tx, acct *core.Account) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO reconciliation_queue (phone, position, tx_id, details) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare queue insert: %w", err)
	}
	defer stmt.Close()

	for i, item := range acct.Queue.Items() {
		var details sql.NullString
		if item.Tx != nil {
			b, err := json.Marshal(item.Tx)
			if err != nil {
				return fmt.Errorf("encode queued transaction %s: %w", item.ID, err)
			}
			details = sql.NullString{String: string(b), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, acct.Phone, i, item.ID, details); err != nil {
			return fmt.Errorf("insert queue item %s: %w", item.ID, err)
		}
	}
	return nil
}

func insertResolved(ctx context.Context, tx *sql.Tx, acct *core.Account) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO resolved_transactions (phone, tx_id, month) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare resolved insert: %w", err)
	}
	defer stmt.Close()

	for id, m := range acct.Resolved {
		if _, err := stmt.ExecContext(ctx, acct.Phone, id, monthColumn(m)); err != nil {
			return fmt.Errorf("insert resolved %s: %w", id, err)
		}
	}
	return nil
}

func insertLedger(ctx context.Context, tx *sql.Tx, acct *core.Account) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO budget_ledger (phone, category, limit_amount, spent) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	for c, entry := range acct.Ledger.Get() {
		if _, err := stmt.ExecContext(ctx, acct.Phone, c.String(), entry.Limit.String(), entry.Spent.String()); err != nil {
			return fmt.Errorf("insert ledger entry %s: %w", c, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) FindPhoneByItemID(ctx context.Context, itemID string) (string, error) {
	if itemID == "" {
		return "", engine.ErrNotFound
	}
	var phone string
	err := r.db.QueryRowContext(ctx, `SELECT phone FROM users WHERE item_id = ?`, itemID).Scan(&phone)
	if errors.Is(err, sql.ErrNoRows) {
		return "", engine.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find user by item: %w", err)
	}
	return phone, nil
}

func (r *SQLiteRepository) ListPhones(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT phone FROM users ORDER BY phone`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var phones []string
	for rows.Next() {
		var phone string
		if err := rows.Scan(&phone); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		phones = append(phones, phone)
	}
	return phones, rows.Err()
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, phone string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := deleteChildren(ctx, tx, phone); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE phone = ?`, phone)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if n == 0 {
			return engine.ErrNotFound
		}
		return nil
	})
}

// AccountSummary is a row of the admin user listing.
type AccountSummary struct {
	Phone       string
	Linked      bool
	Awaiting    bool
	QueueLength int
	LedgerMonth string
	UpdatedAt   time.Time
}

// ListAccountSummaries returns one summary row per user without loading
// whole accounts.
func (r *SQLiteRepository) ListAccountSummaries(ctx context.Context) ([]AccountSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.phone, u.access_token != '', u.awaiting_tx IS NOT NULL, u.ledger_month, u.updated_at,
		       (SELECT COUNT(*) FROM reconciliation_queue q WHERE q.phone = u.phone)
		FROM users u ORDER BY u.phone`)
	if err != nil {
		return nil, fmt.Errorf("list account summaries: %w", err)
	}
	defer rows.Close()

	var out []AccountSummary
	for rows.Next() {
		var (
			s       AccountSummary
			updated string
		)
		if err := rows.Scan(&s.Phone, &s.Linked, &s.Awaiting, &s.LedgerMonth, &updated, &s.QueueLength); err != nil {
			return nil, fmt.Errorf("scan account summary: %w", err)
		}
		if s.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
