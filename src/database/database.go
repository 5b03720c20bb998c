package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/capfolio/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

// Decimal columns are stored as TEXT: sqlite REAL would silently round
// satoshi-scale quantities.
const createTableStatement = `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		auth_provider TEXT DEFAULT 'local',
		is_email_verified BOOLEAN DEFAULT FALSE,
		email_verification_token TEXT,
		email_verification_token_expires_at TIMESTAMP,
		password_reset_token TEXT,
		password_reset_token_expires_at TIMESTAMP,
		default_cost_basis_method TEXT DEFAULT 'fifo',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		user_agent TEXT,
		client_ip TEXT,
		is_blocked BOOLEAN DEFAULT FALSE,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS canonical_transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		tx_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		type TEXT NOT NULL,
		asset TEXT NOT NULL,
		quantity TEXT NOT NULL,
		price_per_unit TEXT,
		total_value TEXT,
		fees TEXT,
		notes TEXT,
		exchange TEXT,
		convert_from_asset TEXT,
		convert_from_quantity TEXT,
		convert_to_asset TEXT,
		convert_to_quantity TEXT,
		raw_row TEXT,
		hash_id TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id),
		UNIQUE(user_id, hash_id)
	);

	CREATE TABLE IF NOT EXISTS equity_sales (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		description TEXT,
		date_acquired TEXT NOT NULL,
		date_sold TEXT NOT NULL,
		proceeds TEXT NOT NULL,
		cost_basis TEXT NOT NULL,
		gain_loss TEXT NOT NULL,
		quantity TEXT,
		is_short_term BOOLEAN NOT NULL,
		is_covered BOOLEAN DEFAULT TRUE,
		wash_sale_disallowed TEXT,
		adjustment_code TEXT,
		adjustment_amount TEXT,
		acquired_date_estimated BOOLEAN DEFAULT FALSE,
		source TEXT,
		hash_id TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id),
		UNIQUE(user_id, hash_id)
	);

	CREATE INDEX IF NOT EXISTS idx_canonical_transactions_user_asset
		ON canonical_transactions(user_id, asset);
	CREATE INDEX IF NOT EXISTS idx_equity_sales_user_date_sold
		ON equity_sales(user_id, date_sold);
	`

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateUserTable()

	if _, err = DB.Exec(createTableStatement); err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateUserTable adds columns introduced after the first release to an
// existing users table. CREATE TABLE IF NOT EXISTS covers fresh databases.
func migrateUserTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='users'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'users' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'users' table: %v", err)
		}
		return
	}

	existing, err := tableColumns("users")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'users'", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for 'users': %v", err)
		}
		return
	}

	addColumn := func(name, definition string) {
		if existing[name] {
			return
		}
		if _, err := DB.Exec("ALTER TABLE users ADD COLUMN " + name + " " + definition); err != nil {
			logger.L.Error("Error adding column to 'users' table", "column", name, "error", err)
			return
		}
		logger.L.Info("Added column to 'users' table", "column", name)
	}

	addColumn("email", "TEXT NOT NULL DEFAULT ''")
	addColumn("auth_provider", "TEXT DEFAULT 'local'")
	addColumn("is_email_verified", "BOOLEAN DEFAULT FALSE")
	addColumn("email_verification_token", "TEXT")
	addColumn("email_verification_token_expires_at", "TIMESTAMP")
	addColumn("password_reset_token", "TEXT")
	addColumn("password_reset_token_expires_at", "TIMESTAMP")
	addColumn("default_cost_basis_method", "TEXT DEFAULT 'fifo'")
}

func tableColumns(table string) (map[string]bool, error) {
	rows, err := DB.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var cid, notnull, pk int
		var name, dataType string
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		columns[name] = true
	}
	return columns, rows.Err()
}
