package database

import (
	"database/sql"
	"log"
	"sync"

	_ "github.com/lib/pq"

	"github.com/collectivehq/payouts/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, err
	}
	_, err = db.Exec(`CREATE SCHEMA IF NOT EXISTS payouts`)
	if err != nil {
		return nil, err
	}
	err = createCollectiveTable(db)
	if err != nil {
		return nil, err
	}
	err = createExpenseTable(db)
	if err != nil {
		return nil, err
	}
	err = createProviderAccountTable(db)
	if err != nil {
		return nil, err
	}
	err = createActivityTable(db)
	if err != nil {
		return nil, err
	}
	err = createLedgerEntryTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createCollectiveTable creates the collectives table if it doesn't exist.
func createCollectiveTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS payouts.collectives (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			currency TEXT NOT NULL,
			host_collective_id BIGINT,
			is_host BOOLEAN NOT NULL DEFAULT FALSE
		)
	`)
	return err
}

// createExpenseTable creates the expenses table if it doesn't exist. The
// data column is the open provider data bag (batch id, item id, raw status).
func createExpenseTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS payouts.expenses (
			id BIGSERIAL PRIMARY KEY,
			collective_id BIGINT NOT NULL REFERENCES payouts.collectives(id),
			amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			data JSONB NOT NULL DEFAULT '{}',
			payout_method JSONB NOT NULL DEFAULT '{}',
			last_edited_by_id BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_expenses_batch_id ON payouts.expenses ((data->>'payout_batch_id'))
	`)
	return err
}

// createProviderAccountTable creates the provider_accounts table if it doesn't exist.
func createProviderAccountTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS payouts.provider_accounts (
			id BIGSERIAL PRIMARY KEY,
			host_id BIGINT NOT NULL REFERENCES payouts.collectives(id),
			provider TEXT NOT NULL,
			client_id TEXT NOT NULL,
			client_secret TEXT NOT NULL,
			UNIQUE (host_id, provider)
		)
	`)
	return err
}

// createActivityTable creates the activities table if it doesn't exist.
func createActivityTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS payouts.activities (
			activity_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			expense_id BIGINT NOT NULL REFERENCES payouts.expenses(id),
			actor_id BIGINT NOT NULL DEFAULT 0,
			data JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// createLedgerEntryTable creates the ledger_entries table if it doesn't exist.
func createLedgerEntryTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS payouts.ledger_entries (
			entry_id TEXT PRIMARY KEY,
			expense_id BIGINT NOT NULL REFERENCES payouts.expenses(id),
			host_id BIGINT NOT NULL REFERENCES payouts.collectives(id),
			type TEXT NOT NULL,
			amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			fx_rate DOUBLE PRECISION NOT NULL DEFAULT 1,
			fees JSONB,
			description TEXT NOT NULL DEFAULT '',
			data JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}
