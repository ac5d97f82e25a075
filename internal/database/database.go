package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	DB *gorm.DB
}

func New(databaseURL string) (*Database, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(databaseURL, "sqlite://") {
		// SQLite for development
		dbPath := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	} else {
		// PostgreSQL for production
		db, err = gorm.Open(postgres.Open(databaseURL), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Create tables manually with raw SQL
	createTablesSQL := `
	CREATE TABLE IF NOT EXISTS product_mappings (
		id UUID PRIMARY KEY,
		source_product_id TEXT NOT NULL,
		destination_item_id TEXT,
		collection_id TEXT,
		source_sku TEXT NOT NULL,
		product_name TEXT,
		last_updated TIMESTAMPTZ DEFAULT NOW(),
		is_active BOOLEAN DEFAULT true
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_product_mappings_source
		ON product_mappings (source_product_id);

	CREATE TABLE IF NOT EXISTS variant_mappings (
		id UUID PRIMARY KEY,
		product_mapping_id UUID NOT NULL,
		source_variant_id TEXT NOT NULL,
		destination_sku_id TEXT,
		variant_sku TEXT NOT NULL,
		attributes TEXT,
		price_cents INTEGER,
		inventory_quantity INTEGER,
		last_synced TIMESTAMPTZ DEFAULT NOW()
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_variant_mappings_source
		ON variant_mappings (source_variant_id);

	CREATE TABLE IF NOT EXISTS sync_runs (
		id UUID PRIMARY KEY,
		status TEXT NOT NULL,
		products_processed INTEGER DEFAULT 0,
		variants_processed INTEGER DEFAULT 0,
		products_skipped INTEGER DEFAULT 0,
		errors_count INTEGER DEFAULT 0,
		duration_seconds INTEGER,
		last_sync_time TIMESTAMPTZ,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS sync_entity_errors (
		id UUID PRIMARY KEY,
		sync_run_id UUID NOT NULL,
		source_product_id TEXT,
		error_type TEXT NOT NULL,
		error_message TEXT,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);
	`

	err = db.Exec(createTablesSQL).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
