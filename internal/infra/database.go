package infra

import (
	"fmt"

	"economat/internal/config"
	"economat/internal/model"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	embeddedDataPath = "./pgdata"
	embeddedPort     = 5433
	embeddedUser     = "economat"
)

// Database is the GORM handle plus the embedded PostgreSQL process when
// DB_EMBEDDED is on.
type Database struct {
	*gorm.DB
	embedded *embeddedpostgres.EmbeddedPostgres
}

// NewDatabase connects to DATABASE_URL, or starts a local PostgreSQL first
// when DB_EMBEDDED is set, then migrates the schema.
func NewDatabase(cfg *config.Config) (*Database, error) {
	dsn := cfg.DatabaseURL
	var embedded *embeddedpostgres.EmbeddedPostgres
	if cfg.DBEmbedded {
		embedded = embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
			DataPath(embeddedDataPath).
			Port(embeddedPort).
			Database(embeddedUser).
			Username(embeddedUser).
			Password(embeddedUser))
		if err := embedded.Start(); err != nil {
			return nil, fmt.Errorf("start embedded postgres: %w", err)
		}
		dsn = fmt.Sprintf("host=localhost port=%d user=%s password=%s dbname=%s sslmode=disable",
			embeddedPort, embeddedUser, embeddedUser, embeddedUser)
		log.Info().Int("port", embeddedPort).Msg("embedded postgres started")
	}

	db, err := OpenPostgres(dsn)
	if err == nil {
		err = RunMigrations(db)
	}
	if err != nil {
		if embedded != nil {
			_ = embedded.Stop()
		}
		return nil, err
	}
	return &Database{DB: db, embedded: embedded}, nil
}

// Close releases the pool and stops the embedded process if one was started.
func (d *Database) Close() error {
	if sqlDB, err := d.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if d.embedded != nil {
		return d.embedded.Stop()
	}
	return nil
}

// OpenPostgres establishes a GORM connection backed by pgx.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	return db, nil
}

// RunMigrations creates or updates all tables, then applies the constraints
// GORM cannot express.
func RunMigrations(db *gorm.DB) error {
	if err := db.SetupJoinTable(&model.Product{}, "Vouchers", &model.ProductVoucher{}); err != nil {
		return fmt.Errorf("setup join table: %w", err)
	}
	if err := db.AutoMigrate(
		&model.Zone{},
		&model.Product{},
		&model.Voucher{},
		&model.ProductVoucher{},
		&model.Sortie{},
		&model.SortieItem{},
		&model.StockMovement{},
		&model.StockAlert{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// express (check constraints, restrictive foreign keys, partial indexes). Each
// statement is guarded so re-running on an already-patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"products quantity/amount checks", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_products_stock') THEN
    ALTER TABLE products ADD CONSTRAINT chk_products_stock
      CHECK (quantity >= 0 AND unit_price >= 0 AND amount >= 0);
  END IF;
END $$`},
		{"products unit check", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_products_unit') THEN
    ALTER TABLE products ADD CONSTRAINT chk_products_unit
      CHECK (unit IN ('kg', 'g', 'unit', 'liter', 'ml'));
  END IF;
END $$`},
		{"sortie_items positive quantity", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_sortie_items_quantity') THEN
    ALTER TABLE sortie_items ADD CONSTRAINT chk_sortie_items_quantity CHECK (quantity > 0);
  END IF;
END $$`},
		// A product referenced by a sortie line cannot be deleted.
		{"sortie_items product FK restrict", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_sortie_items_product') THEN
    ALTER TABLE sortie_items ADD CONSTRAINT fk_sortie_items_product
      FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT;
  END IF;
END $$`},
		{"vouchers single owner", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_vouchers_owner') THEN
    ALTER TABLE vouchers ADD CONSTRAINT chk_vouchers_owner
      CHECK ((product_id IS NULL) <> (sortie_id IS NULL));
  END IF;
END $$`},
		{"vouchers product FK", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_vouchers_product') THEN
    ALTER TABLE vouchers ADD CONSTRAINT fk_vouchers_product
      FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE RESTRICT;
  END IF;
END $$`},
		{"stock_alerts pending retry index", `
CREATE INDEX IF NOT EXISTS idx_stock_alerts_pending_retry
    ON stock_alerts (next_retry_at)
    WHERE status = 'pending' AND next_retry_at IS NOT NULL`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
