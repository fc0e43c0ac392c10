package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"auction_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store is the durable side of the marketplace: listings, custody items,
// balances and the mail outbox, all in one SQLite file.
type Store struct {
	db *gorm.DB
}

// NewStore opens (and migrates) the database at path.
func NewStore(path string) (*Store, error) {
	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Pure Go SQLite
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Listing{}, &domain.Item{}, &domain.Balance{}, &domain.Mail{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Txn runs fn inside one database transaction. Every marketplace operation
// batches all of its writes through a single Txn so a crash between steps
// leaves nothing half-applied.
func (s *Store) Txn(fn func(tx *Txn) error) error {
	return s.db.Transaction(func(db *gorm.DB) error {
		return fn(&Txn{db: db})
	})
}

// Txn is the write handle valid inside one Store.Txn call.
type Txn struct {
	db *gorm.DB
}

// SaveListing inserts or updates a listing row.
func (t *Txn) SaveListing(l *domain.Listing) error {
	return t.db.Save(l).Error
}

// DeleteListing removes a listing row by id.
func (t *Txn) DeleteListing(id uint64) error {
	return t.db.Delete(&domain.Listing{}, "id = ?", id).Error
}

// SaveItem inserts or updates a custody item row.
func (t *Txn) SaveItem(it *domain.Item) error {
	return t.db.Save(it).Error
}

// DeleteItem removes a custody item row by id.
func (t *Txn) DeleteItem(id uint64) error {
	return t.db.Delete(&domain.Item{}, "id = ?", id).Error
}

// SaveBalance inserts or updates a balance row.
func (t *Txn) SaveBalance(b *domain.Balance) error {
	return t.db.Save(b).Error
}

// QueueMail appends one message to the durable outbox.
func (t *Txn) QueueMail(m *domain.Mail) error {
	return t.db.Create(m).Error
}

// ======================================================================================
// Load operations (process start)
// ======================================================================================

// Listings returns every persisted listing.
func (s *Store) Listings() ([]domain.Listing, error) {
	var rows []domain.Listing
	err := s.db.Order("id").Find(&rows).Error
	return rows, err
}

// Items returns every item currently in marketplace custody.
func (s *Store) Items() ([]domain.Item, error) {
	var rows []domain.Item
	err := s.db.Order("id").Find(&rows).Error
	return rows, err
}

// Balances returns every actor balance.
func (s *Store) Balances() ([]domain.Balance, error) {
	var rows []domain.Balance
	err := s.db.Find(&rows).Error
	return rows, err
}

// MailFor returns the queued messages for one recipient, oldest first.
func (s *Store) MailFor(recipient string) ([]domain.Mail, error) {
	var rows []domain.Mail
	err := s.db.Where("recipient = ?", recipient).Order("created_at").Find(&rows).Error
	return rows, err
}
