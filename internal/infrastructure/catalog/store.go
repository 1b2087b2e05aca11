package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/spiralshops/relevance/internal/domain"
	"github.com/spiralshops/relevance/internal/metrics"
)

// itemModel is the persisted form of a catalog item
type itemModel struct {
	ID          string    `gorm:"primaryKey;column:id"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description"`
	Category    string    `gorm:"column:category;index"`
	Price       int64     `gorm:"column:price;not null"`
	StoreID     string    `gorm:"column:store_id;index"`
	StoreName   string    `gorm:"column:store_name"`
	Rating      float64   `gorm:"column:rating"`
	InStock     bool      `gorm:"column:in_stock;not null"`
	Zone        string    `gorm:"column:zone;index"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (itemModel) TableName() string { return "catalog_items" }

// interactionModel is one recorded user/item event
type interactionModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement;column:id"`
	UserID     string    `gorm:"column:user_id;not null;index"`
	ItemID     string    `gorm:"column:item_id;not null;index"`
	Kind       string    `gorm:"column:kind;not null"`
	OccurredAt time.Time `gorm:"column:occurred_at;index"`
}

func (interactionModel) TableName() string { return "interactions" }

// Open connects to the catalog database
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			dsn = fmt.Sprintf("file:%s?_journal_mode=WAL", dsn)
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to catalog database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}

	if driver == "postgres" {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	} else {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Store is the persistent CatalogProvider and ActivityProvider
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewStore wraps an open database
func NewStore(db *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "catalog_store").Logger(),
	}
}

// Ping checks that the database answers
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate creates or updates the catalog tables
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&itemModel{}, &interactionModel{}); err != nil {
		return fmt.Errorf("migrate catalog tables: %w", err)
	}
	return nil
}

// Items returns every catalog item ordered by id
func (s *Store) Items(ctx context.Context) ([]domain.CatalogItem, error) {
	var rows []itemModel
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		metrics.CatalogFetchErrors.WithLabelValues("database").Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: catalog table is empty", domain.ErrCatalogUnavailable)
	}

	items := make([]domain.CatalogItem, len(rows))
	for i, r := range rows {
		items[i] = domain.CatalogItem{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Category:    r.Category,
			Price:       r.Price,
			StoreID:     r.StoreID,
			StoreName:   r.StoreName,
			Rating:      r.Rating,
			InStock:     r.InStock,
			Zone:        r.Zone,
		}
	}
	return items, nil
}

// UpsertItems inserts new items and overwrites existing ones by id
func (s *Store) UpsertItems(ctx context.Context, items []domain.CatalogItem) error {
	if len(items) == 0 {
		return nil
	}

	rows := make([]itemModel, len(items))
	for i, it := range items {
		rows[i] = itemModel{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			Category:    it.Category,
			Price:       it.Price,
			StoreID:     it.StoreID,
			StoreName:   it.StoreName,
			Rating:      it.Rating,
			InStock:     it.InStock,
			Zone:        it.Zone,
		}
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(rows, 200).Error
	if err != nil {
		return fmt.Errorf("upsert catalog items: %w", err)
	}

	s.logger.Info().Int("items", len(rows)).Msg("catalog items upserted")
	return nil
}

// AddInteractions records user/item events
func (s *Store) AddInteractions(ctx context.Context, events []domain.Interaction) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([]interactionModel, len(events))
	for i, e := range events {
		rows[i] = interactionModel{
			UserID:     e.UserID,
			ItemID:     e.ItemID,
			Kind:       e.Kind,
			OccurredAt: e.OccurredAt,
		}
	}

	if err := s.db.WithContext(ctx).CreateInBatches(rows, 500).Error; err != nil {
		return fmt.Errorf("insert interactions: %w", err)
	}
	return nil
}

// UserHistory returns the user's most recent interactions, newest first
func (s *Store) UserHistory(ctx context.Context, userID string, limit int) ([]domain.Interaction, error) {
	var rows []interactionModel
	q := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("occurred_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load user history: %w", err)
	}
	return toInteractions(rows), nil
}

// ItemInteractions returns every interaction touching one of itemIDs
func (s *Store) ItemInteractions(ctx context.Context, itemIDs []string) ([]domain.Interaction, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	var rows []interactionModel
	if err := s.db.WithContext(ctx).Where("item_id IN ?", itemIDs).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load item interactions: %w", err)
	}
	return toInteractions(rows), nil
}

func toInteractions(rows []interactionModel) []domain.Interaction {
	out := make([]domain.Interaction, len(rows))
	for i, r := range rows {
		out[i] = domain.Interaction{
			UserID:     r.UserID,
			ItemID:     r.ItemID,
			Kind:       r.Kind,
			OccurredAt: r.OccurredAt,
		}
	}
	return out
}
