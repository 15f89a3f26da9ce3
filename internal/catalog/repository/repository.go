package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/catalog-sync/internal/catalog/domain"
)

type GormCatalogRepository struct {
	db *gorm.DB
}

func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

func (r *GormCatalogRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Category{}, &domain.Service{}, &domain.Product{})
}

func (r *GormCatalogRepository) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *GormCatalogRepository) WithinTransaction(ctx context.Context, fn func(tx domain.CatalogRepository) error) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormCatalogRepository{db: tx})
	})
}

func (r *GormCatalogRepository) UpsertCategory(ctx context.Context, def domain.CategoryDefinition) (*domain.Category, error) {
	var category domain.Category
	err := r.conn(ctx).Where("slug = ?", def.Slug).Take(&category).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// a concurrent sync of another provider may insert the same slug
		category = domain.Category{Slug: def.Slug, Name: def.Name}
		err = r.conn(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
			Create(&category).Error
		if err != nil {
			return nil, err
		}
		if category.ID != 0 {
			return &category, nil
		}
		if err := r.conn(ctx).Where("slug = ?", def.Slug).Take(&category).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	// only the display name may change after creation
	if category.Name != def.Name {
		if err := r.conn(ctx).Model(&category).Update("name", def.Name).Error; err != nil {
			return nil, err
		}
	}
	return &category, nil
}

func (r *GormCatalogRepository) FindService(ctx context.Context, provider, externalID string) (*domain.Service, error) {
	var service domain.Service
	err := r.conn(ctx).
		Where("provider = ? AND external_id = ?", provider, externalID).
		Take(&service).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("service %s/%s: %w", provider, externalID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *GormCatalogRepository) SaveService(ctx context.Context, service *domain.Service) error {
	return r.conn(ctx).Omit(clause.Associations).Save(service).Error
}

func (r *GormCatalogRepository) FindProductsByService(ctx context.Context, serviceID uint) ([]domain.Product, error) {
	var products []domain.Product
	err := r.conn(ctx).Where("service_id = ?", serviceID).Find(&products).Error
	return products, err
}

func (r *GormCatalogRepository) SaveProduct(ctx context.Context, product *domain.Product) error {
	return r.conn(ctx).Save(product).Error
}

// retireBatchSize caps bound parameters per UPDATE; sqlite allows 32766 and
// postgres 65535 per statement.
const retireBatchSize = 500

type retireCandidate struct {
	ID         uint
	ExternalID string
}

func (r *GormCatalogRepository) RetireProducts(ctx context.Context, provider string, keepIDs []uint, skipExternalIDs []string) (int64, error) {
	var active []retireCandidate
	err := r.conn(ctx).Model(&domain.Product{}).
		Select("products.id, services.external_id").
		Joins("JOIN services ON services.id = products.service_id").
		Where("services.provider = ? AND products.is_active = ?", provider, true).
		Scan(&active).Error
	if err != nil {
		return 0, err
	}

	keep := make(map[uint]struct{}, len(keepIDs))
	for _, id := range keepIDs {
		keep[id] = struct{}{}
	}
	skip := make(map[string]struct{}, len(skipExternalIDs))
	for _, id := range skipExternalIDs {
		skip[id] = struct{}{}
	}

	var retire []uint
	for _, c := range active {
		if _, ok := keep[c.ID]; ok {
			continue
		}
		if _, ok := skip[c.ExternalID]; ok {
			continue
		}
		retire = append(retire, c.ID)
	}
	return r.deactivate(ctx, &domain.Product{}, retire)
}

func (r *GormCatalogRepository) RetireServices(ctx context.Context, provider string, keepExternalIDs []string) (int64, error) {
	var active []retireCandidate
	err := r.conn(ctx).Model(&domain.Service{}).
		Select("id, external_id").
		Where("provider = ? AND is_active = ?", provider, true).
		Scan(&active).Error
	if err != nil {
		return 0, err
	}

	keep := make(map[string]struct{}, len(keepExternalIDs))
	for _, id := range keepExternalIDs {
		keep[id] = struct{}{}
	}

	var retire []uint
	for _, c := range active {
		if _, ok := keep[c.ExternalID]; !ok {
			retire = append(retire, c.ID)
		}
	}
	return r.deactivate(ctx, &domain.Service{}, retire)
}

// deactivate flips is_active off for ids in fixed-size batches
func (r *GormCatalogRepository) deactivate(ctx context.Context, model interface{}, ids []uint) (int64, error) {
	var total int64
	for start := 0; start < len(ids); start += retireBatchSize {
		end := min(start+retireBatchSize, len(ids))
		result := r.conn(ctx).Model(model).
			Where("id IN ?", ids[start:end]).
			Update("is_active", false)
		if result.Error != nil {
			return total, result.Error
		}
		total += result.RowsAffected
	}
	return total, nil
}

func (r *GormCatalogRepository) ListServices(ctx context.Context, filter domain.ServiceFilter) ([]domain.Service, error) {
	query := r.conn(ctx).Preload("Category")
	if filter.ActiveOnly {
		query = query.
			Where("is_active = ?", true).
			Preload("Products", func(db *gorm.DB) *gorm.DB {
				return db.Where("is_active = ?", true).Order("sort_order, id")
			})
	} else {
		query = query.Preload("Products", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order, id")
		})
	}
	if filter.Provider != "" {
		query = query.Where("provider = ?", filter.Provider)
	}

	services := []domain.Service{}
	err := query.Order("name, id").Find(&services).Error
	return services, err
}

func (r *GormCatalogRepository) Stats(ctx context.Context) (*domain.StockStats, error) {
	stats := &domain.StockStats{}

	if err := r.conn(ctx).Model(&domain.Service{}).Count(&stats.TotalServices).Error; err != nil {
		return nil, fmt.Errorf("count services: %w", err)
	}
	if err := r.conn(ctx).Model(&domain.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	var totalStock int64
	err := r.conn(ctx).Model(&domain.Product{}).
		Select("COALESCE(SUM(stock_count), 0)").
		Where("stock_type = ? AND stock_count IS NOT NULL", domain.StockLimited).
		Scan(&totalStock).Error
	if err != nil {
		return nil, fmt.Errorf("sum stock: %w", err)
	}
	stats.TotalStock = totalStock

	// MAX() loses the column type on some drivers, so read the newest row instead
	var latest domain.Product
	err = r.conn(ctx).
		Where("last_stock_sync_at IS NOT NULL").
		Order("last_stock_sync_at DESC").
		Take(&latest).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return nil, fmt.Errorf("last sync time: %w", err)
	default:
		stats.LastSyncTime = latest.LastStockSyncAt
	}

	return stats, nil
}

func (r *GormCatalogRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
