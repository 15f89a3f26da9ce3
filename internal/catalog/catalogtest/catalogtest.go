// Package catalogtest holds fixtures shared by the catalog package tests.
package catalogtest

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tair/catalog-sync/internal/catalog/domain"
)

// NewDB opens a migrated sqlite database in a temp dir owned by t
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "catalog.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// sqlite serializes writers; one connection keeps transactions honest
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&domain.Category{}, &domain.Service{}, &domain.Product{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// FakeUpstream serves canned catalogs per provider and counts calls
type FakeUpstream struct {
	mu       sync.Mutex
	catalogs map[string][]domain.ServiceDTO
	errs     map[string]error
	calls    map[string]int

	// Block, when set, is received from before answering
	Block chan struct{}
	// Entered, when set, is signalled once a fetch has started
	Entered chan struct{}
}

func NewFakeUpstream() *FakeUpstream {
	return &FakeUpstream{
		catalogs: make(map[string][]domain.ServiceDTO),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (f *FakeUpstream) SetCatalog(providerID string, services []domain.ServiceDTO) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalogs[providerID] = services
	delete(f.errs, providerID)
}

func (f *FakeUpstream) SetError(providerID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[providerID] = err
}

func (f *FakeUpstream) Calls(providerID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[providerID]
}

func (f *FakeUpstream) FetchCatalog(ctx context.Context, creds domain.ProviderCredentials) ([]domain.ServiceDTO, error) {
	f.mu.Lock()
	f.calls[creds.ProviderID]++
	f.mu.Unlock()

	if f.Entered != nil {
		f.Entered <- struct{}{}
	}
	if f.Block != nil {
		select {
		case <-f.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[creds.ProviderID]; err != nil {
		return nil, err
	}
	return f.catalogs[creds.ProviderID], nil
}

// RecordingPublisher keeps every published result
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []domain.SyncResult
}

func (p *RecordingPublisher) PublishCatalogSynced(_ context.Context, result *domain.SyncResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, *result)
	return nil
}

func (p *RecordingPublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Events)
}

func Int64(v int64) *int64 { return &v }
func Bool(v bool) *bool    { return &v }
func String(v string) *string {
	return &v
}
