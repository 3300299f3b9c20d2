package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	storageConfig "github.com/tigerroll/surfin-datasync/pkg/batch/adapter/storage/config"
	coreConfig "github.com/tigerroll/surfin-datasync/pkg/batch/core/config"
	logger "github.com/tigerroll/surfin-datasync/pkg/batch/support/util/logger"
)

// OpenFunc opens a connection of one provider type from its decoded configuration.
type OpenFunc func(ctx context.Context, cfg storageConfig.StorageConfig, name string) (StorageConnection, error)

// CachingProvider implements StorageProvider on top of an OpenFunc.
// Connections are opened once per name and reused.
type CachingProvider struct {
	providerType string
	cfg          *coreConfig.Config
	open         OpenFunc
	connections  map[string]StorageConnection
	mu           sync.RWMutex
}

// NewCachingProvider creates a provider of providerType that reads connection settings from cfg.
func NewCachingProvider(providerType string, cfg *coreConfig.Config, open OpenFunc) *CachingProvider {
	return &CachingProvider{
		providerType: providerType,
		cfg:          cfg,
		open:         open,
		connections:  make(map[string]StorageConnection),
	}
}

// GetConnection retrieves a StorageConnection by the given name, creating it if needed.
func (p *CachingProvider) GetConnection(ctx context.Context, name string) (StorageConnection, error) {
	p.mu.RLock()
	conn, ok := p.connections[name]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring lock
	if conn, ok = p.connections[name]; ok {
		return conn, nil
	}

	sc, err := storageConfig.Lookup(p.cfg.Surfin.Storage, name)
	if err != nil {
		return nil, err
	}
	if sc.Type != p.providerType {
		return nil, fmt.Errorf("storage config type mismatch for '%s': expected '%s', got '%s'", name, p.providerType, sc.Type)
	}

	newConn, err := p.open(ctx, sc, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage connection '%s': %w", p.providerType, name, err)
	}
	p.connections[name] = newConn
	logger.Debugf("Created new %s storage connection '%s'.", p.providerType, name)
	return newConn, nil
}

// CloseAll closes all connections managed by this provider.
func (p *CachingProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result *multierror.Error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close %s storage connection '%s': %w", p.providerType, name, err))
		}
		delete(p.connections, name)
	}
	return result.ErrorOrNil()
}

// Type returns the provider type.
func (p *CachingProvider) Type() string {
	return p.providerType
}

var _ StorageProvider = (*CachingProvider)(nil)
