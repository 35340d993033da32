package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/arkstudy/ms3-contenido/config"
)

// ConnectTimeout bounds server selection and the startup ping.
const ConnectTimeout = 5 * time.Second

// Manager owns the MongoDB client for the lifetime of the process.
type Manager struct {
	cfg    config.MongoConfig
	logger *logrus.Logger

	mu     sync.Mutex
	client *mongo.Client
	db     *mongo.Database
}

func NewManager(cfg config.MongoConfig, logger *logrus.Logger) *Manager {
	return &Manager{cfg: cfg, logger: logger}
}

// Connect opens the client and pings the primary. It fails when the store
// is not reachable within ConnectTimeout.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked(ctx)
}

func (m *Manager) connectLocked(ctx context.Context) error {
	if m.client != nil {
		return nil
	}

	opts := options.Client().
		ApplyURI(m.cfg.URL()).
		SetServerSelectionTimeout(ConnectTimeout)

	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("can't connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		m.logger.WithError(err).Error("mongodb ping failed")
		return fmt.Errorf("can't ping mongodb: %w", err)
	}

	m.client = client
	m.db = client.Database(m.cfg.Database)
	m.logger.WithField("database", m.cfg.Database).Info("connected to mongodb")
	return nil
}

// Close disconnects the client. Calling it on a manager that never
// connected is a no-op.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}
	err := m.client.Disconnect(ctx)
	m.client = nil
	m.db = nil
	if err != nil {
		return fmt.Errorf("can't disconnect from mongodb: %w", err)
	}
	m.logger.Info("mongodb connection closed")
	return nil
}

// Database returns the live database handle, connecting first if needed.
func (m *Manager) Database(ctx context.Context) (*mongo.Database, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		if err := m.connectLocked(ctx); err != nil {
			return nil, err
		}
	}
	return m.db, nil
}

// Ping checks that the connected store still answers.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()

	if client == nil {
		return fmt.Errorf("mongodb not connected")
	}
	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()
	return client.Ping(ctx, readpref.Primary())
}

func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client != nil
}
