package database

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkstudy/ms3-contenido/config"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestCloseWithoutConnect(t *testing.T) {
	m := NewManager(config.MongoConfig{Host: "localhost", Port: 27017, Database: "db"}, quietLogger())

	assert.NoError(t, m.Close(context.Background()))
	assert.NoError(t, m.Close(context.Background()))
	assert.False(t, m.Connected())
}

func TestPingWithoutConnect(t *testing.T) {
	m := NewManager(config.MongoConfig{Host: "localhost", Port: 27017, Database: "db"}, quietLogger())

	assert.Error(t, m.Ping(context.Background()))
}

func TestConnectUnreachableFailsFast(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for server selection timeout")
	}
	m := NewManager(config.MongoConfig{Host: "127.0.0.1", Port: 1, Database: "db"}, quietLogger())

	start := time.Now()
	err := m.Connect(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), ConnectTimeout+2*time.Second)
	assert.False(t, m.Connected())

	_, err = m.Database(context.Background())
	assert.Error(t, err)
}
