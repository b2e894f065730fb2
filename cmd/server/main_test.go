package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vialerp/internal/config"
	"vialerp/internal/db/mock"
	"vialerp/internal/pricing"
	"vialerp/internal/server"
)

type stubServer struct {
	startErr       error
	stopErr        error
	blockUntilStop bool

	startCalled bool
	stopCalled  bool

	startGate   chan struct{}
	startNotify chan struct{}
}

func newStubServer(startErr, stopErr error, block bool) *stubServer {
	s := &stubServer{
		startErr:       startErr,
		stopErr:        stopErr,
		blockUntilStop: block,
		startNotify:    make(chan struct{}),
	}
	if block {
		s.startGate = make(chan struct{})
	}
	return s
}

func (s *stubServer) Start() error {
	s.startCalled = true
	close(s.startNotify)
	if s.blockUntilStop {
		<-s.startGate
	}
	return s.startErr
}

func (s *stubServer) Stop() error {
	s.stopCalled = true
	if s.blockUntilStop {
		close(s.startGate)
	}
	return s.stopErr
}

// restoreHooks puts the package level constructors back after the test.
func restoreHooks(t *testing.T) {
	t.Helper()
	load, level, mockDB, configure := loadConfigFunc, setLogLevelFunc, newMockDatabaseFunc, configureDatabase
	newServer, subscribe := newServerFunc, subscribeShutdownSig
	t.Cleanup(func() {
		loadConfigFunc, setLogLevelFunc, newMockDatabaseFunc, configureDatabase = load, level, mockDB, configure
		newServerFunc, subscribeShutdownSig = newServer, subscribe
	})
}

func mockConfig() config.Config {
	return config.Config{
		Server:   config.ServerConfig{Addr: ":8080"},
		Database: config.DatabaseConfig{UseMock: true},
		Logging:  config.LoggingConfig{Level: "info"},
		Sync:     config.SyncConfig{Workers: 2, Timeout: time.Minute},
	}
}

// stopOnStart sends SIGTERM as soon as the stub server starts.
func stopOnStart(stub *stubServer) {
	shutdownCh := make(chan os.Signal, 1)
	subscribeShutdownSig = func() (<-chan os.Signal, func()) {
		return shutdownCh, func() {}
	}
	go func() {
		<-stub.startNotify
		shutdownCh <- syscall.SIGTERM
	}()
}

func TestRunUsesMockDatabaseWhenConfigured(t *testing.T) {
	restoreHooks(t)

	var mockCalled bool
	loadConfigFunc = func() (config.Config, error) { return mockConfig(), nil }
	setLogLevelFunc = func(string) error { return nil }
	newMockDatabaseFunc = func(ctx context.Context) (*gorm.DB, error) {
		mockCalled = true
		return mock.New(ctx)
	}
	configureDatabase = func(config.DatabaseConfig) (*gorm.DB, error) {
		require.FailNow(t, "configureDatabase should not be called when mock is enabled")
		return nil, nil
	}

	serverStub := newStubServer(http.ErrServerClosed, nil, true)
	newServerFunc = func(server.Config) (serverLifecycle, error) {
		return serverStub, nil
	}
	stopOnStart(serverStub)

	require.Equal(t, 0, run(context.Background()))
	assert.True(t, mockCalled, "mock database should be used")
	assert.True(t, serverStub.startCalled, "server should start")
	assert.True(t, serverStub.stopCalled, "server should stop")
}

func TestRunSyncsMockCatalogBeforeServing(t *testing.T) {
	restoreHooks(t)

	loadConfigFunc = func() (config.Config, error) { return mockConfig(), nil }
	setLogLevelFunc = func(string) error { return nil }
	newMockDatabaseFunc = mock.New

	var srvCfg server.Config
	serverStub := newStubServer(http.ErrServerClosed, nil, true)
	newServerFunc = func(cfg server.Config) (serverLifecycle, error) {
		srvCfg = cfg
		return serverStub, nil
	}
	stopOnStart(serverStub)

	require.Equal(t, 0, run(context.Background()))
	require.NotNil(t, srvCfg.API, "the server should receive the product api")

	srv, err := server.New(srvCfg)
	require.NoError(t, err)
	query := url.Values{"attr.Color": {"Negro"}, "attr.Tamaño": {"Grande"}, "branch": {"La Paz"}}
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/1/price?"+query.Encode(), nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var res pricing.Resolution
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, pricing.SourceLegacy, res.Source)
	assert.Equal(t, "20.90", res.Price.StringFixed(2))
}

func TestRunReturnsErrorWhenServerStartFails(t *testing.T) {
	restoreHooks(t)

	loadConfigFunc = func() (config.Config, error) { return mockConfig(), nil }
	setLogLevelFunc = func(string) error { return nil }
	newMockDatabaseFunc = mock.New

	serverStub := newStubServer(errors.New("listener failure"), nil, false)
	newServerFunc = func(server.Config) (serverLifecycle, error) {
		return serverStub, nil
	}
	subscribeShutdownSig = func() (<-chan os.Signal, func()) {
		return make(chan os.Signal), func() {}
	}

	require.Equal(t, 1, run(context.Background()))
	assert.False(t, serverStub.stopCalled, "server stop should not be called on start error")
}

func TestRunHandlesDatabaseConfigurationError(t *testing.T) {
	restoreHooks(t)

	cfg := config.Config{
		Server:   config.ServerConfig{Addr: ":8080"},
		Database: config.DatabaseConfig{URL: "postgres://example"},
		Logging:  config.LoggingConfig{Level: "info"},
	}
	loadConfigFunc = func() (config.Config, error) { return cfg, nil }
	setLogLevelFunc = func(string) error { return nil }
	newMockDatabaseFunc = func(context.Context) (*gorm.DB, error) {
		require.FailNow(t, "mock database should not be used when URL is configured")
		return nil, nil
	}
	configureDatabase = func(config.DatabaseConfig) (*gorm.DB, error) {
		return nil, errors.New("db connection refused")
	}

	assert.Equal(t, 1, run(context.Background()), "database configuration failure")
}

func TestRunReturnsErrorWhenLogLevelInvalid(t *testing.T) {
	restoreHooks(t)

	cfg := config.Config{Logging: config.LoggingConfig{Level: "invalid"}}
	loadConfigFunc = func() (config.Config, error) { return cfg, nil }
	setLogLevelFunc = func(string) error { return errors.New("invalid level") }

	assert.Equal(t, 1, run(context.Background()), "invalid log level")
}

func TestRunReturnsErrorWhenConfigFails(t *testing.T) {
	restoreHooks(t)

	loadConfigFunc = func() (config.Config, error) { return config.Config{}, errors.New("bad env") }

	assert.Equal(t, 1, run(context.Background()), "configuration failure")
}
