package portal_test

import (
	"context"
	"time"

	"github.com/goliatone/go-portal"
	"github.com/stretchr/testify/mock"
)

// MockConfig implements portal.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetAppName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAPIBaseURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetMaintenance() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockConfig) GetTokenKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetRejectedRouteKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetRejectedRouteDefault() string {
	args := m.Called()
	return args.String(0)
}

// MockTokenStore implements portal.TokenStore
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Token(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockTokenStore) SetToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenStore) ClearToken(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockMetrics implements portal.Metrics
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) GuardDecision(rule portal.GuardRule) {
	m.Called(rule)
}

func (m *MockMetrics) UpstreamResponse(method string, status int, elapsed time.Duration) {
	m.Called(method, status, elapsed)
}

func (m *MockMetrics) SessionCleared(source string) {
	m.Called(source)
}

func newMockConfig(maintenance bool) *MockConfig {
	cfg := new(MockConfig)
	cfg.On("GetMaintenance").Return(maintenance)
	cfg.On("GetAppName").Return("Acme Portal")
	return cfg
}
