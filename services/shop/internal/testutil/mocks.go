// Package testutil содержит общие моки репозиториев и внешних сервисов для unit-тестов.
package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"example.com/jewelry-shop/services/shop/internal/alfabank"
	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/events"
	"example.com/jewelry-shop/services/shop/internal/notify"
	"example.com/jewelry-shop/services/shop/internal/repository"
)

// =============================================================================
// Репозитории
// =============================================================================

// MockCatalogRepository — мок repository.CatalogRepository.
type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) GetByRef(ctx context.Context, ref domain.ProductRef) (*domain.Product, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockCatalogRepository) GetPublishedBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockCatalogRepository) ListPublished(ctx context.Context, f repository.ProductFilter) ([]*domain.Product, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockCatalogRepository) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Category), args.Error(1)
}

func (m *MockCatalogRepository) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Tag), args.Error(1)
}

func (m *MockCatalogRepository) ReserveStock(ctx context.Context, id domain.ProductID, quantity int) (bool, error) {
	args := m.Called(ctx, id, quantity)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalogRepository) RestoreStock(ctx context.Context, id domain.ProductID, quantity int) (bool, error) {
	args := m.Called(ctx, id, quantity)
	return args.Bool(0), args.Error(1)
}

// MockOrderRepository — мок repository.OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) CreateAddress(ctx context.Context, address *domain.Address) error {
	return m.Called(ctx, address).Error(0)
}

func (m *MockOrderRepository) DeleteAddress(ctx context.Context, id domain.AddressID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) CreateItems(ctx context.Context, orderID domain.OrderID, items []domain.OrderItem) error {
	return m.Called(ctx, orderID, items).Error(0)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id domain.OrderID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) SetHashID(ctx context.Context, id domain.OrderID, hashID string) error {
	return m.Called(ctx, id, hashID).Error(0)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id domain.OrderID, status domain.OrderStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

// MockPaymentRepository — мок repository.PaymentRepository.
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

func (m *MockPaymentRepository) GetByOrderID(ctx context.Context, orderID domain.OrderID) (*domain.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByHashID(ctx context.Context, hashID string) (*domain.Payment, error) {
	args := m.Called(ctx, hashID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, payment *domain.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

// MockPromocodeRepository — мок repository.PromocodeRepository.
type MockPromocodeRepository struct {
	mock.Mock
}

func (m *MockPromocodeRepository) GetByName(ctx context.Context, name string) (*domain.Promocode, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Promocode), args.Error(1)
}

func (m *MockPromocodeRepository) Redeem(ctx context.Context, id domain.PromocodeID, orderID domain.OrderID) (bool, error) {
	args := m.Called(ctx, id, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPromocodeRepository) Unlink(ctx context.Context, id domain.PromocodeID, orderID domain.OrderID) error {
	return m.Called(ctx, id, orderID).Error(0)
}

// =============================================================================
// Внешние сервисы
// =============================================================================

// MockGateway — мок регистрации платежа в шлюзе.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Register(ctx context.Context, req alfabank.RegisterRequest) (*alfabank.RegisterResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*alfabank.RegisterResponse), args.Error(1)
}

// MockBot — мок notify.Bot.
type MockBot struct {
	mock.Mock
}

var _ notify.Bot = (*MockBot)(nil)

func (m *MockBot) OrderCreated(ctx context.Context, n notify.OrderNotice) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockBot) PaymentSucceeded(ctx context.Context, order *domain.Order, payment *domain.Payment) error {
	return m.Called(ctx, order, payment).Error(0)
}

func (m *MockBot) PaymentFailed(ctx context.Context, order *domain.Order, payment *domain.Payment) error {
	return m.Called(ctx, order, payment).Error(0)
}

func (m *MockBot) Text(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockBot) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return m.Called(ctx, callbackID, text).Error(0)
}

func (m *MockBot) SetupWebhook(ctx context.Context, url string) (*notify.WebhookInfo, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notify.WebhookInfo), args.Error(1)
}

// MockMailer — мок notify.Mailer.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) OrderCreated(ctx context.Context, e notify.OrderEmail) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockMailer) OrderPaid(ctx context.Context, e notify.OrderEmail) error {
	return m.Called(ctx, e).Error(0)
}

// MockEvents — мок events.Publisher.
type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) OrderCreated(ctx context.Context, e events.OrderCreated) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockEvents) PaymentStatusChanged(ctx context.Context, e events.PaymentStatusChanged) error {
	return m.Called(ctx, e).Error(0)
}

// MockDeduplicator — мок notify.UpdateDeduplicator.
type MockDeduplicator struct {
	mock.Mock
}

func (m *MockDeduplicator) FirstSeen(ctx context.Context, updateID int) (bool, error) {
	args := m.Called(ctx, updateID)
	return args.Bool(0), args.Error(1)
}

// FixedClock — часы с фиксированным временем.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
