package handler

import (
	"context"

	"example.com/jewelry-shop/pkg/jwt"
	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/notify"
	"example.com/jewelry-shop/services/shop/internal/pricing"
	"example.com/jewelry-shop/services/shop/internal/service"
	"example.com/jewelry-shop/services/shop/internal/worker"
)

// MockCatalogService — мок для CatalogService.
type MockCatalogService struct {
	ListProductsFunc   func(ctx context.Context, in service.ListProductsInput) (*service.ProductPage, error)
	GetProductFunc     func(ctx context.Context, slug string) (*domain.Product, error)
	ListCategoriesFunc func(ctx context.Context) ([]*domain.Category, error)
	ListTagsFunc       func(ctx context.Context) ([]*domain.Tag, error)
}

func (m *MockCatalogService) ListProducts(ctx context.Context, in service.ListProductsInput) (*service.ProductPage, error) {
	if m.ListProductsFunc != nil {
		return m.ListProductsFunc(ctx, in)
	}
	return &service.ProductPage{}, nil
}

func (m *MockCatalogService) GetProduct(ctx context.Context, slug string) (*domain.Product, error) {
	if m.GetProductFunc != nil {
		return m.GetProductFunc(ctx, slug)
	}
	return nil, domain.ErrProductNotFound
}

func (m *MockCatalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	if m.ListCategoriesFunc != nil {
		return m.ListCategoriesFunc(ctx)
	}
	return nil, nil
}

func (m *MockCatalogService) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	if m.ListTagsFunc != nil {
		return m.ListTagsFunc(ctx)
	}
	return nil, nil
}

// MockQuoteService — мок для QuoteService.
type MockQuoteService struct {
	CalculateFunc func(ctx context.Context, in service.QuoteInput) (pricing.Breakdown, error)
}

func (m *MockQuoteService) Calculate(ctx context.Context, in service.QuoteInput) (pricing.Breakdown, error) {
	if m.CalculateFunc != nil {
		return m.CalculateFunc(ctx, in)
	}
	return pricing.Breakdown{}, nil
}

// MockPromocodeService — мок для PromocodeService.
type MockPromocodeService struct {
	ValidateFunc func(ctx context.Context, name string) (*service.PromocodeValidation, error)
}

func (m *MockPromocodeService) Validate(ctx context.Context, name string) (*service.PromocodeValidation, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, name)
	}
	return &service.PromocodeValidation{}, nil
}

// MockCheckoutService — мок для CheckoutService.
type MockCheckoutService struct {
	InitiateFunc func(ctx context.Context, in service.CheckoutInput) (*service.CheckoutResult, error)
}

func (m *MockCheckoutService) Initiate(ctx context.Context, in service.CheckoutInput) (*service.CheckoutResult, error) {
	if m.InitiateFunc != nil {
		return m.InitiateFunc(ctx, in)
	}
	return nil, nil
}

// MockReconciliationService — мок для ReconciliationService.
type MockReconciliationService struct {
	ApplyByHashIDFunc          func(ctx context.Context, hashID string, outcome domain.PaymentOutcome) (*service.ReconciliationResult, error)
	ApplyByOrderIDFunc         func(ctx context.Context, orderID domain.OrderID, outcome domain.PaymentOutcome) (*service.ReconciliationResult, error)
	HandleTelegramCallbackFunc func(ctx context.Context, cb service.TelegramCallback) error
}

func (m *MockReconciliationService) ApplyByHashID(ctx context.Context, hashID string, outcome domain.PaymentOutcome) (*service.ReconciliationResult, error) {
	if m.ApplyByHashIDFunc != nil {
		return m.ApplyByHashIDFunc(ctx, hashID, outcome)
	}
	return &service.ReconciliationResult{}, nil
}

func (m *MockReconciliationService) ApplyByOrderID(ctx context.Context, orderID domain.OrderID, outcome domain.PaymentOutcome) (*service.ReconciliationResult, error) {
	if m.ApplyByOrderIDFunc != nil {
		return m.ApplyByOrderIDFunc(ctx, orderID, outcome)
	}
	return &service.ReconciliationResult{}, nil
}

func (m *MockReconciliationService) HandleTelegramCallback(ctx context.Context, cb service.TelegramCallback) error {
	if m.HandleTelegramCallbackFunc != nil {
		return m.HandleTelegramCallbackFunc(ctx, cb)
	}
	return nil
}

// MockWebhookManager — мок для notify.WebhookManager.
type MockWebhookManager struct {
	SetupWebhookFunc func(ctx context.Context, url string) (*notify.WebhookInfo, error)
}

func (m *MockWebhookManager) SetupWebhook(ctx context.Context, url string) (*notify.WebhookInfo, error) {
	if m.SetupWebhookFunc != nil {
		return m.SetupWebhookFunc(ctx, url)
	}
	return &notify.WebhookInfo{URL: url}, nil
}

// MockTaskQueue — очередь, выполняющая задачу сразу.
type MockTaskQueue struct {
	EnqueueFunc func(ctx context.Context, name string, fn worker.Func) (string, error)
}

func (m *MockTaskQueue) Enqueue(ctx context.Context, name string, fn worker.Func) (string, error) {
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, name, fn)
	}
	return "task-1", fn(ctx)
}

// MockTokenRevoker — мок для TokenRevoker.
type MockTokenRevoker struct {
	RevokeFunc func(ctx context.Context, claims *jwt.Claims) error
}

func (m *MockTokenRevoker) Revoke(ctx context.Context, claims *jwt.Claims) error {
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, claims)
	}
	return nil
}

// MockTokenValidator — мок для middleware.TokenValidator.
type MockTokenValidator struct {
	ValidateFunc func(ctx context.Context, token string) (*jwt.Claims, error)
}

func (m *MockTokenValidator) ValidateWithBlacklist(ctx context.Context, token string) (*jwt.Claims, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, token)
	}
	return nil, jwt.ErrInvalidToken
}
