package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/notify"
	"example.com/jewelry-shop/services/shop/internal/testutil"
)

// MockOrderService — мок OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CreateOrderResult), args.Error(1)
}

// MockPaymentService — мок PaymentService.
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) CreatePaymentForOrder(ctx context.Context, orderID domain.OrderID, method domain.PaymentMethod, useGateway bool) (*PaymentResult, error) {
	args := m.Called(ctx, orderID, method, useGateway)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PaymentResult), args.Error(1)
}

func organizationAddress() AddressInput {
	return AddressInput{
		Organization:   "ООО Ромашка",
		FullName:       "Пётр Петров",
		UNP:            "191234567",
		PaymentAccount: "BY20ALFA30120000000000000000",
		BankAddress:    "г. Минск, ул. Сурганова, 43",
		Email:          "buh@romashka.by",
		Phone:          "+375171234567",
		City:           "Минск",
		Address:        "пр. Независимости, 10",
	}
}

func TestCheckoutService_ValidatePayer(t *testing.T) {
	tests := []struct {
		name      string
		address   func() AddressInput
		method    domain.PaymentMethod
		wantField string
	}{
		{
			name:    "физлицо ЕРИП",
			address: testAddress,
			method:  domain.PaymentMethodERIP,
		},
		{
			name:    "физлицо карта",
			address: testAddress,
			method:  domain.PaymentMethodCard,
		},
		{
			name:      "физлицо не может платить по расчетному счету",
			address:   testAddress,
			method:    domain.PaymentMethodPaymentAccount,
			wantField: "paymentMethod",
		},
		{
			name: "физлицо без телефона",
			address: func() AddressInput {
				a := testAddress()
				a.Phone = "   "
				return a
			},
			method:    domain.PaymentMethodERIP,
			wantField: "phone",
		},
		{
			name: "первое пропущенное поле",
			address: func() AddressInput {
				a := testAddress()
				a.FullName = ""
				a.City = ""
				return a
			},
			method:    domain.PaymentMethodCard,
			wantField: "fullName",
		},
		{
			name:    "организация по расчетному счету",
			address: organizationAddress,
			method:  domain.PaymentMethodPaymentAccount,
		},
		{
			name:      "организация не может платить картой",
			address:   organizationAddress,
			method:    domain.PaymentMethodCard,
			wantField: "paymentMethod",
		},
		{
			name: "организация без УНП",
			address: func() AddressInput {
				a := organizationAddress()
				a.UNP = ""
				return a
			},
			method:    domain.PaymentMethodERIP,
			wantField: "unp",
		},
		{
			name: "организация без адреса банка",
			address: func() AddressInput {
				a := organizationAddress()
				a.BankAddress = ""
				return a
			},
			method:    domain.PaymentMethodPaymentAccount,
			wantField: "bankAddress",
		},
	}

	svc := NewCheckoutService(nil, nil, nil).(*checkoutService)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.validatePayer(tt.address(), tt.method)
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestCheckoutService_Initiate_Card(t *testing.T) {
	orders := new(MockOrderService)
	payments := new(MockPaymentService)
	mailer := new(testutil.MockMailer)

	order := pendingOrder()
	orders.On("CreateOrder", mock.Anything, mock.MatchedBy(func(in CreateOrderInput) bool {
		return in.SuppressNotification && in.PaymentMethod == domain.PaymentMethodCard
	})).Return(&CreateOrderResult{Order: order}, nil)
	payments.On("CreatePaymentForOrder", mock.Anything, domain.OrderID(42), domain.PaymentMethodCard, true).
		Return(&PaymentResult{PaymentLink: "https://pay.example/form/gw-1", GatewayRef: "gw-1"}, nil)

	res, err := NewCheckoutService(orders, payments, mailer).Initiate(context.Background(), CheckoutInput{
		Lines:         []CartLine{{Ref: domain.ProductRefBySlug("ring"), Quantity: 1}},
		Address:       testAddress(),
		ShippingType:  domain.ShippingTypeShipping,
		PaymentMethod: domain.PaymentMethodCard,
	})

	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/form/gw-1", res.Payment.PaymentLink)
	// письмо покупателю уходит после подтверждения оплаты
	mailer.AssertNotCalled(t, "OrderCreated", mock.Anything, mock.Anything)
	orders.AssertExpectations(t)
	payments.AssertExpectations(t)
}

func TestCheckoutService_Initiate_ERIPSendsEmail(t *testing.T) {
	orders := new(MockOrderService)
	payments := new(MockPaymentService)
	mailer := new(testutil.MockMailer)

	order := pendingOrder()
	order.PaymentMethod = domain.PaymentMethodERIP
	order.ShippingType = domain.ShippingTypeSelfShipping
	order.Address = &domain.Address{Email: "ivan@example.com"}

	orders.On("CreateOrder", mock.Anything, mock.MatchedBy(func(in CreateOrderInput) bool {
		return !in.SuppressNotification
	})).Return(&CreateOrderResult{Order: order}, nil)
	payments.On("CreatePaymentForOrder", mock.Anything, domain.OrderID(42), domain.PaymentMethodERIP, false).
		Return(&PaymentResult{Payment: &domain.Payment{ID: 1}}, nil)
	mailer.On("OrderCreated", mock.Anything, mock.MatchedBy(func(e notify.OrderEmail) bool {
		return e.To == "ivan@example.com" && e.ShippingType == domain.ShippingTypeSelfShipping
	})).Return(errors.New("resend 500"))

	res, err := NewCheckoutService(orders, payments, mailer).Initiate(context.Background(), CheckoutInput{
		Lines:         []CartLine{{Ref: domain.ProductRefBySlug("ring"), Quantity: 1}},
		Address:       testAddress(),
		ShippingType:  domain.ShippingTypeSelfShipping,
		PaymentMethod: domain.PaymentMethodERIP,
	})

	require.NoError(t, err, "ошибка письма не влияет на оформление")
	assert.Same(t, order, res.Order)
	mailer.AssertExpectations(t)
}

func TestCheckoutService_Initiate_OrganizationCardRejected(t *testing.T) {
	orders := new(MockOrderService)

	_, err := NewCheckoutService(orders, new(MockPaymentService), nil).Initiate(context.Background(), CheckoutInput{
		Lines:         []CartLine{{Ref: domain.ProductRefBySlug("ring"), Quantity: 1}},
		Address:       organizationAddress(),
		PaymentMethod: domain.PaymentMethodCard,
	})

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestCheckoutService_Initiate_GatewayErrorLeavesOrder(t *testing.T) {
	orders := new(MockOrderService)
	payments := new(MockPaymentService)

	orders.On("CreateOrder", mock.Anything, mock.Anything).Return(&CreateOrderResult{Order: pendingOrder()}, nil)
	payments.On("CreatePaymentForOrder", mock.Anything, domain.OrderID(42), domain.PaymentMethodCard, true).
		Return(nil, domain.ErrGatewayUnavailable)

	_, err := NewCheckoutService(orders, payments, nil).Initiate(context.Background(), CheckoutInput{
		Lines:         []CartLine{{Ref: domain.ProductRefBySlug("ring"), Quantity: 1}},
		Address:       testAddress(),
		PaymentMethod: domain.PaymentMethodCard,
	})

	require.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}
