package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_TransitionTo(t *testing.T) {
	tests := []struct {
		name        string
		from        OrderStatus
		to          OrderStatus
		wantChanged bool
		wantErr     error
	}{
		{"pending -> success", OrderStatusPending, OrderStatusSuccess, true, nil},
		{"pending -> canceled", OrderStatusPending, OrderStatusCanceled, true, nil},
		{"processing как pending -> success", OrderStatusProcessing, OrderStatusSuccess, true, nil},
		{"processing как pending -> canceled", OrderStatusProcessing, OrderStatusCanceled, true, nil},
		{"success -> refunded", OrderStatusSuccess, OrderStatusRefunded, true, nil},
		{"повтор canceled", OrderStatusCanceled, OrderStatusCanceled, false, nil},
		{"pending -> refunded", OrderStatusPending, OrderStatusRefunded, false, ErrInvalidTransition},
		{"canceled -> success", OrderStatusCanceled, OrderStatusSuccess, false, ErrInvalidTransition},
		{"refunded -> success", OrderStatusRefunded, OrderStatusSuccess, false, ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{Status: tt.from}
			changed, err := o.TransitionTo(tt.to)

			assert.Equal(t, tt.wantChanged, changed)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, o.Status)
				return
			}
			require.NoError(t, err)
			if changed {
				assert.Equal(t, tt.to, o.Status)
			}
		})
	}
}

func TestNewOrderItem(t *testing.T) {
	item := NewOrderItem(7, 3, decimal.RequireFromString("123.45"))

	assert.Equal(t, ProductID(7), item.ProductID)
	assert.True(t, decimal.RequireFromString("370.35").Equal(item.TotalPrice))
}

func TestProduct_CheckOrderable(t *testing.T) {
	price := decimal.NewFromInt(100)
	inactive := false

	tests := []struct {
		name    string
		p       Product
		wantErr error
	}{
		{"доступен", Product{Price: &price}, nil},
		{"скрыт", Product{Price: &price, IsHidden: true}, ErrProductNotOrderable},
		{"неактивен", Product{Price: &price, IsActive: &inactive}, ErrProductNotOrderable},
		{"без цены", Product{}, ErrMissingPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.CheckOrderable()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestProductError_Unwrap(t *testing.T) {
	err := error(&ProductError{Ref: ProductRefBySlug("ring"), Err: ErrProductNotFound})

	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Contains(t, err.Error(), "ring")

	var pe *ProductError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "ring", pe.Ref.Slug)
}

func TestParseShippingType(t *testing.T) {
	st, err := ParseShippingType("")
	require.NoError(t, err)
	assert.Equal(t, ShippingTypeShipping, st)

	st, err = ParseShippingType("selfShipping")
	require.NoError(t, err)
	assert.Equal(t, ShippingTypeSelfShipping, st)

	_, err = ParseShippingType("courier")
	assert.ErrorIs(t, err, ErrInvalidShippingType)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestOrderNumberGenerator_Monotonic(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	g := NewOrderNumberGenerator(fixedClock{t: now})

	assert.Equal(t, "1700000000000", g.Next())
	assert.Equal(t, "1700000000001", g.Next(), "часы не сдвинулись")
	assert.Equal(t, "1700000000002", g.Next())
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "0.01", RoundMoney(decimal.RequireFromString("0.005")).StringFixed(2))
	assert.Equal(t, "-0.01", RoundMoney(decimal.RequireFromString("-0.005")).StringFixed(2))
	assert.Equal(t, int64(76001), MinorUnits(decimal.RequireFromString("760.005")))
	assert.True(t, decimal.NewFromInt(40).Equal(Percent(decimal.NewFromInt(800), decimal.NewFromInt(5))))
}
