package service

import (
	"context"
	"errors"
	"fmt"

	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/repository"
)

// PromocodeValidation — результат проверки промокода.
type PromocodeValidation struct {
	Valid     bool
	Message   string
	Promocode *domain.Promocode
}

// RemainingUsages возвращает оставшееся число использований.
func (v *PromocodeValidation) RemainingUsages() int {
	if v.Promocode == nil {
		return 0
	}
	return max(v.Promocode.AvailableUsages, 0)
}

// PromocodeService проверяет промокоды без их применения.
type PromocodeService interface {
	Validate(ctx context.Context, name string) (*PromocodeValidation, error)
}

type promocodeService struct {
	repo  repository.PromocodeRepository
	clock domain.Clock
}

// NewPromocodeService создаёт сервис промокодов.
func NewPromocodeService(repo repository.PromocodeRepository, clock domain.Clock) PromocodeService {
	return &promocodeService{repo: repo, clock: clock}
}

func (s *promocodeService) Validate(ctx context.Context, name string) (*PromocodeValidation, error) {
	name = domain.NormalizePromocodeName(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "не указан промокод")
	}

	promo, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrPromocodeNotFound) {
			return &PromocodeValidation{Message: rejectionMessage(err)}, nil
		}
		return nil, fmt.Errorf("ошибка получения промокода: %w", err)
	}

	if err := promo.Validate(s.clock.Now()); err != nil {
		log := logger.FromContext(ctx)
		log.Debug().
			Err(err).
			Str("promocode", name).
			Msg("Промокод не прошёл проверку")
		return &PromocodeValidation{Message: rejectionMessage(err), Promocode: promo}, nil
	}

	return &PromocodeValidation{Valid: true, Message: "Промокод действителен", Promocode: promo}, nil
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrPromocodeNotFound):
		return "Промокод не найден"
	case errors.Is(err, domain.ErrPromocodeInactive):
		return "Промокод не активен"
	case errors.Is(err, domain.ErrPromocodeExpired):
		return "Срок действия промокода истёк"
	case errors.Is(err, domain.ErrPromocodeExhausted):
		return "Промокод больше не может быть использован"
	default:
		return "Промокод недействителен"
	}
}

// lookupPromocode загружает промокод для расчёта. Отсутствие и ошибки чтения
// не прерывают расчёт: промокод просто не применяется.
func lookupPromocode(ctx context.Context, repo repository.PromocodeRepository, name string) *domain.Promocode {
	name = domain.NormalizePromocodeName(name)
	if name == "" {
		return nil
	}

	promo, err := repo.GetByName(ctx, name)
	if err != nil {
		log := logger.FromContext(ctx)
		if errors.Is(err, domain.ErrPromocodeNotFound) {
			log.Info().Str("promocode", name).Msg("Промокод не найден, расчёт без промокода")
		} else {
			log.Error().Err(err).Str("promocode", name).Msg("Ошибка получения промокода, расчёт без промокода")
		}
		return nil
	}
	return promo
}
