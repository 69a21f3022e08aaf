// Package jwt выпускает и проверяет RS256 токены операторов магазина.
// Подпись приватным ключом (утилита admintoken), проверка публичным (HTTP сервис).
package jwt

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RoleOperator — роль с доступом к административным эндпоинтам.
const RoleOperator = "operator"

var (
	ErrCannotSign   = errors.New("приватный ключ не загружен: выпуск токенов недоступен")
	ErrInvalidToken = errors.New("невалидный токен")
	ErrTokenRevoked = errors.New("токен отозван")
)

// Claims содержит данные токена оператора.
type Claims struct {
	jwt.RegisteredClaims
	OperatorID string `json:"operator_id"`
	Role       string `json:"role"`
}

// Token — выпущенный токен.
type Token struct {
	Value     string    `json:"token"`
	ID        string    `json:"jti"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Config содержит параметры Manager.
type Config struct {
	PrivateKeyPath string // опционально, только для выпуска
	PublicKeyPath  string
	Issuer         string
	TTL            time.Duration
}

// Manager выпускает и проверяет токены.
type Manager struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	blacklist  *Blacklist
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

// NewManager загружает ключи из файлов.
// Без PrivateKeyPath менеджер работает только на проверку.
func NewManager(cfg Config) (*Manager, error) {
	publicKey, err := LoadPublicKey(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки публичного ключа: %w", err)
	}

	var privateKey *rsa.PrivateKey
	if cfg.PrivateKeyPath != "" {
		privateKey, err = LoadPrivateKey(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("ошибка загрузки приватного ключа: %w", err)
		}
	}

	return NewManagerWithKeys(privateKey, publicKey, cfg.Issuer, cfg.TTL), nil
}

// NewManagerWithKeys создаёт менеджер из готовых ключей. privateKey может быть nil.
func NewManagerWithKeys(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, issuer string, ttl time.Duration) *Manager {
	return &Manager{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Issue подписывает токен для оператора.
func (m *Manager) Issue(operatorID, role string) (*Token, error) {
	if m.privateKey == nil {
		return nil, ErrCannotSign
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   operatorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		OperatorID: operatorID,
		Role:       role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(m.privateKey)
	if err != nil {
		return nil, fmt.Errorf("ошибка подписи токена: %w", err)
	}

	return &Token{Value: signed, ID: claims.ID, ExpiresAt: expiresAt}, nil
}

// Validate проверяет подпись, алгоритм, издателя и срок действия.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return m.publicKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateWithBlacklist дополнительно проверяет, не отозван ли токен.
func (m *Manager) ValidateWithBlacklist(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := m.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	if m.blacklist == nil {
		return claims, nil
	}

	revoked, err := m.blacklist.Check(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke добавляет токен в blacklist до истечения его срока.
func (m *Manager) Revoke(ctx context.Context, claims *Claims) error {
	if m.blacklist == nil {
		return fmt.Errorf("blacklist не настроен")
	}
	if claims.ExpiresAt == nil {
		return ErrInvalidToken
	}
	return m.blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time)
}

// CanSign возвращает true, если загружен приватный ключ.
func (m *Manager) CanSign() bool {
	return m.privateKey != nil
}

// SetBlacklist подключает blacklist отозванных токенов.
func (m *Manager) SetBlacklist(bl *Blacklist) {
	m.blacklist = bl
}
