// Package main — утилита выпуска JWT токенов операторов магазина.
//
// Использование:
//
//	admintoken -operator ivan
//
// Ключи и срок действия берутся из JWT_PRIVATE_KEY_PATH, JWT_PUBLIC_KEY_PATH и JWT_TOKEN_TTL.
package main

import (
	"encoding/json"
	"flag"
	"os"

	"example.com/jewelry-shop/pkg/config"
	"example.com/jewelry-shop/pkg/jwt"
	"example.com/jewelry-shop/pkg/logger"
)

func main() {
	operatorID := flag.String("operator", "", "идентификатор оператора")
	envFile := flag.String("env", "", "путь к .env файлу")
	flag.Parse()

	logger.Init(logger.Config{Level: "info", Output: os.Stderr})

	if *operatorID == "" {
		flag.Usage()
		os.Exit(2)
	}

	var (
		cfg *config.Config
		err error
	)
	if *envFile != "" {
		cfg, err = config.LoadFromFile(*envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка загрузки конфигурации")
	}

	if cfg.JWT.PrivateKeyPath == "" || cfg.JWT.PublicKeyPath == "" {
		logger.Fatal().Msg("Нужны JWT_PRIVATE_KEY_PATH и JWT_PUBLIC_KEY_PATH")
	}

	manager, err := jwt.NewManager(jwt.Config{
		PrivateKeyPath: cfg.JWT.PrivateKeyPath,
		PublicKeyPath:  cfg.JWT.PublicKeyPath,
		Issuer:         cfg.JWT.Issuer,
		TTL:            cfg.JWT.TokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка загрузки ключей")
	}

	token, err := manager.Issue(*operatorID, jwt.RoleOperator)
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка выпуска токена")
	}

	logger.Info().
		Str("operator_id", *operatorID).
		Str("jti", token.ID).
		Time("expires_at", token.ExpiresAt).
		Msg("Токен выпущен")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(token); err != nil {
		logger.Fatal().Err(err).Msg("Ошибка вывода токена")
	}
}
