package secrets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	pkgsecrets "github.com/fory-finance/p2p-desk/pkg/secrets"
)

// Resolver resolves the Telegram bot credential from AWS Secrets Manager,
// caching the result in-memory so restart-free rotation stays cheap.
type Resolver struct {
	logger   *zap.Logger
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[string]
}

// NewResolver creates a bot credential resolver.
func NewResolver(logger *zap.Logger, provider pkgsecrets.Provider, cache *pkgsecrets.Cache[string]) *Resolver {
	return &Resolver{
		logger:   logger,
		provider: provider,
		cache:    cache,
	}
}

// BotToken returns the bot token stored under secretName as {"bot_token": "..."}.
func (r *Resolver) BotToken(ctx context.Context, secretName string) (string, error) {
	if token, ok := r.cache.Get(secretName); ok {
		return token, nil
	}

	values, err := r.provider.GetSecret(ctx, secretName)
	if err != nil {
		return "", fmt.Errorf("resolve bot token from [%s]: %w", secretName, err)
	}

	token, ok := values["bot_token"]
	if !ok || token == "" {
		return "", fmt.Errorf("secret [%s] has no bot_token entry", secretName)
	}

	r.cache.Put(secretName, token)
	r.logger.Info("secrets.bot_token_resolved", zap.String("secret", secretName))
	return token, nil
}
