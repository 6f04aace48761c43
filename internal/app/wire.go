package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	s3blob "github.com/mgalloway/crossbook/internal/blob/s3"
	"github.com/mgalloway/crossbook/internal/book"
	"github.com/mgalloway/crossbook/internal/cache/redis"
	"github.com/mgalloway/crossbook/internal/config"
	"github.com/mgalloway/crossbook/internal/crypto"
	"github.com/mgalloway/crossbook/internal/domain"
	"github.com/mgalloway/crossbook/internal/mapper"
	"github.com/mgalloway/crossbook/internal/notify"
	"github.com/mgalloway/crossbook/internal/pipeline"
	"github.com/mgalloway/crossbook/internal/platform/kalshi"
	"github.com/mgalloway/crossbook/internal/platform/polymarket"
	"github.com/mgalloway/crossbook/internal/store/postgres"
)

// Dependencies bundles everything the application modes need: venue clients,
// the discovered market set and its ticker mapping, the two book stores, and
// the optional persistence sinks. It is constructed by Wire and torn down by
// the returned cleanup function.
type Dependencies struct {
	// Venue clients
	ClobClient   *polymarket.ClobClient
	KalshiClient *kalshi.Client

	// Discovery output
	Markets []domain.Market
	Mapping *mapper.Mapping

	// Book state
	PolyStore   *book.PolyStore
	KalshiStore *book.KalshiStore

	// Optional sinks
	Notifier         *notify.Notifier
	OpportunityStore *postgres.OpportunityStore
	OpportunityCache *redis.OpportunityCache
	ReportArchiver   *pipeline.ReportArchiver
}

// Wire constructs all concrete dependencies from the given configuration and
// returns them together with a cleanup function that should be called on
// shutdown to release resources. Discovery (market fetch on both venues and
// mapping construction) happens here, once, before any feed connects.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		PolyStore:   book.NewPolyStore(logger),
		KalshiStore: book.NewKalshiStore(logger),
	}

	// --- Polymarket CLOB client ---
	signer, err := crypto.NewSigner(cfg.Wallet.PrivateKey, cfg.Polymarket.ChainID)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: signer: %w", err)
	}

	deps.ClobClient = polymarket.NewClobClient(cfg.Polymarket.ClobHost, signer)
	if err := deps.ClobClient.DeriveAPIKey(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: derive clob api key: %w", err)
	}

	// --- Kalshi client ---
	deps.KalshiClient = kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.ApiKeyID)
	pemBytes, err := os.ReadFile(cfg.Kalshi.RsaPrivateKeyPath)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: read kalshi private key: %w", err)
	}
	if err := deps.KalshiClient.SetRSAPrivateKey(pemBytes); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: kalshi private key: %w", err)
	}

	// --- Market discovery and mapping ---
	deps.Markets, err = deps.ClobClient.GetGameMarkets(ctx)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: fetch polymarket markets: %w", err)
	}

	kalshiMarkets, err := deps.KalshiClient.GetOpenMarkets(ctx)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: fetch kalshi markets: %w", err)
	}
	tickerSet := make(map[string]struct{}, len(kalshiMarkets))
	for _, m := range kalshiMarkets {
		tickerSet[m.Ticker] = struct{}{}
	}

	deps.Mapping = mapper.Build(deps.Markets, tickerSet, logger)
	logger.Info("market discovery complete",
		slog.Int("poly_markets", len(deps.Markets)),
		slog.Int("kalshi_markets", len(kalshiMarkets)),
		slog.Int("mapped", deps.Mapping.Len()),
	)

	// --- PostgreSQL journal ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.OpportunityStore = postgres.NewOpportunityStore(pgClient.Pool())
	}

	// --- Redis cache ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.OpportunityCache = redis.NewOpportunityCache(redisClient, cfg.Redis.OpportunityTTL.Duration)
	}

	// --- S3 report archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.ReportArchiver = pipeline.NewReportArchiver(
			s3blob.NewWriter(s3Client),
			cfg.S3.ReportPrefix,
			logger,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(
			cfg.Notify.DiscordWebhookURL,
			cfg.Notify.DiscordMentionUserID,
		))
	}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	deps.Notifier = notify.NewNotifier(senders, logger)

	return deps, cleanup, nil
}
