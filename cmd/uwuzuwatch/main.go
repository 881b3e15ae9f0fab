package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bakkerme/uwuzu-watch/internal/config"
	"github.com/bakkerme/uwuzu-watch/internal/crosspost"
	"github.com/bakkerme/uwuzu-watch/internal/dedupe"
	"github.com/bakkerme/uwuzu-watch/internal/filter"
	"github.com/bakkerme/uwuzu-watch/internal/logging"
	"github.com/bakkerme/uwuzu-watch/internal/observability/otelx"
	"github.com/bakkerme/uwuzu-watch/internal/outputs/email"
	"github.com/bakkerme/uwuzu-watch/internal/outputs/email/smtp"
	"github.com/bakkerme/uwuzu-watch/internal/trigger"
	"github.com/bakkerme/uwuzu-watch/internal/uwuzu"
	"github.com/bakkerme/uwuzu-watch/internal/walk"
	"github.com/bakkerme/uwuzu-watch/internal/watch"
)

func main() {
	env := config.LoadEnv()

	configPath := flag.String("config", env.ConfigPath, "path to watch document")
	backfillOnce := flag.Bool("backfill", false, "run a single backfill walk and exit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))
	slog.SetDefault(logger)

	doc, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load document: %v", err)
	}
	if env.Uwuzu.Domain == "" {
		log.Fatalf("UWUZU_DOMAIN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	shutdown, err := otelx.Init(ctx, logger, env.OTel)
	if err != nil {
		log.Fatalf("failed to init otel: %v", err)
	}
	if shutdown != nil {
		defer func() { _ = shutdown(context.Background()) }()
	}

	token := env.Uwuzu.Token
	if token == "" && env.Uwuzu.SessionID != "" {
		token, err = uwuzu.GetAccessToken(ctx, env.Uwuzu.Domain, env.Uwuzu.SessionID)
		if err != nil {
			log.Fatalf("failed to get access token: %v", err)
		}
	}
	if token == "" {
		log.Fatalf("UWUZU_TOKEN or UWUZU_SESSION_ID is required")
	}

	client := uwuzu.NewClient(
		env.Uwuzu.Domain,
		token,
		uwuzu.WithHTTPClient(&http.Client{Timeout: env.Uwuzu.HTTPTimeout}),
		uwuzu.WithUserAgent(env.Uwuzu.UserAgent),
		uwuzu.WithRateLimit(env.Uwuzu.RateLimit),
		uwuzu.WithLogger(logger),
	)

	seen, err := buildSeenStore(doc.Dedupe)
	if err != nil {
		log.Fatalf("failed to build seen store: %v", err)
	}
	defer seen.Close()

	var sender email.Sender
	var digest *email.Digest
	if doc.Email != nil {
		sender = smtp.NewSender(env.SMTP.Host, env.SMTP.Port, env.SMTP.User, env.SMTP.Password, env.SMTP.TLSMode, env.SMTP.InsecureSkipVerify)
		digest = email.NewDigest()
	}

	walker := walk.New(client, walkConfig(doc.Backfill))

	if *backfillOnce {
		if err := runBackfill(ctx, logger, walker, digest, sender, doc.Email); err != nil {
			log.Fatalf("backfill failed: %v", err)
		}
		return
	}

	watchCfg := watch.Config{
		Interval: doc.Watch.Interval.Std(),
		Window:   doc.Watch.Window,
	}
	if doc.Watch.Filter != "" {
		rule, err := filter.Compile(doc.Watch.Name, doc.Watch.Filter)
		if err != nil {
			log.Fatalf("failed to compile filter: %v", err)
		}
		watchCfg.Filter = rule.Match
	}

	handler := newPostHandler(digest, sender, doc.Email)
	watcher := watch.New(logger.With(slog.String("watch", doc.Watch.Name)), client, seen, handler, watchCfg)

	if doc.Backfill != nil && doc.Backfill.Schedule != "" {
		cronTrigger := trigger.NewCron("backfill", doc.Backfill.Schedule, doc.Backfill.Timezone)
		events, err := cronTrigger.Start(ctx)
		if err != nil {
			log.Fatalf("failed to start backfill schedule: %v", err)
		}
		go func() {
			for range events {
				if err := runBackfill(ctx, logger, walker, digest, sender, doc.Email); err != nil {
					logger.Error("scheduled backfill failed", slog.Any("error", err))
				}
			}
		}()
	}

	if doc.Crosspost != nil {
		fetcher := crosspost.NewFetcher(env.Uwuzu.HTTPTimeout, env.Uwuzu.UserAgent)
		crossposter := crosspost.New(logger, fetcher, client, seen, crosspost.Config{
			Feeds: doc.Crosspost.Feeds,
			Limit: doc.Crosspost.Limit,
		})
		if doc.Crosspost.Schedule != "" {
			cronTrigger := trigger.NewCron("crosspost", doc.Crosspost.Schedule, doc.Crosspost.Timezone)
			events, err := cronTrigger.Start(ctx)
			if err != nil {
				log.Fatalf("failed to start crosspost schedule: %v", err)
			}
			go func() {
				for range events {
					crossposter.Run(ctx)
				}
			}()
		} else {
			go crossposter.Run(ctx)
		}
	}

	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("watch stopped: %v", err)
	}
}

func buildSeenStore(cfg config.Dedupe) (dedupe.SeenStore, error) {
	switch cfg.Driver {
	case "sqlite":
		return dedupe.NewSQLiteStore(cfg.Path, cfg.TTL.Std())
	default:
		return dedupe.NewMemoryStore(cfg.Capacity), nil
	}
}

func walkConfig(cfg *config.Backfill) walk.Config {
	if cfg == nil {
		return walk.Config{}
	}
	return walk.Config{
		PageSize:  cfg.PageSize,
		MaxPages:  cfg.MaxPages,
		PageDelay: cfg.PageDelay.Std(),
	}
}

// newPostHandler logs every new post; with email configured it also
// delivers each one as a single-post digest.
func newPostHandler(digest *email.Digest, sender email.Sender, cfg *config.Email) watch.Handler {
	return func(ctx context.Context, post uwuzu.Post) error {
		logging.FromContext(ctx).Info("new post",
			slog.String("id", post.ID),
			slog.String("author", post.Account.Username),
			slog.String("text", post.Text),
		)
		if sender == nil || digest == nil || cfg == nil {
			return nil
		}
		subject := cfg.Subject
		if subject == "" {
			subject = fmt.Sprintf("New post from %s", post.Account.Username)
		}
		message, err := digest.Build(subject, []uwuzu.Post{post})
		if err != nil {
			return err
		}
		message.To = cfg.To
		message.From = cfg.From
		return sender.Send(ctx, message)
	}
}

func runBackfill(ctx context.Context, logger *slog.Logger, walker *walk.Walker, digest *email.Digest, sender email.Sender, cfg *config.Email) error {
	posts, err := walker.Collect(ctx)
	if err != nil {
		return err
	}
	logger.Info("backfill complete", slog.Int("posts", len(posts)))

	if sender == nil || digest == nil || cfg == nil {
		for _, post := range posts {
			logger.Info("post",
				slog.String("id", post.ID),
				slog.String("author", post.Account.Username),
			)
		}
		return nil
	}

	subject := cfg.Subject
	if subject == "" {
		subject = "uwuzu timeline digest"
	}
	message, err := digest.Build(subject, posts)
	if err != nil {
		return err
	}
	message.To = cfg.To
	message.From = cfg.From
	return sender.Send(ctx, message)
}
