package router

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/gateway"
	"app/internal/middleware"
	"app/internal/model"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/secrets"
	"app/internal/wizard"

	"github.com/go-playground/validator/v10"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New wires the wizard service: gateway, session manager, handlers and
// middleware. The returned shutdown func closes sessions, timers and
// connections.
func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, func(), error) {
	logger.Info().Str("environment", cfg.Environment).Str("gateway_driver", cfg.GatewayDriver).Msg("Router initializing")

	var cleanup []func()
	shutdown := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}

	gw, err := buildGateway(cfg, logger, &cleanup)
	if err != nil {
		shutdown()
		return nil, nil, err
	}

	// Optional course event notification
	var onPublished func(model.Course)
	if cfg.CourseEventsTopic != "" {
		publisher, err := pubsub.NewPublisher(context.Background(), cfg.GCPProjectID)
		if err != nil {
			shutdown()
			return nil, nil, fmt.Errorf("creating Pub/Sub publisher: %w", err)
		}
		topic := cfg.CourseEventsTopic
		onPublished = func(course model.Course) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if _, err := pubsub.PublishCourseEvent(ctx, publisher, topic, "course.published", course); err != nil {
				logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish course event")
			}
		}
	}

	sessions := wizard.NewManager(gw, wizard.Options{
		AutosaveDelay: cfg.AutosaveDelay(),
		Readiness:     readinessPolicy(cfg),
		Logger:        logger,
		OnPublished:   onPublished,
	}, cfg.SessionIdleTTL(), logger)
	cleanup = append(cleanup, sessions.Shutdown)

	validate := validator.New(validator.WithRequiredStructEnabled())
	wizardHandler := handler.NewWizardHandler(sessions, validate, logger)
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	mux := http.NewServeMux()
	apiV1Mux := http.NewServeMux()
	wizardHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), shutdown, nil
}

func buildGateway(cfg *config.Config, logger zerolog.Logger, cleanup *[]func()) (gateway.Gateway, error) {
	switch cfg.GatewayDriver {
	case "postgres":
		if cfg.DBConnectionString == "" {
			return nil, fmt.Errorf("DB_CONNECTION_STRING is required for the postgres gateway")
		}
		db, err := sql.Open("pgx", cfg.DBConnectionString)
		if err != nil {
			return nil, fmt.Errorf("opening DB connection: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("pinging DB: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxIdleTime(5 * time.Minute)
		*cleanup = append(*cleanup, func() { db.Close() })
		logger.Info().Msg("Database connection successful")
		return gateway.NewLocal(repository.NewCourseRepo(db), logger), nil

	case "http":
		if cfg.CourseAPIBaseURL == "" {
			return nil, fmt.Errorf("COURSE_API_BASE_URL is required for the http gateway")
		}
		tokens, err := buildTokenSource(cfg, logger, cleanup)
		if err != nil {
			return nil, err
		}
		return gateway.NewHTTP(cfg.CourseAPIBaseURL, tokens, logger), nil

	default:
		return nil, fmt.Errorf("unknown gateway driver %q", cfg.GatewayDriver)
	}
}

// buildTokenSource resolves the upstream credential: a refreshing source when
// a token endpoint is configured, a Secret Manager lookup when a secret name
// is configured, otherwise the static token from the environment.
func buildTokenSource(cfg *config.Config, logger zerolog.Logger, cleanup *[]func()) (gateway.TokenSource, error) {
	if cfg.CourseAPITokenURL != "" {
		refresher, err := gateway.NewRefreshingToken(
			context.Background(),
			tokenEndpointRefresh(cfg.CourseAPITokenURL),
			cfg.TokenRefreshInterval(),
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("creating refreshing token source: %w", err)
		}
		*cleanup = append(*cleanup, refresher.Stop)
		return refresher, nil
	}

	token := cfg.CourseAPIToken
	if token == "" && cfg.CourseAPITokenSecret != "" {
		source, err := secrets.NewGCPSource(context.Background(), cfg.GCPProjectID)
		if err != nil {
			return nil, fmt.Errorf("creating secret source: %w", err)
		}
		defer source.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		token, err = source.Get(ctx, cfg.CourseAPITokenSecret)
		if err != nil {
			return nil, fmt.Errorf("resolving course API token secret: %w", err)
		}
	}
	return gateway.StaticToken(token), nil
}

// tokenEndpointRefresh fetches a bearer token from the auth collaborator's
// token endpoint.
func tokenEndpointRefresh(url string) gateway.RefreshFunc {
	return func(ctx context.Context) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			return "", fmt.Errorf("creating token request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("requesting token: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
		}
		var body struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("decoding token response: %w", err)
		}
		return body.AccessToken, nil
	}
}

func readinessPolicy(cfg *config.Config) wizard.ReadinessPolicy {
	policy := wizard.DefaultReadinessPolicy()
	policy.ReadyThreshold = cfg.ReadinessThreshold
	policy.MinDescriptionLen = cfg.ReadinessMinDescriptionLen
	policy.MinModules = cfg.ReadinessMinModules
	return policy
}
