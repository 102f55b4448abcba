package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/examhub/examhub/internal/auth"
	"github.com/examhub/examhub/internal/handler"
	"github.com/examhub/examhub/internal/llm"
	"github.com/examhub/examhub/internal/model"
	"github.com/examhub/examhub/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examhub",
		Short: "AI-assisted examination platform backend",
	}

	serve := serveCmd()
	root.AddCommand(serve)

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "examhub.db", "SQLite database path")
	f.String("jwt-secret", "", "Secret for signing access tokens (or set EXAMHUB_JWT_SECRET)")
	f.Duration("token-ttl", 24*time.Hour, "Access token lifetime")
	f.String("llm-url", "", "OpenAI-compatible API base URL (empty for api.openai.com)")
	f.String("llm-key", "", "API key for the AI service (empty disables AI endpoints)")
	f.String("llm-model", "gpt-4o-mini", "AI model name")
	f.String("admin-password", "", "Initial admin password (or set EXAMHUB_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EXAMHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examhub")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examhub")
	v.AddConfigPath("/etc/examhub")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func buildConfig(v *viper.Viper) (model.Config, error) {
	cfg := model.Config{
		Addr:          v.GetString("addr"),
		DBPath:        v.GetString("db"),
		JWTSecret:     v.GetString("jwt-secret"),
		TokenTTL:      v.GetDuration("token-ttl"),
		LLMBaseURL:    v.GetString("llm-url"),
		LLMAPIKey:     v.GetString("llm-key"),
		LLMModel:      v.GetString("llm-model"),
		AdminPassword: v.GetString("admin-password"),
	}
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("jwt secret is required: set --jwt-secret flag or EXAMHUB_JWT_SECRET env var")
	}
	if cfg.TokenTTL <= 0 {
		return cfg, fmt.Errorf("token-ttl must be positive")
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	cfg, err := buildConfig(v)
	if err != nil {
		return err
	}

	db, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedAdmin(db, cfg.AdminPassword); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	llmClient := llm.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	if !llmClient.Configured() {
		slog.Warn("no AI API key configured, AI endpoints will return 503")
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	h := handler.New(db, llmClient, tokens)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	h.Routes(r)

	slog.Info("starting server",
		"addr", cfg.Addr,
		"db", cfg.DBPath,
		"llm_model", cfg.LLMModel,
		"llm_url", cfg.LLMBaseURL,
		"ai_enabled", llmClient.Configured(),
	)
	return http.ListenAndServe(cfg.Addr, r)
}

// seedAdmin creates a default admin account when the user table is empty.
func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required on first run: set --admin-password flag or EXAMHUB_ADMIN_PASSWORD env var")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		Email:        "admin@localhost",
		PasswordHash: hash,
		FullName:     "Administrator",
		Role:         model.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
