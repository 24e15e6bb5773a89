package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/academy/internal/blob"
	"github.com/pavelanni/academy/internal/completion"
	"github.com/pavelanni/academy/internal/cursor"
	"github.com/pavelanni/academy/internal/exam"
	"github.com/pavelanni/academy/internal/grading"
	"github.com/pavelanni/academy/internal/handler"
	appI18n "github.com/pavelanni/academy/internal/i18n"
	"github.com/pavelanni/academy/internal/llm"
	"github.com/pavelanni/academy/internal/llm/prompts"
	"github.com/pavelanni/academy/internal/mail"
	"github.com/pavelanni/academy/internal/model"
	"github.com/pavelanni/academy/internal/notify"
	"github.com/pavelanni/academy/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: reading .env:", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "academy",
		Short: "Course management with exams, grading and certificates",
	}

	serve := serveCmd()
	root.AddCommand(serve, importCmd(), exportCmd(), seedAdminCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func dbFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db-driver", string(store.DriverSQLite), "Database driver (sqlite, postgres)")
	f.String("db", "academy.db", "SQLite path or PostgreSQL connection string")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	dbFlags(cmd)
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("upload-dir", "uploads", "Directory for uploaded files")
	f.String("base-url", "", "Public URL used in email links (e.g. https://academy.example.com)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /academy)")
	f.Bool("secure-cookies", true, "Set Secure flag on cookies")
	f.String("cursor-secret", "", "Secret for signing exam cursor cookies (random when empty)")
	f.Duration("cursor-ttl", cursor.DefaultTTL, "Lifetime of exam cursor cookies")
	f.StringP("lang", "l", "en", "Default UI language (en, el)")
	f.String("mail-driver", "console", "Mail driver (console, sendgrid, none)")
	f.String("sendgrid-key", "", "SendGrid API key")
	f.String("mail-from", "noreply@example.com", "Sender address for emails")
	f.String("app-name", "Academy", "Name used in email subjects and sender")
	f.String("llm-url", "", "OpenAI-compatible API base URL (empty disables score suggestions)")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("prompt-variant", string(prompts.PromptStandard), "Suggestion prompt variant (strict, standard, lenient)")
	f.String("admin-password", "", "Initial admin password (or set ACADEMY_ADMIN_PASSWORD)")
	f.StringSlice("cors-origins", nil, "Origins allowed to call the JSON API")
	return cmd
}

func setupLogging(v *viper.Viper) {
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

	v.SetEnvPrefix("ACADEMY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("academy")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/academy")
	v.AddConfigPath("/etc/academy")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	setupLogging(v)
	return v
}

func openStore(ctx context.Context, v *viper.Viper) (*store.Store, error) {
	db, err := store.New(ctx, store.Driver(v.GetString("db-driver")), v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// normalizeBasePath returns p with a leading and no trailing slash.
func normalizeBasePath(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func cursorSecret(v *viper.Viper) ([]byte, error) {
	if s := v.GetString("cursor-secret"); s != "" {
		return []byte(s), nil
	}
	slog.Warn("no cursor-secret configured, exam positions reset on restart")
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// newSuggester returns the LLM client, or nil when no endpoint is set.
func newSuggester(ctx context.Context, v *viper.Viper) (exam.Suggester, error) {
	url := v.GetString("llm-url")
	if url == "" {
		slog.Info("llm-url not set, score suggestions disabled")
		return nil, nil
	}
	variant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(variant) {
		slog.Warn("invalid prompt-variant, using standard", "variant", variant)
		variant = string(prompts.PromptStandard)
	}
	client, err := llm.New(url, v.GetString("llm-key"), v.GetString("llm-model"), variant)
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", url, "model", v.GetString("llm-model"), "variant", variant)
	return client, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, v)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := ensureAdmin(ctx, db, v.GetString("admin-password"), false); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	blobs, err := blob.NewFSStore(v.GetString("upload-dir"))
	if err != nil {
		return fmt.Errorf("open upload dir: %w", err)
	}
	mailer, err := mail.New(mail.Config{
		Driver:      v.GetString("mail-driver"),
		SendgridKey: v.GetString("sendgrid-key"),
		FromName:    v.GetString("app-name"),
		FromAddress: v.GetString("mail-from"),
	})
	if err != nil {
		return fmt.Errorf("create mailer: %w", err)
	}
	secret, err := cursorSecret(v)
	if err != nil {
		return fmt.Errorf("cursor secret: %w", err)
	}
	suggester, err := newSuggester(ctx, v)
	if err != nil {
		return err
	}

	basePath := normalizeBasePath(v.GetString("base-path"))
	appCfg := model.AppConfig{
		BasePath:      basePath,
		BaseURL:       strings.TrimRight(v.GetString("base-url"), "/"),
		SecureCookies: v.GetBool("secure-cookies"),
		PromptVariant: v.GetString("prompt-variant"),
		AppName:       v.GetString("app-name"),
		CORSOrigins:   v.GetStringSlice("cors-origins"),
	}

	comp := completion.NewEngine(db)
	deps := handler.Deps{
		Store:      db,
		Exams:      exam.NewService(db, grading.NewEngine(), blobs),
		Completion: comp,
		Notifier:   notify.NewDispatcher(db, comp, mailer, notify.Links{BaseURL: appCfg.BaseURL, BasePath: basePath}),
		Cursors:    cursor.NewCodec(secret, v.GetDuration("cursor-ttl")),
		Blobs:      blobs,
		Suggester:  suggester,
	}
	h, err := handler.New(deps, appCfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	go sweepSessions(ctx, db, time.Hour)

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"db_driver", v.GetString("db-driver"),
			"lang", lang,
			"base_path", basePath,
			"mail_driver", v.GetString("mail-driver"),
			"suggestions", suggester != nil,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// sweepSessions deletes expired login sessions until ctx is done.
func sweepSessions(ctx context.Context, db *store.Store, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := db.CleanupExpiredSessions(ctx); err != nil {
				slog.Warn("session cleanup failed", "error", err)
			}
		}
	}
}
