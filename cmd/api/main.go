package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-todo-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-todo-go/internal/mail"
	"github.com/ovaphlow/pitchfork/service-todo-go/internal/otp"
	"github.com/ovaphlow/pitchfork/service-todo-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-todo-go/internal/todo"
	todorepo "github.com/ovaphlow/pitchfork/service-todo-go/internal/todo/repo"
	"github.com/ovaphlow/pitchfork/service-todo-go/internal/token"
	tokenrepo "github.com/ovaphlow/pitchfork/service-todo-go/internal/token/repo"
	"github.com/ovaphlow/pitchfork/service-todo-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-todo-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-todo-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-todo-go/pkg/utilities"
)

func main() {
	// best-effort: real env wins when no .env exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	lg, err := utilities.Init(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Infow("starting service-todo-go", "env", cfg.Env, "addr", cfg.Addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db.DB); err != nil {
		sugar.Fatalf("db migrate: %v", err)
	}

	clock := clockwork.NewRealClock()

	var denylist token.Denylist
	if cfg.RedisURL != "" {
		rdb, err := token.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			sugar.Fatalf("redis connect: %v", err)
		}
		defer rdb.Close()
		denylist = token.NewRedisDenylist(rdb, clock)
		sugar.Info("token denylist: redis")
	} else {
		denylist = tokenrepo.NewRevocationRepo(db)
		sugar.Info("token denylist: postgres")
	}

	issuer := token.NewIssuer(cfg.JWTSecret, cfg.TokenTTL, clock, denylist)
	hasher := user.BcryptHasher{Cost: cfg.BcryptCost}
	ids := utilities.NewIDGenerator(cfg.SnowflakeNode)
	validate := validator.New()

	if cfg.Email.Driver != "log" && !cfg.Email.Enabled() {
		sugar.Warnw("email transport is not configured; OTP mails will fail", "driver", cfg.Email.Driver)
	}
	userSvc := user.NewUserService(user.Deps{
		Store:    userrepo.NewUserRepo(db),
		Hasher:   hasher,
		Tokens:   issuer,
		OTP:      otp.NewEngine(hasher, clock, cfg.OTPTTL),
		Mailer:   mail.NewSender(cfg.Email, sugar),
		Mail:     mail.NewComposer(cfg.AppName, cfg.Email.From, cfg.OTPTTL),
		IDs:      ids,
		Validate: validate,
		Logger:   sugar.With(zap.String("component", "user")),
	})
	todoSvc := todo.NewService(todorepo.NewRepo(db), ids, validate)

	handler := router.RegisterRoutes(sugar, router.Deps{
		Users:          user.NewHandler(userSvc, user.CookieConfig{Secure: cfg.Production(), MaxAge: cfg.TokenTTL}, sugar),
		Todos:          todo.NewHandler(todoSvc, sugar),
		Issuer:         issuer,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running; press Ctrl+C to stop", "addr", cfg.Addr)

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
