package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"arventa.group/internal/auth"
	"arventa.group/internal/gate"
	"arventa.group/internal/httpapi"
	"arventa.group/internal/obs"
	"arventa.group/internal/otp"
	"arventa.group/internal/profile"
	"arventa.group/internal/rbac"
	"arventa.group/internal/store/pg"
	"arventa.group/internal/stream"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		pgStore *pg.Store
		err     error
	)
	if dsn := os.Getenv("ARVENTA_PG_DSN"); dsn != "" {
		pgStore, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
	}

	var redisClient *redis.Client
	if addr := os.Getenv("ARVENTA_REDIS_ADDR"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("ARVENTA_REDIS_PASSWORD"),
		})
	}

	// Stores: Postgres and Redis when configured, in-process otherwise.
	var (
		members      auth.MemberStore   = auth.NewMemoryMemberStore()
		sessions     auth.SessionStore  = auth.NewMemorySessionStore()
		profileStore profile.Store      = profile.NewMemoryStore()
		rbacStore    rbac.Store         = rbac.NewMemoryStore()
		challenges   otp.ChallengeStore = otp.NewMemoryChallengeStore()
	)
	if pgStore != nil {
		members = pg.NewMemberStore(pgStore)
		profileStore = pg.NewProfileStore(pgStore)
		rbacStore = pg.NewRBACStore(pgStore)
	}
	if redisClient != nil {
		sessions = auth.NewRedisSessionStore(redisClient)
		challenges = otp.NewRedisChallengeStore(redisClient)
	}

	events := stream.New()
	svc := auth.NewService(members, sessions, events,
		auth.WithSessionTTL(envDuration("ARVENTA_SESSION_TTL", 12*time.Hour)))

	profiles := profile.NewResolver(profileStore)

	resolverOpts := []rbac.ResolverOption{}
	if raw := os.Getenv("ARVENTA_ELEVATED_ROLES"); raw != "" {
		var elevated []rbac.Role
		for _, part := range strings.Split(raw, ",") {
			if role, ok := rbac.ParseRole(part); ok {
				elevated = append(elevated, role)
			} else {
				log.Fatalf("unknown role in ARVENTA_ELEVATED_ROLES: %q", part)
			}
		}
		resolverOpts = append(resolverOpts, rbac.WithElevatedRoles(elevated))
	}
	resolver := rbac.NewResolver(rbacStore, resolverOpts...)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := resolver.Seed(ctx); err != nil {
			log.Fatalf("seed rbac: %v", err)
		}
		cancel()
	}

	var channel otp.Channel = otp.LogChannel{}
	if key := os.Getenv("ARVENTA_SMS_API_KEY"); key != "" {
		channel = otp.NewSMSChannel(key, os.Getenv("ARVENTA_SMS_URL"))
	}
	verifier := otp.NewVerifier(challenges, profiles, svc, channel,
		otp.WithTTL(envDuration("ARVENTA_OTP_TTL", 10*time.Minute)),
		otp.WithMaxAttempts(envInt("ARVENTA_OTP_MAX_ATTEMPTS", 5)))

	ready := httpapi.ReadyProbe{}
	if pgStore != nil {
		ready.DB = pgStore.DB()
	}

	api := httpapi.New(httpapi.Config{
		Version:  version,
		Ready:    ready,
		Auth:     svc,
		Gate:     gate.New(svc, profiles, resolver),
		OTP:      verifier,
		Resolver: resolver,
		RBAC:     rbacStore,
		Profiles: profiles,
		Events:   events,
	})

	handler := api.Handler()
	handler = httpapi.MaxBodyBytes(handler, 1<<20)
	handler = httpapi.RateLimit(handler, 50, 25)
	handler = httpapi.CORS(handler)
	handler = httpapi.SecurityHeaders(handler)
	handler = httpapi.Logging(handler)
	handler = httpapi.RequestID(handler)

	addr := os.Getenv("ARVENTA_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting arventa-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if pgStore != nil {
		_ = pgStore.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	log.Println("Stopped")
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			return d
		}
		log.Fatalf("invalid duration in %s: %q", key, os.Getenv(key))
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
		log.Fatalf("invalid integer in %s: %q", key, os.Getenv(key))
	}
	return fallback
}
