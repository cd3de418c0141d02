package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"food-dispatch-service/internal/adapters/broadcast"
	"food-dispatch-service/internal/adapters/cache"
	"food-dispatch-service/internal/adapters/geocode"
	"food-dispatch-service/internal/adapters/redisstore"
	"food-dispatch-service/internal/adapters/repositories"
	"food-dispatch-service/internal/adapters/routing"
	"food-dispatch-service/internal/api"
	"food-dispatch-service/internal/config"
	"food-dispatch-service/internal/platform/db"
	"food-dispatch-service/internal/platform/metrics"
	"food-dispatch-service/internal/platform/obs"
	"food-dispatch-service/internal/ports"
	"food-dispatch-service/internal/scheduler"
	"food-dispatch-service/internal/services"
)

// store bundles the task and vehicle repositories and the caches that share
// their backing store.
type store struct {
	tasks    ports.TaskRepository
	vehicles ports.VehicleRepository
	hubs     ports.HubSource
	trips    ports.TripCache
	geocodes ports.GeocodeCache
}

// main is the application composition root.
// It wires concrete adapters (Postgres or memory, Redis, Mapbox/ORS) behind
// ports and starts the HTTP server and the cycle scheduler.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	metrics.RegisterDefault()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	lock, publisher, closeRedis, err := openCoordination(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRedis()

	provider := routing.NewCachingProvider(newRouteProvider(cfg), st.trips)
	tours := services.NewTourBuilder(provider, services.TourOptions{
		ProviderTimeout: cfg.Dispatch.ProviderTimeout,
		DrivingSpeedKmh: cfg.Dispatch.DrivingSpeedKmh,
		CyclingSpeedKmh: cfg.Dispatch.CyclingSpeedKmh,
	})

	mode, err := services.ParseAssignmentMode(cfg.Dispatch.AssignmentMode)
	if err != nil {
		return err
	}
	coordinator := services.NewDispatchCoordinator(
		services.NewClusterEngine(cfg.Dispatch.ProximityMeters, cfg.Dispatch.PriorityGrouping),
		tours,
		services.CoordinatorOptions{MaxPerCluster: cfg.Dispatch.MaxPerCluster, Mode: mode},
	)
	// Committed plans go to websocket clients of this instance and, with
	// Redis, to every other consumer of the plans channel.
	planHub := broadcast.NewHub()
	dispatcher := services.NewDispatcher(coordinator, st.tasks, st.vehicles, services.DispatcherOptions{
		Lock:      lock,
		Publisher: broadcast.FanOut{planHub, publisher},
		Hubs:      st.hubs,
		LockTTL:   cfg.Dispatch.LockTTL,
		SLAHours:  cfg.Dispatch.SLAHours,
	})

	var geocoder ports.Geocoder
	if cfg.ORSAPIKey != "" {
		g, err := geocode.NewORSGeocoder(cfg.ORSAPIKey, st.geocodes, geocode.Options{
			RatePerMinute: cfg.Dispatch.ProviderRatePerMinute,
		})
		if err != nil {
			return err
		}
		geocoder = g
	}

	if cfg.Schedule != "off" {
		sched, err := scheduler.New(cfg.Schedule, cfg.Dispatch.LockTTL, func(ctx context.Context) error {
			ctx = obs.WithRequestID(ctx, "scheduler")
			_, err := dispatcher.Run(ctx)
			if errors.Is(err, services.ErrCycleInProgress) {
				return nil
			}
			return err
		})
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			sched.Stop(stopCtx)
		}()
		log.Printf("Scheduler started expr=%q next=%s", cfg.Schedule, sched.Next().Format(time.RFC3339))
	}

	router := api.NewRouter(api.Deps{
		Tasks:      st.tasks,
		Vehicles:   st.vehicles,
		Geocoder:   geocoder,
		Dispatcher: dispatcher,
		Hubs:       st.hubs,
		Plans:      planHub,
		SLAHours:   cfg.Dispatch.SLAHours,
	})

	// Timeouts are tuned for forced replans (external API latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening addr=:%s", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore uses Postgres when DATABASE_URL is set and the seed file in
// memory otherwise.
func openStore(ctx context.Context, cfg config.Config) (store, func(), error) {
	if cfg.DatabaseURL == "" {
		data, err := repositories.LoadSeed(cfg.SeedPath, time.Now())
		if err != nil {
			return store{}, nil, err
		}
		repo := repositories.NewMemoryDispatchRepositoryFromSeed(data)
		log.Printf("Using in-memory store tasks=%d vehicles=%d hubs=%d", len(data.Tasks), len(data.Vehicles), len(data.Hubs))
		return store{
			tasks:    repo,
			vehicles: repo,
			hubs:     repo,
			trips:    cache.NewMemoryTripCache(cache.DefaultTripMaxAge),
			geocodes: cache.NewMemoryGeocodeCache(cache.DefaultGeocodeMaxAge),
		}, func() {}, nil
	}

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return store{}, nil, err
	}
	if err := initAndSeed(ctx, conn, cfg.SeedPath); err != nil {
		conn.Close()
		return store{}, nil, err
	}

	repo := repositories.NewSQLDispatchRepository(conn)
	return store{
		tasks:    repo,
		vehicles: repo,
		hubs:     repo,
		trips:    cache.NewSQLTripCache(conn, cache.DefaultTripMaxAge),
		geocodes: cache.NewSQLGeocodeCache(conn, cache.DefaultGeocodeMaxAge),
	}, func() { conn.Close() }, nil
}

func initAndSeed(ctx context.Context, conn *sql.DB, seedPath string) error {
	if err := repositories.InitSchema(ctx, conn); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if err := repositories.SeedFromJSON(ctx, conn, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}

// openCoordination returns the Redis lock and publisher when REDIS_URL is
// set; a single process gets a local lock and no publication.
func openCoordination(ctx context.Context, cfg config.Config) (ports.CycleLock, ports.PlanPublisher, func(), error) {
	if cfg.RedisURL == "" {
		return &redisstore.LocalLock{}, nil, func() {}, nil
	}

	rdb, err := redisstore.Open(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() {
		if err := rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			log.Printf("redis close failed: %v", err)
		}
	}
	return redisstore.NewRedisCycleLock(rdb, redisstore.DefaultLockKey),
		redisstore.NewPlanPublisher(rdb, redisstore.DefaultPlansChannel),
		closeFn, nil
}

// newRouteProvider prefers Mapbox, then the ORS matrix, then no provider
// (every tour estimated).
func newRouteProvider(cfg config.Config) ports.RouteProvider {
	if cfg.MapboxAccessToken != "" {
		p, err := routing.NewMapboxProvider(cfg.MapboxAccessToken, routing.MapboxOptions{
			RatePerMinute: cfg.Dispatch.ProviderRatePerMinute,
		})
		if err == nil {
			log.Println("Route provider: mapbox")
			return p
		}
		log.Printf("mapbox provider disabled: %v", err)
	}

	if cfg.ORSAPIKey != "" {
		p, err := routing.NewORSMatrixProvider(cfg.ORSAPIKey, routing.ORSOptions{
			RatePerMinute: cfg.Dispatch.ProviderRatePerMinute,
		})
		if err == nil {
			log.Println("Route provider: openrouteservice matrix")
			return p
		}
		log.Printf("ORS provider disabled: %v", err)
	}

	log.Println("Route provider: none (estimated tours only)")
	return routing.NullProvider{}
}
