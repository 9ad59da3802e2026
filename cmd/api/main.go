package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"tessera.org/internal/authz"
	"tessera.org/internal/httpapi"
	"tessera.org/internal/obs"
	"tessera.org/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("TESSERA_PG_DSN")
	if dsn == "" {
		log.Fatal("missing TESSERA_PG_DSN")
	}
	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	selector, err := authz.NewSelector(store, store)
	if err != nil {
		log.Fatalf("selector: %v", err)
	}
	evaluator, err := authz.NewEvaluator(store, store.Delegates())
	if err != nil {
		log.Fatalf("evaluator: %v", err)
	}
	service, err := authz.NewService(store, store, store.Delegates())
	if err != nil {
		log.Fatalf("service: %v", err)
	}
	filters, err := authz.NewFilterBuilder(store)
	if err != nil {
		log.Fatalf("filters: %v", err)
	}

	api := httpapi.New(httpapi.Deps{
		Ready:     httpapi.ReadyProbe{DB: store.DB()},
		Selector:  selector,
		Evaluator: evaluator,
		Service:   service,
		Filters:   filters,
		Store:     store,
	}, version)

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting tessera-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	var grpcSrv *grpc.Server
	if addr := os.Getenv("TESSERA_GRPC_ADDR"); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		grpcSrv = grpc.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcSrv, httpapi.NewGRPCServer(httpapi.ReadyProbe{DB: store.DB()}))
		go func() {
			log.Printf("gRPC health on %s", addr)
			if err := grpcSrv.Serve(lis); err != nil {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	log.Println("Stopped")
}
