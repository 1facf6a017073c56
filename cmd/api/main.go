package main

import (
    "context"
    "log"
    "net/http"
    "os"
    "time"

    "github.com/joho/godotenv"
    "github.com/sirupsen/logrus"

    "cargoroute/internal/api"
    "cargoroute/internal/store"
)

func main() {
    _ = godotenv.Load()

    logrus.SetFormatter(&logrus.JSONFormatter{})
    if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
        logrus.SetLevel(lvl)
    }

    srv, err := api.NewServer()
    if err != nil {
        log.Fatalf("failed to init server: %v", err)
    }

    ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    defer cancel()
    if err := store.Seed(ctx, srv.Store()); err != nil {
        log.Fatalf("seed failed: %v", err)
    }

    addr := ":8080"
    if v := os.Getenv("PORT"); v != "" {
        addr = ":" + v
    }

    httpSrv := &http.Server{
        Addr:              addr,
        Handler:           logMiddleware(srv.Routes()),
        ReadHeaderTimeout: 5 * time.Second,
    }

    log.Printf("API listening on %s", addr)
    if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
        log.Fatalf("server error: %v", err)
    }
}

func logMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        next.ServeHTTP(w, r)
        dur := time.Since(start)
        log.Printf("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, dur)
    })
}
