package main

import (
	"context"
	"log"

	"pokerstats/config"
	"pokerstats/internal/db"
	"pokerstats/internal/nats"
	"pokerstats/internal/server"
	"pokerstats/internal/totals"
	"pokerstats/internal/tournament"
	temporal "pokerstats/internal/workflow"

	"go.temporal.io/sdk/client"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	conn, err := db.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	repo := db.NewRepository(conn)

	natsConn, js, err := nats.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer natsConn.Close()

	if err := nats.ConfigureStream(js, &cfg.NATS.Stream); err != nil {
		log.Fatalf("Failed to configure JetStream: %v", err)
	}

	c, err := client.Dial(client.Options{
		HostPort: cfg.Temporal.HostPort,
	})
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer c.Close()

	workerCtx := config.WithJetStream(context.Background(), js)
	w := temporal.NewWorker(workerCtx, c, cfg.Temporal.TaskQueue, temporal.NewActivities(repo, cfg.NATS.SubjectPrefix))
	if err := w.Start(); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}
	defer w.Stop()

	engine := tournament.NewService(repo,
		tournament.WithNotifier(nats.NewEventNotifier(js, cfg.NATS.SubjectPrefix)))
	srv := server.New(engine, totals.NewCache(repo), repo, temporal.NewScheduler(c, cfg.Temporal.TaskQueue))

	if err := server.StartServer(cfg, srv.Router()); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
