package main

import (
	"github.com/S1D007/Chat-App-Backend/internal/config"
	"github.com/S1D007/Chat-App-Backend/internal/db"
	clog "github.com/S1D007/Chat-App-Backend/internal/log"
	"github.com/S1D007/Chat-App-Backend/internal/server"
	"github.com/S1D007/Chat-App-Backend/internal/service"
	"github.com/S1D007/Chat-App-Backend/internal/ws"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// .env 先于环境变量加载，本地开发和容器部署共用一套配置入口。
	_ = godotenv.Load()
	cfg := config.Load()
	clog.Init(cfg.Env)
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	gdb, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	hub := ws.NewHub()
	persister := ws.NewPersister(service.NewMessageService(gdb), 256)
	persister.Start()
	defer persister.Stop()

	r := server.SetupRouter(cfg, gdb, hub, persister)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server run")
	}
}
