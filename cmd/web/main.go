package main

import (
	"log"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/dsarena/dsarena/internal/web"
	zlog "github.com/dsarena/dsarena/pkg/log"
)

func initLogger() *zap.Logger {
	if path := os.Getenv("DSA_LOG_FILE"); path != "" {
		return zlog.InitProdFile(path)
	}
	return zlog.InitDev()
}

func run() error {
	logger := initLogger()
	defer zlog.Sync()

	return web.Run(logger)
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("%+v\n", err)
	}
}
