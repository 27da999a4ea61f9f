package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Globals struct {
	DB       string `help:"Path to SQLite database." default:"data/floatchat.db" env:"FLOATCHAT_DB"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info" env:"LOG_LEVEL" enum:"debug,info,warn,error"`
}

type CLI struct {
	Globals

	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Path to .env file'"`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the web server (default)."`
	Profile ProfileCmd `cmd:"" help:"Print a synthetic depth profile."`
	Migrate MigrateCmd `cmd:"" help:"Apply database migrations and exit."`
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("floatchat"),
		kong.Description("ARGO float explorer: synthetic depth profiles, dashboard, map and chat."),
		kong.UsageOnError(),
	)

	logger, err := newLogger(cli.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	err = ctx.Run(&cli.Globals, logger)
	if err != nil {
		logger.Error("command failed", zap.String("command", ctx.Command()), zap.Error(err))
	}
	ctx.FatalIfErrorf(err)
}
