package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lox/floatchat/internal/api"
	"github.com/lox/floatchat/internal/chat"
	"github.com/lox/floatchat/internal/fixtures"
	"github.com/lox/floatchat/internal/profile"
	"github.com/lox/floatchat/internal/scheduler"
	"github.com/lox/floatchat/internal/store"
)

func openStore(path string, logger *zap.Logger) (*sql.DB, *store.Store, error) {
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, nil, err
	}
	st := store.New(db)
	if err := st.Migrate(logger); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return db, st, nil
}

type ServeCmd struct {
	Port              string        `help:"HTTP server port." default:"8080" env:"PORT"`
	OpenAIKey         string        `name:"openai-api-key" help:"OpenAI API key for free-text chat answers." env:"OPENAI_API_KEY"`
	OpenAIModel       string        `name:"openai-model" help:"OpenAI chat model." default:"gpt-4o-mini" env:"OPENAI_MODEL"`
	AnalysisRetention time.Duration `help:"Keep finished analysis jobs this long (0 keeps forever)." default:"24h" env:"ANALYSIS_RETENTION"`
	ChatRetention     time.Duration `help:"Keep idle chat sessions this long (0 keeps forever)." default:"168h" env:"CHAT_RETENTION"`
	NoHousekeeping    bool          `help:"Disable scheduled pruning."`
}

func (c *ServeCmd) Run(g *Globals, logger *zap.Logger) error {
	db, st, err := openStore(g.DB, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	n, err := fixtures.Seed(ctx, st, fixtures.NewStatic())
	if err != nil {
		return err
	}
	logger.Info("fixtures: floats seeded", zap.Int("count", n))

	server := api.NewServer(st, c.Port, logger)
	if c.OpenAIKey != "" {
		llm, err := chat.NewLLM(c.OpenAIKey, c.OpenAIModel, logger)
		if err != nil {
			return err
		}
		server.SetResponder(llm)
		logger.Info("chat: LLM fallback enabled", zap.String("model", c.OpenAIModel))
	} else {
		logger.Info("chat: LLM fallback disabled (no OPENAI_API_KEY)")
	}

	runner := server.AnalysisRunner()
	if _, err := runner.Recover(ctx); err != nil {
		return err
	}

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error { return runner.Run(gctx) })

	if !c.NoHousekeeping {
		sched, err := scheduler.New(st, scheduler.Config{
			AnalysisRetention: c.AnalysisRetention,
			ChatRetention:     c.ChatRetention,
		}, logger)
		if err != nil {
			return err
		}
		grp.Go(func() error {
			sched.Run(gctx)
			return nil
		})
	} else {
		logger.Info("scheduler: housekeeping disabled (--no-housekeeping)")
	}

	grp.Go(func() error { return server.Run(gctx) })
	return grp.Wait()
}

type ProfileCmd struct {
	FloatID  string `arg:"" name:"float-id" help:"Float identifier."`
	Date     string `help:"Profile date (YYYY-MM-DD). Defaults to today in UTC."`
	MaxDepth int    `help:"Deepest sample in meters (100 to 11000)." default:"2000"`
	Format   string `help:"Output format." default:"table" enum:"table,csv,json"`
	Summary  bool   `help:"Print summary statistics instead of rows."`
}

func (c *ProfileCmd) Run(logger *zap.Logger) error {
	date := c.Date
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
	}
	if err := profile.CheckMaxDepth(c.MaxDepth); err != nil {
		return fmt.Errorf("invalid --max-depth: %w", err)
	}

	req := profile.NewRequest(c.FloatID, date, c.MaxDepth)
	rows := profile.Generate(req)
	logger.Debug("profile: generated", zap.String("float", req.FloatID), zap.String("date", req.Date), zap.Int("rows", len(rows)))

	if c.Summary {
		sum, err := profile.Summarize(rows)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	return writeRows(os.Stdout, c.Format, rows)
}

func writeRows(w io.Writer, format string, rows profile.Series) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "csv":
		cw := csv.NewWriter(w)
		cw.Write([]string{"depth", "temperature", "salinity"})
		for _, r := range rows {
			cw.Write([]string{
				strconv.Itoa(r.Depth),
				strconv.FormatFloat(r.Temperature, 'f', 2, 64),
				strconv.FormatFloat(r.Salinity, 'f', 2, 64),
			})
		}
		cw.Flush()
		return cw.Error()
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "DEPTH (m)\tTEMP (°C)\tSALINITY (PSU)\t")
		for _, r := range rows {
			fmt.Fprintf(tw, "%d\t%.2f\t%.2f\t\n", r.Depth, r.Temperature, r.Salinity)
		}
		return tw.Flush()
	}
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(g *Globals, logger *zap.Logger) error {
	db, st, err := openStore(g.DB, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	version, err := st.MigrationVersion()
	if err != nil {
		return err
	}
	logger.Info("migrations: database up to date", zap.String("db", g.DB), zap.Int("version", version))
	return nil
}
