package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ERRORIK404/custom_calc/database"
	agentapplication "github.com/ERRORIK404/custom_calc/internal/agent_application"
	calculatorapplication "github.com/ERRORIK404/custom_calc/internal/calculator_application"
	conf "github.com/ERRORIK404/custom_calc/pkg/config"
	"github.com/ERRORIK404/custom_calc/pkg/evaluator"
	"github.com/ERRORIK404/custom_calc/pkg/formulas"
	"github.com/ERRORIK404/custom_calc/pkg/logger"
	structs "github.com/ERRORIK404/custom_calc/pkg/structs"
)

func main() {
	if err := run(); err != nil {
		slog.Error("custom_calc stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := conf.LoadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.For(log, logger.AreaDatabase).Info("database opened", "path", cfg.DBPath)

	var presets []structs.CustomFormula
	if cfg.FormulasFile != "" {
		presets, err = formulas.LoadPresetFile(cfg.FormulasFile)
		if err != nil {
			return err
		}
		logger.For(log, logger.AreaConfig).Info("formula presets loaded", "file", cfg.FormulasFile, "count", len(presets))
	}

	g, ctx := errgroup.WithContext(ctx)
	local := evaluator.NewLocal(cfg.Precision)
	var ev evaluator.Evaluator = local

	// в режиме grpc выражения считает агент, он поднимается в этом же процессе
	if cfg.Evaluator == conf.EvaluatorGRPC {
		agentLog := logger.For(log, logger.AreaGRPC)
		g.Go(func() error {
			return agentapplication.Run(ctx, cfg.GRPCAddr, agentapplication.NewServer(local, agentLog), agentLog)
		})
		client, err := agentapplication.Dial(cfg.GRPCAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		ev = client
	}

	server, err := calculatorapplication.New(cfg, db, ev, presets, log)
	if err != nil {
		return err
	}
	g.Go(func() error { return server.RunServer(ctx) })
	return g.Wait()
}
