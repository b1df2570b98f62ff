package main

import (
	"time"

	"github.com/propertyloyalty/points-backend/internal/accounts"
	"github.com/propertyloyalty/points-backend/internal/directory"
	"github.com/propertyloyalty/points-backend/internal/ledger"
	"github.com/propertyloyalty/points-backend/internal/settlements"
	"github.com/propertyloyalty/points-backend/internal/sharesetting"
	"github.com/propertyloyalty/points-backend/internal/transfers"
	"github.com/propertyloyalty/points-backend/pkg/config"
	"github.com/propertyloyalty/points-backend/pkg/db"
	"github.com/propertyloyalty/points-backend/pkg/logger"
	"github.com/propertyloyalty/points-backend/pkg/metrics"
)

type services struct {
	engine        *transfers.Engine
	ledger        ledger.Service
	settlements   settlements.Service
	shareSettings sharesetting.Service
}

func buildServices(cfg *config.Config, loc *time.Location, logg *logger.Logger, client *db.Client, m *metrics.LedgerMetrics) (*services, error) {
	gdb := client.DB()
	policy := accounts.NewRolloverPolicy(loc, time.Now)

	accountRepo := accounts.NewRepository(gdb)
	store, err := accounts.NewStore(accountRepo, client, policy)
	if err != nil {
		return nil, err
	}

	ledgerRepo := ledger.NewRepository(gdb)
	writer, err := ledger.NewWriter(ledgerRepo, accountRepo, m)
	if err != nil {
		return nil, err
	}
	ledgerService, err := ledger.NewService(ledgerRepo, policy)
	if err != nil {
		return nil, err
	}

	dir, err := directory.NewService(directory.NewRepository(gdb))
	if err != nil {
		return nil, err
	}

	orderRepo := settlements.NewRepository(gdb)
	settlementService, err := settlements.NewService(settlements.ServiceParams{
		Repo:      orderRepo,
		Directory: dir,
		Tx:        client,
		Logger:    logg,
		Metrics:   m,
	})
	if err != nil {
		return nil, err
	}

	shareSettings, err := sharesetting.NewService(sharesetting.NewRepository(gdb), client, cfg.Points.DefaultOwnerRate)
	if err != nil {
		return nil, err
	}

	split, err := transfers.SplitPolicyByName(cfg.Points.SplitPolicy)
	if err != nil {
		return nil, err
	}
	engine, err := transfers.NewEngine(transfers.EngineParams{
		Tx:        client,
		Accounts:  store,
		Writer:    writer,
		Orders:    orderRepo,
		Redeems:   transfers.NewRedeemRepository(gdb),
		Directory: dir,
		Split:     split,
		Logger:    logg,
		Metrics:   m,
	})
	if err != nil {
		return nil, err
	}

	return &services{
		engine:        engine,
		ledger:        ledgerService,
		settlements:   settlementService,
		shareSettings: shareSettings,
	}, nil
}
