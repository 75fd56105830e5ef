// Package plansync keeps the remote plan catalog aligned with the local one.
// The sync is one-directional per field: plan definitions flow outward (local
// plans missing remotely are created there), pricing flows inward (remote
// amount/currency overwrite local rows, the provider being the billing
// authority once a plan exists).
package plansync

import (
	"context"

	"github.com/gobill/billing-service/internal/domain/models"
	"github.com/gobill/billing-service/internal/domain/ports"
)

// Statement descriptors are capped by the provider.
const statementMaxLen = 20

type Syncer struct {
	db      ports.DBTX
	txm     ports.TransactionManager
	plans   ports.PlanRepository
	gateway ports.PaymentGateway
	logger  ports.Logger
}

func NewSyncer(db ports.DBTX, txm ports.TransactionManager, plans ports.PlanRepository, gateway ports.PaymentGateway, logger ports.Logger) *Syncer {
	return &Syncer{
		db:      db,
		txm:     txm,
		plans:   plans,
		gateway: gateway,
		logger:  logger,
	}
}

// Sync pushes missing payable plans to the provider and pulls remote pricing
// into local rows. Safe to run repeatedly; a fully synced catalog is a no-op.
func (s *Syncer) Sync(ctx context.Context) error {
	remotes, err := s.gateway.ListPlans(ctx)
	if err != nil {
		return err
	}
	remoteByCode := make(map[string]*ports.RemotePlan, len(remotes))
	for _, r := range remotes {
		remoteByCode[r.Code] = r
	}

	locals, err := s.plans.ListActive(ctx, s.db)
	if err != nil {
		return err
	}

	var pushed, pulled int
	for _, plan := range locals {
		remote, exists := remoteByCode[plan.Code]
		if !exists {
			if !plan.IsPayable() {
				continue
			}
			if err := s.pushPlan(ctx, plan); err != nil {
				return err
			}
			pushed++
			continue
		}
		updated, err := s.pullPricing(ctx, plan, remote)
		if err != nil {
			return err
		}
		if updated {
			pulled++
		}
	}

	s.logger.Info("plan catalog synced",
		ports.Int("local_plans", len(locals)),
		ports.Int("pushed", pushed),
		ports.Int("pulled", pulled))
	return nil
}

func (s *Syncer) pushPlan(ctx context.Context, plan *models.Plan) error {
	_, err := s.gateway.CreatePlan(ctx, ports.PlanCreateRequest{
		Code:          plan.Code,
		Name:          plan.Name,
		Statement:     statement(plan.Name),
		Amount:        plan.Amount,
		Currency:      plan.Currency,
		Interval:      string(plan.Interval),
		IntervalCount: int64(plan.IntervalCount),
		TrialDays:     int64(plan.TrialDays),
	})
	if err != nil {
		return err
	}
	s.logger.Info("plan pushed to provider", ports.String("plan", plan.Code))
	return nil
}

func (s *Syncer) pullPricing(ctx context.Context, plan *models.Plan, remote *ports.RemotePlan) (bool, error) {
	if plan.Amount == remote.Amount && (remote.Currency == "" || plan.Currency == remote.Currency) {
		return false, nil
	}

	plan.Amount = remote.Amount
	if remote.Currency != "" {
		plan.Currency = remote.Currency
	}
	err := s.txm.WithTransaction(ctx, func(ctx context.Context, tx ports.DBTX) error {
		return s.plans.Update(ctx, tx, plan)
	})
	if err != nil {
		return false, err
	}
	s.logger.Info("plan pricing pulled from provider",
		ports.String("plan", plan.Code),
		ports.Int64("amount", plan.Amount))
	return true, nil
}

// statement truncates on rune boundaries so a multi-byte name cannot produce
// an invalid UTF-8 descriptor.
func statement(name string) string {
	runes := []rune(name)
	if len(runes) > statementMaxLen {
		return string(runes[:statementMaxLen])
	}
	return name
}
