package application

import (
	"context"
	"fmt"

	"github.com/deedhouse/deedhouse/internal/payments/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EngineTreasury binds the ledger to the auction engine's escrow account.
// It satisfies the engine's Treasury port: Collect pulls the value attached
// to a bid into escrow, Disburse pays escrowed value back out, Strand
// records escrowed value owed to a party whose disbursement failed.
type EngineTreasury struct {
	ledger Ledger
	claims domain.ClaimRepository
	escrow uuid.UUID
}

func NewEngineTreasury(ledger Ledger, claims domain.ClaimRepository, escrowAccount uuid.UUID) *EngineTreasury {
	return &EngineTreasury{ledger: ledger, claims: claims, escrow: escrowAccount}
}

func (t *EngineTreasury) Collect(ctx context.Context, from uuid.UUID, amount int64) error {
	return t.ledger.Transfer(ctx, from, t.escrow, amount)
}

func (t *EngineTreasury) Disburse(ctx context.Context, to uuid.UUID, amount int64) error {
	return t.ledger.Transfer(ctx, t.escrow, to, amount)
}

// Strand records amount as a pending claim for account. The value stays in
// escrow until the claimant withdraws it.
func (t *EngineTreasury) Strand(ctx context.Context, account uuid.UUID, amount int64) error {
	if err := t.claims.Add(ctx, account, amount); err != nil {
		return fmt.Errorf("treasury: failed to record claim for %s: %w", account, err)
	}
	log.Warn("Escrowed value stranded, claim recorded",
		zap.String("account", account.String()),
		zap.Int64("amount", amount),
	)
	return nil
}

// ClaimOf reports the pending claim of an account.
func (t *EngineTreasury) ClaimOf(ctx context.Context, account uuid.UUID) (int64, error) {
	return t.claims.Get(ctx, account)
}

// WithdrawClaim pays an account its pending claim out of escrow. The claim
// clears only after the disbursement succeeds; a rejected withdrawal leaves
// it intact for another attempt.
func (t *EngineTreasury) WithdrawClaim(ctx context.Context, account uuid.UUID) (int64, error) {
	amount, err := t.claims.Get(ctx, account)
	if err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, domain.ErrNoClaim
	}
	if err := t.ledger.Transfer(ctx, t.escrow, account, amount); err != nil {
		return 0, fmt.Errorf("treasury: failed to pay claim to %s: %w", account, err)
	}
	if err := t.claims.Clear(ctx, account); err != nil {
		return 0, fmt.Errorf("treasury: failed to clear claim for %s: %w", account, err)
	}
	log.Info("Claim withdrawn",
		zap.String("account", account.String()),
		zap.Int64("amount", amount),
	)
	return amount, nil
}

// Escrowed reports the total value currently held in escrow.
func (t *EngineTreasury) Escrowed(ctx context.Context) (int64, error) {
	return t.ledger.BalanceOf(ctx, t.escrow)
}
