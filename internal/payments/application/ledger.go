package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/deedhouse/deedhouse/internal/payments/domain"
	"github.com/deedhouse/deedhouse/internal/shared/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Ledger is the value-transfer service backing auction escrow. Balances are
// conserved: every move debits exactly what it credits.
type Ledger interface {
	// Deposit credits external value to an account, creating it on first use.
	Deposit(ctx context.Context, account uuid.UUID, amount int64) error
	// Transfer moves value between two accounts, failing without any
	// change when the source balance does not cover the amount.
	Transfer(ctx context.Context, from, to uuid.UUID, amount int64) error
	BalanceOf(ctx context.Context, account uuid.UUID) (int64, error)
}

type ledger struct {
	accounts domain.AccountRepository
}

func NewLedger(accounts domain.AccountRepository) Ledger {
	return &ledger{accounts: accounts}
}

func (l *ledger) Deposit(ctx context.Context, account uuid.UUID, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	acc, err := l.accounts.GetByID(ctx, account)
	if errors.Is(err, domain.ErrAccountNotFound) {
		acc = &domain.Account{ID: account}
	} else if err != nil {
		return fmt.Errorf("ledger: failed to load account %s: %w", account, err)
	}

	acc.Balance += amount
	if err := l.accounts.Save(ctx, acc); err != nil {
		return fmt.Errorf("ledger: failed to save account %s: %w", account, err)
	}
	log.Info("Deposit credited",
		zap.String("account", account.String()),
		zap.Int64("amount", amount),
		zap.Int64("balance", acc.Balance),
	)
	return nil
}

func (l *ledger) Transfer(ctx context.Context, from, to uuid.UUID, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	src, err := l.accounts.GetByID(ctx, from)
	if err != nil {
		return err
	}
	if src.Balance < amount {
		log.Warn("Transfer rejected: insufficient funds",
			zap.String("from", from.String()),
			zap.Int64("amount", amount),
			zap.Int64("balance", src.Balance),
		)
		return domain.ErrInsufficientFunds
	}
	dst, err := l.accounts.GetByID(ctx, to)
	if errors.Is(err, domain.ErrAccountNotFound) {
		dst = &domain.Account{ID: to}
	} else if err != nil {
		return fmt.Errorf("ledger: failed to load account %s: %w", to, err)
	}

	src.Balance -= amount
	dst.Balance += amount
	if err := l.accounts.SaveAll(ctx, src, dst); err != nil {
		return fmt.Errorf("ledger: failed to save transfer %s -> %s: %w", from, to, err)
	}
	log.Info("Transfer committed",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Int64("amount", amount),
	)
	return nil
}

func (l *ledger) BalanceOf(ctx context.Context, account uuid.UUID) (int64, error) {
	acc, err := l.accounts.GetByID(ctx, account)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}
