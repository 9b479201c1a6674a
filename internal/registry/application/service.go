package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deedhouse/deedhouse/internal/registry/domain"
	"github.com/deedhouse/deedhouse/internal/shared/events"
	"github.com/deedhouse/deedhouse/internal/shared/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// RegistryService is the public contract of the deed registry. The auction
// engine consumes it as an injected capability; it never reaches into the
// repository directly.
type RegistryService interface {
	// Register creates a deed with the caller as initial holder.
	Register(ctx context.Context, caller uuid.UUID, id int64, uri string) error
	// OwnerOf returns the current holder of a registered deed.
	OwnerOf(ctx context.Context, id int64) (uuid.UUID, error)
	// Transfer moves custody of a deed from its current holder to another
	// identity. The caller must be the holder or an approved custodian.
	Transfer(ctx context.Context, caller, from, to uuid.UUID, id int64) error
	// Approve lets holder designate operator as custodian for its deeds.
	Approve(ctx context.Context, holder, operator uuid.UUID) error
	// URIOf returns the metadata URI of a registered deed.
	URIOf(ctx context.Context, id int64) (string, error)
}

type registryService struct {
	deeds  domain.DeedRepository
	events events.Publisher
	now    func() time.Time
}

func NewRegistryService(deeds domain.DeedRepository, publisher events.Publisher) RegistryService {
	return &registryService{
		deeds:  deeds,
		events: publisher,
		now:    time.Now,
	}
}

func (s *registryService) Register(ctx context.Context, caller uuid.UUID, id int64, uri string) error {
	if uri == "" {
		return domain.ErrEmptyURI
	}
	_, err := s.deeds.GetByID(ctx, id)
	if err == nil {
		log.Warn("Registration rejected: deed already exists",
			zap.Int64("deedID", id),
			zap.String("caller", caller.String()),
		)
		return domain.ErrDeedAlreadyRegistered
	}
	if !errors.Is(err, domain.ErrDeedNotFound) {
		return fmt.Errorf("registry: failed to look up deed %d: %w", id, err)
	}

	deed := domain.NewDeed(id, caller, uri, s.now())
	if err := s.deeds.Save(ctx, deed); err != nil {
		return fmt.Errorf("registry: failed to save deed %d: %w", id, err)
	}

	log.Info("Deed registered",
		zap.Int64("deedID", id),
		zap.String("holder", caller.String()),
	)
	events.Emit(s.events, events.Event{
		Kind:  events.DeedRegistered,
		Actor: caller,
		Deed:  id,
	})
	return nil
}

func (s *registryService) OwnerOf(ctx context.Context, id int64) (uuid.UUID, error) {
	deed, err := s.deeds.GetByID(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	return deed.Holder, nil
}

func (s *registryService) URIOf(ctx context.Context, id int64) (string, error) {
	deed, err := s.deeds.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return deed.URI, nil
}

func (s *registryService) Transfer(ctx context.Context, caller, from, to uuid.UUID, id int64) error {
	deed, err := s.deeds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if deed.Holder != from {
		log.Warn("Transfer rejected: not the holder",
			zap.Int64("deedID", id),
			zap.String("from", from.String()),
			zap.String("holder", deed.Holder.String()),
		)
		return domain.ErrNotHolder
	}
	if caller != from {
		approved, err := s.deeds.IsApproved(ctx, from, caller)
		if err != nil {
			return fmt.Errorf("registry: failed to check approval for deed %d: %w", id, err)
		}
		if !approved {
			log.Warn("Transfer rejected: caller not authorized",
				zap.Int64("deedID", id),
				zap.String("caller", caller.String()),
			)
			return domain.ErrNotAuthorized
		}
	}

	deed.Holder = to
	if err := s.deeds.Save(ctx, deed); err != nil {
		return fmt.Errorf("registry: failed to save deed %d after transfer: %w", id, err)
	}

	log.Info("Deed transferred",
		zap.Int64("deedID", id),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
	events.Emit(s.events, events.Event{
		Kind:  events.DeedTransferred,
		Actor: caller,
		Deed:  id,
	})
	return nil
}

func (s *registryService) Approve(ctx context.Context, holder, operator uuid.UUID) error {
	if err := s.deeds.SaveApproval(ctx, holder, operator); err != nil {
		return fmt.Errorf("registry: failed to save approval: %w", err)
	}
	log.Info("Custodian approved",
		zap.String("holder", holder.String()),
		zap.String("operator", operator.String()),
	)
	return nil
}
