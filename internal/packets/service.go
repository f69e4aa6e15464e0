package packets

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/tailorflow/tailorflow/internal/platform/httpx"
	"github.com/tailorflow/tailorflow/internal/shared"
)

// Service manages packet picking.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns packets newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Packet, error) {
	list, err := s.repo.ListPackets(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

// Get fetches one packet.
func (s *Service) Get(ctx context.Context, id string) (Packet, error) {
	return s.repo.GetPacket(ctx, id)
}

// Start marks picking as begun. Unassigned packets are claimed by the actor.
func (s *Service) Start(ctx context.Context, id string, actor *shared.Principal) (Packet, error) {
	return s.transition(ctx, id, actor, func(p *Packet, now time.Time) error {
		if !p.Status.CanStart() {
			return fmt.Errorf("%w: %s", ErrInvalidTransition, p.Status)
		}
		p.Status = StatusInProgress
		p.StartedAt = &now
		return nil
	})
}

// Complete marks picking as done.
func (s *Service) Complete(ctx context.Context, id string, actor *shared.Principal) (Packet, error) {
	return s.transition(ctx, id, actor, func(p *Packet, now time.Time) error {
		if !p.Status.CanComplete() {
			return fmt.Errorf("%w: %s", ErrInvalidTransition, p.Status)
		}
		if p.StartedAt == nil {
			p.StartedAt = &now
		}
		p.Status = StatusCompleted
		p.CompletedAt = &now
		return nil
	})
}

func (s *Service) transition(ctx context.Context, id string, actor *shared.Principal, apply func(*Packet, time.Time) error) (Packet, error) {
	if actor == nil {
		return Packet{}, httpx.ErrUnauthorized
	}
	var out Packet
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetPacketForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.AssignedTo != "" && p.AssignedTo != actor.UserID {
			return ErrNotAssignee
		}
		now := s.now()
		if err := apply(&p, now); err != nil {
			return err
		}
		if p.AssignedTo == "" {
			p.AssignedTo = actor.UserID
			p.AssignedToName = actor.DisplayName()
		}
		p.UpdatedAt = now
		if err := tx.UpdatePacket(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return Packet{}, err
	}
	s.logger.Info("packet updated",
		slog.String("packet_id", out.ID),
		slog.String("status", string(out.Status)),
		slog.String("actor", actor.UserID),
	)
	return out, nil
}
