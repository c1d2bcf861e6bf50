package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"equipment_lending/db"
	"equipment_lending/lending"
	"equipment_lending/metrics"
	"equipment_lending/models"

	"github.com/rs/zerolog"
)

// Ledger is the persistence the lifecycle engine runs on.
type Ledger interface {
	CreateBorrowRequest(ctx context.Context, in db.SubmitInput) (*models.BorrowRequest, error)
	FindBorrowRequestByID(ctx context.Context, id string) (*models.BorrowRequest, error)
	ListBorrowRequests(ctx context.Context, q db.BorrowRequestQuery) ([]models.BorrowRequest, error)
	Transition(ctx context.Context, in db.TransitionInput) (*models.BorrowRequest, error)
}

// LendingService runs the borrow-request lifecycle. Every call is checked
// against the access policy before it reaches the ledger.
type LendingService struct {
	ledger Ledger
	log    zerolog.Logger
}

func NewLendingService(ledger Ledger, log zerolog.Logger) *LendingService {
	return &LendingService{ledger: ledger, log: log.With().Str("service", "lending").Logger()}
}

const maxTextLen = 500

type SubmitRequest struct {
	EquipmentID string
	Quantity    int
	Purpose     string
}

// Submit creates a PENDING request. Availability is checked but not reserved.
func (s *LendingService) Submit(ctx context.Context, actor lending.Actor, in SubmitRequest) (*models.BorrowRequest, error) {
	br, err := s.submit(ctx, actor, in)
	metrics.RequestsSubmitted.WithLabelValues(lending.Kind(err)).Inc()
	if err != nil {
		s.log.Debug().Err(err).Str("user", actor.UserID).Str("equipment", in.EquipmentID).Msg("submit refused")
		return nil, err
	}
	s.log.Info().
		Str("request", br.ID).
		Str("user", actor.UserID).
		Str("equipment", br.EquipmentID).
		Int("quantity", br.Quantity).
		Msg("borrow request submitted")
	return br, nil
}

func (s *LendingService) submit(ctx context.Context, actor lending.Actor, in SubmitRequest) (*models.BorrowRequest, error) {
	if err := actor.Allow(lending.OpSubmitRequest); err != nil {
		return nil, err
	}
	if in.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1, got %d", lending.ErrInvalidQuantity, in.Quantity)
	}
	in.EquipmentID = strings.TrimSpace(in.EquipmentID)
	if in.EquipmentID == "" {
		return nil, fmt.Errorf("%w: equipmentId is required", lending.ErrValidation)
	}
	in.Purpose = strings.TrimSpace(in.Purpose)
	if utf8.RuneCountInString(in.Purpose) > maxTextLen {
		return nil, fmt.Errorf("%w: purpose longer than %d characters", lending.ErrValidation, maxTextLen)
	}
	return s.ledger.CreateBorrowRequest(ctx, db.SubmitInput{
		UserID:      actor.UserID,
		EquipmentID: in.EquipmentID,
		Quantity:    in.Quantity,
		Purpose:     in.Purpose,
	})
}

// Scope selects which requests List returns.
type Scope string

const (
	ScopeMine    Scope = "mine"
	ScopePending Scope = "pending"
	ScopeAll     Scope = "all"
)

func ParseScope(s string) (Scope, error) {
	switch sc := Scope(strings.ToLower(strings.TrimSpace(s))); sc {
	case ScopeMine, ScopePending, ScopeAll:
		return sc, nil
	case "":
		return ScopeMine, nil
	}
	return "", fmt.Errorf("%w: unknown scope %q", lending.ErrValidation, s)
}

func (s *LendingService) List(ctx context.Context, actor lending.Actor, scope Scope) ([]models.BorrowRequest, error) {
	q := db.BorrowRequestQuery{}
	switch scope {
	case ScopeMine:
		if err := actor.Allow(lending.OpViewOwnRequests); err != nil {
			return nil, err
		}
		q.UserID = actor.UserID
	case ScopePending:
		if err := actor.Allow(lending.OpViewAllRequests); err != nil {
			return nil, err
		}
		q.Statuses = []lending.Status{lending.StatusPending}
	case ScopeAll:
		if err := actor.Allow(lending.OpViewAllRequests); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown scope %q", lending.ErrValidation, scope)
	}
	return s.ledger.ListBorrowRequests(ctx, q)
}

func (s *LendingService) Get(ctx context.Context, actor lending.Actor, id string) (*models.BorrowRequest, error) {
	br, err := s.ledger.FindBorrowRequestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := actor.CanView(br.UserID); err != nil {
		return nil, err
	}
	return br, nil
}

// Transition applies a reviewer action to a request. notes is recorded on
// approve and reject and ignored otherwise.
func (s *LendingService) Transition(ctx context.Context, actor lending.Actor, id string, action lending.Action, notes *string) (*models.BorrowRequest, error) {
	br, err := s.transition(ctx, actor, id, action, notes)
	metrics.RequestTransitions.WithLabelValues(string(action), lending.Kind(err)).Inc()
	if err != nil {
		s.log.Debug().Err(err).Str("request", id).Str("action", string(action)).Msg("transition refused")
		return nil, err
	}
	s.log.Info().
		Str("request", br.ID).
		Str("action", string(action)).
		Str("status", string(br.Status)).
		Str("by", actor.UserID).
		Msg("borrow request updated")
	return br, nil
}

func (s *LendingService) transition(ctx context.Context, actor lending.Actor, id string, action lending.Action, notes *string) (*models.BorrowRequest, error) {
	if err := actor.Allow(lending.OpTransitionRequest); err != nil {
		return nil, err
	}
	if notes != nil {
		n := strings.TrimSpace(*notes)
		if utf8.RuneCountInString(n) > maxTextLen {
			return nil, fmt.Errorf("%w: notes longer than %d characters", lending.ErrValidation, maxTextLen)
		}
		notes = &n
	}
	return s.ledger.Transition(ctx, db.TransitionInput{
		RequestID:  id,
		Action:     action,
		ReviewerID: actor.UserID,
		Notes:      notes,
	})
}

func (s *LendingService) Approve(ctx context.Context, actor lending.Actor, id string, notes *string) (*models.BorrowRequest, error) {
	return s.Transition(ctx, actor, id, lending.ActionApprove, notes)
}

func (s *LendingService) Reject(ctx context.Context, actor lending.Actor, id string, notes *string) (*models.BorrowRequest, error) {
	return s.Transition(ctx, actor, id, lending.ActionReject, notes)
}

func (s *LendingService) MarkBorrowed(ctx context.Context, actor lending.Actor, id string) (*models.BorrowRequest, error) {
	return s.Transition(ctx, actor, id, lending.ActionMarkBorrowed, nil)
}

func (s *LendingService) MarkReturned(ctx context.Context, actor lending.Actor, id string) (*models.BorrowRequest, error) {
	return s.Transition(ctx, actor, id, lending.ActionMarkReturned, nil)
}
