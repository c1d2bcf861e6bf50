package db

import (
	"context"
	"errors"
	"sync"
	"testing"

	"equipment_lending/lending"
)

func TestLifecycleWorkedExample(t *testing.T) {
	r := newTestRepo(t)
	student := mustUser(t, r, "alice", lending.RoleStudent)
	e := mustEquipment(t, r, "Projector", 5)

	br := mustSubmit(t, r, student.ID, e.ID, 3)
	if br.Status != lending.StatusPending {
		t.Fatalf("expected PENDING, got %s", br.Status)
	}
	if got := available(t, r, e.ID); got != 5 {
		t.Fatalf("submit must not reserve: available=%d", got)
	}

	br = mustTransition(t, r, br.ID, lending.ActionApprove)
	if br.Status != lending.StatusApproved || available(t, r, e.ID) != 2 {
		t.Fatalf("after approve: status=%s available=%d", br.Status, available(t, r, e.ID))
	}
	assertInvariant(t, r, e.ID)

	br = mustTransition(t, r, br.ID, lending.ActionMarkBorrowed)
	if br.Status != lending.StatusBorrowed || br.BorrowDate == nil {
		t.Fatalf("after borrowed: status=%s borrowDate=%v", br.Status, br.BorrowDate)
	}
	if got := available(t, r, e.ID); got != 2 {
		t.Fatalf("borrow must not change availability: %d", got)
	}

	br = mustTransition(t, r, br.ID, lending.ActionMarkReturned)
	if br.Status != lending.StatusReturned || br.ReturnDate == nil {
		t.Fatalf("after returned: status=%s returnDate=%v", br.Status, br.ReturnDate)
	}
	if got := available(t, r, e.ID); got != 5 {
		t.Fatalf("round trip should restore availability, got %d", got)
	}
	assertInvariant(t, r, e.ID)
	if br.Equipment == nil || br.User == nil {
		t.Fatalf("expected preloaded references")
	}
}

func TestSubmitOverAvailability(t *testing.T) {
	r := newTestRepo(t)
	student := mustUser(t, r, "bob", lending.RoleStudent)
	e := mustEquipment(t, r, "Microscope", 2)

	_, err := r.CreateBorrowRequest(context.Background(), SubmitInput{UserID: student.ID, EquipmentID: e.ID, Quantity: 3})
	if !errors.Is(err, lending.ErrInsufficientAvailability) {
		t.Fatalf("expected ErrInsufficientAvailability, got %v", err)
	}
	_, err = r.CreateBorrowRequest(context.Background(), SubmitInput{UserID: student.ID, EquipmentID: "missing", Quantity: 1})
	if !errors.Is(err, lending.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPendingRequestsMayOversubscribe(t *testing.T) {
	r := newTestRepo(t)
	s1 := mustUser(t, r, "s1", lending.RoleStudent)
	s2 := mustUser(t, r, "s2", lending.RoleStudent)
	e := mustEquipment(t, r, "Camera", 2)

	first := mustSubmit(t, r, s1.ID, e.ID, 2)
	second := mustSubmit(t, r, s2.ID, e.ID, 2)

	mustTransition(t, r, first.ID, lending.ActionApprove)
	_, err := r.Transition(context.Background(), TransitionInput{RequestID: second.ID, Action: lending.ActionApprove})
	if !errors.Is(err, lending.ErrInsufficientAvailability) {
		t.Fatalf("approval re-check should fail, got %v", err)
	}
	still, err := r.FindBorrowRequestByID(context.Background(), second.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if still.Status != lending.StatusPending {
		t.Fatalf("failed approval must leave request PENDING, got %s", still.Status)
	}
	assertInvariant(t, r, e.ID)
}

func TestConcurrentApprovalsOfLastUnit(t *testing.T) {
	r := newTestRepo(t)
	s1 := mustUser(t, r, "c1", lending.RoleStudent)
	s2 := mustUser(t, r, "c2", lending.RoleStudent)
	e := mustEquipment(t, r, "Tripod", 1)
	reqs := []string{
		mustSubmit(t, r, s1.ID, e.ID, 1).ID,
		mustSubmit(t, r, s2.ID, e.ID, 1).ID,
	}

	var wg sync.WaitGroup
	errs := make([]error, len(reqs))
	for i, id := range reqs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = r.Transition(context.Background(), TransitionInput{RequestID: id, Action: lending.ActionApprove})
		}(i, id)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, lending.ErrInsufficientAvailability):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || short != 1 {
		t.Fatalf("expected one success and one ErrInsufficientAvailability, got ok=%d short=%d", ok, short)
	}
	if got := available(t, r, e.ID); got != 0 {
		t.Fatalf("available should be 0, got %d", got)
	}
	assertInvariant(t, r, e.ID)
}

func TestRejectOnlyFromPending(t *testing.T) {
	r := newTestRepo(t)
	student := mustUser(t, r, "dana", lending.RoleStudent)
	e := mustEquipment(t, r, "Laptop", 10)

	// drive one request into each non-PENDING status
	paths := map[lending.Status][]lending.Action{
		lending.StatusApproved: {lending.ActionApprove},
		lending.StatusRejected: {lending.ActionReject},
		lending.StatusBorrowed: {lending.ActionApprove, lending.ActionMarkBorrowed},
		lending.StatusReturned: {lending.ActionApprove, lending.ActionMarkBorrowed, lending.ActionMarkReturned},
	}
	for status, path := range paths {
		br := mustSubmit(t, r, student.ID, e.ID, 1)
		for _, a := range path {
			br = mustTransition(t, r, br.ID, a)
		}
		if br.Status != status {
			t.Fatalf("setup: expected %s, got %s", status, br.Status)
		}
		notes := "too late"
		_, err := r.Transition(context.Background(), TransitionInput{RequestID: br.ID, Action: lending.ActionReject, Notes: &notes})
		if !errors.Is(err, lending.ErrInvalidTransition) {
			t.Fatalf("reject from %s: expected ErrInvalidTransition, got %v", status, err)
		}
	}
	assertInvariant(t, r, e.ID)
}

func TestRejectRecordsNotesWithoutReserving(t *testing.T) {
	r := newTestRepo(t)
	student := mustUser(t, r, "erin", lending.RoleStudent)
	staff := mustUser(t, r, "sam", lending.RoleStaff)
	e := mustEquipment(t, r, "Drone", 1)
	br := mustSubmit(t, r, student.ID, e.ID, 1)

	notes := "not for field trips"
	out, err := r.Transition(context.Background(), TransitionInput{
		RequestID: br.ID, Action: lending.ActionReject, ReviewerID: staff.ID, Notes: &notes,
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if out.Status != lending.StatusRejected || out.AdminNotes != notes {
		t.Fatalf("unexpected request after reject: %+v", out)
	}
	if out.ReviewedBy == nil || *out.ReviewedBy != staff.ID {
		t.Fatalf("reviewer not recorded: %v", out.ReviewedBy)
	}
	if got := available(t, r, e.ID); got != 1 {
		t.Fatalf("reject must not touch availability, got %d", got)
	}
	if _, err := r.Transition(context.Background(), TransitionInput{RequestID: br.ID, Action: lending.ActionApprove}); !errors.Is(err, lending.ErrInvalidTransition) {
		t.Fatalf("REJECTED is terminal, got %v", err)
	}
}

func TestNoSkippingStates(t *testing.T) {
	r := newTestRepo(t)
	student := mustUser(t, r, "finn", lending.RoleStudent)
	e := mustEquipment(t, r, "Keyboard", 3)
	br := mustSubmit(t, r, student.ID, e.ID, 1)

	for _, a := range []lending.Action{lending.ActionMarkBorrowed, lending.ActionMarkReturned} {
		if _, err := r.Transition(context.Background(), TransitionInput{RequestID: br.ID, Action: a}); !errors.Is(err, lending.ErrInvalidTransition) {
			t.Fatalf("%s from PENDING: expected ErrInvalidTransition, got %v", a, err)
		}
	}
	if _, err := r.Transition(context.Background(), TransitionInput{RequestID: "nope", Action: lending.ActionApprove}); !errors.Is(err, lending.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := available(t, r, e.ID); got != 3 {
		t.Fatalf("failed transitions must not change availability, got %d", got)
	}
}

func TestListBorrowRequestsFilters(t *testing.T) {
	r := newTestRepo(t)
	a := mustUser(t, r, "gail", lending.RoleStudent)
	b := mustUser(t, r, "hank", lending.RoleStudent)
	e := mustEquipment(t, r, "Ball", 10)
	ra := mustSubmit(t, r, a.ID, e.ID, 1)
	mustSubmit(t, r, b.ID, e.ID, 1)
	mustTransition(t, r, ra.ID, lending.ActionApprove)

	ctx := context.Background()
	mine, err := r.ListBorrowRequests(ctx, BorrowRequestQuery{UserID: a.ID})
	if err != nil || len(mine) != 1 || mine[0].ID != ra.ID {
		t.Fatalf("mine: %v %+v", err, mine)
	}
	pending, err := r.ListBorrowRequests(ctx, BorrowRequestQuery{Statuses: []lending.Status{lending.StatusPending}})
	if err != nil || len(pending) != 1 || pending[0].UserID != b.ID {
		t.Fatalf("pending: %v %+v", err, pending)
	}
	all, err := r.ListBorrowRequests(ctx, BorrowRequestQuery{EquipmentID: e.ID})
	if err != nil || len(all) != 2 {
		t.Fatalf("all: %v %d", err, len(all))
	}
}
