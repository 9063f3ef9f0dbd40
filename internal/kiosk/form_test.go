package kiosk

import (
	"context"
	"errors"
	"testing"
)

func threeSteps(validateSecond func(ctx context.Context) error) []Step {
	return []Step{
		{Title: "Name"},
		{Title: "Contact", Validate: validateSecond},
		{Title: "Review"},
	}
}

func TestStepFormAdvancesAndCompletes(t *testing.T) {
	completed := false
	f := NewStepForm(threeSteps(nil), nil, func(ctx context.Context) error {
		completed = true
		return nil
	})

	ctx := context.Background()
	if err := f.Next(ctx); err != nil {
		t.Fatalf("next from step 0: %v", err)
	}
	if err := f.Next(ctx); err != nil {
		t.Fatalf("next from step 1: %v", err)
	}
	if f.Index() != 2 {
		t.Fatalf("index = %d, want 2", f.Index())
	}
	if completed {
		t.Fatal("completion callback ran before the last step")
	}
	if err := f.Next(ctx); err != nil {
		t.Fatalf("next on last step: %v", err)
	}
	if !completed {
		t.Fatal("completion callback did not run on the last step")
	}
	if f.Index() != 2 {
		t.Errorf("index advanced past the last step: %d", f.Index())
	}
}

func TestStepFormFailingValidatorBlocks(t *testing.T) {
	wantErr := errors.New("phone required")
	f := NewStepForm(threeSteps(func(ctx context.Context) error { return wantErr }), nil, nil)

	ctx := context.Background()
	if err := f.Next(ctx); err != nil {
		t.Fatalf("next from step 0: %v", err)
	}
	if err := f.Next(ctx); err != wantErr {
		t.Fatalf("next with failing validator: err = %v, want %v", err, wantErr)
	}
	if f.Index() != 1 {
		t.Errorf("index moved despite failed validation: %d", f.Index())
	}
}

func TestStepFormBackNeverValidates(t *testing.T) {
	calls := 0
	f := NewStepForm(threeSteps(func(ctx context.Context) error {
		calls++
		return errors.New("always fails")
	}), nil, nil)

	ctx := context.Background()
	if err := f.Next(ctx); err != nil {
		t.Fatalf("next from step 0: %v", err)
	}
	// Stuck on the invalid step; going back must still work and must
	// not run the validator again.
	before := calls
	if err := f.Back(); err != nil {
		t.Fatalf("back: %v", err)
	}
	if calls != before {
		t.Errorf("back ran a validator: calls went %d -> %d", before, calls)
	}
	if f.Index() != 0 {
		t.Errorf("index = %d, want 0", f.Index())
	}
}

func TestStepFormBackNoOpOnFirstStep(t *testing.T) {
	f := NewStepForm(threeSteps(nil), nil, nil)
	if err := f.Back(); err != nil {
		t.Fatalf("back on first step: %v", err)
	}
	if f.Index() != 0 {
		t.Errorf("index = %d, want 0", f.Index())
	}
}

func TestStepFormBusyBlocksBothDirections(t *testing.T) {
	busy := true
	f := NewStepForm(threeSteps(nil), func() bool { return busy }, nil)

	ctx := context.Background()
	if err := f.Next(ctx); err != ErrBusy {
		t.Errorf("next while busy: err = %v, want ErrBusy", err)
	}
	if err := f.Back(); err != ErrBusy {
		t.Errorf("back while busy: err = %v, want ErrBusy", err)
	}
	busy = false
	if err := f.Next(ctx); err != nil {
		t.Errorf("next after busy cleared: %v", err)
	}
}

func TestStepFormProgress(t *testing.T) {
	f := NewStepForm(threeSteps(nil), nil, nil)
	if err := f.Next(context.Background()); err != nil {
		t.Fatalf("next: %v", err)
	}
	got := f.Progress()
	want := []StepState{StepComplete, StepActive, StepPending}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("progress[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
