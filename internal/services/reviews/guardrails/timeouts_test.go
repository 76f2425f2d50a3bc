package guardrails

import (
	"context"
	"testing"
	"time"
)

func TestForRequest_ZeroInheritsParent(t *testing.T) {
	ctx, cancel := ForRequest(context.Background(), Timeouts{})
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Fatalf("zero budget should not add a deadline")
	}
	if Remaining(ctx) != 0 {
		t.Fatalf("Remaining without deadline should be 0")
	}
}

func TestForRequest_NeverExtendsParent(t *testing.T) {
	parent, pc := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer pc()

	ctx, cancel := ForRequest(parent, Timeouts{Request: time.Hour})
	defer cancel()
	if rem := Remaining(ctx); rem <= 0 || rem > 50*time.Millisecond {
		t.Fatalf("remaining = %v, want <= parent budget", rem)
	}
}

func TestWithApp_Applies(t *testing.T) {
	ctx, cancel := WithApp(context.Background(), Timeouts{App: time.Minute})
	defer cancel()
	rem := Remaining(ctx)
	if rem <= 0 || rem > time.Minute {
		t.Fatalf("remaining = %v", rem)
	}
}

func TestWithApp_Expires(t *testing.T) {
	ctx, cancel := WithApp(context.Background(), Timeouts{App: time.Millisecond})
	defer cancel()
	<-ctx.Done()
	if ctx.Err() != context.DeadlineExceeded {
		t.Fatalf("err = %v", ctx.Err())
	}
	if Remaining(ctx) != 0 {
		t.Fatalf("expired context should report 0")
	}
}

func TestForCalls_ScalesRequestBudget(t *testing.T) {
	ctx, cancel := ForCalls(context.Background(), Timeouts{Request: time.Second}, 81)
	defer cancel()
	if rem := Remaining(ctx); rem <= 80*time.Second || rem > 81*time.Second {
		t.Fatalf("remaining = %v, want about 81s", rem)
	}

	one, c1 := ForCalls(context.Background(), Timeouts{Request: time.Second}, 0)
	defer c1()
	if rem := Remaining(one); rem <= 0 || rem > time.Second {
		t.Fatalf("single call remaining = %v", rem)
	}

	parent, pc := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer pc()
	capped, c2 := ForCalls(parent, Timeouts{Request: time.Second}, 10)
	defer c2()
	if rem := Remaining(capped); rem > 50*time.Millisecond {
		t.Fatalf("scaled budget outlived parent: %v", rem)
	}
}
