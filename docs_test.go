package recur_test

import (
	"context"
	"log"
	"log/slog"
	"testing"

	"github.com/xraph/recur"
	"github.com/xraph/recur/host"
	"github.com/xraph/recur/store/memory"
	"github.com/xraph/recur/types"
)

// TestDocumentationExamples verifies that the package documentation examples compile and run.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		ctx := context.Background()

		// Custody holds deposits and pays out triggered occurrences
		custody := host.NewCustody()

		engine := recur.New(memory.New(),
			recur.WithLogger(slog.Default()),
			recur.WithTrustedInvoker("scheduler.near"),
			recur.WithHost(custody),
		)
		if err := engine.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer engine.Stop()

		tenantID, err := engine.AddTenant(ctx, "alice.near", "alice@example.com")
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("tenant registered: %s\n", tenantID)

		// Funding is a trusted operation; deposits draw on it
		if err := custody.Fund("alice.near", recur.Whole(60)); err != nil {
			t.Fatal(err)
		}

		// Twelve payments of 5 whole units, fully pre-funded
		scheduleID, err := engine.AddTenantExecutable(ctx, "alice.near", recur.ScheduleInput{
			Count:            recur.NewAmount(12),
			Amount:           recur.NewAmount(5),
			RecipientAccount: "landlord.near",
			Deposit:          recur.Whole(60),
		})
		if err != nil {
			t.Fatal(err)
		}

		handle, err := engine.TriggerTenantExecutable(ctx, "scheduler.near", scheduleID)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("transfer %s requested, %s occurrences left\n", handle.ID, handle.Remaining)

		if handle.Remaining.String() != "11" {
			t.Fatalf("remaining = %s, want 11", handle.Remaining)
		}
	})

	t.Run("AmountExamples", func(t *testing.T) {
		// Constructors
		_ = types.NewAmount(42) // 42 base units
		_ = types.Whole(3)      // 3 * 10^24 base units

		// 1.5 whole units
		a := types.MustParseAmount("1500000000000000000000000")

		// Checked arithmetic
		b, err := a.CheckedMul(types.NewAmount(2))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := types.MaxAmount.CheckedAdd(types.NewAmount(1)); err == nil {
			t.Fatal("expected overflow")
		}

		// Comparison
		if !a.LessThan(b) {
			t.Fatal("expected a < b")
		}

		// Formatting
		if got := a.FormatUnits(types.UnitScale); got != "1.5" {
			t.Fatalf("FormatUnits = %q", got)
		}
	})
}
