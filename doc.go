// Package recur provides a recurring-payment authorization engine.
//
// A tenant (an account holder) pre-funds a schedule of repeated transfers to a
// designated recipient. A single trusted invoker triggers each occurrence,
// decrementing the schedule's remaining count until it is exhausted. The
// engine never moves value on its own timeline: it validates and requests a
// transfer only when invoked, and only by the trusted caller.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/recur"
//	    "github.com/xraph/recur/host"
//	    "github.com/xraph/recur/store/memory"
//	)
//
//	custody := host.NewCustody()
//	engine := recur.New(memory.New(),
//	    recur.WithTrustedInvoker("scheduler.near"),
//	    recur.WithHost(custody),
//	)
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
//	tenantID, err := engine.AddTenant(ctx, "alice.near", "alice@example.com")
//
//	// Deposits draw on funds credited through a trusted path.
//	err = custody.Fund("alice.near", recur.Whole(60))
//
//	scheduleID, err := engine.AddTenantExecutable(ctx, "alice.near", recur.ScheduleInput{
//	    Count:            recur.NewAmount(12),
//	    Amount:           recur.NewAmount(5),
//	    RecipientAccount: "landlord.near",
//	    Deposit:          recur.Whole(60),
//	})
//
//	handle, err := engine.TriggerTenantExecutable(ctx, "scheduler.near", scheduleID)
//
// # Amounts
//
// Amounts are unsigned 128-bit integers in base units. Per-occurrence amounts
// are given in whole units and scaled by [UnitScale] (10^24); deposits are
// already in base units. All arithmetic is checked and fails with
// [ErrArithmeticOverflow] instead of wrapping.
//
// # Identifiers
//
// Tenant and schedule identifiers are "<account>_<step>", where step comes
// from the host's [host.StepCounter]. Stores never overwrite an existing
// schedule, so a second schedule from the same account within one step fails
// with [ErrIdentifierCollision].
//
// # Collaborators
//
// Account validation, custody, settlement and step numbering belong to the
// host and are injected through the [host] interfaces. [host.Custody] is an
// in-memory implementation of all of them.
package recur
