package audithook

// Action constants for audit events.
const (
	// Tenant actions
	ActionTenantAdded = "tenant.added"

	// Schedule actions
	ActionScheduleCreated   = "schedule.created"
	ActionScheduleTriggered = "schedule.triggered"
	ActionScheduleExhausted = "schedule.exhausted"
	ActionScheduleCanceled  = "schedule.canceled"

	// Access actions
	ActionTriggerRejected = "trigger.rejected"
)

// Resource constants for audit events.
const (
	ResourceTenant   = "tenant"
	ResourceSchedule = "schedule"
	ResourceTransfer = "transfer"
)

// Category constants for audit events.
const (
	CategoryTenancy = "tenancy"
	CategoryPayment = "payment"
	CategoryAccess  = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
