package model

// BudgetSnapshot aggregates the money of one project in integer cents.
type BudgetSnapshot struct {
	BaseBudgetCents      int64 `json:"base_budget_cents"`
	ApprovedChangesCents int64 `json:"approved_changes_cents"`
	ApprovedTotalCents   int64 `json:"approved_total_cents"`
	PendingChangesCents  int64 `json:"pending_changes_cents"`
	ApprovedDelayDays    int   `json:"approved_delay_days"`
}
