package service

import "projectos/internal/model"

// ComputeApprovedTotal is the base budget plus the deltas of approved change requests, in
// exact integer cents. Pending, draft and rejected requests do not count.
func ComputeApprovedTotal(items []model.BudgetItem, changeRequests []model.ChangeRequest) int64 {
	return ComputeSnapshot(items, changeRequests).ApprovedTotalCents
}

// ComputeSnapshot aggregates a project's money. The result is independent of input order.
func ComputeSnapshot(items []model.BudgetItem, changeRequests []model.ChangeRequest) model.BudgetSnapshot {
	var snap model.BudgetSnapshot
	for _, item := range items {
		snap.BaseBudgetCents += item.ApprovedCostCents
	}
	for _, cr := range changeRequests {
		switch cr.Status {
		case model.StatusApproved:
			snap.ApprovedChangesCents += cr.DeltaCents
			snap.ApprovedDelayDays += cr.DelayDays
		case model.StatusPending:
			snap.PendingChangesCents += cr.DeltaCents
		}
	}
	snap.ApprovedTotalCents = snap.BaseBudgetCents + snap.ApprovedChangesCents
	return snap
}
