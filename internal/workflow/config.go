// Package workflow implements the approval state machine shared by all
// financial document kinds: draft → waiting_approval → approved|rejected,
// with rejected documents resubmittable and kind-dependent cancellation.
package workflow

import (
	"slices"

	"github.com/meridian-erp/meridian-erp/internal/finance"
)

// Approver roles known to the workflow.
const (
	RoleFinanceManager    = "FINANCE_MANAGER"
	RoleSalesManager      = "SALES_MANAGER"
	RolePurchasingManager = "PURCHASING_MANAGER"
	RoleBranchManager     = "BRANCH_MANAGER"
)

// KindConfig parameterises the shared state machine per document kind.
type KindConfig struct {
	ApproverRoles     []string
	Postable          bool
	CancelNeedsReason bool
}

// CanApprove reports whether the role belongs to the kind's approvers.
func (c KindConfig) CanApprove(role string) bool {
	return slices.Contains(c.ApproverRoles, role)
}

// DefaultConfigs returns the per-kind configuration used in production.
// All six kinds post to the ledger on approval; purchase orders demand a
// cancellation reason.
func DefaultConfigs() map[finance.DocKind]KindConfig {
	return map[finance.DocKind]KindConfig{
		finance.KindSalesOrder: {
			ApproverRoles: []string{RoleSalesManager, RoleBranchManager},
			Postable:      true,
		},
		finance.KindPurchaseOrder: {
			ApproverRoles:     []string{RolePurchasingManager, RoleBranchManager},
			Postable:          true,
			CancelNeedsReason: true,
		},
		finance.KindARInvoice: {
			ApproverRoles: []string{RoleFinanceManager, RoleBranchManager},
			Postable:      true,
		},
		finance.KindAPInvoice: {
			ApproverRoles: []string{RoleFinanceManager, RoleBranchManager},
			Postable:      true,
		},
		finance.KindARReceipt: {
			ApproverRoles: []string{RoleFinanceManager, RoleBranchManager},
			Postable:      true,
		},
		finance.KindAPPayment: {
			ApproverRoles: []string{RoleFinanceManager, RoleBranchManager},
			Postable:      true,
		},
	}
}
