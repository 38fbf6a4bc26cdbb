// Package access holds the authorization table for every cart and order
// operation. Handlers and services never compare roles themselves.
package access

import (
	"slices"

	identity "github.com/dmehra2102/storefront/internal/identity/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
)

type Operation string

const (
	CartManage          Operation = "cart.manage"
	OrderPlace          Operation = "order.place"
	OrderView           Operation = "order.view"
	OrderListOwn        Operation = "order.list_own"
	OrderListAll        Operation = "order.list_all"
	OrderListRider      Operation = "order.list_rider"
	OrderCancel         Operation = "order.cancel"
	OrderAssign         Operation = "order.assign"
	OrderUpdateDelivery Operation = "order.update_delivery"
	OrderFeedback       Operation = "order.feedback"
	AnalyticsView       Operation = "analytics.view"
)

// Rule grants an operation when any of its conditions holds.
type Rule struct {
	AnyAuthenticated bool
	Roles            []identity.Role
	Owner            bool
	AssignedRider    bool
	Denied           string
}

// Resource describes the record an operation targets. Zero for collection
// operations.
type Resource struct {
	OwnerID string
	RiderID string
}

var rules = map[Operation]Rule{
	CartManage:   {AnyAuthenticated: true},
	OrderPlace:   {AnyAuthenticated: true},
	OrderListOwn: {AnyAuthenticated: true},
	OrderView: {
		Roles:         []identity.Role{identity.RoleAdmin, identity.RoleManager},
		Owner:         true,
		AssignedRider: true,
		Denied:        "you don't have permission to view this order",
	},
	OrderListAll: {
		Roles:  []identity.Role{identity.RoleAdmin, identity.RoleManager},
		Denied: "you don't have permission to access all orders",
	},
	OrderAssign: {
		Roles:  []identity.Role{identity.RoleAdmin, identity.RoleManager},
		Denied: "only admins and managers can assign orders",
	},
	AnalyticsView: {
		Roles:  []identity.Role{identity.RoleAdmin, identity.RoleManager},
		Denied: "you don't have permission to view analytics",
	},
	OrderListRider: {
		Roles:  []identity.Role{identity.RoleRider, identity.RoleAdmin},
		Denied: "you don't have permission to access rider orders",
	},
	OrderCancel: {
		Roles:  []identity.Role{identity.RoleAdmin},
		Owner:  true,
		Denied: "you don't have permission to cancel this order",
	},
	OrderFeedback: {
		Roles:  []identity.Role{identity.RoleAdmin},
		Owner:  true,
		Denied: "you don't have permission to add feedback to this order",
	},
	OrderUpdateDelivery: {
		Roles:         []identity.Role{identity.RoleAdmin},
		AssignedRider: true,
		Denied:        "only the assigned rider can update this order status",
	},
}

func RuleFor(op Operation) (Rule, bool) {
	r, ok := rules[op]
	return r, ok
}

// Authorize returns nil when actor may perform op on res, and a forbidden
// error otherwise. An unknown operation is always denied.
func Authorize(op Operation, actor identity.Actor, res Resource) error {
	if actor.ID == "" {
		return apperr.New(apperr.KindUnauthenticated, "authentication required")
	}
	rule, ok := RuleFor(op)
	if !ok {
		return apperr.Forbidden("operation %s is not permitted", op)
	}
	if rule.allows(actor, res) {
		return nil
	}
	msg := rule.Denied
	if msg == "" {
		msg = "you don't have permission to perform this action"
	}
	return apperr.Forbidden("%s", msg)
}

func (r Rule) allows(actor identity.Actor, res Resource) bool {
	switch {
	case r.AnyAuthenticated:
		return true
	case slices.Contains(r.Roles, actor.Role):
		return true
	case r.Owner && res.OwnerID != "" && res.OwnerID == actor.ID:
		return true
	case r.AssignedRider && res.RiderID != "" && res.RiderID == actor.ID:
		return true
	}
	return false
}
