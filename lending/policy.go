package lending

import "fmt"

// Operation is something a caller may attempt against the lending core.
type Operation int

const (
	OpBrowseCatalog Operation = iota
	OpSubmitRequest
	OpViewOwnRequests
	OpViewAllRequests
	OpTransitionRequest
	OpManageCatalog
	OpViewDashboard
	OpManageUsers
)

var opNames = map[Operation]string{
	OpBrowseCatalog:     "browse catalog",
	OpSubmitRequest:     "submit requests",
	OpViewOwnRequests:   "view own requests",
	OpViewAllRequests:   "view all requests",
	OpTransitionRequest: "review requests",
	OpManageCatalog:     "manage catalog",
	OpViewDashboard:     "view dashboard",
	OpManageUsers:       "manage users",
}

func (o Operation) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return fmt.Sprintf("operation(%d)", int(o))
}

var reviewerOps = []Operation{OpBrowseCatalog, OpViewOwnRequests, OpViewAllRequests, OpTransitionRequest}

var grants = map[Role][]Operation{
	RoleStudent: {OpBrowseCatalog, OpSubmitRequest, OpViewOwnRequests},
	RoleStaff:   reviewerOps,
	RoleAdmin:   append(append([]Operation{}, reviewerOps...), OpManageCatalog, OpViewDashboard, OpManageUsers),
}

// Allow returns nil when role may perform op and ErrForbidden otherwise.
func Allow(role Role, op Operation) error {
	for _, g := range grants[role] {
		if g == op {
			return nil
		}
	}
	return fmt.Errorf("%w: %s may not %s", ErrForbidden, roleName(role), op)
}

func roleName(r Role) string {
	if r == "" {
		return "anonymous caller"
	}
	return string(r)
}

// Actor is the authenticated caller of a core operation.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) Allow(op Operation) error { return Allow(a.Role, op) }

// CanView reports whether a may read a request owned by ownerID.
func (a Actor) CanView(ownerID string) error {
	if a.UserID != "" && a.UserID == ownerID {
		return a.Allow(OpViewOwnRequests)
	}
	return a.Allow(OpViewAllRequests)
}
