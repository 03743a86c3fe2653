package quota

// Scope selects how bucket identity is derived for a protected operation.
type Scope int

const (
	// ScopeGlobal shares one bucket per operation across every caller.
	ScopeGlobal Scope = iota

	// ScopePerCaller gives each caller identity its own bucket per operation.
	ScopePerCaller
)

// AnonymousCaller is the sub-bucket shared by callers with no identity under
// ScopePerCaller. Anonymous callers are deliberately not isolated from each
// other; they drain one common bucket per operation.
const AnonymousCaller = "[anonymous]"

const (
	globalPrefix = "[global]"
	scopedPrefix = "[scoped]"
)

// BucketID derives the bucket key for an operation and caller.
//
// operationID must uniquely and stably identify the protected operation,
// for example "GET /orders" or "OrderService.List". It is declared at
// registration time, never discovered via reflection.
func BucketID(scope Scope, operationID, callerID string) string {
	if scope == ScopeGlobal {
		return globalPrefix + operationID
	}
	if callerID == "" {
		callerID = AnonymousCaller
	}
	return scopedPrefix + operationID + "." + callerID
}
