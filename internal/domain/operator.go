package domain

// Operator is the verified identity on whose behalf a settlement operation
// runs. It is resolved by the surrounding service layer before any core call;
// the core never infers identity from opaque request strings.
type Operator struct {
	// Principal names the verified caller, e.g. "ops:monthly-scheduler".
	Principal string
	// Privileged must be true for destructive operations such as forced
	// recomputation.
	Privileged bool
}
