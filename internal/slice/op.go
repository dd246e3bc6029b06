package slice

import "fmt"

// Phase is one step of a request lifecycle.
type Phase int

const (
	Pending Phase = iota
	Fulfilled
	Rejected
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Op describes an asynchronous unit of work run against a slice.
type Op struct {
	Name string
	// Verb is used to build the fallback error message ("Failed to <verb> <resource>").
	Verb string
	// Mutation ops raise an error toast when rejected.
	Mutation bool
	// LatestOnly ops carry a request token; a result whose token is no longer
	// the newest for Name is discarded.
	LatestOnly bool
	// Fallback replaces the derived fallback message when set.
	Fallback string
}

// Built-in operations.
var (
	OpFetchList = Op{Name: "fetchList", Verb: "fetch", LatestOnly: true}
	OpFetchOne  = Op{Name: "fetchOne", Verb: "fetch", LatestOnly: true}
	OpCreate    = Op{Name: "create", Verb: "create", Mutation: true}
	OpUpdate    = Op{Name: "update", Verb: "update", Mutation: true}
	OpDelete    = Op{Name: "delete", Verb: "delete", Mutation: true}
)

func (o Op) fallback(resource string) string {
	if o.Fallback != "" {
		return o.Fallback
	}
	return fmt.Sprintf("Failed to %s %s", o.Verb, resource)
}

// Event is emitted on every phase transition.
type Event[T any] struct {
	Op    string
	Phase Phase
	State State[T]
	Err   error
	// Stale marks a result dropped because a newer request of the same kind
	// was issued after it.
	Stale bool
}
