package engine

import (
	"errors"
	"strings"

	"asa-config-analyzer/internal/model"
)

// ErrNilSnapshot is returned when an engine operation is handed a nil
// entity-table snapshot.
var ErrNilSnapshot = errors.New("nil configuration snapshot")

// Resolver expands references against the snapshot's network object and
// group tables. Resolution is best-effort: a token that matches nothing
// comes back unchanged instead of failing.
type Resolver struct {
	snap *model.Snapshot
}

func NewResolver(snap *model.Snapshot) (*Resolver, error) {
	if snap == nil {
		return nil, ErrNilSnapshot
	}
	return &Resolver{snap: snap}, nil
}

// Resolve expands ref to its concrete address values. Nested groups expand
// in place, in member order. The call never fails and always terminates:
// a group re-entered on the active expansion chain is replaced by its
// literal token.
func (r *Resolver) Resolve(ref model.Reference) []string {
	return r.resolve(ref, make(map[string]bool))
}

// expanding holds the lower-cased group names on the active call chain.
func (r *Resolver) resolve(ref model.Reference, expanding map[string]bool) []string {
	switch ref.Kind {
	case model.RefHost:
		return []string{ref.IP + "/32"}
	case model.RefSubnet:
		return []string{ref.IP + " " + ref.Mask}
	case model.RefRange:
		return []string{ref.Start + "-" + ref.End}
	case model.RefObject:
		if obj := r.snap.NetworkObjectByName(ref.Name); obj != nil {
			return []string{obj.Address()}
		}
		return []string{ref.Token()}
	case model.RefGroup:
		grp := r.snap.NetworkGroupByName(ref.Name)
		if grp == nil {
			return []string{ref.Token()}
		}
		key := strings.ToLower(grp.Name)
		if expanding[key] {
			return []string{ref.Token()}
		}
		expanding[key] = true
		defer delete(expanding, key)

		var out []string
		for _, m := range grp.Members {
			out = append(out, r.resolve(m, expanding)...)
		}
		return out
	default:
		return []string{ref.Token()}
	}
}
