package engine

import "asa-config-analyzer/internal/model"

// BuildVPNs joins crypto-map entries to their tunnel groups by peer address,
// keeps only site-to-site peers, and derives one Phase-2 selector per permit
// entry of each bound ACL. Deny entries contribute nothing; a permit entry
// whose references resolve to nothing still yields a selector carrying the
// literal tokens, so the gap stays visible.
func BuildVPNs(snap *model.Snapshot) ([]model.VpnConfig, error) {
	if snap == nil {
		return nil, ErrNilSnapshot
	}
	resolver := &Resolver{snap: snap}

	var vpns []model.VpnConfig
	for _, cm := range snap.CryptoMaps {
		if cm.Peer == "" {
			continue
		}
		tg := snap.TunnelGroups[cm.Peer]
		if tg == nil || !tg.IsSiteToSite() {
			continue
		}

		vpn := model.VpnConfig{
			Peer:              cm.Peer,
			MapName:           cm.MapName,
			Sequence:          cm.Sequence,
			ACLName:           cm.ACLName,
			Interface:         cm.Interface,
			TransformSets:     cm.TransformSets,
			PFSGroup:          cm.PFSGroup,
			SALifetimeSeconds: cm.SALifetimeSeconds,
			SALifetimeKB:      cm.SALifetimeKB,
			NatTDisabled:      cm.NatTDisabled,
			IKEVersion:        tg.IKEVersion,
			HasPresharedKey:   tg.HasPresharedKey,
		}

		for _, entry := range snap.ACLs[cm.ACLName] {
			if entry.Action != model.ActionPermit {
				continue
			}
			vpn.Selectors = append(vpn.Selectors, model.Phase2Selector{
				LocalNets:  resolveSelector(resolver, entry.Source),
				RemoteNets: resolveSelector(resolver, entry.Destination),
			})
		}

		for _, sel := range vpn.Selectors {
			vpn.LocalNetworks = appendUnique(vpn.LocalNetworks, sel.LocalNets...)
			vpn.RemoteNetworks = appendUnique(vpn.RemoteNetworks, sel.RemoteNets...)
		}
		vpns = append(vpns, vpn)
	}
	return vpns, nil
}

func resolveSelector(r *Resolver, ref model.Reference) []string {
	if ref.IsZero() {
		return nil
	}
	nets := r.Resolve(ref)
	if len(nets) == 0 {
		// Resolution produced nothing (e.g. an empty group): keep the raw
		// token rather than dropping the row.
		return []string{ref.Token()}
	}
	return nets
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		seen := false
		for _, have := range list {
			if have == v {
				seen = true
				break
			}
		}
		if !seen {
			list = append(list, v)
		}
	}
	return list
}
