package engine

import (
	"strings"

	"asa-config-analyzer/internal/model"
)

// CorrelateInbound determines which statically translated addresses an
// inbound ACL actually permits. It emits one record per (NAT rule, ACL
// entry) pair that matches; a rule with no matching entry is reported as
// unreachable by producing nothing.
//
// Dynamic and PAT-only rules are excluded up front: without a fixed mapped
// address they are never externally reachable.
func CorrelateInbound(snap *model.Snapshot, inboundACL string) ([]model.ReachabilityRecord, error) {
	if snap == nil {
		return nil, ErrNilSnapshot
	}

	entries := snap.ACLs[inboundACL]
	var records []model.ReachabilityRecord
	for _, rule := range ClassifyAll(snap.NatRules) {
		if rule.SourceType != model.NatStatic {
			continue
		}
		if rule.Style == model.StyleObjectNat && rule.ObjectName == "" {
			continue
		}
		for _, entry := range entries {
			if entry.Action != model.ActionPermit {
				continue
			}
			match, ok := matchDestination(rule, entry, snap)
			if !ok {
				continue
			}
			records = append(records, model.ReachabilityRecord{
				ObjectName:    rule.ObjectName,
				RealAddress:   rule.RealSource,
				MappedAddress: rule.MappedSource,
				RealZone:      rule.RealZone,
				MappedZone:    rule.MappedZone,
				ACLName:       inboundACL,
				Match:         match,
				Protocol:      entryProtocol(entry),
				Service:       entryService(entry),
				Source:        entry.Source.Token(),
			})
		}
	}
	return records, nil
}

// matchDestination applies the three match strategies in priority order:
// object-reference, direct-ip, group-member. The group check inspects the
// direct member list only; nested groups are not expanded here, unlike the
// resolver.
func matchDestination(rule model.NatRule, entry model.ACLEntry, snap *model.Snapshot) (model.MatchType, bool) {
	dst := entry.Destination
	switch dst.Kind {
	case model.RefObject:
		if rule.Style == model.StyleObjectNat && strings.EqualFold(dst.Name, rule.ObjectName) {
			return model.MatchObjectReference, true
		}
	case model.RefHost:
		if dst.IP == rule.MappedSource {
			return model.MatchDirectIP, true
		}
	case model.RefGroup:
		grp := snap.NetworkGroupByName(dst.Name)
		if grp == nil {
			return "", false
		}
		for _, m := range grp.Members {
			switch m.Kind {
			case model.RefObject:
				if rule.Style == model.StyleObjectNat && strings.EqualFold(m.Name, rule.ObjectName) {
					return model.MatchGroupMember, true
				}
			case model.RefHost:
				if m.IP == rule.MappedSource {
					return model.MatchGroupMember, true
				}
			}
		}
	}
	return "", false
}

func entryProtocol(entry model.ACLEntry) string {
	if entry.ProtocolGroup != "" {
		return "object-group " + entry.ProtocolGroup
	}
	return entry.Protocol
}

func entryService(entry model.ACLEntry) string {
	if entry.Service != "" {
		return entry.Service
	}
	if entry.ServiceGroup != "" {
		return "object-group " + entry.ServiceGroup
	}
	return ""
}
