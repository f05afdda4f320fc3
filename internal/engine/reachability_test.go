package engine

import (
	"testing"

	"asa-config-analyzer/internal/model"
)

const inboundACL = "outside_access_in"

func reachabilitySnapshot() *model.Snapshot {
	snap := model.NewSnapshot()
	snap.NetworkObjects["Srv1"] = &model.NetworkObject{
		Name: "Srv1", Kind: model.KindHost, IP: "10.1.1.20",
		Nat: &model.InlineNat{
			RealZone: "inside", MappedZone: "outside",
			Type: model.NatStatic, TranslatedValue: "81.144.153.67",
		},
	}
	snap.NetworkGroups["G"] = &model.NetworkGroup{
		Name:    "G",
		Members: []model.Reference{model.ObjectRef("Srv1")},
	}
	snap.NetworkGroups["Inner"] = &model.NetworkGroup{
		Name:    "Inner",
		Members: []model.Reference{model.ObjectRef("Srv1")},
	}
	snap.NetworkGroups["H"] = &model.NetworkGroup{
		Name:    "H",
		Members: []model.Reference{model.GroupRef("Inner")},
	}
	snap.NatRules = []model.NatRule{
		{
			Style: model.StyleObjectNat, ObjectName: "Srv1",
			RealZone: "inside", MappedZone: "outside",
			SourceType: model.NatStatic,
			RealSource: "10.1.1.20/32", MappedSource: "81.144.153.67",
		},
	}
	snap.ACLs[inboundACL] = []model.ACLEntry{
		{
			ACLName: inboundACL, Action: model.ActionPermit, Protocol: "tcp",
			Source: model.AnyRef("any"), Destination: model.ObjectRef("Srv1"),
			Service: "eq https",
		},
		{
			ACLName: inboundACL, Action: model.ActionPermit, Protocol: "tcp",
			Source: model.AnyRef("any"), Destination: model.HostRef("81.144.153.67"),
			Service: "eq ssh",
		},
		{
			ACLName: inboundACL, Action: model.ActionPermit, Protocol: "tcp",
			Source: model.AnyRef("any"), Destination: model.GroupRef("G"),
			Service: "eq smtp",
		},
		{
			ACLName: inboundACL, Action: model.ActionPermit, Protocol: "tcp",
			Source: model.AnyRef("any"), Destination: model.GroupRef("H"),
			Service: "eq www",
		},
	}
	return snap
}

func TestCorrelateInboundRejectsNilSnapshot(t *testing.T) {
	if _, err := CorrelateInbound(nil, inboundACL); err != ErrNilSnapshot {
		t.Fatalf("expected ErrNilSnapshot, got %v", err)
	}
}

func TestCorrelateInboundMatchPriority(t *testing.T) {
	records, err := CorrelateInbound(reachabilitySnapshot(), inboundACL)
	if err != nil {
		t.Fatal(err)
	}
	// Three direct matches; the nested-group entry (H -> Inner -> Srv1)
	// must produce nothing, since group matching is shallow.
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d: %+v", len(records), records)
	}

	wantMatches := []model.MatchType{
		model.MatchObjectReference,
		model.MatchDirectIP,
		model.MatchGroupMember,
	}
	for i, want := range wantMatches {
		if records[i].Match != want {
			t.Errorf("record %d match = %s, want %s", i, records[i].Match, want)
		}
	}
	for _, rec := range records {
		if rec.ObjectName != "Srv1" || rec.MappedAddress != "81.144.153.67" {
			t.Errorf("unexpected record: %+v", rec)
		}
	}
}

func TestCorrelateInboundShallowGroupMatchOnly(t *testing.T) {
	snap := reachabilitySnapshot()
	snap.ACLs[inboundACL] = []model.ACLEntry{
		{
			ACLName: inboundACL, Action: model.ActionPermit, Protocol: "tcp",
			Source: model.AnyRef("any"), Destination: model.GroupRef("H"),
		},
	}

	records, err := CorrelateInbound(snap, inboundACL)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Fatalf("nested group membership must not match, got %+v", records)
	}
}

func TestCorrelateInboundGroupMemberHostMatch(t *testing.T) {
	snap := reachabilitySnapshot()
	snap.NetworkGroups["Public"] = &model.NetworkGroup{
		Name:    "Public",
		Members: []model.Reference{model.HostRef("81.144.153.67")},
	}
	snap.ACLs[inboundACL] = []model.ACLEntry{
		{
			ACLName: inboundACL, Action: model.ActionPermit, Protocol: "tcp",
			Source: model.AnyRef("any"), Destination: model.GroupRef("Public"),
		},
	}

	records, err := CorrelateInbound(snap, inboundACL)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Match != model.MatchGroupMember {
		t.Fatalf("expected one group-member record, got %+v", records)
	}
}

func TestCorrelateInboundExcludesDynamicRules(t *testing.T) {
	snap := reachabilitySnapshot()
	snap.NatRules = []model.NatRule{
		{
			Style: model.StyleObjectNat, ObjectName: "Srv1",
			SourceType:   model.NatDynamic,
			RealSource:   "10.1.1.20/32",
			MappedSource: "81.144.153.67",
		},
	}

	records, err := CorrelateInbound(snap, inboundACL)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Fatalf("dynamic rules are never externally reachable, got %+v", records)
	}
}

func TestCorrelateInboundSkipsDenyEntries(t *testing.T) {
	snap := reachabilitySnapshot()
	for i := range snap.ACLs[inboundACL] {
		snap.ACLs[inboundACL][i].Action = model.ActionDeny
	}

	records, err := CorrelateInbound(snap, inboundACL)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Fatalf("deny entries must not produce records, got %+v", records)
	}
}

func TestCorrelateInboundTwiceNatDirectIP(t *testing.T) {
	snap := model.NewSnapshot()
	snap.NatRules = []model.NatRule{
		{
			Style:      model.StyleTwiceNat,
			RealZone:   "inside", MappedZone: "outside",
			SourceType: model.NatStatic, DestType: model.NatStatic,
			RealSource: "10.4.4.4", MappedSource: "198.51.100.44",
			RealDest: "any", MappedDest: "any",
		},
	}
	snap.ACLs[inboundACL] = []model.ACLEntry{
		{
			ACLName: inboundACL, Action: model.ActionPermit, Protocol: "tcp",
			Source: model.AnyRef("any"), Destination: model.HostRef("198.51.100.44"),
			Service: "eq https",
		},
		// Twice NAT has no owning object name; an object reference can
		// never match it.
		{
			ACLName: inboundACL, Action: model.ActionPermit, Protocol: "tcp",
			Source: model.AnyRef("any"), Destination: model.ObjectRef(""),
		},
	}

	records, err := CorrelateInbound(snap, inboundACL)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Match != model.MatchDirectIP {
		t.Fatalf("expected one direct-ip record, got %+v", records)
	}
}

func TestCorrelateInboundMultipleEntriesMultipleRecords(t *testing.T) {
	snap := reachabilitySnapshot()

	records, err := CorrelateInbound(snap, inboundACL)
	if err != nil {
		t.Fatal(err)
	}
	services := map[string]bool{}
	for _, rec := range records {
		services[rec.Service] = true
	}
	if !services["eq https"] || !services["eq ssh"] || !services["eq smtp"] {
		t.Fatalf("expected one record per matching entry, got %+v", records)
	}
}
