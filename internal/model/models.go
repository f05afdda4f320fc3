package model

import "strings"

type ObjectKind string // "host", "subnet", "range", "fqdn", "unknown"

const (
	KindHost    ObjectKind = "host"
	KindSubnet  ObjectKind = "subnet"
	KindRange   ObjectKind = "range"
	KindFQDN    ObjectKind = "fqdn"
	KindUnknown ObjectKind = "unknown"
)

type NatType string // "static", "dynamic"

const (
	NatStatic  NatType = "static"
	NatDynamic NatType = "dynamic"
)

// PatRule is the optional port translation attached to an inline NAT line,
// e.g. "nat (inside,outside) static 81.144.153.67 service tcp www 8080".
type PatRule struct {
	Protocol   string
	RealPort   string
	MappedPort string
}

// InlineNat is the translation declared inside an "object network" block.
type InlineNat struct {
	RealZone        string
	MappedZone      string
	Type            NatType
	TranslatedValue string
	Pat             *PatRule
}

type NetworkObject struct {
	Name        string
	Kind        ObjectKind
	IP          string
	Mask        string // dotted form, kept as written
	RangeStart  string
	RangeEnd    string
	FQDN        string
	RawValue    string // unrecognized address line, kept verbatim
	Description string
	Nat         *InlineNat
}

// Address renders the object's concrete address value. Objects without a
// recognizable address line fall back to their raw value, then to the name.
func (o *NetworkObject) Address() string {
	switch o.Kind {
	case KindHost:
		return o.IP + "/32"
	case KindSubnet:
		return o.IP + " " + o.Mask
	case KindRange:
		return o.RangeStart + "-" + o.RangeEnd
	case KindFQDN:
		return o.FQDN
	}
	if o.RawValue != "" {
		return o.RawValue
	}
	return o.Name
}

type ServiceObject struct {
	Name        string
	Protocol    string
	SourcePort  string
	DestPort    string
	Description string
}

type RefKind string

const (
	RefObject  RefKind = "object"
	RefGroup   RefKind = "group"
	RefHost    RefKind = "host"
	RefSubnet  RefKind = "subnet"
	RefRange   RefKind = "range"
	RefAny     RefKind = "any"
	RefPort    RefKind = "port"
	RefLiteral RefKind = "literal"
)

// Reference is one member or selector slot: a named object or group, an
// address literal, a port spec, or an opaque token. Kind selects which
// fields are meaningful.
type Reference struct {
	Kind  RefKind
	Name  string // RefObject, RefGroup
	IP    string // RefHost, RefSubnet
	Mask  string // RefSubnet, dotted
	Start string // RefRange
	End   string // RefRange
	Spec  string // RefAny ("any"/"any4"), RefPort, RefLiteral
}

func ObjectRef(name string) Reference  { return Reference{Kind: RefObject, Name: name} }
func GroupRef(name string) Reference   { return Reference{Kind: RefGroup, Name: name} }
func HostRef(ip string) Reference      { return Reference{Kind: RefHost, IP: ip} }
func RangeRef(lo, hi string) Reference { return Reference{Kind: RefRange, Start: lo, End: hi} }
func AnyRef(tok string) Reference      { return Reference{Kind: RefAny, Spec: tok} }
func PortRef(spec string) Reference    { return Reference{Kind: RefPort, Spec: spec} }
func LiteralRef(tok string) Reference  { return Reference{Kind: RefLiteral, Spec: tok} }

func SubnetRef(ip, mask string) Reference {
	return Reference{Kind: RefSubnet, IP: ip, Mask: mask}
}

func (r Reference) IsZero() bool { return r.Kind == "" }

// Token renders the reference in its prefixed string form, the same form
// the database provider stores and ParseToken reads back.
func (r Reference) Token() string {
	switch r.Kind {
	case RefObject:
		return "object:" + r.Name
	case RefGroup:
		return "group:" + r.Name
	case RefHost:
		return "host:" + r.IP
	case RefSubnet:
		return "subnet:" + r.IP + "/" + r.Mask
	case RefRange:
		return "range:" + r.Start + "-" + r.End
	case RefPort:
		return "port:" + r.Spec
	default:
		return r.Spec
	}
}

// ParseToken is the inverse of Token.
func ParseToken(tok string) Reference {
	if tok == "any" || tok == "any4" {
		return AnyRef(tok)
	}
	prefix, rest, ok := strings.Cut(tok, ":")
	if !ok {
		return LiteralRef(tok)
	}
	switch RefKind(prefix) {
	case RefObject:
		return ObjectRef(rest)
	case RefGroup:
		return GroupRef(rest)
	case RefHost:
		return HostRef(rest)
	case RefSubnet:
		if ip, mask, ok := strings.Cut(rest, "/"); ok {
			return SubnetRef(ip, mask)
		}
	case RefRange:
		if lo, hi, ok := strings.Cut(rest, "-"); ok {
			return RangeRef(lo, hi)
		}
	case RefPort:
		return PortRef(rest)
	}
	return LiteralRef(tok)
}

type NetworkGroup struct {
	Name        string
	Description string
	Members     []Reference
}

type ServiceGroup struct {
	Name        string
	Protocol    string // "tcp", "udp", "tcp-udp" or empty
	Description string
	Members     []Reference
}

type IcmpGroup struct {
	Name    string
	Members []Reference
}

type ACLAction string

const (
	ActionPermit ACLAction = "permit"
	ActionDeny   ACLAction = "deny"
)

type ACLEntry struct {
	ACLName       string
	Action        ACLAction
	Protocol      string // empty when ProtocolGroup is set
	ProtocolGroup string // object-group occupying the protocol slot
	Source        Reference
	Destination   Reference // zero value when the entry has no destination
	ServiceGroup  string
	Service       string // trailing descriptor, e.g. "eq https", "range 100 200"
	User          string
	Log           bool
	Inactive      bool
}

type NatStyle string

const (
	StyleTwiceNat  NatStyle = "twice-nat"
	StyleObjectNat NatStyle = "object-nat"
)

type NatCategory string

const (
	CategoryUnknown   NatCategory = "unknown"
	CategoryIdentity  NatCategory = "identity"
	CategorySourceNat NatCategory = "source-nat"
	CategoryDestNat   NatCategory = "dest-nat"
	CategoryTwiceNat  NatCategory = "twice-nat"
	CategoryObjectNat NatCategory = "object-nat"
)

type NatRule struct {
	Style        NatStyle
	RealZone     string
	MappedZone   string
	SourceType   NatType
	DestType     NatType
	RealSource   string
	MappedSource string
	RealDest     string
	MappedDest   string
	NoProxyArp   bool
	RouteLookup  bool
	ObjectName   string // owning object, object NAT only
	Category     NatCategory
}

type CryptoMapEntry struct {
	MapName           string
	Sequence          int
	Peer              string
	ACLName           string
	TransformSets     []string
	PFSGroup          string
	SALifetimeSeconds int
	SALifetimeKB      int
	NatTDisabled      bool
	Interface         string
}

const TypeSiteToSite = "ipsec-l2l"

type TunnelGroup struct {
	Peer            string
	Type            string
	IKEVersion      string // "ikev1", "ikev2", "unknown"
	HasPresharedKey bool
}

func (t *TunnelGroup) IsSiteToSite() bool { return t.Type == TypeSiteToSite }

// Phase2Selector is the traffic an IPsec tunnel protects, derived from one
// permit entry of the VPN's bound ACL.
type Phase2Selector struct {
	LocalNets  []string
	RemoteNets []string
}

// VpnConfig is the join of one crypto-map entry with its site-to-site
// tunnel group by peer address.
type VpnConfig struct {
	Peer              string
	MapName           string
	Sequence          int
	ACLName           string
	Interface         string
	TransformSets     []string
	PFSGroup          string
	SALifetimeSeconds int
	SALifetimeKB      int
	NatTDisabled      bool
	IKEVersion        string
	HasPresharedKey   bool
	Selectors         []Phase2Selector
	LocalNetworks     []string // de-duplicated, order of first appearance
	RemoteNetworks    []string
}

type MatchType string

const (
	MatchObjectReference MatchType = "object-reference"
	MatchDirectIP        MatchType = "direct-ip"
	MatchGroupMember     MatchType = "group-member"
)

// ReachabilityRecord reports one (NAT rule, ACL entry) pair that makes a
// translated address reachable from outside.
type ReachabilityRecord struct {
	ObjectName    string // empty for twice NAT
	RealAddress   string
	MappedAddress string
	RealZone      string
	MappedZone    string
	ACLName       string
	Match         MatchType
	Protocol      string
	Service       string
	Source        string // source selector token of the matching entry
}

// Snapshot is the set of entity tables extracted from one configuration
// text. The analysis engine never mutates it.
type Snapshot struct {
	NetworkObjects map[string]*NetworkObject
	ServiceObjects map[string]*ServiceObject
	NetworkGroups  map[string]*NetworkGroup
	ServiceGroups  map[string]*ServiceGroup
	IcmpGroups     map[string]*IcmpGroup
	ACLs           map[string][]ACLEntry
	NatRules       []NatRule
	CryptoMaps     []CryptoMapEntry
	TunnelGroups   map[string]*TunnelGroup
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		NetworkObjects: make(map[string]*NetworkObject),
		ServiceObjects: make(map[string]*ServiceObject),
		NetworkGroups:  make(map[string]*NetworkGroup),
		ServiceGroups:  make(map[string]*ServiceGroup),
		IcmpGroups:     make(map[string]*IcmpGroup),
		ACLs:           make(map[string][]ACLEntry),
		TunnelGroups:   make(map[string]*TunnelGroup),
	}
}

// NetworkObjectByName looks up an object by exact name first, then
// case-insensitively.
func (s *Snapshot) NetworkObjectByName(name string) *NetworkObject {
	if o, ok := s.NetworkObjects[name]; ok {
		return o
	}
	for n, o := range s.NetworkObjects {
		if strings.EqualFold(n, name) {
			return o
		}
	}
	return nil
}

func (s *Snapshot) NetworkGroupByName(name string) *NetworkGroup {
	if g, ok := s.NetworkGroups[name]; ok {
		return g
	}
	for n, g := range s.NetworkGroups {
		if strings.EqualFold(n, name) {
			return g
		}
	}
	return nil
}
