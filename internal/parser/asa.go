package parser

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"asa-config-analyzer/internal/model"
	"asa-config-analyzer/internal/utils"
)

// ASAParser extracts entity tables from Cisco ASA "show running-config"
// text. Lines it does not recognize are silently ignored.
type ASAParser struct {
	scanner *bufio.Scanner
	snap    *model.Snapshot

	curNetObj  *model.NetworkObject
	curSvcObj  *model.ServiceObject
	curNetGrp  *model.NetworkGroup
	curSvcGrp  *model.ServiceGroup
	curIcmpGrp *model.IcmpGroup
	curTunnel  *model.TunnelGroup

	cryptoEntries map[string]*model.CryptoMapEntry
	cryptoOrder   []string
	cryptoIfaces  map[string]string // map name -> bound interface
}

func NewASAParser(reader io.Reader) *ASAParser {
	return &ASAParser{
		scanner:       bufio.NewScanner(reader),
		snap:          model.NewSnapshot(),
		cryptoEntries: make(map[string]*model.CryptoMapEntry),
		cryptoIfaces:  make(map[string]string),
	}
}

// Parse consumes the whole configuration and returns the snapshot.
func (p *ASAParser) Parse() (*model.Snapshot, error) {
	for p.scanner.Scan() {
		raw := strings.TrimRight(p.scanner.Text(), " \r")
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}
		indented := len(raw) > 0 && (raw[0] == ' ' || raw[0] == '\t')
		if indented && p.parseMember(line) {
			continue
		}
		p.resetBlocks()
		p.parseTopLevel(line)
	}
	if err := p.scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading configuration: %w", err)
	}
	p.finish()
	return p.snap, nil
}

func (p *ASAParser) resetBlocks() {
	p.curNetObj = nil
	p.curSvcObj = nil
	p.curNetGrp = nil
	p.curSvcGrp = nil
	p.curIcmpGrp = nil
	p.curTunnel = nil
}

func (p *ASAParser) parseTopLevel(line string) {
	fields := strings.Fields(line)
	switch {
	case strings.HasPrefix(line, "object network ") && len(fields) >= 3:
		name := fields[2]
		obj, ok := p.snap.NetworkObjects[name]
		if !ok {
			// Repeated blocks for one name merge field-by-field into the
			// same accumulator.
			obj = &model.NetworkObject{Name: name, Kind: model.KindUnknown}
			p.snap.NetworkObjects[name] = obj
		}
		p.curNetObj = obj

	case strings.HasPrefix(line, "object service ") && len(fields) >= 3:
		name := fields[2]
		svc, ok := p.snap.ServiceObjects[name]
		if !ok {
			svc = &model.ServiceObject{Name: name}
			p.snap.ServiceObjects[name] = svc
		}
		p.curSvcObj = svc

	case strings.HasPrefix(line, "object-group network ") && len(fields) >= 3:
		name := fields[2]
		grp, ok := p.snap.NetworkGroups[name]
		if !ok {
			grp = &model.NetworkGroup{Name: name}
			p.snap.NetworkGroups[name] = grp
		}
		p.curNetGrp = grp

	case strings.HasPrefix(line, "object-group service ") && len(fields) >= 3:
		name := fields[2]
		grp, ok := p.snap.ServiceGroups[name]
		if !ok {
			grp = &model.ServiceGroup{Name: name}
			p.snap.ServiceGroups[name] = grp
		}
		if len(fields) >= 4 {
			grp.Protocol = fields[3]
		}
		p.curSvcGrp = grp

	case strings.HasPrefix(line, "object-group icmp-type ") && len(fields) >= 3:
		name := fields[2]
		grp, ok := p.snap.IcmpGroups[name]
		if !ok {
			grp = &model.IcmpGroup{Name: name}
			p.snap.IcmpGroups[name] = grp
		}
		p.curIcmpGrp = grp

	case strings.HasPrefix(line, "access-list "):
		p.parseAccessList(fields)

	case strings.HasPrefix(line, "nat ("):
		p.parseTwiceNat(fields)

	case strings.HasPrefix(line, "crypto map "):
		p.parseCryptoMap(fields)

	case strings.HasPrefix(line, "tunnel-group ") && len(fields) >= 3:
		p.parseTunnelGroup(fields)
	}
}

// parseMember routes an indented line to the open block, if any. Returns
// false when no block is open so the caller can treat the line as
// top-level.
func (p *ASAParser) parseMember(line string) bool {
	switch {
	case p.curNetObj != nil:
		p.parseNetworkObjectLine(p.curNetObj, line)
	case p.curSvcObj != nil:
		p.parseServiceObjectLine(p.curSvcObj, line)
	case p.curNetGrp != nil:
		p.parseNetworkGroupLine(p.curNetGrp, line)
	case p.curSvcGrp != nil:
		p.parseServiceGroupLine(p.curSvcGrp, line)
	case p.curIcmpGrp != nil:
		p.parseIcmpGroupLine(p.curIcmpGrp, line)
	case p.curTunnel != nil:
		p.parseTunnelGroupLine(p.curTunnel, line)
	default:
		return false
	}
	return true
}

func (p *ASAParser) parseNetworkObjectLine(obj *model.NetworkObject, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "host":
		if len(fields) >= 2 {
			obj.Kind = model.KindHost
			obj.IP = fields[1]
		}
	case "subnet":
		if len(fields) >= 3 {
			obj.Kind = model.KindSubnet
			obj.IP = fields[1]
			obj.Mask = fields[2]
		}
	case "range":
		if len(fields) >= 3 {
			obj.Kind = model.KindRange
			obj.RangeStart = fields[1]
			obj.RangeEnd = fields[2]
		}
	case "fqdn":
		rest := fields[1:]
		if len(rest) >= 2 && (rest[0] == "v4" || rest[0] == "v6") {
			rest = rest[1:]
		}
		if len(rest) >= 1 {
			obj.Kind = model.KindFQDN
			obj.FQDN = rest[0]
		}
	case "description":
		obj.Description = strings.TrimPrefix(line, "description ")
	case "nat":
		if nat := parseInlineNat(fields); nat != nil {
			obj.Nat = nat
		}
	default:
		if obj.Kind == model.KindUnknown {
			obj.RawValue = line
		}
	}
}

// parseInlineNat reads "nat (real,mapped) static|dynamic VALUE
// [service PROTO REAL MAPPED]" from inside an object block.
func parseInlineNat(fields []string) *model.InlineNat {
	if len(fields) < 4 {
		return nil
	}
	realZone, mappedZone := parseZones(fields[1])
	natType := model.NatType(fields[2])
	if natType != model.NatStatic && natType != model.NatDynamic {
		return nil
	}
	nat := &model.InlineNat{
		RealZone:        realZone,
		MappedZone:      mappedZone,
		Type:            natType,
		TranslatedValue: fields[3],
	}
	for i := 4; i < len(fields); i++ {
		if fields[i] == "service" && i+3 < len(fields) {
			nat.Pat = &model.PatRule{
				Protocol:   fields[i+1],
				RealPort:   fields[i+2],
				MappedPort: fields[i+3],
			}
			break
		}
	}
	return nat
}

func parseZones(tok string) (string, string) {
	tok = strings.TrimPrefix(tok, "(")
	tok = strings.TrimSuffix(tok, ")")
	realZone, mappedZone, _ := strings.Cut(tok, ",")
	return realZone, mappedZone
}

func (p *ASAParser) parseServiceObjectLine(svc *model.ServiceObject, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "service":
		if len(fields) < 2 {
			return
		}
		svc.Protocol = fields[1]
		rest := fields[2:]
		for len(rest) > 0 {
			switch rest[0] {
			case "source":
				spec, n := portSpec(rest[1:])
				svc.SourcePort = spec
				rest = rest[1+n:]
			case "destination":
				spec, n := portSpec(rest[1:])
				svc.DestPort = spec
				rest = rest[1+n:]
			default:
				rest = rest[1:]
			}
		}
	case "description":
		svc.Description = strings.TrimPrefix(line, "description ")
	}
}

// portSpec reads one operator spec ("eq https", "range 100 200") and
// reports how many tokens it consumed.
func portSpec(toks []string) (string, int) {
	if len(toks) == 0 {
		return "", 0
	}
	switch toks[0] {
	case "eq", "lt", "gt", "neq":
		if len(toks) >= 2 {
			return toks[0] + " " + toks[1], 2
		}
	case "range":
		if len(toks) >= 3 {
			return toks[0] + " " + toks[1] + " " + toks[2], 3
		}
	}
	return toks[0], 1
}

func (p *ASAParser) parseNetworkGroupLine(grp *model.NetworkGroup, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "network-object":
		if len(fields) < 2 {
			return
		}
		switch {
		case fields[1] == "host" && len(fields) >= 3:
			grp.Members = append(grp.Members, model.HostRef(fields[2]))
		case fields[1] == "object" && len(fields) >= 3:
			grp.Members = append(grp.Members, model.ObjectRef(fields[2]))
		case len(fields) >= 3 && utils.IsIPv4(fields[1]) && utils.IsDottedMask(fields[2]):
			grp.Members = append(grp.Members, model.SubnetRef(fields[1], fields[2]))
		default:
			grp.Members = append(grp.Members, model.LiteralRef(strings.Join(fields[1:], " ")))
		}
	case "group-object":
		if len(fields) >= 2 {
			grp.Members = append(grp.Members, model.GroupRef(fields[1]))
		}
	case "description":
		grp.Description = strings.TrimPrefix(line, "description ")
	}
}

func (p *ASAParser) parseServiceGroupLine(grp *model.ServiceGroup, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "port-object":
		spec, _ := portSpec(fields[1:])
		if spec != "" {
			grp.Members = append(grp.Members, model.PortRef(spec))
		}
	case "service-object":
		if len(fields) >= 3 && fields[1] == "object" {
			grp.Members = append(grp.Members, model.ObjectRef(fields[2]))
		} else if len(fields) >= 2 {
			grp.Members = append(grp.Members, model.LiteralRef(strings.Join(fields[1:], " ")))
		}
	case "group-object":
		if len(fields) >= 2 {
			grp.Members = append(grp.Members, model.GroupRef(fields[1]))
		}
	case "description":
		grp.Description = strings.TrimPrefix(line, "description ")
	}
}

func (p *ASAParser) parseIcmpGroupLine(grp *model.IcmpGroup, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "icmp-object":
		if len(fields) >= 2 {
			grp.Members = append(grp.Members, model.LiteralRef(fields[1]))
		}
	case "group-object":
		if len(fields) >= 2 {
			grp.Members = append(grp.Members, model.GroupRef(fields[1]))
		}
	}
}

func (p *ASAParser) parseAccessList(fields []string) {
	// access-list NAME [extended] permit|deny PROTO SRC [DST] [SERVICE] ...
	if len(fields) < 4 {
		return
	}
	name := fields[1]
	rest := fields[2:]
	if rest[0] == "remark" || rest[0] == "standard" {
		return
	}
	if rest[0] == "extended" {
		rest = rest[1:]
	}
	if len(rest) < 2 {
		return
	}
	action := model.ACLAction(rest[0])
	if action != model.ActionPermit && action != model.ActionDeny {
		return
	}
	rest = rest[1:]

	entry := model.ACLEntry{ACLName: name, Action: action}
	if rest[0] == "object-group" && len(rest) >= 2 {
		entry.ProtocolGroup = rest[1]
		rest = rest[2:]
	} else {
		entry.Protocol = rest[0]
		rest = rest[1:]
	}
	if len(rest) >= 2 && rest[0] == "user" {
		entry.User = rest[1]
		rest = rest[2:]
	}

	src, n := parseSelector(rest)
	if n == 0 {
		return
	}
	entry.Source = src
	rest = rest[n:]

	if dst, n := peekSelector(rest); n > 0 {
		entry.Destination = dst
		rest = rest[n:]
	}

	p.parseACLTrailer(&entry, rest)
	p.snap.ACLs[name] = append(p.snap.ACLs[name], entry)
}

// parseSelector always consumes at least one token, falling back to an
// opaque literal.
func parseSelector(toks []string) (model.Reference, int) {
	if len(toks) == 0 {
		return model.Reference{}, 0
	}
	if ref, n := peekSelector(toks); n > 0 {
		return ref, n
	}
	return model.LiteralRef(toks[0]), 1
}

// peekSelector reads a selector only if the leading tokens strictly form
// one; anything else (e.g. a port operator) is left for the trailer.
func peekSelector(toks []string) (model.Reference, int) {
	if len(toks) == 0 {
		return model.Reference{}, 0
	}
	switch toks[0] {
	case "any", "any4":
		return model.AnyRef(toks[0]), 1
	case "host":
		if len(toks) >= 2 {
			return model.HostRef(toks[1]), 2
		}
	case "object":
		if len(toks) >= 2 {
			return model.ObjectRef(toks[1]), 2
		}
	case "object-group":
		if len(toks) >= 2 {
			return model.GroupRef(toks[1]), 2
		}
	case "interface":
		if len(toks) >= 2 {
			return model.LiteralRef("interface " + toks[1]), 2
		}
	}
	if len(toks) >= 2 && utils.IsIPv4(toks[0]) && utils.IsDottedMask(toks[1]) {
		return model.SubnetRef(toks[0], toks[1]), 2
	}
	return model.Reference{}, 0
}

func (p *ASAParser) parseACLTrailer(entry *model.ACLEntry, toks []string) {
	for i := 0; i < len(toks); {
		switch toks[i] {
		case "log":
			entry.Log = true
			i++
			for i < len(toks) && isLogArg(toks[i]) {
				i++
			}
		case "inactive":
			entry.Inactive = true
			i++
		case "time-range":
			i += 2
		case "object-group":
			if i+1 < len(toks) {
				entry.ServiceGroup = toks[i+1]
			}
			i += 2
		case "eq", "lt", "gt", "neq":
			if i+1 < len(toks) {
				appendService(entry, toks[i]+" "+toks[i+1])
			}
			i += 2
		case "range":
			if i+2 < len(toks) {
				appendService(entry, toks[i]+" "+toks[i+1]+" "+toks[i+2])
			}
			i += 3
		default:
			appendService(entry, toks[i])
			i++
		}
	}
}

func appendService(entry *model.ACLEntry, tok string) {
	if entry.Service == "" {
		entry.Service = tok
	} else {
		entry.Service += " " + tok
	}
}

func isLogArg(tok string) bool {
	switch tok {
	case "interval", "disable", "default", "emergencies", "alerts", "critical",
		"errors", "warnings", "notifications", "informational", "debugging":
		return true
	}
	_, err := strconv.Atoi(tok)
	return err == nil
}

func (p *ASAParser) parseTwiceNat(fields []string) {
	// nat (real,mapped) [POS] source static|dynamic REAL MAPPED
	//   [destination static REAL MAPPED] [no-proxy-arp] [route-lookup]
	if len(fields) < 2 {
		return
	}
	realZone, mappedZone := parseZones(fields[1])
	rest := fields[2:]
	if len(rest) > 0 {
		if _, err := strconv.Atoi(rest[0]); err == nil {
			rest = rest[1:]
		}
	}
	if len(rest) < 4 || rest[0] != "source" {
		return
	}

	rule := model.NatRule{
		Style:        model.StyleTwiceNat,
		RealZone:     realZone,
		MappedZone:   mappedZone,
		SourceType:   model.NatType(rest[1]),
		RealSource:   rest[2],
		MappedSource: rest[3],
	}
	rest = rest[4:]
	if len(rest) >= 4 && rest[0] == "destination" {
		rule.DestType = model.NatType(rest[1])
		rule.RealDest = rest[2]
		rule.MappedDest = rest[3]
		rest = rest[4:]
	}
	for _, tok := range rest {
		switch tok {
		case "no-proxy-arp":
			rule.NoProxyArp = true
		case "route-lookup":
			rule.RouteLookup = true
		}
	}
	p.snap.NatRules = append(p.snap.NatRules, rule)
}

func (p *ASAParser) parseCryptoMap(fields []string) {
	// crypto map NAME SEQ SUBCOMMAND ... | crypto map NAME interface IF
	if len(fields) < 5 {
		return
	}
	name := fields[2]
	if fields[3] == "interface" {
		p.cryptoIfaces[name] = fields[4]
		return
	}
	seq, err := strconv.Atoi(fields[3])
	if err != nil {
		return
	}
	entry := p.cryptoEntry(name, seq)
	rest := fields[4:]

	switch {
	case rest[0] == "match" && len(rest) >= 3 && rest[1] == "address":
		entry.ACLName = rest[2]
	case rest[0] == "set" && len(rest) >= 2:
		p.parseCryptoSet(entry, rest[1:])
	}
}

func (p *ASAParser) parseCryptoSet(entry *model.CryptoMapEntry, toks []string) {
	switch toks[0] {
	case "peer":
		if len(toks) >= 2 {
			entry.Peer = toks[1]
		}
	case "ikev1", "ikev2":
		if len(toks) >= 3 && toks[1] == "transform-set" {
			entry.TransformSets = append(entry.TransformSets, toks[2:]...)
		} else if len(toks) >= 3 && toks[1] == "ipsec-proposal" {
			entry.TransformSets = append(entry.TransformSets, toks[2:]...)
		}
	case "transform-set":
		if len(toks) >= 2 {
			entry.TransformSets = append(entry.TransformSets, toks[1:]...)
		}
	case "pfs":
		entry.PFSGroup = "group2"
		if len(toks) >= 2 {
			entry.PFSGroup = toks[1]
		}
	case "security-association":
		for i := 1; i < len(toks)-1; i++ {
			switch toks[i] {
			case "seconds":
				entry.SALifetimeSeconds, _ = strconv.Atoi(toks[i+1])
			case "kilobytes":
				entry.SALifetimeKB, _ = strconv.Atoi(toks[i+1])
			}
		}
	case "nat-t-disable":
		entry.NatTDisabled = true
	}
}

func (p *ASAParser) cryptoEntry(name string, seq int) *model.CryptoMapEntry {
	key := name + " " + strconv.Itoa(seq)
	if e, ok := p.cryptoEntries[key]; ok {
		return e
	}
	e := &model.CryptoMapEntry{MapName: name, Sequence: seq}
	p.cryptoEntries[key] = e
	p.cryptoOrder = append(p.cryptoOrder, key)
	return e
}

func (p *ASAParser) parseTunnelGroup(fields []string) {
	peer := fields[1]
	tg, ok := p.snap.TunnelGroups[peer]
	if !ok {
		tg = &model.TunnelGroup{Peer: peer, IKEVersion: "unknown"}
		p.snap.TunnelGroups[peer] = tg
	}
	switch fields[2] {
	case "type":
		if len(fields) >= 4 {
			tg.Type = fields[3]
		}
	case "ipsec-attributes", "general-attributes":
		p.curTunnel = tg
	}
}

func (p *ASAParser) parseTunnelGroupLine(tg *model.TunnelGroup, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "ikev1":
		if len(fields) >= 2 && fields[1] == "pre-shared-key" {
			tg.IKEVersion = "ikev1"
			tg.HasPresharedKey = true
		}
	case "ikev2":
		for _, tok := range fields[1:] {
			if tok == "pre-shared-key" {
				tg.IKEVersion = "ikev2"
				tg.HasPresharedKey = true
			}
		}
	case "pre-shared-key":
		tg.HasPresharedKey = true
	}
}

// finish applies interface bindings to crypto-map entries and derives one
// object-NAT rule per network object that carries an inline translation.
func (p *ASAParser) finish() {
	for _, key := range p.cryptoOrder {
		entry := p.cryptoEntries[key]
		if iface, ok := p.cryptoIfaces[entry.MapName]; ok {
			entry.Interface = iface
		}
		p.snap.CryptoMaps = append(p.snap.CryptoMaps, *entry)
	}

	deriveObjectNatRules(p.snap)
}

// deriveObjectNatRules appends one object-NAT rule per network object that
// carries an inline translation, in object-name order.
func deriveObjectNatRules(snap *model.Snapshot) {
	names := make([]string, 0, len(snap.NetworkObjects))
	for name := range snap.NetworkObjects {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		obj := snap.NetworkObjects[name]
		if obj.Nat == nil {
			continue
		}
		snap.NatRules = append(snap.NatRules, model.NatRule{
			Style:        model.StyleObjectNat,
			ObjectName:   obj.Name,
			RealZone:     obj.Nat.RealZone,
			MappedZone:   obj.Nat.MappedZone,
			SourceType:   obj.Nat.Type,
			RealSource:   obj.Address(),
			MappedSource: obj.Nat.TranslatedValue,
		})
	}
}
