package parser

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"asa-config-analyzer/internal/model"

	_ "github.com/go-sql-driver/mysql"
)

// MariaDBProvider loads a Snapshot from a database that mirrors the
// configuration entity tables. Group members and ACL selectors are stored
// as prefixed reference tokens (JSON-encoded lists for members).
type MariaDBProvider struct {
	db   *sql.DB
	snap *model.Snapshot
}

func NewMariaDBProvider(dsn string) (*MariaDBProvider, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &MariaDBProvider{db: db, snap: model.NewSnapshot()}, nil
}

func (p *MariaDBProvider) Close() {
	p.db.Close()
}

func (p *MariaDBProvider) Parse() (*model.Snapshot, error) {
	if err := p.loadNetworkObjects(); err != nil {
		return nil, fmt.Errorf("failed to load network objects: %w", err)
	}
	if err := p.loadNetworkGroups(); err != nil {
		return nil, fmt.Errorf("failed to load network groups: %w", err)
	}
	if err := p.loadServiceObjects(); err != nil {
		return nil, fmt.Errorf("failed to load service objects: %w", err)
	}
	if err := p.loadServiceGroups(); err != nil {
		return nil, fmt.Errorf("failed to load service groups: %w", err)
	}
	if err := p.loadACLEntries(); err != nil {
		return nil, fmt.Errorf("failed to load acl entries: %w", err)
	}
	if err := p.loadNatRules(); err != nil {
		return nil, fmt.Errorf("failed to load nat rules: %w", err)
	}
	if err := p.loadCryptoMaps(); err != nil {
		return nil, fmt.Errorf("failed to load crypto maps: %w", err)
	}
	if err := p.loadTunnelGroups(); err != nil {
		return nil, fmt.Errorf("failed to load tunnel groups: %w", err)
	}

	deriveObjectNatRules(p.snap)
	return p.snap, nil
}

func (p *MariaDBProvider) loadNetworkObjects() error {
	rows, err := p.db.Query(`SELECT object_name, kind, ip, mask, range_start, range_end,
		fqdn, description, nat_real_zone, nat_mapped_zone, nat_type, nat_translated
		FROM cfg_network_object`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, kind string
		var ip, mask, rangeStart, rangeEnd, fqdn, descr sql.NullString
		var natReal, natMapped, natType, natTranslated sql.NullString
		if err := rows.Scan(&name, &kind, &ip, &mask, &rangeStart, &rangeEnd,
			&fqdn, &descr, &natReal, &natMapped, &natType, &natTranslated); err != nil {
			return err
		}

		obj := &model.NetworkObject{
			Name:        name,
			Kind:        model.ObjectKind(kind),
			IP:          ip.String,
			Mask:        mask.String,
			RangeStart:  rangeStart.String,
			RangeEnd:    rangeEnd.String,
			FQDN:        fqdn.String,
			Description: descr.String,
		}
		if natType.Valid && natType.String != "" {
			obj.Nat = &model.InlineNat{
				RealZone:        natReal.String,
				MappedZone:      natMapped.String,
				Type:            model.NatType(natType.String),
				TranslatedValue: natTranslated.String,
			}
		}
		p.snap.NetworkObjects[name] = obj
	}
	return rows.Err()
}

func (p *MariaDBProvider) loadNetworkGroups() error {
	rows, err := p.db.Query("SELECT group_name, description, members FROM cfg_network_group")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, membersJSON string
		var descr sql.NullString
		if err := rows.Scan(&name, &descr, &membersJSON); err != nil {
			return err
		}
		members, err := parseMemberTokens(membersJSON)
		if err != nil {
			return fmt.Errorf("group %s: %w", name, err)
		}
		p.snap.NetworkGroups[name] = &model.NetworkGroup{
			Name:        name,
			Description: descr.String,
			Members:     members,
		}
	}
	return rows.Err()
}

func (p *MariaDBProvider) loadServiceObjects() error {
	rows, err := p.db.Query(`SELECT object_name, protocol, source_port, dest_port, description
		FROM cfg_service_object`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, proto string
		var srcPort, dstPort, descr sql.NullString
		if err := rows.Scan(&name, &proto, &srcPort, &dstPort, &descr); err != nil {
			return err
		}
		p.snap.ServiceObjects[name] = &model.ServiceObject{
			Name:        name,
			Protocol:    proto,
			SourcePort:  srcPort.String,
			DestPort:    dstPort.String,
			Description: descr.String,
		}
	}
	return rows.Err()
}

func (p *MariaDBProvider) loadServiceGroups() error {
	rows, err := p.db.Query("SELECT group_name, protocol, description, members FROM cfg_service_group")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, membersJSON string
		var proto, descr sql.NullString
		if err := rows.Scan(&name, &proto, &descr, &membersJSON); err != nil {
			return err
		}
		members, err := parseMemberTokens(membersJSON)
		if err != nil {
			return fmt.Errorf("service group %s: %w", name, err)
		}
		p.snap.ServiceGroups[name] = &model.ServiceGroup{
			Name:        name,
			Protocol:    proto.String,
			Description: descr.String,
			Members:     members,
		}
	}
	return rows.Err()
}

func (p *MariaDBProvider) loadACLEntries() error {
	rows, err := p.db.Query(`SELECT acl_name, action, protocol, protocol_group,
		source, destination, service_group, service, acl_user, log_enabled, inactive
		FROM cfg_acl_entry ORDER BY entry_id ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var entry model.ACLEntry
		var action, src string
		var protocol, protoGroup, dst, svcGroup, svc, user sql.NullString
		if err := rows.Scan(&entry.ACLName, &action, &protocol, &protoGroup,
			&src, &dst, &svcGroup, &svc, &user, &entry.Log, &entry.Inactive); err != nil {
			return err
		}
		entry.Action = model.ACLAction(action)
		entry.Protocol = protocol.String
		entry.ProtocolGroup = protoGroup.String
		entry.Source = model.ParseToken(src)
		if dst.Valid && dst.String != "" {
			entry.Destination = model.ParseToken(dst.String)
		}
		entry.ServiceGroup = svcGroup.String
		entry.Service = svc.String
		entry.User = user.String
		p.snap.ACLs[entry.ACLName] = append(p.snap.ACLs[entry.ACLName], entry)
	}
	return rows.Err()
}

func (p *MariaDBProvider) loadNatRules() error {
	rows, err := p.db.Query(`SELECT real_zone, mapped_zone, source_type, dest_type,
		real_source, mapped_source, real_dest, mapped_dest, no_proxy_arp, route_lookup
		FROM cfg_nat_rule ORDER BY rule_id ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var rule model.NatRule
		var srcType string
		var dstType, realDest, mappedDest sql.NullString
		if err := rows.Scan(&rule.RealZone, &rule.MappedZone, &srcType, &dstType,
			&rule.RealSource, &rule.MappedSource, &realDest, &mappedDest,
			&rule.NoProxyArp, &rule.RouteLookup); err != nil {
			return err
		}
		rule.Style = model.StyleTwiceNat
		rule.SourceType = model.NatType(srcType)
		rule.DestType = model.NatType(dstType.String)
		rule.RealDest = realDest.String
		rule.MappedDest = mappedDest.String
		p.snap.NatRules = append(p.snap.NatRules, rule)
	}
	return rows.Err()
}

func (p *MariaDBProvider) loadCryptoMaps() error {
	rows, err := p.db.Query(`SELECT map_name, sequence, peer, acl_name, transform_sets,
		pfs_group, sa_lifetime_seconds, sa_lifetime_kb, nat_t_disabled, interface
		FROM cfg_crypto_map ORDER BY map_name, sequence ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var entry model.CryptoMapEntry
		var transformsJSON string
		var peer, aclName, pfs, iface sql.NullString
		if err := rows.Scan(&entry.MapName, &entry.Sequence, &peer, &aclName,
			&transformsJSON, &pfs, &entry.SALifetimeSeconds, &entry.SALifetimeKB,
			&entry.NatTDisabled, &iface); err != nil {
			return err
		}
		entry.Peer = peer.String
		entry.ACLName = aclName.String
		entry.PFSGroup = pfs.String
		entry.Interface = iface.String
		if transformsJSON != "" {
			if err := json.Unmarshal([]byte(transformsJSON), &entry.TransformSets); err != nil {
				return fmt.Errorf("crypto map %s %d: %w", entry.MapName, entry.Sequence, err)
			}
		}
		p.snap.CryptoMaps = append(p.snap.CryptoMaps, entry)
	}
	return rows.Err()
}

func (p *MariaDBProvider) loadTunnelGroups() error {
	rows, err := p.db.Query(`SELECT peer, group_type, ike_version, has_preshared_key
		FROM cfg_tunnel_group`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tg model.TunnelGroup
		var ikeVersion sql.NullString
		if err := rows.Scan(&tg.Peer, &tg.Type, &ikeVersion, &tg.HasPresharedKey); err != nil {
			return err
		}
		tg.IKEVersion = ikeVersion.String
		p.snap.TunnelGroups[tg.Peer] = &tg
	}
	return rows.Err()
}

func parseMemberTokens(membersJSON string) ([]model.Reference, error) {
	var tokens []string
	if err := json.Unmarshal([]byte(membersJSON), &tokens); err != nil {
		return nil, fmt.Errorf("bad member list: %w", err)
	}
	members := make([]model.Reference, 0, len(tokens))
	for _, tok := range tokens {
		members = append(members, model.ParseToken(tok))
	}
	return members, nil
}
