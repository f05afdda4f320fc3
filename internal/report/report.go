// Package report renders the engine's derived collections as aligned text
// or CSV. Filtering is purely presentational; the engine output is never
// filtered at the source.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"asa-config-analyzer/internal/model"
	"asa-config-analyzer/pkg/wellknown"
)

type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
)

type Writer struct {
	out    io.Writer
	format Format
	filter string // wildcard name filter, empty matches everything
}

func NewWriter(out io.Writer, format Format, filter string) *Writer {
	return &Writer{out: out, format: format, filter: filter}
}

// SectionTitle separates the reports of a combined run. Emitted as a
// comment-style line so each section's rows stay machine-readable.
func (w *Writer) SectionTitle(title string) {
	fmt.Fprintf(w.out, "# %s\n", title)
}

func (w *Writer) BlankLine() {
	fmt.Fprintln(w.out)
}

func (w *Writer) matches(name string) bool {
	if w.filter == "" {
		return true
	}
	ok, err := path.Match(strings.ToLower(w.filter), strings.ToLower(name))
	return err == nil && ok
}

func (w *Writer) render(header []string, rows [][]string) error {
	if w.format == FormatCSV {
		cw := csv.NewWriter(w.out)
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, row := range rows {
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	}

	tw := tabwriter.NewWriter(w.out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// WriteObjects lists network objects with their derived address values and
// inline translations, sorted by name.
func (w *Writer) WriteObjects(snap *model.Snapshot) error {
	names := make([]string, 0, len(snap.NetworkObjects))
	for name := range snap.NetworkObjects {
		names = append(names, name)
	}
	sort.Strings(names)

	var rows [][]string
	for _, name := range names {
		if !w.matches(name) {
			continue
		}
		obj := snap.NetworkObjects[name]
		translated := ""
		if obj.Nat != nil {
			translated = obj.Nat.TranslatedValue + " (" + string(obj.Nat.Type) + ")"
		}
		rows = append(rows, []string{
			obj.Name, string(obj.Kind), obj.Address(), translated, obj.Description,
		})
	}
	return w.render([]string{"name", "kind", "address", "translated", "description"}, rows)
}

// WriteNatRules lists NAT rules with their derived categories.
func (w *Writer) WriteNatRules(rules []model.NatRule) error {
	var rows [][]string
	for _, rule := range rules {
		name := rule.ObjectName
		if name == "" {
			name = rule.RealSource
		}
		if !w.matches(name) {
			continue
		}
		rows = append(rows, []string{
			string(rule.Style),
			string(rule.Category),
			rule.RealZone + "," + rule.MappedZone,
			rule.RealSource + " -> " + rule.MappedSource,
			natDestColumn(rule),
			rule.ObjectName,
			natFlags(rule),
		})
	}
	return w.render([]string{"style", "category", "zones", "source", "destination", "object", "flags"}, rows)
}

func natDestColumn(rule model.NatRule) string {
	if rule.RealDest == "" && rule.MappedDest == "" {
		return ""
	}
	return rule.RealDest + " -> " + rule.MappedDest
}

func natFlags(rule model.NatRule) string {
	var flags []string
	if rule.NoProxyArp {
		flags = append(flags, "no-proxy-arp")
	}
	if rule.RouteLookup {
		flags = append(flags, "route-lookup")
	}
	return strings.Join(flags, " ")
}

// WriteVPNs lists site-to-site VPNs with their de-duplicated Phase-2
// network lists.
func (w *Writer) WriteVPNs(vpns []model.VpnConfig) error {
	var rows [][]string
	for _, vpn := range vpns {
		if !w.matches(vpn.Peer) {
			continue
		}
		rows = append(rows, []string{
			vpn.Peer,
			vpn.MapName + " " + strconv.Itoa(vpn.Sequence),
			vpn.Interface,
			vpn.IKEVersion,
			vpn.PFSGroup,
			strings.Join(vpn.TransformSets, ";"),
			vpn.ACLName,
			strconv.Itoa(len(vpn.Selectors)),
			strings.Join(vpn.LocalNetworks, ";"),
			strings.Join(vpn.RemoteNetworks, ";"),
		})
	}
	return w.render([]string{
		"peer", "crypto map", "interface", "ike", "pfs", "transform sets",
		"acl", "selectors", "local networks", "remote networks",
	}, rows)
}

// WriteReachability lists which translated addresses the inbound ACL
// exposes, one row per matching (NAT rule, ACL entry) pair.
func (w *Writer) WriteReachability(records []model.ReachabilityRecord) error {
	var rows [][]string
	for _, rec := range records {
		name := rec.ObjectName
		if name == "" {
			name = rec.RealAddress
		}
		if !w.matches(name) {
			continue
		}
		rows = append(rows, []string{
			rec.ObjectName,
			rec.RealAddress,
			rec.MappedAddress,
			string(rec.Match),
			rec.Protocol,
			rec.Service,
			ServicePort(rec.Service),
			rec.Source,
			rec.ACLName,
		})
	}
	return w.render([]string{
		"object", "real address", "mapped address", "match", "protocol",
		"service", "port", "source", "acl",
	}, rows)
}

// ServicePort extracts a numeric port from a service descriptor such as
// "eq https" or "range 8000 8010", translating ASA port literals. Returns
// an empty string when the descriptor carries no single port.
func ServicePort(service string) string {
	fields := strings.Fields(service)
	switch {
	case len(fields) == 2 && fields[0] == "eq":
		if port, ok := wellknown.Port(fields[1]); ok {
			return strconv.Itoa(port)
		}
	case len(fields) == 3 && fields[0] == "range":
		lo, okLo := wellknown.Port(fields[1])
		hi, okHi := wellknown.Port(fields[2])
		if okLo && okHi {
			return strconv.Itoa(lo) + "-" + strconv.Itoa(hi)
		}
	}
	return ""
}
