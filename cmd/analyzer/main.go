package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"asa-config-analyzer/internal/config"
	"asa-config-analyzer/internal/engine"
	"asa-config-analyzer/internal/model"
	"asa-config-analyzer/internal/parser"
	"asa-config-analyzer/internal/report"

	"github.com/spf13/cobra"
)

var (
	configFile  string
	cfgProvider string
	rulesFile   string
	rulesDB     string
	inboundACL  string
	nameFilter  string
	outFormat   string
	outFile     string
	logLevel    string
	logFile     string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "asa-analyzer",
		Short: "A static analyzer for ASA firewall configurations",
		Long: `asa-analyzer reads an ASA configuration and derives what the text alone
implies: object and group resolutions, NAT rule categories, site-to-site VPN
definitions, and which translated addresses the inbound ACL exposes.`,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Optional YAML configuration file")
	pf.StringVar(&cfgProvider, "provider", "asa", "Configuration provider: 'asa' or 'mariadb'")
	pf.StringVar(&rulesFile, "rules", "", "ASA configuration file (for 'asa' provider)")
	pf.StringVar(&rulesDB, "db", "", "Database connection string (for 'mariadb' provider)")
	pf.StringVar(&inboundACL, "inbound-acl", "outside_access_in", "Inbound access list checked for reachability")
	pf.StringVar(&nameFilter, "filter", "", "Wildcard filter on object names in reports")
	pf.StringVar(&outFormat, "format", "table", "Output format: 'table' or 'csv'")
	pf.StringVar(&outFile, "out", "", "Output file path (default: stdout)")
	pf.StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")

	rootCmd.AddCommand(
		newRunCmd("objects", "List network objects with derived address values", runObjects),
		newRunCmd("nat", "List NAT rules with derived categories", runNat),
		newRunCmd("vpn", "List site-to-site VPNs joined from crypto maps and tunnel groups", runVPN),
		newRunCmd("reachable", "List translated addresses the inbound ACL exposes", runReachable),
		newRunCmd("all", "Run every analysis and print all reports", runAll),
	)
	return rootCmd
}

func newRunCmd(use, short string, run func(*cobra.Command, []string) error) *cobra.Command {
	return &cobra.Command{Use: use, Short: short, RunE: run, SilenceUsage: true}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig merges the optional YAML file with command-line flags.
// Flags the user set explicitly win over file values.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Defaults()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	flags := cmd.Flags()
	if flags.Changed("inbound-acl") {
		cfg.InboundACL = inboundACL
	}
	if flags.Changed("filter") {
		cfg.Filter = nameFilter
	}
	if flags.Changed("format") {
		cfg.Output.Format = outFormat
	}
	if flags.Changed("out") {
		cfg.Output.File = outFile
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-file") {
		cfg.Logging.File = logFile
	}

	switch cfg.Output.Format {
	case "table", "csv":
	default:
		return nil, fmt.Errorf("unknown output format: %s", cfg.Output.Format)
	}
	return &cfg, nil
}

func setupLogger(level, logFilePath string) *slog.Logger {
	var logWriter io.Writer = os.Stderr
	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logWriter = f
		}
		// We don't log an error here because the logger isn't set up yet.
		// It will just fall back to stderr.
	}

	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "INFO":
		lvl = slog.LevelInfo
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{Level: lvl}))
}

func loadSnapshot(provider, rulesPath, dbConnStr string) (*model.Snapshot, error) {
	switch provider {
	case "asa":
		if rulesPath == "" {
			return nil, fmt.Errorf("rules file path must be provided for asa provider")
		}
		file, err := os.Open(rulesPath)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return parser.NewASAParser(file).Parse()
	case "mariadb":
		if dbConnStr == "" {
			return nil, fmt.Errorf("database connection string must be provided for mariadb provider")
		}
		p, err := parser.NewMariaDBProvider(dbConnStr)
		if err != nil {
			return nil, err
		}
		defer p.Close()
		return p.Parse()
	default:
		return nil, fmt.Errorf("unknown configuration provider: %s", provider)
	}
}

// prepare runs the setup shared by every subcommand: config merge, logging,
// snapshot loading and the report writer.
func prepare(cmd *cobra.Command) (*config.Config, *model.Snapshot, *report.Writer, func(), error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	slog.SetDefault(setupLogger(cfg.Logging.Level, cfg.Logging.File))

	slog.Info("Loading configuration", "provider", cfgProvider)
	start := time.Now()
	snap, err := loadSnapshot(cfgProvider, rulesFile, rulesDB)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return nil, nil, nil, nil, err
	}
	slog.Info("Configuration loaded",
		"network_objects", len(snap.NetworkObjects),
		"network_groups", len(snap.NetworkGroups),
		"nat_rules", len(snap.NatRules),
		"duration", time.Since(start))

	out := io.Writer(os.Stdout)
	cleanup := func() {}
	if cfg.Output.File != "" {
		f, err := os.Create(cfg.Output.File)
		if err != nil {
			slog.Error("Failed to create output file", "path", cfg.Output.File, "error", err)
			return nil, nil, nil, nil, err
		}
		out = f
		cleanup = func() { f.Close() }
	}

	writer := report.NewWriter(out, report.Format(cfg.Output.Format), cfg.Filter)
	return cfg, snap, writer, cleanup, nil
}

func runObjects(cmd *cobra.Command, args []string) error {
	_, snap, writer, cleanup, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	return writer.WriteObjects(snap)
}

func runNat(cmd *cobra.Command, args []string) error {
	_, snap, writer, cleanup, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	return writer.WriteNatRules(engine.ClassifyAll(snap.NatRules))
}

func runVPN(cmd *cobra.Command, args []string) error {
	_, snap, writer, cleanup, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	vpns, err := engine.BuildVPNs(snap)
	if err != nil {
		slog.Error("Failed to build VPN definitions", "error", err)
		return err
	}
	slog.Info("VPN definitions built", "count", len(vpns))
	return writer.WriteVPNs(vpns)
}

func runReachable(cmd *cobra.Command, args []string) error {
	cfg, snap, writer, cleanup, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := engine.CorrelateInbound(snap, cfg.InboundACL)
	if err != nil {
		slog.Error("Failed to correlate NAT rules with inbound ACL", "error", err)
		return err
	}
	slog.Info("Reachability correlated", "acl", cfg.InboundACL, "records", len(records))
	return writer.WriteReachability(records)
}

func runAll(cmd *cobra.Command, args []string) error {
	cfg, snap, writer, cleanup, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// The VPN join and the reachability correlation are independent reads of
	// the same snapshot, so they run concurrently.
	var (
		wg       sync.WaitGroup
		vpns     []model.VpnConfig
		records  []model.ReachabilityRecord
		vpnErr   error
		reachErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		vpns, vpnErr = engine.BuildVPNs(snap)
	}()
	go func() {
		defer wg.Done()
		records, reachErr = engine.CorrelateInbound(snap, cfg.InboundACL)
	}()
	wg.Wait()
	if vpnErr != nil {
		return vpnErr
	}
	if reachErr != nil {
		return reachErr
	}

	sections := []struct {
		title string
		write func() error
	}{
		{"objects", func() error { return writer.WriteObjects(snap) }},
		{"nat", func() error { return writer.WriteNatRules(engine.ClassifyAll(snap.NatRules)) }},
		{"vpn", func() error { return writer.WriteVPNs(vpns) }},
		{"reachable", func() error { return writer.WriteReachability(records) }},
	}
	for i, section := range sections {
		if i > 0 {
			writer.BlankLine()
		}
		writer.SectionTitle(section.title)
		if err := section.write(); err != nil {
			return err
		}
	}
	return nil
}
