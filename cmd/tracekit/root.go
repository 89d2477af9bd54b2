package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/hervehildenbrand/gtrace/internal/trace"
	"github.com/hervehildenbrand/gtrace/pkg/hop"
)

// cliConfig holds the flag values for a single trace invocation, mirroring
// §6's external interface before they are translated into a TracerConfig.
type cliConfig struct {
	Protocol    string
	Port        uint16
	MaxHops     uint8
	FirstHop    uint8
	MaxInflight int
	MaxRounds   int
	Timeout     time.Duration
	PacketSize  int
	Multipath   string
	PortMode    string
	Verbose     bool
}

var validProtocols = map[string]trace.Protocol{
	"icmp": trace.ProtocolICMP,
	"udp":  trace.ProtocolUDP,
	"tcp":  trace.ProtocolTCP,
}

var validMultipath = map[string]trace.MultipathStrategy{
	"classic": trace.MultipathClassic,
	"paris":   trace.MultipathParis,
	"dublin":  trace.MultipathDublin,
}

var validPortModes = map[string]trace.PortDirection{
	"fixed-src":  trace.FixedSrc,
	"fixed-dst":  trace.FixedDst,
	"fixed-both": trace.FixedBoth,
}

// NewRootCmd builds the tracekit command tree: a single "trace" operation
// that resolves a target, runs the engine, and streams hop updates to
// stdout as they complete.
func NewRootCmd() *cobra.Command {
	cfg := cliConfig{
		Protocol:    "icmp",
		Port:        33434,
		MaxHops:     30,
		FirstHop:    1,
		MaxInflight: 16,
		MaxRounds:   3,
		Timeout:     time.Second,
		PacketSize:  60,
		Multipath:   "classic",
		PortMode:    "fixed-src",
	}

	cmd := &cobra.Command{
		Use:   "tracekit <target>",
		Short: "Discover the network path to a target host, hop by hop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd, args[0], cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Protocol, "protocol", cfg.Protocol, "probe protocol: icmp, udp, or tcp")
	flags.Uint16Var(&cfg.Port, "port", cfg.Port, "udp/tcp port held fixed by --port-mode; also the base for whichever port varies per probe")
	flags.Uint8Var(&cfg.MaxHops, "max-hops", cfg.MaxHops, "maximum TTL to probe")
	flags.Uint8Var(&cfg.FirstHop, "first-hop", cfg.FirstHop, "first TTL to probe")
	flags.IntVar(&cfg.MaxInflight, "max-inflight", cfg.MaxInflight, "maximum probes outstanding at once")
	flags.IntVar(&cfg.MaxRounds, "rounds", cfg.MaxRounds, "number of rounds to run (0 means unbounded)")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-probe read timeout")
	flags.IntVar(&cfg.PacketSize, "packet-size", cfg.PacketSize, "probe packet size in bytes")
	flags.StringVar(&cfg.Multipath, "multipath", cfg.Multipath, "multipath strategy: classic, paris, or dublin")
	flags.StringVar(&cfg.PortMode, "port-mode", cfg.PortMode, "port discriminator placement: fixed-src, fixed-dst, or fixed-both")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "enable debug logging")

	return cmd
}

func buildLogger(verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.Kitchen}))
}

func runTrace(cmd *cobra.Command, target string, cli cliConfig) error {
	protocol, ok := validProtocols[cli.Protocol]
	if !ok {
		return fmt.Errorf("unknown protocol %q: want one of icmp, udp, tcp", cli.Protocol)
	}
	multipath, ok := validMultipath[cli.Multipath]
	if !ok {
		return fmt.Errorf("unknown multipath strategy %q: want one of classic, paris, dublin", cli.Multipath)
	}
	portMode, ok := validPortModes[cli.PortMode]
	if !ok {
		return fmt.Errorf("unknown port mode %q: want one of fixed-src, fixed-dst, fixed-both", cli.PortMode)
	}

	logger := buildLogger(cli.Verbose, cmd.ErrOrStderr())

	if err := trace.CheckPrivileges(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	addr, err := trace.ResolveTarget(ctx, target, trace.AddressFamilyIPv4)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", target, err)
	}

	cfg := trace.DefaultConfig()
	cfg.TargetAddr = addr
	cfg.Protocol = protocol
	cfg.FirstTTL = cli.FirstHop
	cfg.MaxTTL = cli.MaxHops
	cfg.MaxInflight = cli.MaxInflight
	cfg.MaxRounds = cli.MaxRounds
	cfg.ReadTimeout = cli.Timeout
	cfg.PacketSize = cli.PacketSize
	cfg.Multipath = multipath
	cfg.PortDirection = portMode
	cfg.SourcePort = cli.Port

	store := hop.NewStore()
	out := cmd.OutOrStdout()
	callback := func(p trace.Probe) {
		printProbe(out, p)
	}

	engine, err := trace.NewEngine(cfg, store, callback, logger)
	if err != nil {
		return fmt.Errorf("starting trace: %w", err)
	}
	defer engine.Close()

	if err := engine.Trace(ctx); err != nil {
		return fmt.Errorf("trace: %w", err)
	}

	final := store.Snapshot()
	for i, info := range trace.AnalyzeTraceForECMP(&final) {
		if info.Detected {
			fmt.Fprintf(out, "%3d  %s\n", i+1, info)
		}
	}
	return nil
}

func printProbe(w io.Writer, p trace.Probe) {
	switch p.Status {
	case trace.StatusAwaited:
		fmt.Fprintf(w, "%3d  *\n", p.TTL)
	case trace.StatusComplete:
		if p.Host == nil {
			fmt.Fprintf(w, "%3d  (no response)\n", p.TTL)
			return
		}
		fmt.Fprintf(w, "%3d  %-15s  %v\n", p.TTL, p.Host, p.Duration().Round(time.Microsecond))
	}
}
