package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	"github.com/CZERTAINLY/osfp/internal/console"
	"github.com/CZERTAINLY/osfp/internal/log"
	"github.com/CZERTAINLY/osfp/internal/model"
	"github.com/CZERTAINLY/osfp/internal/nmap"
	"github.com/CZERTAINLY/osfp/internal/resolve"
	"github.com/CZERTAINLY/osfp/internal/session"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// exitAborted is used when the operator interrupts the session (128+SIGINT)
const exitAborted = 130

var (
	userConfigPath string // /default/config/path/osfp on given OS
	configPath     string // actual config file used
	config         model.Config

	term      *console.Console
	topology  bool // network map can be shown, decided once at startup
	logCloser io.Closer

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag
	flagNmap           string // value of --nmap flag
	flagBOM            string // value of --bom flag
	flagNoTopology     bool   // value of --no-topology flag
)

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		d = "."
	}
	userConfigPath = filepath.Join(d, "osfp")
}

func main() {
	interactive := console.IsTerminal(os.Stdout)
	if !interactive {
		pterm.DisableColor()
	}
	term = console.New(os.Stdin, os.Stdout).WithInteractive(interactive)

	// root flags
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is osfp.yaml in current directory or in "+userConfigPath)
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagNmap, "nmap", "", "path to the nmap binary, overrides nmap_path from config")
	rootCmd.PersistentFlags().StringVar(&flagBOM, "bom", "", "write results as CycloneDX JSON to this file")
	rootCmd.PersistentFlags().BoolVar(&flagNoTopology, "no-topology", false, "never offer the network map")

	// errors are reported by exitCode
	rootCmd.SilenceErrors = true

	// parse or create a config, setup logging
	rootCmd.PersistentPreRunE = initOsfp

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	code := exitCode(err)
	if logCloser != nil {
		_ = logCloser.Close()
	}
	os.Exit(code)
}

var rootCmd = &cobra.Command{
	Use:          "osfp",
	Short:        "Interactive OS fingerprinting with nmap",
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         doRun,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run command asks for targets and a scan mode and fingerprints the targets",
	Args:  cobra.NoArgs,
	RunE:  doRun,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provide version of osfp",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("osfp: version info not available")
			return
		}

		if configPath != "" {
			fmt.Printf("config: %s\n", configPath)
		}
		fmt.Printf("osfp:   %s\n", info.Main.Version)
		fmt.Printf("go:     %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit: %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:   %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:  %s\n", s.Value)
			}
		}
		fmt.Println()
	},
}

func doRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	attrs := slog.Group("session",
		slog.String("id", uuid.NewString()),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	if err := nmap.Check(ctx, config.NmapPath); err != nil {
		slog.WarnContext(ctx, "nmap preflight failed", "error", err)
		term.Warning("%s can't be executed, scans will fail: %v", config.NmapPath, err)
	}

	scanner := nmap.New().
		WithNmapBinary(config.NmapPath).
		WithHooks(nmap.Hooks{
			OnStart: func(_ context.Context, target model.Target, argv []string) {
				term.ScanStarted(target, argv)
			},
			OnDone: func(_ context.Context, outcome model.ScanOutcome) {
				term.ScanDone(outcome)
			},
		})

	sess := session.New(term, resolve.New(), scanner, session.Config{
		DefaultScanMode: config.DefaultScanMode,
		Topology:        topology,
		BOMPath:         flagBOM,
	})
	_, err := sess.Run(ctx)
	return err
}

func initOsfp(cmd *cobra.Command, _ []string) error {
	if envConfig, ok := os.LookupEnv("OSFPCONFIG"); ok {
		configPath = envConfig
	} else if flagConfigFilePath != "" {
		configPath = flagConfigFilePath
	} else {
		for _, d := range []string{".", userConfigPath} {
			path := filepath.Join(d, "osfp.yaml")
			if exists(path) {
				configPath = path
				break
			}
		}
	}

	// store default configuration
	if configPath == "" || !exists(configPath) {
		config = model.DefaultConfig()
		if configPath == "" {
			configPath = filepath.Join(userConfigPath, "osfp.yaml")
		}
		if err := model.StoreConfig(configPath, config); err != nil {
			return err
		}
	} else {
		f, err := os.Open(configPath)
		if err != nil {
			return fmt.Errorf("opening config file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		config, err = model.LoadConfig(f)
		if err != nil {
			for _, d := range model.CueErrDetails(err) {
				term.Error("%s", d)
			}
			return fmt.Errorf("parsing config %s: %w", configPath, err)
		}
	}

	// flags have a precedence over config file
	if flagVerbose {
		config.Verbose = true
		if config.Log == model.LogDiscard {
			config.Log = model.LogStderr
		}
	}
	if flagNmap != "" {
		config.NmapPath = flagNmap
	}

	topology = term.Interactive() && !flagNoTopology

	// initialize logging
	var w io.Writer
	w, logCloser = log.Output(config.Log)
	slog.SetDefault(log.New(w, config.Verbose))

	slog.Debug("osfp run", "configPath", configPath)
	slog.Debug("osfp run", "config", config, "topology", topology)
	return nil
}

// exitCode reports err to the operator and maps it to the process exit code
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		term.StopSpinner()
		term.Println()
		term.Warning("Aborted by user.")
		return exitAborted
	case errors.Is(err, model.ErrNoTargets):
		slog.Error("osfp failed", "err", err)
		return 1
	default:
		term.StopSpinner()
		term.Error("Error: %v", err)
		slog.Error("osfp failed", "err", err)
		return 1
	}
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
