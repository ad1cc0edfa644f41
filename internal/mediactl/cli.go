package mediactl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func Run(args []string) error {
	if len(args) < 1 {
		Usage()
		os.Exit(1)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "preflight":
		return cmdPreflight(cmdArgs)
	case "drives":
		return cmdDrives(cmdArgs)
	case "install-docker":
		return cmdInstallDocker(cmdArgs)
	case "tunnel":
		return cmdTunnel(cmdArgs)
	case "init":
		return cmdInit(cmdArgs)
	case "bootstrap":
		return cmdBootstrap(cmdArgs)
	case "up":
		return cmdUp(cmdArgs)
	case "down":
		return cmdDown(cmdArgs)
	case "restart":
		return cmdRestart(cmdArgs)
	case "logs":
		return cmdLogs(cmdArgs)
	case "status":
		return cmdStatus(cmdArgs)
	case "health":
		return cmdHealth(cmdArgs)
	case "verify":
		return cmdVerify(cmdArgs)
	case "phase":
		return cmdPhase(cmdArgs)
	case "phases":
		return cmdPhases(cmdArgs)
	case "apps":
		return cmdApps(cmdArgs)
	case "backup":
		return cmdBackup(cmdArgs)
	case "update":
		return cmdUpdate(cmdArgs)
	case "alert":
		return cmdAlert(cmdArgs)
	case "webhook-serve":
		return cmdWebhookServe(cmdArgs)
	case "uninstall":
		return cmdUninstall(cmdArgs)
	case "help", "--help", "-h":
		Usage()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func Usage() {
	fmt.Println(`mediactl - new machine to running home media server

Usage:
  mediactl preflight                         validate host before any mutation
  mediactl drives [--dry-run --force --yes]  format/mount data drives, persist fstab
  mediactl install-docker [--dry-run]        install docker engine + compose plugin
  mediactl tunnel [--dry-run]                provision Cloudflare tunnel + ingress
  mediactl init                              create dirs, .env, compose.yml
  mediactl bootstrap [--dry-run --yes]       preflight through first compose up
  mediactl up | down | restart | status      stack lifecycle
  mediactl logs [service]                    follow stack logs
  mediactl health [--timeout 10s] [--quiet]  containers + endpoints, alerts on change
  mediactl verify                            base stack verification, no side effects
  mediactl phase install|verify|rollback <name|n> [--force --purge --dry-run --yes]
  mediactl phases                            show phase catalog and install state
  mediactl apps configure [--app name] [--dry-run]
  mediactl backup [--dry-run]                archive configs, prune, optional rclone
  mediactl update [--dry-run]                pull images, restart, prune
  mediactl alert test                        exercise every configured channel
  mediactl webhook-serve [--addr :8090]      *arr webhook receiver
  mediactl uninstall [--purge --yes --dry-run]
  mediactl setup                             interactive setup wizard
  mediactl dash                              live status dashboard

Base services:`)
	for _, name := range SortedServiceNames() {
		svc := ServiceCatalog[name]
		fmt.Printf("  - %-14s %-45s %s\n", svc.Name, svc.Description, servicePorts(name))
	}
	fmt.Println("\nPhases:")
	for _, phase := range SortedPhases() {
		fmt.Printf("  %d - %-12s %s\n", phase.Number, phase.Name, phase.Description)
	}
}

// loadStackConfig is the common preamble for commands operating on an
// initialized stack: config, .env hydration and required-key validation.
func loadStackConfig() (Config, map[string]string, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return Config{}, nil, err
	}
	if err := HydrateFromDotEnv(&cfg); err != nil {
		return Config{}, nil, fmt.Errorf("read %s: %w (run mediactl init first)", cfg.EnvPath(), err)
	}
	env, err := ReadDotEnv(cfg.EnvPath())
	if err != nil {
		return Config{}, nil, err
	}
	if err := ValidateEnv(env); err != nil {
		return Config{}, nil, err
	}
	return cfg, env, nil
}

func cmdPreflight(args []string) error {
	fs := flag.NewFlagSet("preflight", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	return RunPreflight(&Runner{}, cfg)
}

func cmdDrives(args []string) error {
	fs := flag.NewFlagSet("drives", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "print intent without changing anything")
	force := fs.Bool("force", false, "reformat devices that already carry a filesystem")
	yes := fs.Bool("yes", false, "skip the destructive-action countdown")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, env, err := loadStackConfig()
	if err != nil {
		return err
	}
	return SetupDrives(&Runner{DryRun: *dryRun}, cfg, env, *force, *yes)
}

func cmdInstallDocker(args []string) error {
	fs := flag.NewFlagSet("install-docker", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "print intent without changing anything")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	return InstallDocker(&Runner{DryRun: *dryRun}, cfg)
}

func cmdTunnel(args []string) error {
	fs := flag.NewFlagSet("tunnel", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "print intent without changing anything")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, _, err := loadStackConfig()
	if err != nil {
		return err
	}
	return SetupTunnel(&Runner{DryRun: *dryRun}, cfg)
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	domain := fs.String("domain", "example.com", "base domain for tunnel hostnames")
	tz := fs.String("tz", "Etc/UTC", "stack timezone")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	cfg.Domain = *domain
	cfg.Timezone = *tz
	if cfg.PUID == "" {
		cfg.PUID = "1000"
	}
	if cfg.PGID == "" {
		cfg.PGID = "1000"
	}
	return RunInit(cfg)
}

func cmdBootstrap(args []string) error {
	fs := flag.NewFlagSet("bootstrap", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "print intent without changing anything")
	yes := fs.Bool("yes", false, "skip destructive-action countdowns")
	domain := fs.String("domain", "example.com", "base domain for tunnel hostnames")
	tz := fs.String("tz", "Etc/UTC", "stack timezone")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r := &Runner{DryRun: *dryRun}
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	cfg.Domain = *domain
	cfg.Timezone = *tz
	cfg.PUID = "1000"
	cfg.PGID = "1000"

	if err := RunPreflight(r, cfg); err != nil {
		return err
	}
	if err := InstallDocker(r, cfg); err != nil {
		return err
	}
	if err := RunInit(cfg); err != nil {
		return err
	}

	cfg, env, err := loadStackConfig()
	if err != nil {
		return err
	}
	if err := SetupDrives(r, cfg, env, false, *yes); err != nil {
		return err
	}
	if err := SetupTunnel(r, cfg); err != nil {
		fmt.Printf("warning: tunnel setup incomplete: %v\n", err)
	}

	installed, err := LoadInstalledPhases(cfg)
	if err != nil {
		return err
	}
	if err := ComposeUp(r, cfg, installed); err != nil {
		return err
	}

	fmt.Println("\nstack is up:")
	for _, url := range AccessURLs(cfg) {
		fmt.Println("  " + url)
	}
	return nil
}

func cmdUp(args []string) error {
	fs := flag.NewFlagSet("up", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, _, err := loadStackConfig()
	if err != nil {
		return err
	}
	installed, err := LoadInstalledPhases(cfg)
	if err != nil {
		return err
	}
	if err := WriteCompose(cfg, installed); err != nil {
		return err
	}
	if err := SyncPhaseAssets(cfg, installed); err != nil {
		return err
	}
	if err := ComposeUp(&Runner{}, cfg, installed); err != nil {
		return err
	}
	for _, url := range AccessURLs(cfg) {
		fmt.Println("  " + url)
	}
	return nil
}

func cmdDown(args []string) error {
	fs := flag.NewFlagSet("down", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, _, err := loadStackConfig()
	if err != nil {
		return err
	}
	installed, err := LoadInstalledPhases(cfg)
	if err != nil {
		return err
	}
	return ComposeDown(&Runner{}, cfg, installed, false)
}

func cmdRestart(args []string) error {
	fs := flag.NewFlagSet("restart", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, _, err := loadStackConfig()
	if err != nil {
		return err
	}
	installed, err := LoadInstalledPhases(cfg)
	if err != nil {
		return err
	}
	r := &Runner{}
	restartArgs := append(composeProfileArgs(cfg, installed), "restart")
	return r.Stream("docker", restartArgs...)
}

func cmdLogs(args []string) error {
	fs := flag.NewFlagSet("logs", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, _, err := loadStackConfig()
	if err != nil {
		return err
	}
	r := &Runner{}
	logArgs := append(ComposeBaseArgs(cfg), "logs", "-f", "--tail", "100")
	logArgs = append(logArgs, fs.Args()...)
	return r.Stream("docker", logArgs...)
}

func cmdStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, _, err := loadStackConfig()
	if err != nil {
		return err
	}
	installed, err := LoadInstalledPhases(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("stack root: %s\n", cfg.StackRoot)
	fmt.Printf("domain: %s\n", cfg.Domain)
	fmt.Printf("installed phases: %s\n", strings.Join(installed, ", "))

	r := &Runner{}
	psArgs := append(ComposeBaseArgs(cfg), "ps")
	output, cmdErr := r.Capture("docker", psArgs...)
	if cmdErr != nil {
		fmt.Println("docker compose status unavailable:")
		fmt.Println(strings.TrimSpace(output))
		return nil
	}
	fmt.Println(output)
	return nil
}

func cmdHealth(args []string) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 10*time.Second, "per-endpoint timeout")
	quiet := fs.Bool("quiet", false, "suppress the check table (cron mode)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, env, err := loadStackConfig()
	if err != nil {
		return err
	}
	installed, err := LoadInstalledPhases(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	r := &Runner{}
	checks := BuildHealthChecks(cfg, installed)
	rep := RunHealth(ctx, r, checks, *timeout)

	store := NewStateStore(cfg.StatePath())
	alerter := NewAlerter(env)
	if err := RecordHealth(ctx, store, alerter, rep); err != nil {
		return err
	}

	if !*quiet {
		PrintHealthReport(rep)
	}
	if !rep.Healthy() {
		return fmt.Errorf("%d health check(s) failing", rep.Fail)
	}
	return nil
}

func cmdVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	if err := HydrateFromDotEnv(&cfg); err != nil && !os.IsNotExist(err) {
		return err
	}
	rep, err := VerifyBase(&Runner{}, cfg)
	if err != nil {
		return err
	}
	PrintHealthReport(rep)
	if !rep.Healthy() {
		return fmt.Errorf("%d verification check(s) failing", rep.Fail)
	}
	return nil
}

func cmdPhase(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: mediactl phase install|verify|rollback <name|number>")
	}
	op := args[0]
	phase, err := LookupPhase(args[1])
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("phase", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "print intent without changing anything")
	force := fs.Bool("force", false, "override phase ordering guards")
	purge := fs.Bool("purge", false, "also delete the phase's config data on rollback")
	yes := fs.Bool("yes", false, "skip the destructive-action countdown")
	if err := fs.Parse(args[2:]); err != nil {
		return err
	}

	cfg, _, err := loadStackConfig()
	if err != nil {
		return err
	}
	r := &Runner{DryRun: *dryRun}

	switch op {
	case "install":
		return InstallPhase(r, cfg, phase, *force)
	case "verify":
		rep, err := VerifyPhase(r, cfg, phase)
		if err != nil {
			return err
		}
		PrintHealthReport(rep)
		if !rep.Healthy() {
			return fmt.Errorf("phase %s: %d check(s) failing", phase.Name, rep.Fail)
		}
		return nil
	case "rollback":
		return RollbackPhase(r, cfg, phase, *force, *purge, *yes)
	default:
		return fmt.Errorf("unknown phase operation: %s", op)
	}
}

func cmdPhases(args []string) error {
	fs := flag.NewFlagSet("phases", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	return ShowPhases(cfg)
}

func cmdApps(args []string) error {
	if len(args) < 1 || args[0] != "configure" {
		return errors.New("usage: mediactl apps configure [--app sonarr|radarr|prowlarr|all]")
	}
	fs := flag.NewFlagSet("apps", flag.ContinueOnError)
	app := fs.String("app", "all", "which app to configure")
	dryRun := fs.Bool("dry-run", false, "print intent without changing anything")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	cfg, _, err := loadStackConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	return ConfigureApps(ctx, cfg, *app, *dryRun)
}

func cmdBackup(args []string) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "print intent without changing anything")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, _, err := loadStackConfig()
	if err != nil {
		return err
	}
	return RunBackup(&Runner{DryRun: *dryRun}, cfg)
}

func cmdUpdate(args []string) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "print intent without changing anything")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, _, err := loadStackConfig()
	if err != nil {
		return err
	}
	return RunUpdate(&Runner{DryRun: *dryRun}, cfg)
}

func cmdAlert(args []string) error {
	if len(args) < 1 || args[0] != "test" {
		return errors.New("usage: mediactl alert test")
	}
	_, env, err := loadStackConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	alerter := NewAlerter(env)
	if err := alerter.Send(ctx, "info", "mediactl test alert",
		"If you can read this, alerting works."); err != nil {
		return err
	}
	fmt.Println("test alert dispatched to all configured channels")
	return nil
}

func cmdWebhookServe(args []string) error {
	fs := flag.NewFlagSet("webhook-serve", flag.ContinueOnError)
	addr := fs.String("addr", ":8090", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, _, err := loadStackConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	return ServeWebhook(ctx, cfg, *addr)
}

func cmdUninstall(args []string) error {
	fs := flag.NewFlagSet("uninstall", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "print intent without changing anything")
	purge := fs.Bool("purge", false, "also delete the stack root")
	yes := fs.Bool("yes", false, "skip the destructive-action countdown")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	if err := HydrateFromDotEnv(&cfg); err != nil && !os.IsNotExist(err) {
		return err
	}
	return RunUninstall(&Runner{DryRun: *dryRun}, cfg, *purge, *yes)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
