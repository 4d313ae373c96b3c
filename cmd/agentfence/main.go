package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/agentfence/agentfence/internal/audit"
	"github.com/agentfence/agentfence/internal/config"
	"github.com/agentfence/agentfence/internal/security"
	"github.com/agentfence/agentfence/internal/session"
	"github.com/agentfence/agentfence/internal/skills"
	"github.com/agentfence/agentfence/internal/store"
	"github.com/agentfence/agentfence/internal/workspace"
)

var version = "0.1.0"

// App holds the runtime components.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      *store.Store
	Catalog    *skills.Catalog
	Workspaces *workspace.Manager
	Audit      *audit.Log
	Engine     *security.Engine
	Sessions   *session.Manager
}

func main() {
	os.Exit(run())
}

func run() int {
	configPath := defaultConfigPath()
	var subCmd string
	var subArgs []string

	// First non-flag argument is the subcommand; --config may precede it.
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" || arg == "-config" {
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
			continue
		}
		subCmd = arg
		subArgs = args[i+1:]
		break
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	logger := newLogger(cfg.LogLevel)

	switch subCmd {
	case "", "help", "-h", "--help":
		usage()
		return 0
	case "version":
		fmt.Println("agentfence", version)
		return 0
	case "init":
		return cmdInit(cfg, configPath, logger)
	}

	app, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer app.Store.Close()

	switch subCmd {
	case "agents":
		return app.cmdAgents()
	case "provision":
		return app.cmdProvision()
	case "check":
		return app.cmdCheck(subArgs)
	case "denies":
		return app.cmdDenies(subArgs)
	case "serve":
		return app.cmdServe()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", subCmd)
		usage()
		return 1
	}
}

func newApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.StorePath())
	if err != nil {
		return nil, err
	}

	guardCfg, err := security.LoadConfig(filepath.Join(cfg.DataDir, "guard.toml"))
	if err != nil {
		st.Close()
		return nil, err
	}

	var auditLog *audit.Log
	var recorder security.Recorder
	if cfg.Audit.Enabled && guardCfg.Guard.AuditDenies {
		auditLog, err = audit.New(cfg.AuditDir(), logger)
		if err != nil {
			st.Close()
			return nil, err
		}
		recorder = auditLog
	}

	catalog := skills.NewCatalog(cfg.SkillsDir, logger)
	workspaces := workspace.NewManager(cfg.WorkspacesRoot, cfg.SkillsDir, logger)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Store:      st,
		Catalog:    catalog,
		Workspaces: workspaces,
		Audit:      auditLog,
		Engine:     security.NewEngine(logger, recorder),
		Sessions:   session.NewManager(st, catalog, workspaces, guardCfg.Guard, logger),
	}, nil
}

func cmdInit(cfg *config.Config, configPath string, logger *slog.Logger) int {
	if err := cfg.EnsureDirs(); err != nil {
		logger.Error("init failed", "error", err)
		return 1
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.Save(configPath); err != nil {
			logger.Error("write config failed", "error", err)
			return 1
		}
		fmt.Println("wrote", configPath)
	}
	fmt.Println("skills catalog:", cfg.SkillsDir)
	fmt.Println("workspaces:   ", cfg.WorkspacesRoot)
	fmt.Println("data:         ", cfg.DataDir)
	return 0
}

func (a *App) cmdAgents() int {
	agents, err := a.Store.ListAgents()
	if err != nil {
		a.Logger.Error("list agents failed", "error", err)
		return 1
	}
	for _, rec := range agents {
		mode := fmt.Sprintf("%d skills", len(rec.SkillIDs))
		if rec.AllowAllSkills {
			mode = "all skills"
		}
		fmt.Printf("%-24s %-20s %s\n", rec.ID, rec.Name, mode)
	}
	return 0
}

// cmdProvision rebuilds every agent workspace. Different agents provision in
// parallel; the manager serializes per agent internally.
func (a *App) cmdProvision() int {
	agents, err := a.Store.ListAgents()
	if err != nil {
		a.Logger.Error("list agents failed", "error", err)
		return 1
	}

	var g errgroup.Group
	for _, rec := range agents {
		rec := rec
		g.Go(func() error {
			if _, err := a.Sessions.StartFromRecord(rec); err != nil {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.Logger.Error("provisioning failed", "error", err)
		return 1
	}
	a.Logger.Info("all workspaces provisioned", "agents", len(agents))
	return 0
}

func (a *App) cmdCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	agentID := fs.String("agent", "", "agent id")
	tool := fs.String("tool", "", "tool name (Read, Write, Edit, Glob, Grep, Bash, Skill)")
	file := fs.String("file", "", "file_path parameter")
	path := fs.String("path", "", "path parameter")
	command := fs.String("command", "", "command parameter")
	skill := fs.String("skill", "", "skill parameter")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *agentID == "" || *tool == "" {
		fmt.Fprintln(os.Stderr, "check requires -agent and -tool")
		return 1
	}

	profile, err := a.Sessions.Start(*agentID)
	if err != nil {
		a.Logger.Error("session start failed", "error", err)
		return 1
	}

	params := map[string]any{}
	if *file != "" {
		params["file_path"] = *file
	}
	if *path != "" {
		params["path"] = *path
	}
	if *command != "" {
		params["command"] = *command
	}
	if *skill != "" {
		params["skill"] = *skill
	}

	verdict := a.Engine.Evaluate(profile, security.Invocation{Tool: *tool, Params: params})
	if verdict.Allowed {
		fmt.Println("allow")
		return 0
	}
	fmt.Println("deny:", verdict.Reason)
	return 1
}

func (a *App) cmdDenies(args []string) int {
	fs := flag.NewFlagSet("denies", flag.ContinueOnError)
	agentID := fs.String("agent", "", "filter by agent id")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if a.Audit == nil {
		fmt.Fprintln(os.Stderr, "audit journal disabled")
		return 1
	}

	records := a.Audit.Records()
	if *agentID != "" {
		records = a.Audit.ForAgent(*agentID)
	}
	for _, r := range records {
		fmt.Printf("%s  %-20s %-6s %-30s %s\n",
			r.Timestamp.Format("2006-01-02 15:04:05"), r.AgentID, r.Tool, r.Parameter, r.Reason)
	}
	return 0
}

// cmdServe runs the periodic reconcile loop so workspace symlink sets
// converge with authorization changes made while agents are running.
func (a *App) cmdServe() int {
	if !a.Config.Reconcile.Enabled {
		a.Logger.Error("reconcile loop disabled in config; nothing to serve")
		return 1
	}
	schedule, err := cron.ParseStandard(a.Config.Reconcile.Schedule)
	if err != nil {
		a.Logger.Error("invalid reconcile schedule", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cron.New()
	c.Schedule(schedule, cron.FuncJob(func() {
		if err := a.Sessions.Reconcile(); err != nil {
			a.Logger.Error("reconcile failed", "error", err)
		}
	}))
	c.Start()
	a.Logger.Info("reconcile loop started", "schedule", a.Config.Reconcile.Schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	a.Logger.Info("shutdown complete")
	return 0
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "agentfence.json"
	}
	return filepath.Join(home, ".agentfence", "agentfence.json")
}

func usage() {
	fmt.Println(`agentfence - per-agent sandboxing and skill authorization

Usage:
  agentfence [--config path] <command>

Commands:
  init        create config and directory tree
  agents      list stored agents
  provision   rebuild every agent workspace
  check       evaluate one tool invocation (-agent, -tool, -file/-path/-command/-skill)
  denies      show the deny audit journal (-agent to filter)
  serve       run the periodic workspace reconcile loop
  version     print version`)
}
