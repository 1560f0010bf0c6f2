package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sevlyar/go-daemon"

	"github.com/kmarcin/opal/internal/autoop"
	"github.com/kmarcin/opal/internal/bot"
	"github.com/kmarcin/opal/internal/command"
	"github.com/kmarcin/opal/internal/config"
	"github.com/kmarcin/opal/internal/console"
	"github.com/kmarcin/opal/internal/dcc"
	"github.com/kmarcin/opal/internal/game"
	"github.com/kmarcin/opal/internal/links"
	"github.com/kmarcin/opal/internal/user"
	"github.com/kmarcin/opal/internal/util"
)

var (
	devMode    = flag.Bool("dev", false, "run in development mode (non-daemon)")
	configPath = flag.String("config", "configs/config.yaml", "path to the configuration file")
)

const banner = `
  ____  ____  ____ _/ /
 / __ \/ __ \/ __ '/ /
/ /_/ / /_/ / /_/ / /
\____/ .___/\__,_/_/   channel bot
    /_/
`

func printBanner() {
	color.Cyan(banner)
}

func main() {
	flag.Parse()
	printBanner()

	if err := config.CheckAndCreateConfigFiles(*configPath); err != nil {
		color.Red("Error checking/creating config files: %v", err)
		os.Exit(1)
	}

	if !*devMode {
		color.Yellow("Starting in daemon mode")
		cntxt := &daemon.Context{
			PidFileName: "opal.pid",
			PidFilePerm: 0644,
			LogFileName: "opal.log",
			LogFilePerm: 0640,
			WorkDir:     "./",
			Umask:       027,
		}
		d, err := cntxt.Reborn()
		if err != nil {
			color.Red("Unable to run: %v", err)
			os.Exit(1)
		}
		if d != nil {
			color.Green("opal is running in background with pid: %d", d.Pid)
			return
		}
		defer cntxt.Release()
		log.Print("Daemon started")
	} else {
		color.Yellow("Starting in development mode")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		color.Red("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	level, err := util.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		color.Red("Invalid log level in config: %v", err)
		os.Exit(1)
	}
	if err := util.InitLogger(level, cfg.LogFile, *devMode); err != nil {
		color.Red("Failed to initialize logger: %v", err)
		os.Exit(1)
	}
	defer util.CloseLogger()

	store, err := user.NewFileStore(cfg.UserFile)
	if err != nil {
		color.Red("Failed to open user file: %v", err)
		os.Exit(1)
	}
	users, err := user.NewRegistry(store)
	if err != nil {
		color.Red("Failed to load users: %v", err)
		os.Exit(1)
	}
	util.Info("Loaded %d users from %s", users.Count(), cfg.UserFile)

	b := bot.New(cfg, users)

	commands := command.NewRegistry()
	command.RegisterDefaults(commands)
	commands.SetDisabled(cfg.Commands.Disabled)

	autoOps := autoop.New(b, users, time.Duration(cfg.AutoOp.DelaySeconds)*time.Second)
	autoOps.SetEnabled(cfg.AutoOp.Enabled)

	games := game.NewManager(b, cfg.Game.Words, time.Duration(cfg.Game.TimeoutSeconds)*time.Second)
	announcer := links.New(b, time.Duration(cfg.Links.TimeoutSeconds)*time.Second)

	ctx := &command.Context{
		Client:   b,
		Users:    users,
		Commands: commands,
		AutoOps:  autoOps,
		Games:    games,
		Links:    announcer,
		Started:  time.Now(),
	}
	dispatcher := command.NewDispatcher(ctx, cfg.Commands.Prefix)

	b.SetDispatcher(dispatcher)
	b.SetAutoOps(autoOps)
	b.SetGames(games)
	b.SetLinks(announcer)
	if cfg.DCC.Enabled {
		b.SetDCC(dcc.NewManager(users, dispatcher))
	}

	var adminConsole *console.Server
	if cfg.Console.Enabled {
		adminConsole = console.NewServer(cfg.Console.ListenAddr, cfg.Console.HostKey, users, dispatcher)
		adminConsole.Start()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		color.Yellow("Shutdown signal received")
		if adminConsole != nil {
			adminConsole.Stop()
		}
		b.Quit("shutting down")
	}()

	color.Green("opal is running. Press Ctrl+C to exit.")
	if err := b.Connect(); err != nil {
		util.Error("Connection loop ended: %v", err)
		color.Red("Connection loop ended: %v", err)
		os.Exit(1)
	}
	util.Info("opal has shut down")
}
