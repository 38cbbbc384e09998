package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/fsnotify/fsnotify"
	"github.com/getsentry/sentry-go"
	"github.com/golang/glog"
	cli "github.com/urfave/cli"

	utils "github.com/bolt-observer/go_common/utils"

	"github.com/lnpush/agent/connector"
	"github.com/lnpush/agent/jobs"
	"github.com/lnpush/agent/monitoring"
	"github.com/lnpush/agent/notify"
	"github.com/lnpush/agent/reply"
	"github.com/lnpush/agent/service"
	"github.com/lnpush/agent/store"
	"github.com/lnpush/agent/wallet"
)

var (
	defaultWorkDir = btcutil.AppDataDir("wallet-agent", false)
	defaultSDK     = utils.GetEnvWithDefault("WALLET_SDK", "mock")
	// GitRevision is set with build
	GitRevision = "unknownVersion"
)

// logSink displays notifications in the log. The real display surface is the
// platform notification center, provided by the host embedding this agent.
type logSink struct{}

func (logSink) Show(title, body, thread string) error {
	if body != "" {
		glog.Infof("NOTIFICATION [%s] %s: %s", thread, title, body)
	} else {
		glog.Infof("NOTIFICATION [%s] %s", thread, title)
	}
	return nil
}

func (logSink) RemoveNotifications(thread string) error {
	glog.V(2).Infof("Clearing notifications on thread %s", thread)
	return nil
}

func getApp() *cli.App {
	app := cli.NewApp()
	app.Version = GitRevision

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "sdk",
			Value: defaultSDK,
			Usage: "registered SDK connector to use",
		},
		cli.StringFlag{
			Name:  "apikey",
			Value: "",
			Usage: "wallet SDK api key",
		},
		cli.StringFlag{
			Name:  "mnemonicpath",
			Usage: "path to file containing the wallet mnemonic",
		},
		cli.StringFlag{
			Name:  "network",
			Value: "mainnet",
			Usage: "network the wallet operates on",
		},
		cli.StringFlag{
			Name:  "workdir",
			Value: defaultWorkDir,
			Usage: "path to the agent working directory",
		},
		cli.StringFlag{
			Name:  "spool",
			Usage: "directory watched for delivered message files",
		},
		cli.StringFlag{
			Name:  "type",
			Usage: "handle a single message of this type and exit",
		},
		cli.StringFlag{
			Name:  "payload",
			Usage: "payload of the single message",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Value: service.DefaultTimeout,
			Usage: "execution budget per message",
		},
		cli.StringFlag{
			Name:  "paylabel",
			Usage: "label used in LNURL-pay metadata",
		},
		cli.StringFlag{
			Name:  "nwcrelay",
			Usage: "NWC relay url, enables the NWC plugin",
		},
		cli.StringFlag{
			Name:  "nwcsecret",
			Value: utils.GetEnvWithDefault("NWC_SECRET", ""),
			Usage: "NWC secret key",
		},
		cli.StringFlag{
			Name:  "graphitehost",
			Value: utils.GetEnvWithDefault("GRAPHITE_HOST", ""),
			Usage: "graphite host",
		},
		cli.StringFlag{
			Name:  "graphiteport",
			Value: utils.GetEnvWithDefault("GRAPHITE_PORT", "2003"),
			Usage: "graphite port",
		},
		cli.StringFlag{
			Name:  "env",
			Value: utils.GetEnvWithDefault("ENV", "develop"),
			Usage: "environment reported with metrics",
		},
		cli.StringFlag{
			Name:  "sentrydsn",
			Value: utils.GetEnvWithDefault("SENTRY_DSN", ""),
			Usage: "sentry dsn for error reporting",
		},
	}
	app.Flags = append(app.Flags, glogFlags...)

	return app
}

func readMnemonic(path string) (string, error) {
	if path == "" {
		return utils.GetEnvWithDefault("WALLET_MNEMONIC", ""), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("could not read mnemonic: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func runAgent(cmdCtx *cli.Context) error {
	workDir := cmdCtx.String("workdir")
	if err := os.MkdirAll(workDir, 0700); err != nil {
		return fmt.Errorf("could not create workdir: %w", err)
	}

	if dsn := cmdCtx.String("sentrydsn"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Environment: cmdCtx.String("env")}); err != nil {
			glog.Warningf("Sentry init failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	connect, err := wallet.GetConnector(cmdCtx.String("sdk"))
	if err != nil {
		return err
	}

	mnemonic, err := readMnemonic(cmdCtx.String("mnemonicpath"))
	if err != nil {
		return err
	}

	connectRequest := wallet.ConnectRequest{
		Config: wallet.Config{
			APIKey:     cmdCtx.String("apikey"),
			Network:    cmdCtx.String("network"),
			WorkingDir: workDir,
		},
		Mnemonic: mnemonic,
	}

	notifiedStore, err := store.NewNotifiedStore(filepath.Join(workDir, "notified.db"))
	if err != nil {
		return err
	}
	defer notifiedStore.Close()

	var pluginConfigs connector.PluginConfigs
	if relay := cmdCtx.String("nwcrelay"); relay != "" {
		pluginConfigs.Nwc = &wallet.NwcConfig{
			RelayURL:  relay,
			SecretKey: cmdCtx.String("nwcsecret"),
		}
	}

	deps := jobs.Deps{
		Reply:         reply.NewSender(),
		Notify:        notify.NewNotifier(logSink{}),
		Plugins:       connector.NewPlugins(),
		PluginConfigs: pluginConfigs,
		Metrics:       monitoring.NewMetrics(cmdCtx.String("env"), cmdCtx.String("graphitehost"), cmdCtx.String("graphiteport")),
		Store:         notifiedStore,
		PayLabel:      cmdCtx.String("paylabel"),
	}

	svc := service.NewService(
		connector.NewRegistry(connect),
		deps,
		func() (wallet.ConnectRequest, error) { return connectRequest, nil },
		service.Settings{Timeout: cmdCtx.Duration("timeout")},
	)
	defer svc.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if msgType := cmdCtx.String("type"); msgType != "" {
		return svc.HandleMessage(ctx, service.Message{Type: msgType, Payload: cmdCtx.String("payload")})
	}

	spool := cmdCtx.String("spool")
	if spool == "" {
		return fmt.Errorf("either --type/--payload or --spool is required")
	}

	return watchSpool(ctx, svc, spool)
}

// watchSpool dispatches every message file dropped into dir, the way the
// platform hands payloads to a push handler
func watchSpool(ctx context.Context, svc *service.Service, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("could not watch %s: %w", dir, err)
	}

	glog.Infof("Watching spool directory %s", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) || !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			go handleSpoolFile(ctx, svc, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			glog.Warningf("Watcher error: %v", err)
		}
	}
}

func handleSpoolFile(ctx context.Context, svc *service.Service, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		glog.Warningf("Could not read %s: %v", path, err)
		return
	}

	var msg service.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		glog.Warningf("Could not decode %s: %v", path, err)
		return
	}

	if err := svc.HandleMessage(ctx, msg); err != nil {
		glog.Warningf("Message %s failed: %v", path, err)
	}
}

func main() {
	app := getApp()
	app.Name = "wallet-agent"
	app.Usage = "Background processor for wallet push notifications"
	app.Action = func(cmdCtx *cli.Context) error {
		glogShim(cmdCtx)
		return runAgent(cmdCtx)
	}

	if err := app.Run(os.Args); err != nil {
		glog.Error(err)
	}
}
