package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/parallelvirtualcluster/pvc/pkg/coord"
	"github.com/parallelvirtualcluster/pvc/pkg/election"
	"github.com/parallelvirtualcluster/pvc/pkg/entity"
	"github.com/parallelvirtualcluster/pvc/pkg/events"
	"github.com/parallelvirtualcluster/pvc/pkg/fencing"
	"github.com/parallelvirtualcluster/pvc/pkg/floating"
	"github.com/parallelvirtualcluster/pvc/pkg/health"
	"github.com/parallelvirtualcluster/pvc/pkg/httpapi"
	"github.com/parallelvirtualcluster/pvc/pkg/ipmi"
	"github.com/parallelvirtualcluster/pvc/pkg/libvirt"
	"github.com/parallelvirtualcluster/pvc/pkg/localcache"
	"github.com/parallelvirtualcluster/pvc/pkg/log"
	"github.com/parallelvirtualcluster/pvc/pkg/metrics"
	"github.com/parallelvirtualcluster/pvc/pkg/migration"
	"github.com/parallelvirtualcluster/pvc/pkg/nodestate"
	"github.com/parallelvirtualcluster/pvc/pkg/pvcconfig"
	"github.com/parallelvirtualcluster/pvc/pkg/pvcerr"
	"github.com/parallelvirtualcluster/pvc/pkg/storageexec"
	"github.com/parallelvirtualcluster/pvc/pkg/taskbus"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
	"github.com/spf13/cobra"
)

// heartbeatInterval is how often the node daemon refreshes its own
// heartbeat znode, well inside pkg/fencing's staleAfter window.
const heartbeatInterval = 10 * time.Second

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the node daemon (pvcd)",
	Long: `serve starts this node's coordination session, local hypervisor
connection, task subscriber, and HTTP API, and runs until terminated.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "/etc/pvc/pvc.yaml", "path to the node configuration manifest")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := pvcconfig.Load(serveConfigPath)
	if err != nil {
		return err
	}
	log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON})
	log.Info("pvc: starting node daemon for " + cfg.NodeName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache, err := localcache.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer cache.Close()

	coordClient, err := coord.Dial(ctx, coord.Config{
		Servers:        cfg.CoordinatorServers,
		SessionTimeout: cfg.CoordinatorTimeout,
	})
	if err != nil {
		return err
	}
	defer coordClient.Close()
	if err := coordClient.Bootstrap(); err != nil {
		return err
	}
	metrics.SetVersion(Version)
	metrics.RegisterComponent("coord", true, "connected")

	registry := entity.NewRegistry(coordClient, cache)
	writer := entity.NewWriter(coordClient)
	go registry.Run(ctx)

	natsConn, err := nats.Connect(strings.Join(cfg.TaskBusServers, ","))
	if err != nil {
		return err
	}
	defer natsConn.Close()

	primaryResolver := func() (string, error) {
		for _, n := range registry.Nodes.List() {
			if n.CoordinatorState == types.CoordinatorStatePrimary {
				return n.Name, nil
			}
		}
		return "", pvcerr.CoordinationLost(coord.ErrSessionLost)
	}
	bus := taskbus.New(natsConn, writer, primaryResolver)

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	runtime, err := libvirt.NewRuntime(cfg.NodeName, cfg.LibvirtSocket)
	if err != nil {
		return err
	}
	defer runtime.Close()
	metrics.RegisterComponent("libvirt", true, "connected")

	storageExecutor := storageexec.New()
	domainLocks := storageexec.NewDomainLocks(storageExecutor, volumeResolverFor(cfg))

	migrationCtl := migration.New(runtime, domainLocks, writer)

	nodeLister := func() []*types.Node { return registry.Nodes.List() }
	mover := newDomainMover(nodeLister, migrationCtl)
	machine := nodestate.New(writer, mover)

	floatingMgr := newFloatingManager(cfg, registry)
	elector := election.New(coordClient, cache, cfg.NodeName, election.Hooks{
		OnTakeover:   floatingMgr.Takeover,
		OnRelinquish: floatingMgr.Relinquish,
	})

	fleet := ipmi.NewFleet(credentialResolverFor(cfg))
	locker := nodeLockerAdapter{acquire: func(ctx context.Context, dir string) (releaser, error) {
		return coordClient.AcquireLock(ctx, dir)
	}}
	monitor := fencing.New(fleet, locker, writer, fenceLockDir)

	sink := newFaultSink(registry.Faults, writer)
	libvirtCheck := health.NewCheckerPlugin(
		"libvirtd",
		cfg.NodeName,
		-20,
		health.NewExecChecker([]string{"virsh", "-c", "qemu:///system", "list"}),
		health.DefaultConfig(),
	)
	healthPlugins := []health.Plugin{libvirtCheck}
	if len(cfg.CoordinatorServers) > 0 {
		coordCheck := health.NewCheckerPlugin(
			"coordinator",
			cfg.NodeName,
			-10,
			health.NewTCPChecker(cfg.CoordinatorServers[0]),
			health.DefaultConfig(),
		)
		healthPlugins = append(healthPlugins, coordCheck)
	}
	componentSink := newComponentHealthSink(sink, map[string]string{
		"libvirtd":    "libvirt",
		"coordinator": "coord",
	})
	healthRunner := health.NewRunner(componentSink, healthPlugins...)
	healthInterval := health.DefaultConfig().Interval

	deps := httpapi.Dependencies{
		Self:         cfg.NodeName,
		Nodes:        registry.Nodes,
		Domains:      registry.Domains,
		Networks:     registry.Networks,
		Faults:       registry.Faults,
		Tasks:        registry.Tasks,
		DomainWriter: writer,
		NodeWriter:   writer,
		FaultWriter:  writer,
		Migrator:     migrationCtl,
		Machine:      machine,
		Bus:          bus,
		Elector:      elector,
		APIKeys:      cfg.APIKeys,
	}
	apiServer := httpapi.NewServer(deps, cfg.HTTPListenAddr)
	metrics.RegisterComponent("api", true, "serving")

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("pvc: api server stopped: " + err.Error())
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsMux.HandleFunc("/health", metrics.HealthHandler())
	metricsMux.HandleFunc("/ready", metrics.ReadyHandler())
	metricsMux.HandleFunc("/live", metrics.LivenessHandler())
	metricsSrv := &http.Server{Addr: cfg.MetricsListenAddr, Handler: metricsMux}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("pvc: metrics server stopped: " + err.Error())
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := elector.Run(ctx); err != nil {
			log.Error("pvc: election loop exited: " + err.Error())
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		monitor.Run(ctx, nodeLister, func() []*types.Domain { return registry.Domains.List() })
	}()

	if _, err := bus.Subscribe(cfg.NodeName, taskHandler(domainLocks, storageExecutor, writer)); err != nil {
		return err
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		heartbeatLoop(ctx, cfg, registry, writer)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		healthLoop(ctx, healthRunner, healthInterval)
	}()

	publishLifecycle(broker, events.EventNodeJoined, cfg.NodeName+" joined", map[string]string{"node": cfg.NodeName})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info("pvc: shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	wg.Wait()
	return nil
}

func healthLoop(ctx context.Context, runner *health.Runner, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runner.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// newFloatingManager wires pkg/floating's Manager against this node's
// configured addresses and bridges. Constructed once per daemon
// lifetime and driven entirely through election.Hooks.
func newFloatingManager(cfg *pvcconfig.Config, registry *entity.Registry) *floating.Manager {
	addr := floating.NewAddrManager()
	gateway := floating.NewGatewayManager(addr, bridgeNamerFor(cfg))

	floatingSet := []floating.FloatingAddr{
		{Name: "upstream", Interface: cfg.FloatingInterface, CIDR: cfg.FloatingUpstreamCIDR},
		{Name: "cluster", Interface: cfg.FloatingInterface, CIDR: cfg.FloatingClusterCIDR},
		{Name: "storage", Interface: cfg.FloatingInterface, CIDR: cfg.FloatingStorageCIDR},
	}

	metadata := floating.NewMetadataResponder(registry, cfg.MetadataListenAddr, nil)

	newDNS := func(vni int, n *types.Network) floating.FloatingService {
		return floating.NewDNSAggregator(registry, floating.DNSConfig{
			VNI: vni, ListenAddr: dnsListenAddrFor(cfg, vni), Domain: cfg.DNSDomain, NameServers: cfg.DNSUpstreams,
		})
	}
	newDHCP := func(vni int, n *types.Network) floating.FloatingService {
		return floating.NewDHCPResponder(floating.DHCPConfig{
			VNI: vni, Interface: bridgeNamerFor(cfg)(vni), Network: *n,
		}, registry)
	}

	return floating.NewManager(addr, gateway, floatingSet, registry, metadata, newDNS, newDHCP)
}

func dnsListenAddrFor(cfg *pvcconfig.Config, vni int) string {
	return cfg.BridgeForVNI(vni) + ":53"
}

func heartbeatLoop(ctx context.Context, cfg *pvcconfig.Config, registry *entity.Registry, writer *entity.Writer) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n := registry.Nodes.Get(cfg.NodeName)
			if n == nil {
				n = &types.Node{Name: cfg.NodeName}
			}
			n.LastHeartbeat = time.Now()
			n.DaemonState = types.DaemonStateRun
			if err := writer.SaveNode(n); err != nil {
				log.Error("pvc: heartbeat: " + err.Error())
			}
			metrics.NodesTotal.WithLabelValues(string(n.DaemonState)).Set(1)
		case <-ctx.Done():
			return
		}
	}
}
