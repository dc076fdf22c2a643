// Command peerslaved is the peer-to-peer distributed-computing slave
// process: it advertises itself on the LAN, accepts job submissions over
// TCP/UDS, drives an external compute engine one job at a time, and
// returns results to the submitter.
//
// A bare invocation is the supervisor: it forks --number children of
// itself (re-executing the same binary with PEERSLAVE_HOST_ID set) and
// restarts any that exit. A child invocation (PEERSLAVE_HOST_ID set in
// the environment) runs the slave state machine directly instead of
// becoming another supervisor.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	goversion "github.com/hashicorp/go-version"

	"github.com/jabolina/peerslave/internal/config"
	"github.com/jabolina/peerslave/internal/logging"
	"github.com/jabolina/peerslave/pkg/peerslave/engine"
	"github.com/jabolina/peerslave/pkg/peerslave/intake"
	"github.com/jabolina/peerslave/pkg/peerslave/presence"
	"github.com/jabolina/peerslave/pkg/peerslave/registry"
	"github.com/jabolina/peerslave/pkg/peerslave/slave"
	"github.com/jabolina/peerslave/pkg/peerslave/supervisor"
	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

// minSupportedProtocol is compared against types.ProtocolVersion at
// startup using hashicorp/go-version purely for a readable diagnostic
// log line; the actual wire-compatibility check intake/result-send
// perform is a plain byte comparison on the version field.
var minSupportedProtocol = goversion.Must(goversion.NewVersion("1.0.0"))

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logging.NewDefaultLogger(cfg.Hostname, logging.Verbose(cfg.Verbose), os.Stderr)
	logProtocolVersion(log)

	if idEnv := os.Getenv("PEERSLAVE_HOST_ID"); idEnv != "" {
		id, parseErr := strconv.ParseUint(idEnv, 10, 64)
		if parseErr != nil {
			log.Fatalf("invalid PEERSLAVE_HOST_ID %q: %v", idEnv, parseErr)
		}
		os.Exit(runChild(cfg, id, log))
	}

	runSupervisor(cfg, log)
}

func logProtocolVersion(log types.Logger) {
	current, err := goversion.NewVersion(fmt.Sprintf("%d.0.0", types.ProtocolVersion))
	if err != nil {
		return
	}
	if current.LessThan(minSupportedProtocol) {
		log.Warnf("wire protocol version %s is older than the minimum documented %s", current, minSupportedProtocol)
		return
	}
	log.Debugf("wire protocol version %s", current)
}

// runSupervisor builds cfg.Number child configs, each re-invoking this
// same binary, and blocks running the reap/spawn loop until a shutdown
// signal arrives.
func runSupervisor(cfg *config.Config, log types.Logger) {
	self, err := os.Executable()
	if err != nil {
		log.Fatalf("supervisor: could not determine executable path: %v", err)
	}

	var children []*supervisor.ChildConfig
	for i := 0; i < cfg.Number; i++ {
		children = append(children, &supervisor.ChildConfig{Name: self, Args: os.Args[1:]})
	}

	sup := supervisor.New(children, 0, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go waitForSignal(cancel)

	sup.Run(ctx)
}

// runChild assembles and runs one slave instance: registry, presence
// tasks, intake servers, resource sampler and the slave loop, until a
// shutdown signal arrives or the engine aborts. It returns the process
// exit code: 0 normal, 1 if the engine aborted.
func runChild(cfg *config.Config, hostID uint64, log types.Logger) int {
	self := buildHostDescriptor(cfg, hostID)
	access := types.AccessLists{
		AllowUser:  types.NewStringSet(cfg.AllowUser...),
		AllowHost:  types.NewStringSet(cfg.AllowHost...),
		AllowGroup: types.NewStringSet(cfg.AllowGroup...),
	}
	policy := types.DefaultPolicySwitches()
	policy.SmartMem.Enabled = cfg.SmartMem
	policy.SmartCPU.Enabled = cfg.SmartCPU
	policy.SmartShare.Enabled = cfg.SmartShare

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go waitForSignal(cancel)

	// A bootstrap registry (no announce function yet) lets NewAnnouncer
	// read the self descriptor it needs to configure relt; once it
	// succeeds, a second registry is built with Announcer.Once wired in
	// as the real announce function, since Registry.New takes it at
	// construction time.
	bootstrap := registry.New(self, access, policy, nil, log)
	ann, annErr := presence.NewAnnouncer(bootstrap, cfg.AnnounceGroup, time.Second, log)

	var reg *registry.Registry
	if annErr != nil {
		log.Errorf("presence: failed to start announcer: %v", annErr)
		reg = bootstrap
	} else {
		reg = registry.New(self, access, policy, ann.Once, log)
	}

	limits := intake.Limits{MaxArgSize: 64 << 20, MaxOptSize: 16 << 20}

	// The TCP listener must bind, and any auto-assigned port must land in
	// the registry, before Announce starts broadcasting this host's
	// descriptor: otherwise the first (and possibly only, if discovery
	// never retries) announcement goes out with the placeholder port 0
	// from buildHostDescriptor.
	tcpSrv, addr, err := intake.NewTCPServer(fmt.Sprintf(":%d", cfg.Port), reg, limits, log)
	if err != nil {
		log.Errorf("intake: failed to start TCP server: %v", err)
	} else {
		log.Infof("intake: TCP listening on %s", addr)
		if _, portStr, splitErr := net.SplitHostPort(addr); splitErr != nil {
			log.Errorf("intake: failed parsing bound address %q: %v", addr, splitErr)
		} else if boundPort, parseErr := strconv.ParseUint(portStr, 10, 16); parseErr != nil {
			log.Errorf("intake: failed parsing bound port %q: %v", portStr, parseErr)
		} else {
			reg.UpdateHost(func(h *types.HostDescriptor) { h.Port = uint16(boundPort) })
		}
		go tcpSrv.Run(ctx)
	}

	udsSrv, err := intake.NewUDSServer(cfg.SocketPath, reg, limits, log)
	if err != nil {
		log.Errorf("intake: failed to start UDS server on %s: %v", cfg.SocketPath, err)
	} else {
		log.Infof("intake: UDS listening on %s", cfg.SocketPath)
		go udsSrv.Run(ctx)
	}

	if annErr == nil {
		disc := presence.NewDiscoverer(reg, ann.Relt(), reg.Host, log)
		exp := presence.NewExpirer(reg, time.Second, 60*time.Second, log)
		go ann.Run(ctx)
		go disc.Run()
		go exp.Run(ctx)
	}

	sampler := registry.NewResourceSampler(reg, 5*time.Second, log)
	go sampler.Run(ctx)

	newEngine := func() engine.Engine {
		cmdLine, renderErr := engine.RenderCommand(cfg.Matlab, engine.TemplateData{
			HostID:     hostID,
			Name:       cfg.Hostname,
			Port:       reg.Host().Port,
			SocketPath: cfg.SocketPath,
		})
		if renderErr != nil {
			log.Errorf("engine: failed rendering command template: %v", renderErr)
		}
		return engine.NewProcessEngine(cmdLine, 5*time.Second, log)
	}

	loopCfg := slave.DefaultConfig()
	loopCfg.TEngine = time.Duration(cfg.EngineIdleTimeoutSeconds) * time.Second

	sender := slave.NewNetworkSender(log)
	loop := slave.NewLoop(reg, newEngine, sender, loopCfg, log)

	loop.Run(ctx)
	if loop.Aborted() {
		return 1
	}
	return 0
}

func buildHostDescriptor(cfg *config.Config, hostID uint64) types.HostDescriptor {
	h := types.HostDescriptor{
		Version:  types.ProtocolVersion,
		ID:       hostID,
		Port:     uint16(cfg.Port),
		MemAvail: cfg.MemAvail,
		CPUAvail: cfg.CPUAvail,
		TimAvail: cfg.TimAvail,
		Status:   types.IDLE,
	}
	h.SetName(cfg.Hostname)
	h.SetUser(cfg.User)
	h.SetGroup(cfg.Group)
	h.SetSocketPath(cfg.SocketPath)
	return h
}

func waitForSignal(cancel context.CancelFunc) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()
}
