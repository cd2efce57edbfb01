// Package dependency wires core roadscout services using go.uber.org/dig.
package dependency

import (
	"fmt"
	"time"

	"go.uber.org/dig"

	"github.com/roadscout/roadscout/internal/assistant"
	"github.com/roadscout/roadscout/internal/channels"
	"github.com/roadscout/roadscout/internal/config"
	"github.com/roadscout/roadscout/internal/engine"
	"github.com/roadscout/roadscout/internal/gateway"
	"github.com/roadscout/roadscout/internal/monitor"
	"github.com/roadscout/roadscout/internal/providers"
	"github.com/roadscout/roadscout/internal/schema"
	"github.com/roadscout/roadscout/internal/session"
	"github.com/roadscout/roadscout/internal/tools"
	"github.com/roadscout/roadscout/internal/traffic"
)

// Container holds the resolved service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	provider   schema.LLMProvider
	assistant  *assistant.Assistant
	channelMgr *channels.Manager
	gateway    *gateway.Server
	monitor    *monitor.Monitor
}

func (c *Container) Provider() schema.LLMProvider { return c.provider }
func (c *Container) Assistant() *assistant.Assistant { return c.assistant }
func (c *Container) Channels() *channels.Manager  { return c.channelMgr }
func (c *Container) Gateway() *gateway.Server     { return c.gateway }
func (c *Container) Monitor() *monitor.Monitor    { return c.monitor }

// New builds and wires all services from cfg.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	for _, provide := range []any{
		func() *config.Config { return cfg },
		newProvider,
		newTrafficClient,
		newRegistry,
		newEngine,
		newSessionManager,
		newAssistant,
		newChannelManager,
		newGateway,
		newMonitor,
	} {
		if err := d.Provide(provide); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		provider schema.LLMProvider,
		asst *assistant.Assistant,
		channelMgr *channels.Manager,
		gw *gateway.Server,
		mon *monitor.Monitor,
	) {
		result = &Container{
			provider:   provider,
			assistant:  asst,
			channelMgr: channelMgr,
			gateway:    gw,
			monitor:    mon,
		}
	})
	return result, err
}

func newProvider(cfg *config.Config) (schema.LLMProvider, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("no LLM API key configured — edit %s", config.ConfigPath())
	}
	return providers.New(providers.Params{
		APIKey:       cfg.LLM.APIKey,
		APIBase:      cfg.LLM.APIBase,
		DefaultModel: cfg.Agents.Defaults.Model,
		ExtraHeaders: cfg.LLM.ExtraHeaders,
	}), nil
}

func newTrafficClient(cfg *config.Config) (*traffic.Client, error) {
	if cfg.Traffic.APIKey == "" {
		return nil, fmt.Errorf("no traffic API key configured — edit %s", config.ConfigPath())
	}
	timeout := time.Duration(cfg.Traffic.TimeoutSeconds) * time.Second
	return traffic.NewClient(cfg.Traffic.APIKey, cfg.Traffic.APIBase, timeout), nil
}

// newRegistry assembles the closed tool set. Every tool delegates its data
// fetching to the traffic client.
func newRegistry(client *traffic.Client) *tools.Registry {
	return tools.NewRegistryBuilder().
		WithTool(tools.NewSearchPlaceTool(client)).
		WithTool(tools.NewCalculateRoutesTool(client)).
		WithTool(tools.NewGetTrafficFlowTool(client)).
		WithTool(tools.NewGetDepartureTimesTool(client)).
		WithTool(tools.NewGetIncidentsTool(client)).
		Build()
}

func newEngine(provider schema.LLMProvider, registry *tools.Registry, cfg *config.Config) *engine.Engine {
	defaults := cfg.Agents.Defaults
	return engine.New(provider, registry, engine.Settings{
		Model:         defaults.Model,
		MaxTokens:     defaults.MaxTokens,
		Temperature:   defaults.Temperature,
		MaxToolCycles: defaults.MaxToolCycles,
		HistoryWindow: defaults.HistoryWindow,
	})
}

func newSessionManager() (*session.Manager, error) {
	return session.NewManager(config.DataDir())
}

func newAssistant(eng *engine.Engine, sessions *session.Manager, cfg *config.Config) *assistant.Assistant {
	return assistant.New(eng, sessions, cfg.Agents.Defaults.HistoryWindow)
}

func newChannelManager(cfg *config.Config, asst *assistant.Assistant) *channels.Manager {
	return channels.NewManager(cfg, asst)
}

func newGateway(cfg *config.Config, asst *assistant.Assistant) *gateway.Server {
	return gateway.New(cfg.Gateway.Host, cfg.Gateway.Port, asst)
}

func newMonitor(cfg *config.Config, client *traffic.Client, channelMgr *channels.Manager) (*monitor.Monitor, error) {
	trips, err := config.LoadTrips(cfg.TripsPath())
	if err != nil {
		return nil, fmt.Errorf("load trips: %w", err)
	}
	return monitor.New(client, channelMgr, trips, cfg.Monitor.SaveThresholdMinutes), nil
}
