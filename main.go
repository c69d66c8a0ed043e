package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/matt-g-everett/framecast/api"
	"github.com/matt-g-everett/framecast/comfy"
	"github.com/matt-g-everett/framecast/playback"
	"github.com/matt-g-everett/framecast/render"
	"github.com/matt-g-everett/framecast/stream"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/secret"
)

type app struct {
	Config    stream.Config
	Password  secret.String
	Client    mqtt.Client
	Sequencer *playback.Sequencer
	Scheduler *playback.Scheduler
	Source    *stream.Source

	producerStats func() any
}

func newApp(cfg stream.Config) *app {
	a := new(app)
	a.Password = secret.New(cfg.Mqtt.Password)
	cfg.Mqtt.Password = ""
	a.Config = cfg
	a.Sequencer = playback.NewSequencer()
	return a
}

// Start restarts playback and numbering together.
func (a *app) Start(ctx context.Context) {
	a.Sequencer.Reset()
	a.Scheduler.Start(ctx)
}

func (a *app) Stop(ctx context.Context) {
	a.Scheduler.Stop(ctx)
}

func (a *app) handleOnConnect(ctx context.Context) mqtt.OnConnectHandler {
	return func(client mqtt.Client) {
		logger.Infof(ctx, "connected to %s", a.Config.Mqtt.URL)
		if a.Source == nil {
			return
		}
		if err := a.Source.Subscribe(ctx); err != nil {
			logger.Error(ctx, err)
		}
	}
}

func (a *app) newClient(ctx context.Context) {
	options := mqtt.NewClientOptions().
		AddBroker(a.Config.Mqtt.URL).
		SetClientID(a.Config.Mqtt.ClientID).
		SetUsername(a.Config.Mqtt.Username).
		SetPassword(a.Password.Get()).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetOnConnectHandler(a.handleOnConnect(ctx)).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warnf(ctx, "connection lost: %v", err)
		})
	a.Client = mqtt.NewClient(options)
}

func (a *app) connect() error {
	if token := a.Client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("unable to connect to '%s': %w", a.Config.Mqtt.URL, token.Error())
	}
	return nil
}

func (a *app) newRenderer() playback.Renderer {
	switch a.Config.Renderer.Kind {
	case stream.RendererMqtt:
		return stream.NewStreamer(a.Client, a.Config.Mqtt.Topics.Display)
	case stream.RendererTerminal:
		return render.NewTerminal(os.Stdout, a.Config.Renderer.Cols, a.Config.Renderer.Rows, a.Config.Renderer.Color)
	default:
		return render.NewLog()
	}
}

func (a *app) startProducer(ctx context.Context) error {
	switch a.Config.Producer.Kind {
	case stream.ProducerSynthetic:
		g, err := stream.NewGenerator(a.Config.Producer.Synthetic, a.Sequencer, a.Scheduler)
		if err != nil {
			return err
		}
		a.producerStats = func() any { return g.Counters() }
		observability.Go(ctx, func() {
			g.Run(ctx)
		})

	case stream.ProducerComfy:
		p, err := comfy.NewProducer(a.Config.Producer.Comfy, a.Sequencer, a.Scheduler)
		if err != nil {
			return err
		}
		a.producerStats = func() any {
			out := map[string]map[string]uint64{}
			for _, c := range p.Clients() {
				submitted, delivered, failed := c.Counters()
				out[c.Name] = map[string]uint64{"submitted": submitted, "delivered": delivered, "failed": failed}
			}
			return out
		}
		observability.Go(ctx, func() {
			if err := p.Run(ctx); err != nil {
				logger.Errorf(ctx, "the ComfyUI producer stopped: %v", err)
			}
		})

	case stream.ProducerMqtt:
		// the source subscribes from the on-connect handler
		a.producerStats = func() any {
			received, malformed := a.Source.Counters()
			return map[string]uint64{"received": received, "malformed": malformed}
		}
	}
	return nil
}

func (a *app) stats(context.Context) any {
	out := struct {
		Playback playback.Stats `json:"playback"`
		Producer any            `json:"producer,omitempty"`
	}{
		Playback: a.Scheduler.Stats(),
	}
	if a.producerStats != nil {
		out.Producer = a.producerStats()
	}
	return out
}

func (a *app) logStats(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		st := a.Scheduler.Stats()
		logger.Infof(ctx,
			"%s at %d fps: %s displayed, %d buffered, %d forced, %d stale, %d duplicates, %d stalls",
			st.State, st.TargetFPS, humanize.Comma(int64(st.Displayed)), st.Buffered,
			st.Forced, st.Stale, st.Duplicates, st.Stalls,
		)
	}
}

func main() {
	mqtt.ERROR = log.New(os.Stdout, "", 0)

	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	configPath := pflag.String("config", "config.yaml", "YAML config file.")
	statsInterval := pflag.Duration("stats-interval", 0, "how often to log playback stats (overrides the config)")
	pflag.Parse()

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancelFn()

	cfg, err := stream.ReadConfig(*configPath)
	if err != nil {
		l.Fatal(err)
	}
	if *statsInterval > 0 {
		cfg.StatsInterval = *statsInterval
	}
	a := newApp(cfg)
	l.Debugf("config: %+v", a.Config)
	if cfg.NeedsMqtt() {
		a.newClient(ctx)
	}

	a.Scheduler, err = playback.NewScheduler(cfg.Playback, a.newRenderer())
	if err != nil {
		l.Fatal(err)
	}
	if cfg.Producer.Kind == stream.ProducerMqtt {
		a.Source = stream.NewSource(a.Client, cfg.Mqtt.Topics.Frames, a.Scheduler)
	}

	a.Start(ctx)
	defer a.Stop(context.WithoutCancel(ctx))

	if cfg.NeedsMqtt() {
		if err := a.connect(); err != nil {
			l.Fatal(err)
		}
		defer a.Client.Disconnect(250)
	}
	if err := a.startProducer(ctx); err != nil {
		l.Fatal(err)
	}

	if cfg.Api.Listen != "" {
		server := api.NewApi(cfg.Api.Listen, cfg.Api.Static, a.stats, a)
		observability.Go(ctx, func() {
			if err := server.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error(ctx, err)
			}
		})
	}

	a.logStats(ctx, cfg.StatsInterval)
	l.Infof("shutting down")
}
