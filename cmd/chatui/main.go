package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"goa.design/clue/debug"
	"goa.design/clue/log"
	goahttp "goa.design/goa/v3/http"

	"example.com/concierge/chatui"
	"example.com/concierge/config"
	"example.com/concierge/relay/pulse"
	"example.com/concierge/upstream/engine"
)

func main() {
	var (
		configF   = flag.String("config", "", "Path to YAML configuration file")
		httpPortF = flag.String("http-port", "", "HTTP port (overrides configuration)")
		projectF  = flag.String("project", "", "Cloud project hosting the agent")
		locationF = flag.String("location", "", "Cloud location hosting the agent")
		engineF   = flag.String("engine-url", "", "Agent runtime API base URL")
		tokenF    = flag.String("engine-token", "", "Bearer token for the agent runtime API")
		redisF    = flag.String("redis-url", "", "Redis connection URL")
		topicF    = flag.String("topic", "", "Relay topic for agent responses")
		staticF   = flag.String("static-dir", "", "Directory holding the web UI")
		dbgF      = flag.Bool("debug", false, "Log request and response bodies")
	)
	flag.Parse()

	// Setup logger.
	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))

	cfg, err := config.Load(*configF)
	if err != nil {
		log.Fatalf(ctx, err, "load configuration")
	}
	applyFlags(&cfg, *httpPortF, *projectF, *locationF, *engineF, *redisF, *topicF, *staticF, *dbgF)

	if cfg.Debug {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}
	log.Print(ctx, log.KV{K: "http-port", V: cfg.HTTPPort}, log.KV{K: "topic", V: cfg.Topic})

	// Connect the relay broker.
	ropts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf(ctx, err, "invalid redis URL %q", cfg.RedisURL)
	}
	rdb := redis.NewClient(ropts)
	defer rdb.Close()

	pc, err := pulse.New(pulse.Options{Redis: rdb})
	if err != nil {
		log.Fatalf(ctx, err, "create pulse client")
	}
	broker := pulse.NewBroker(pc)
	if err := broker.EnsureTopic(ctx, cfg.Topic); err != nil {
		// Redis may come up after us; publishes will retry the stream.
		log.Errorf(ctx, err, "ensure relay topic %q", cfg.Topic)
	}

	// Connect the upstream runtime.
	if cfg.EngineURL == "" {
		log.Fatalf(ctx, fmt.Errorf("engine URL not configured"), "missing -engine-url")
	}
	token := *tokenF
	if token == "" {
		token = os.Getenv("CONCIERGE_ENGINE_TOKEN")
	}
	runtime, err := engine.New(engine.Options{
		BaseURL: cfg.EngineURL,
		Token:   engine.StaticToken(token),
	})
	if err != nil {
		log.Fatalf(ctx, err, "create engine client")
	}

	svc := chatui.New(chatui.Options{
		Runtime:   runtime,
		Broker:    broker,
		Topic:     cfg.Topic,
		Project:   cfg.Project,
		Location:  cfg.Location,
		StaticDir: cfg.StaticDir,
	})

	// Build the HTTP request multiplexer and mount debug and profiler
	// endpoints in debug mode.
	var mux goahttp.Muxer
	{
		mux = goahttp.NewMuxer()
		if cfg.Debug {
			debug.MountPprofHandlers(debug.Adapt(mux))
			debug.MountDebugLogEnabler(debug.Adapt(mux))
		}
	}
	svc.Mount(mux)

	var handler http.Handler = mux
	if cfg.Debug {
		handler = debug.HTTP()(handler)
	}
	handler = log.HTTP(ctx)(handler)

	// Create channel used by both the signal handler and server goroutines
	// to notify the main goroutine when to stop the server.
	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(ctx)

	addr := net.JoinHostPort("", strconv.Itoa(cfg.HTTPPort))
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: time.Second * 60}

	wg.Add(1)
	go func() {
		defer wg.Done()

		go func() {
			log.Printf(ctx, "HTTP server listening on %q", addr)
			errc <- srv.ListenAndServe()
		}()

		<-ctx.Done()
		log.Printf(ctx, "shutting down HTTP server at %q", addr)

		sctx, scancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer scancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Printf(ctx, "failed to shutdown: %v", err)
		}
	}()

	// Wait for signal.
	log.Printf(ctx, "exiting (%v)", <-errc)
	cancel()
	wg.Wait()
	log.Printf(ctx, "exited")
}

// applyFlags lets command line flags override the loaded configuration.
func applyFlags(cfg *config.Config, httpPort, project, location, engineURL, redisURL, topic, staticDir string, dbg bool) {
	if httpPort != "" {
		if port, err := strconv.Atoi(httpPort); err == nil {
			cfg.HTTPPort = port
		}
	}
	if project != "" {
		cfg.Project = project
	}
	if location != "" {
		cfg.Location = location
	}
	if engineURL != "" {
		cfg.EngineURL = engineURL
	}
	if redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if topic != "" {
		cfg.Topic = topic
	}
	if staticDir != "" {
		cfg.StaticDir = staticDir
	}
	if dbg {
		cfg.Debug = true
	}
}
