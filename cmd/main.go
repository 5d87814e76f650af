package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"reflect"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/roomlayout/catalog"
	"github.com/aukilabs/roomlayout/featureflag"
	rhttp "github.com/aukilabs/roomlayout/http"
	"github.com/aukilabs/roomlayout/models"
	"github.com/aukilabs/roomlayout/placement"
	"github.com/aukilabs/roomlayout/rooms"
	"github.com/aukilabs/roomlayout/smoketest"
	rwebsocket "github.com/aukilabs/roomlayout/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The server version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "roomlayout_info",
		Help:        "Room layout server information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string          `cli:""        env:"ROOMLAYOUT_ADDR"                 help:"Listening address for client connections."`
	AdminAddr          string          `cli:""        env:"ROOMLAYOUT_ADMIN_ADDR"           help:"Admin listening address."`
	PublicEndpoint     string          `cli:""        env:"ROOMLAYOUT_PUBLIC_ENDPOINT"      help:"The public endpoint where this server is reachable."`
	LogLevel           string          `cli:""        env:"ROOMLAYOUT_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool            `cli:""        env:"ROOMLAYOUT_LOG_INDENT"           help:"Indent logs."`
	CatalogFile        string          `cli:""        env:"ROOMLAYOUT_CATALOG_FILE"         help:"The prefab catalog file (.yaml|.yml|.toml|.json). The built-in catalog is used when empty."`
	WatchCatalog       bool            `cli:""        env:"ROOMLAYOUT_WATCH_CATALOG"        help:"Reload the catalog file when it changes. Rooms keep the catalog they were created with."`
	GenerateClientID   bool            `cli:""        env:"ROOMLAYOUT_GENERATE_CLIENT_ID"   help:"Assign a client id to connections that do not send one."`
	ClientIdleTimeout  time.Duration   `cli:",hidden" env:"ROOMLAYOUT_CLIENT_IDLE_TIMEOUT"  help:"Time until an idle client will be disconnected"`
	LogSummaryInterval time.Duration   `cli:",hidden" env:"ROOMLAYOUT_LOG_SUMMARY_INTERVAL" help:"The duration between each log summary by connection."`
	ShutdownTimeout    time.Duration   `cli:",hidden" env:"ROOMLAYOUT_SHUTDOWN_TIMEOUT"     help:"The time given to servers to finish their requests on exit."`
	Room               roomConfig      `cli:",hidden" env:"-"                               help:"Default room layout."`
	Placement          placementConfig `cli:",hidden" env:"-"                               help:"Placement configuration."`
	Events             eventsConfig    `cli:",hidden" env:"-"                               help:"Event pusher configuration."`
	FeatureFlags       []string        `cli:",hidden" env:"ROOMLAYOUT_FEATURE_FLAGS"        help:"Comma separated feature flags"`
	Version            bool            `cli:""        env:"-"                               help:"Show version."`
	Help               bool            `cli:""        env:"-"                               help:"Show help."`
}

type roomConfig struct {
	Width      float64 `cli:",hidden" env:"ROOMLAYOUT_ROOM_WIDTH"       help:"The width of rooms created without a layout, in meters."`
	Depth      float64 `cli:",hidden" env:"ROOMLAYOUT_ROOM_DEPTH"       help:"The depth of rooms created without a layout, in meters."`
	WallHeight float64 `cli:",hidden" env:"ROOMLAYOUT_ROOM_WALL_HEIGHT" help:"The wall height of rooms created without a layout, in meters."`
}

type placementConfig struct {
	CollisionMargin float64 `cli:",hidden" env:"ROOMLAYOUT_PLACEMENT_COLLISION_MARGIN"   help:"The margin added around volumes before collision checks."`
	WallStandoff    float64 `cli:",hidden" env:"ROOMLAYOUT_PLACEMENT_WALL_STANDOFF"      help:"The gap between wall mounted objects and their wall."`
	WallMountHeight float64 `cli:",hidden" env:"ROOMLAYOUT_PLACEMENT_WALL_MOUNT_HEIGHT"  help:"The default height of wall mounted objects."`
	FloorClearance  float64 `cli:",hidden" env:"ROOMLAYOUT_PLACEMENT_FLOOR_CLEARANCE"    help:"The gap between floor objects and the surface below."`
	MinimumExtent   float64 `cli:",hidden" env:"ROOMLAYOUT_PLACEMENT_MINIMUM_EXTENT"     help:"The extent below which a volume is degenerate."`
	NominalUnitSize float64 `cli:",hidden" env:"ROOMLAYOUT_PLACEMENT_NOMINAL_UNIT_SIZE"  help:"The size of the box used when a volume can not be resolved."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"ROOMLAYOUT_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed. Events are not pushed when empty."`
	FlushInterval time.Duration `cli:",hidden" env:"ROOMLAYOUT_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"ROOMLAYOUT_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"ROOMLAYOUT_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	layout := rooms.DefaultLayout()
	defaultPlacement := placement.DefaultConfig()

	conf := config{
		Addr:               ":4000",
		AdminAddr:          ":18190",
		PublicEndpoint:     "http://localhost:4000",
		LogLevel:           logs.InfoLevel.String(),
		ClientIdleTimeout:  time.Minute * 5,
		LogSummaryInterval: time.Minute,
		ShutdownTimeout:    time.Second * 10,
		Room: roomConfig{
			Width:      float64(layout.Width),
			Depth:      float64(layout.Depth),
			WallHeight: float64(layout.WallHeight),
		},
		Placement: placementConfig{
			CollisionMargin: float64(defaultPlacement.CollisionMargin),
			WallStandoff:    float64(defaultPlacement.WallStandoff),
			WallMountHeight: float64(defaultPlacement.WallMountHeight),
			FloorClearance:  float64(defaultPlacement.FloorClearance),
			MinimumExtent:   float64(defaultPlacement.MinimumExtent),
			NominalUnitSize: float64(defaultPlacement.NominalUnitSize),
		},
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts the room layout server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     metrics.HTTPTransport(http.DefaultTransport),
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "roomlayout",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	cat, err := loadCatalog(conf)
	if err != nil {
		logs.Fatal(errors.New("loading catalog failed").Wrap(err))
	}
	catalogs := catalog.NewSource(cat)
	if conf.CatalogFile != "" && conf.WatchCatalog {
		go func() {
			if err := catalog.Watch(ctx, conf.CatalogFile, catalogs); err != nil {
				logs.Warn(err)
			}
		}()
	}

	var roomStore rooms.Store
	featureFlags := featureflag.New(conf.FeatureFlags)
	placementConf := conf.Placement.toPlacementConfig()
	defaultLayout := conf.Room.toLayout()

	var service http.ServeMux

	service.Handle("/health", rhttp.HandleWithCORS(http.HandlerFunc(rhttp.HandleHealthCheck)))
	service.Handle("/version", rhttp.HandleWithCORS(rhttp.HandleVersion(version)))
	service.Handle("/catalog", rhttp.HandleWithCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rhttp.HandleCatalog(catalogs.Current())(w, r)
	})))

	var smokeTestKind string
	if kinds := cat.Kinds(); len(kinds) != 0 {
		smokeTestKind = kinds[0]
	}
	service.HandleFunc("/smoke-test", smoketest.HandleSmokeTest(ctx, smoketest.Options{
		Endpoint:  conf.PublicEndpoint,
		UserAgent: fmt.Sprintf("roomlayout %s", version),
		Kind:      smokeTestKind,
	}))

	readinessCheck := func() bool {
		return ctx.Err() == nil
	}
	service.Handle("/ready", rhttp.HandleWithCORS(rhttp.HandleReadyCheck(readinessCheck)))

	service.Handle("/", rhttp.HandleWithCORS(websocket.Server{
		Handshake: rhttp.VerifyClientID(conf.GenerateClientID),
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var rh rwebsocket.Handler = &rwebsocket.RealtimeHandler{
				ClientIdleTimeout: conf.ClientIdleTimeout,
				Rooms:             &roomStore,
				Catalog:           catalogs.Current(),
				Placement:         placementConf,
				DefaultLayout:     defaultLayout,
				FeatureFlags:      featureFlags,
			}
			h := rwebsocket.HandlerWithLogs(rh, conf.LogSummaryInterval)
			h = rwebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
			defer h.Close()

			rwebsocket.Handle(ctx, conn, h)
		},
	}))

	service.Handle("/ping", websocket.Server{
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			io.Copy(ws, ws)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", rhttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", rhttp.HandleReadyCheck(readinessCheck))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("catalog_kinds", cat.Kinds()).
		WithTag("feature_flags", conf.FeatureFlags).
		Info("starting room layout server")

	rhttp.ListenAndServe(ctx, conf.ShutdownTimeout,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			rhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

func (c roomConfig) toLayout() models.RoomLayout {
	return models.RoomLayout{
		Width:      float32(c.Width),
		Depth:      float32(c.Depth),
		WallHeight: float32(c.WallHeight),
	}
}

func (c placementConfig) toPlacementConfig() placement.Config {
	return placement.Config{
		CollisionMargin: float32(c.CollisionMargin),
		WallStandoff:    float32(c.WallStandoff),
		WallMountHeight: float32(c.WallMountHeight),
		FloorClearance:  float32(c.FloorClearance),
		MinimumExtent:   float32(c.MinimumExtent),
		NominalUnitSize: float32(c.NominalUnitSize),
	}
}

func loadCatalog(conf config) (*catalog.Catalog, error) {
	if conf.CatalogFile == "" {
		return catalog.Default()
	}
	return catalog.Load(conf.CatalogFile)
}

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
	}

	if !conf.Room.toLayout().IsValid() {
		return errors.New("invalid default room layout").
			WithTag("layout", conf.Room.toLayout())
	}

	if err := conf.Placement.toPlacementConfig().Validate(); err != nil {
		return err
	}

	if conf.ClientIdleTimeout <= 0 {
		return errors.New("client idle timeout must be positive").
			WithTag("client_idle_timeout", conf.ClientIdleTimeout)
	}

	return nil
}
