package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/smartqasa/pico-connector/internal/adapter/actor"
	"github.com/smartqasa/pico-connector/internal/adapter/executor"
	"github.com/smartqasa/pico-connector/internal/config"
	"github.com/smartqasa/pico-connector/internal/core/actor"
	"github.com/smartqasa/pico-connector/internal/core/domain"
	"github.com/smartqasa/pico-connector/internal/core/port"
	"github.com/smartqasa/pico-connector/internal/server"
	"github.com/smartqasa/pico-connector/internal/util/actorutil"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// load device profiles
	profiles, err := config.LoadDeviceProfiles(cfg.DevicesFile)
	if err != nil {
		slog.Error("device profile errors", "error", err)
		return
	}
	slog.Info("Loaded device profiles", "devices", len(profiles))

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterActor(*cfg, profiles, mqttActorProvider(cfg, logger), executorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => PICO_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("PICO_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("pico")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix statestream topic
	ssTopic, err := config.CheckMQTTTopic(cfg.MQTT.StatestreamTopic)
	if err != nil {
		return nil, errors.New("invalid statestream topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.StatestreamTopic = ssTopic

	// check executor backend
	switch cfg.Executor {
	case "mqtt":
	case "websocket":
		if cfg.HomeAssistant.URL == "" || cfg.HomeAssistant.Token == "" {
			return nil, errors.New("websocket executor requires home_assistant.url and home_assistant.token")
		}
	default:
		return nil, errors.New("config param executor must be one of: mqtt, websocket")
	}

	if cfg.DevicesFile == "" {
		return nil, errors.New("config param devices_file is required")
	}

	return &cfg, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func executorProvider(cfg *config.Config, logger *zap.Logger) actor.ExecutorProvider {
	return func(system *pactor.ActorSystem, mqttActor *pactor.PID) port.ActionExecutor {
		if cfg.Executor == "websocket" {
			return executor.NewHAWebsocketExecutor(cfg.HomeAssistant, logger)
		}
		return executor.NewMQTTActionExecutor(system, mqttActor, cfg.MQTT.BaseTopic, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.base_topic", "pico_connector")
	viper.SetDefault("mqtt.statestream_topic", "homeassistant_statestream")
	viper.SetDefault("executor", "mqtt")
	viper.SetDefault("devices_file", "devices.yaml")
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	cfg.HomeAssistant.Token = "*redacted*"
	slog.Info("Using", "config", cfg)
}
