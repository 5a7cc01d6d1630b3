package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sleepywoodpecker/swing-platform/internal/config"
	"sleepywoodpecker/swing-platform/internal/logger"
	"sleepywoodpecker/swing-platform/internal/metrics"
	"sleepywoodpecker/swing-platform/internal/notify"
	"sleepywoodpecker/swing-platform/internal/processing"
	rserial "sleepywoodpecker/swing-platform/internal/rSerial"
	"sleepywoodpecker/swing-platform/internal/swing"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const MESSAGE_QUEUE_LENGTH = 20
const SHUTDOWN_TIMEOUT = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	// context handler for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// a missing .env is fine, the environment and defaults still apply
	_ = config.Load()
	cfg, err := config.FromEnv()
	if err != nil {
		panic(err)
	}

	// first initialize the main logger
	logger, err := logger.NewLogger(cfg.LogFilePath, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// optional UDP connection to telegraf
	var telemetry io.Writer
	if cfg.TelegrafAddr != "" {
		udpAddr, err := net.ResolveUDPAddr("udp", cfg.TelegrafAddr)
		if err != nil {
			logger.Error("invalid telegraf address", zap.Error(err), zap.String("addr", cfg.TelegrafAddr))
			return 1
		}
		udpConn, err := net.DialUDP("udp", nil, udpAddr)
		if err != nil {
			logger.Error("error dialing telegraf", zap.Error(err), zap.String("addr", cfg.TelegrafAddr))
			return 1
		}
		defer udpConn.Close()
		telemetry = udpConn
	}

	// one store per scale; each doubles as the swing.WeightSensor for its side
	leadStore := processing.NewDataSampleStore()
	trailStore := processing.NewDataSampleStore()

	// initialize the serial connections
	leadMessageQueue := make(chan []byte, MESSAGE_QUEUE_LENGTH)
	leadSerial, err := rserial.NewRSerial(cfg.LeadSerialPort, cfg.Baudrate, leadMessageQueue, logger, processing.FrameSize, processing.StopSequence, leadStore)
	if err != nil {
		logger.Error("error opening lead scale", zap.Error(err))
		return 1
	}
	defer leadSerial.Close()
	leadProcessor := processing.NewProcessor("lead", cfg.LeadRawLogFile, leadMessageQueue, logger, leadStore)

	trailMessageQueue := make(chan []byte, MESSAGE_QUEUE_LENGTH)
	trailSerial, err := rserial.NewRSerial(cfg.TrailSerialPort, cfg.Baudrate, trailMessageQueue, logger, processing.FrameSize, processing.StopSequence, trailStore)
	if err != nil {
		logger.Error("error opening trail scale", zap.Error(err))
		return 1
	}
	defer trailSerial.Close()
	trailProcessor := processing.NewProcessor("trail", cfg.TrailRawLogFile, trailMessageQueue, logger, trailStore)

	// swing state machine and the companion link
	met := metrics.New()
	tempo := swing.NewTempoStore()
	machine := swing.NewMachine(cfg.SwingOptions(), tempo)

	links := make(chan swing.LinkEvent, 4)
	hub := notify.NewHub(links, notify.DefaultBufferSize, logger)

	sampler := processing.NewSampler(
		swing.NewSensorPair(leadStore, trailStore),
		machine,
		hub,
		links,
		telemetry,
		met,
		logger,
	)

	handler := notify.NewHandler(hub, tempo, sampler, met, logger)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: notify.NewRouter(handler, met, logger),
	}

	// run everything
	go func() {
		if err := leadProcessor.Run(ctx); err != nil {
			logger.Error("[processor] stopped", zap.Error(err), zap.String("scale", "lead"))
		}
	}()
	go func() {
		if err := trailProcessor.Run(ctx); err != nil {
			logger.Error("[processor] stopped", zap.Error(err), zap.String("scale", "trail"))
		}
	}()
	go leadSerial.Run(ctx)
	go trailSerial.Run(ctx)

	samplerErr := make(chan error, 1)
	go func() { samplerErr <- sampler.Run(ctx) }()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("[notify] server error", zap.Error(err))
			cancel()
		}
	}()

	logger.Info("swing platform started",
		zap.String("httpAddr", cfg.HTTPAddr),
		zap.String("leadPort", cfg.LeadSerialPort),
		zap.String("trailPort", cfg.TrailSerialPort),
		zap.Float64("weightThreshold", cfg.WeightThreshold),
		zap.Duration("frameTime", cfg.FrameTime),
		zap.Duration("sampleInterval", cfg.SampleInterval),
		zap.Stringer("cueTiming", cfg.CueTiming),
	)

	exitCode := 0
	select {
	case <-sigCh:
		logger.Info("shutdown signal received")
	case err := <-samplerErr:
		if err != nil {
			// sensor faults need a physical reset of the platform
			logger.Error("sampler halted", zap.Error(err))
			exitCode = 1
		}
	case <-ctx.Done():
		exitCode = 1
	}

	cancel()
	hub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("[notify] shutdown error", zap.Error(err))
	}

	time.Sleep(500 * time.Millisecond)
	return exitCode
}
