package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rocket_go/internal/config"
	"rocket_go/internal/flight"
	"rocket_go/internal/sensors"
	"rocket_go/internal/server"
	"rocket_go/internal/telemetry"
	"rocket_go/pkg/logger"
	"rocket_go/pkg/utils"
)

var (
	configPath   string
	outDir       string
	maxDuration  time.Duration
	faults       []string
	batteryVolts float64

	rootCmd = &cobra.Command{
		Use:   "rocketfc",
		Short: "Computador de voo com sequenciador de missão",
		Long: `rocketfc executa o sequenciador de missão do foguete, com estação em solo
via HTTP/WebSocket, ou uma simulação completa de voo em tempo virtual.`,
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Executa o computador de voo com a estação em solo",
		RunE:  runServer,
	}

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Simula um voo completo em tempo virtual e grava o log CSV",
		RunE:  runSimulate,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "arquivo de configuração (JSON ou YAML)")

	simulateCmd.Flags().StringVarP(&outDir, "out", "o", "", "diretório do log CSV (padrão: telemetry.logDir)")
	simulateCmd.Flags().DurationVar(&maxDuration, "max-duration", 10*time.Minute, "tempo virtual máximo da simulação")
	simulateCmd.Flags().StringSliceVar(&faults, "fault", nil, "falhas de sensor a injetar (baro, imu, gps, power)")
	simulateCmd.Flags().Float64Var(&batteryVolts, "battery", 0, "tensão da bateria de voo simulada (0 mantém a configuração)")

	rootCmd.AddCommand(runCmd, simulateCmd)
}

// loadConfig carrega a configuração e aplica o nível e os arquivos de log
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)

	if cfg.Log.Dir != "" {
		if err := logger.EnableFileLogging(cfg.Log.Dir, cfg.Log.Prefix); err != nil {
			logger.Warnf("Log em arquivo indisponível: %v", err)
		}
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	displayBanner()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("erro ao carregar configurações: %w", err)
	}

	logger.Infof("Configuração carregada: sensores %s, atuação %s, tick %v",
		cfg.Sensors.Mode, cfg.Actuation.Mode, cfg.Sequencer.TickPeriod)

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("erro ao criar servidor: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Desligando servidor...")
	case err := <-errCh:
		if err != nil {
			logger.Error("Erro ao iniciar o servidor", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("erro durante o shutdown do servidor: %w", err)
	}

	logger.Info("Servidor encerrado com sucesso")
	return nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("erro ao carregar configurações: %w", err)
	}

	dir := cfg.Telemetry.LogDir
	if outDir != "" {
		dir = outDir
	}
	sink, err := telemetry.NewCSVSink(dir, cfg.Telemetry.FileName)
	if err != nil {
		return err
	}
	defer sink.Close()

	var opts []flight.SimulationOption
	for _, f := range faults {
		opts = append(opts, flight.WithFault(sensors.Capability(strings.ToLower(f))))
	}
	if batteryVolts > 0 {
		opts = append(opts, flight.WithBatteryVolts(batteryVolts))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := flight.RunSimulation(ctx, cfg, maxDuration, []telemetry.Sink{sink}, opts...)
	if summary != nil {
		printSummary(cmd, summary, sink.Path())
	}
	return err
}

func printSummary(cmd *cobra.Command, s *flight.Summary, csvPath string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sessão:          %s\n", s.SessionID)
	fmt.Fprintf(out, "Ticks:           %d (%s)\n", s.Ticks, utils.FormatDuration(s.Elapsed))
	fmt.Fprintf(out, "Estado final:    %s\n", s.FinalState)
	fmt.Fprintf(out, "Altitude máxima: %.1f m (apogeu previsto %.1f m AGL)\n", s.MaxAltitude, s.ApogeeAGL)
	if s.Abort {
		fmt.Fprintf(out, "Aborto:          %s\n", s.AbortReason)
	}

	fired := make([]string, 0, len(s.Fired))
	for _, c := range s.Fired {
		fired = append(fired, c.String())
	}
	fmt.Fprintf(out, "Canais:          %s\n", strings.Join(fired, ", "))

	fmt.Fprintln(out, "Transições:")
	for _, tr := range s.Transitions {
		fmt.Fprintf(out, "  %s  %s -> %s\n", tr.Timestamp.Format("15:04:05.000"), tr.FromName, tr.ToName)
	}
	fmt.Fprintf(out, "Log CSV:         %s\n", csvPath)
}
