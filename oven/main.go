package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"github.com/itohio/reflow/pkg/clock"
	"github.com/itohio/reflow/pkg/config"
	"github.com/itohio/reflow/pkg/control"
	"github.com/itohio/reflow/pkg/display"
	"github.com/itohio/reflow/pkg/hal"
	"github.com/itohio/reflow/pkg/logger"
)

func main() {
	var (
		configFlag    = flag.String("config", "config.yaml", "Configuration file path")
		portFlag      = flag.String("port", "", "Serial bridge port override (e.g., COM3 or /dev/ttyACM0)")
		mockFlag      = flag.Bool("mock", false, "Use the simulated oven instead of the serial bridge")
		headlessFlag  = flag.Bool("headless", false, "Run without a window")
		autostartFlag = flag.Bool("autostart", false, "Press Start once after the splash screen")
		logPortFlag   = flag.String("log-port", "", "Write the log to this serial port instead of stdout")
		listFlag      = flag.Bool("list-ports", false, "List serial ports and exit")
		saveFlag      = flag.String("save-config", "", "Write the effective configuration to this file and exit")
	)
	flag.Parse()

	boot := logger.Console(logger.InfoLevel)

	if *listFlag {
		if err := listPorts(os.Stdout); err != nil {
			boot.Fatalw("failed to list ports", "error", err)
		}
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		boot.Fatalw("failed to load configuration", "file", *configFlag, "error", err)
	}

	// Command line overrides
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *logPortFlag != "" {
		cfg.Log.Port = *logPortFlag
	}

	if *saveFlag != "" {
		if err := cfg.Save(*saveFlag); err != nil {
			boot.Fatalw("failed to save configuration", "file", *saveFlag, "error", err)
		}
		return
	}

	log, closeLog, err := newLogger(cfg)
	if err != nil {
		boot.Fatalw("failed to open log sink", "error", err)
	}
	defer closeLog()

	clk := clock.NewSystem()
	device := newDevice(cfg, *mockFlag, clk, log)
	if err := device.Connect(); err != nil {
		log.Fatalw("failed to connect", "mock", *mockFlag, "port", cfg.Serial.Port, "error", err)
	}
	defer device.Close()

	fb := display.New(int16(cfg.Display.Width), int16(cfg.Display.Height))
	front, board := newFrontPanel(device.Board())

	ctl, err := control.New(cfg, board, fb, clk, log)
	if err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *autostartFlag {
		time.AfterFunc(cfg.UI.Splash+cfg.UI.DisplayPeriod, front.start.Press)
	}

	if *headlessFlag {
		if err := ctl.Scheduler.Run(ctx); err != nil {
			log.Errorw("controller halted", "error", err)
			closeLog()
			os.Exit(1)
		}
		return
	}

	runDesktop(ctx, stop, ctl, fb, front, log)
}

// runDesktop shows the front panel and runs the controller until the window
// closes or ctx is cancelled.
func runDesktop(ctx context.Context, stop context.CancelFunc, ctl *control.Controller, fb *display.Mono, front *frontPanel, log *logger.Logger) {
	application := app.NewWithID("com.itohio.reflow")

	window := application.NewWindow("Reflow Oven")
	window.CenterOnScreen()

	panel := NewPanel(fb, 4)
	fb.OnUpdate(func() {
		fyne.Do(panel.UpdateFrame)
	})

	toolbar := createToolbar(front)
	window.SetContent(container.NewBorder(
		nil,
		toolbar,
		nil,
		nil,
		panel,
	))

	done := make(chan error, 1)
	go func() {
		err := ctl.Scheduler.Run(ctx)
		done <- err
		if err != nil {
			fyne.Do(func() {
				dialog.ShowError(fmt.Errorf("controller halted, outputs are off: %w", err), window)
			})
		}
	}()

	go func() {
		<-ctx.Done()
		fyne.Do(application.Quit)
	}()

	window.ShowAndRun()

	stop()
	if err := <-done; err != nil {
		log.Errorw("controller halted", "error", err)
	}
}

func newLogger(cfg *config.Config) (*logger.Logger, func(), error) {
	if cfg.Log.Port == "" {
		log := logger.Console(cfg.Log.Level)
		return log, func() { _ = log.Sync() }, nil
	}

	log, port, err := logger.Serial(cfg.Log.Level, cfg.Log.Port, cfg.Log.Baud)
	if err != nil {
		return nil, nil, err
	}
	return log, func() {
		_ = log.Sync()
		_ = port.Close()
	}, nil
}

func newDevice(cfg *config.Config, mock bool, clk clock.Clock, log *logger.Logger) hal.Device {
	if mock {
		log.Infow("using simulated oven")
		return hal.NewSim(&cfg.Sim, cfg.Control.PWMOverflow)
	}
	log.Infow("using serial bridge", "port", cfg.Serial.Port, "baud", cfg.Serial.Baud)
	bridge := hal.NewSerial(cfg.Serial.Port, cfg.Serial.Baud, cfg.Control.PWMOverflow, log)
	bridge.SetClock(clk)
	return bridge
}

func listPorts(w io.Writer) error {
	ports, err := hal.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintf(w, "%s\t%s\n", p.Name, p.Description)
	}
	return nil
}
