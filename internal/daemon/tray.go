package daemon

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"
)

// TrayCommand is the CLI that hosts the tray icon.
const TrayCommand = "poptrans"

// trayRestartDelay is the minimum time between tray restarts.
const trayRestartDelay = 5 * time.Second

// ErrTrayUnavailable is returned when the tray command is not on PATH.
var ErrTrayUnavailable = errors.New(TrayCommand + " not found on PATH")

// TraySupervisor runs `poptrans tray` as a child process and restarts it
// if it exits while the daemon is running.
type TraySupervisor struct {
	mu      sync.Mutex
	logger  *slog.Logger
	cmd     *exec.Cmd
	running bool
	done    chan struct{}

	lookPath func(string) (string, error)
	command  func(ctx context.Context, path string) *exec.Cmd
	delay    time.Duration
}

// NewTraySupervisor creates a supervisor. It does not start the tray.
func NewTraySupervisor(logger *slog.Logger) *TraySupervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TraySupervisor{
		logger:   logger,
		lookPath: exec.LookPath,
		command: func(ctx context.Context, path string) *exec.Cmd {
			cmd := exec.CommandContext(ctx, path, "tray")
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			return cmd
		},
		delay: trayRestartDelay,
	}
}

// Start launches the tray. The child is stopped when ctx is done.
func (s *TraySupervisor) Start(ctx context.Context) error {
	path, err := s.lookPath(TrayCommand)
	if err != nil {
		return ErrTrayUnavailable
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.supervise(ctx, path)
	return nil
}

func (s *TraySupervisor) supervise(ctx context.Context, path string) {
	defer close(s.done)
	for {
		started := time.Now()
		cmd := s.command(ctx, path)
		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			return
		}
		s.logger.Debug("starting tray", "path", path)
		err := cmd.Start()
		s.cmd = cmd
		s.mu.Unlock()
		if err != nil {
			s.logger.Warn("failed to start tray", "error", err)
			return
		}

		err = cmd.Wait()

		if ctx.Err() != nil || !s.isRunning() {
			return
		}
		s.logger.Warn("tray exited", "error", err)

		// A tray that keeps dying right away is left down.
		if time.Since(started) < s.delay {
			s.logger.Warn("tray exited too quickly, not restarting")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.delay):
		}
	}
}

func (s *TraySupervisor) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stop terminates the tray and waits for the supervisor to exit.
func (s *TraySupervisor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cmd := s.cmd
	done := s.done
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Signal(os.Interrupt)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		if cmd != nil && cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-done
	}
}
