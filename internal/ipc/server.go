package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"mirrorvault/internal/control"
	"mirrorvault/internal/daemon"
	"mirrorvault/internal/logging"
	"mirrorvault/internal/logs"
	"mirrorvault/internal/pairs"
	"mirrorvault/internal/pathcheck"
	"mirrorvault/internal/store"
)

// Backend is the daemon surface the RPC service drives.
type Backend interface {
	Status(ctx context.Context) daemon.Status
	Do(ctx context.Context, cmd control.Command) (any, error)
	Settings() pairs.Settings
	History(ctx context.Context, filter store.RunFilter) ([]store.Run, error)
	LogPath() string
	TestNotification(ctx context.Context) (bool, string, error)
}

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, backend Backend, logger *slog.Logger) (*Server, error) {
	if backend == nil {
		return nil, errors.New("ipc server requires a daemon")
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	svc := &service{backend: backend, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName(ServiceName, svc); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun mirrorvault stop"))
	}
}

type service struct {
	backend Backend
	logger  *slog.Logger
	ctx     context.Context
}

func (s *service) do(cmd control.Command) (any, error) {
	return s.backend.Do(s.ctx, cmd)
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.backend.Status(s.ctx)
	view := status.View
	*resp = StatusResponse{
		Running:         status.Running,
		PID:             status.PID,
		DaemonRunning:   view.DaemonRunning,
		ManualRunActive: view.ManualRunActive,
		WindowVisible:   view.WindowVisible,
		DeviceWatch:     status.Watching,
		Iteration:       view.Scheduler.Iteration,
		LastTick:        view.Scheduler.LastTick,
		NextTick:        view.Scheduler.NextTick,
		IntervalSeconds: view.Settings.CheckIntervalSeconds,
		Pairs:           daemon.BuildPairViews(view.Settings, view.Statuses, time.Now()),
		DatabasePath:    status.DatabasePath,
		LockPath:        status.LockFilePath,
		LogPath:         status.LogPath,
		Dependencies:    status.Dependencies,
	}
	return nil
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	v, err := s.do(control.StartDaemon{})
	if err != nil {
		return err
	}
	resp.Started, _ = v.(bool)
	resp.Message = "daemon started"
	if !resp.Started {
		resp.Message = "daemon already running"
	}
	s.logger.Info("start requested via IPC",
		logging.String(logging.FieldEventType, "ipc_start"),
		logging.Bool("changed", resp.Started))
	return nil
}

func (s *service) Pause(_ PauseRequest, resp *PauseResponse) error {
	v, err := s.do(control.StopDaemon{})
	if err != nil {
		return err
	}
	resp.Stopped, _ = v.(bool)
	resp.Message = "daemon stopped"
	if !resp.Stopped {
		resp.Message = "daemon was not running"
	}
	s.logger.Info("pause requested via IPC",
		logging.String(logging.FieldEventType, "ipc_pause"),
		logging.Bool("changed", resp.Stopped))
	return nil
}

func (s *service) Exit(_ ExitRequest, resp *ExitResponse) error {
	s.logger.Info("exit requested via IPC", logging.String(logging.FieldEventType, "ipc_exit"))
	if _, err := s.do(control.Exit{}); err != nil && !errors.Is(err, control.ErrStopped) {
		return err
	}
	resp.Exiting = true
	return nil
}

func (s *service) RunNow(_ RunNowRequest, resp *RunNowResponse) error {
	_, err := s.do(control.RunBackupNow{})
	switch {
	case errors.Is(err, control.ErrRunInProgress):
		resp.Message = err.Error()
		return nil
	case err != nil:
		return err
	}
	resp.Started = true
	resp.Message = "backup run started"
	return nil
}

func (s *service) Window(req WindowRequest, resp *WindowResponse) error {
	var cmd control.Command = control.HideWindow{}
	if req.Visible {
		cmd = control.ShowWindow{}
	}
	if _, err := s.do(cmd); err != nil {
		return err
	}
	resp.Visible = req.Visible
	return nil
}

func (s *service) ListPairs(_ ListPairsRequest, resp *ListPairsResponse) error {
	view := s.backend.Status(s.ctx).View
	resp.Pairs = daemon.BuildPairViews(view.Settings, view.Statuses, time.Now())
	return nil
}

func (s *service) AddPair(req PairRequest, resp *PairResponse) error {
	return s.savePair(control.AddBackupPair{Source: req.Source, Destination: req.Destination}, resp)
}

func (s *service) UpdatePair(req PairRequest, resp *PairResponse) error {
	return s.savePair(control.UpdateBackupPair{Index: req.Index, Source: req.Source, Destination: req.Destination}, resp)
}

func (s *service) savePair(cmd control.Command, resp *PairResponse) error {
	v, err := s.do(cmd)
	if err != nil {
		var verr *control.ValidationError
		if errors.As(err, &verr) {
			resp.Errors = verr.Report.Errors()
			resp.Warnings = verr.Report.Warnings()
			return nil
		}
		return err
	}
	result, _ := v.(control.PairResult)
	resp.Saved = true
	resp.Pair = result.Pair
	resp.Warnings = result.Warnings
	return nil
}

func (s *service) RemovePair(req IndexRequest, resp *RemovePairResponse) error {
	v, err := s.do(control.RemoveBackupPair{Index: req.Index})
	if err != nil {
		return err
	}
	resp.Pair, _ = v.(pairs.Pair)
	return nil
}

func (s *service) MovePair(req MovePairRequest, resp *MovePairResponse) error {
	var cmd control.Command = control.MoveBackupPairDown{Index: req.Index}
	if req.Up {
		cmd = control.MoveBackupPairUp{Index: req.Index}
	}
	v, err := s.do(cmd)
	if err != nil {
		return err
	}
	resp.Moved, _ = v.(bool)
	return nil
}

func (s *service) TogglePair(req TogglePairRequest, resp *TogglePairResponse) error {
	v, err := s.do(control.ToggleBackupPairEnabled{Index: req.Index, Enabled: req.Enabled})
	if err != nil {
		return err
	}
	resp.Pair, _ = v.(pairs.Pair)
	return nil
}

func (s *service) GetSettings(_ SettingsRequest, resp *SettingsResponse) error {
	resp.Settings = s.backend.Settings()
	return nil
}

func (s *service) UpdateSettings(req UpdateSettingsRequest, resp *SettingsResponse) error {
	v, err := s.do(control.UpdateConfig{Settings: req.Settings})
	if err != nil {
		return err
	}
	resp.Settings, _ = v.(pairs.Settings)
	return nil
}

func (s *service) Validate(req ValidateRequest, resp *ValidateResponse) error {
	report := pathcheck.Validate(req.Source, req.Destination, s.backend.Settings().Pairs, req.EditingIndex)
	resp.Valid = report.IsValid()
	resp.Errors = report.Errors()
	resp.Warnings = report.Warnings()
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	runs, err := s.backend.History(s.ctx, store.RunFilter{PairID: req.PairID, Limit: req.Limit})
	if err != nil {
		return err
	}
	resp.Runs = runs
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.backend.LogPath()
	if logPath == "" {
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
		Match:  req.Match,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.backend.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
