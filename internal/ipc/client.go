package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"mirrorvault/internal/pairs"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// Start starts scheduling.
func (c *Client) Start() (*StartResponse, error) {
	return call[StartResponse](c, "Start", StartRequest{})
}

// Pause stops scheduling; the process keeps running.
func (c *Client) Pause() (*PauseResponse, error) {
	return call[PauseResponse](c, "Pause", PauseRequest{})
}

// Exit shuts the daemon process down.
func (c *Client) Exit() (*ExitResponse, error) {
	return call[ExitResponse](c, "Exit", ExitRequest{})
}

// RunNow runs every enabled pair once.
func (c *Client) RunNow() (*RunNowResponse, error) {
	return call[RunNowResponse](c, "RunNow", RunNowRequest{})
}

// Window shows or hides the status window.
func (c *Client) Window(visible bool) (*WindowResponse, error) {
	return call[WindowResponse](c, "Window", WindowRequest{Visible: visible})
}

// ListPairs returns pairs with their live status.
func (c *Client) ListPairs() (*ListPairsResponse, error) {
	return call[ListPairsResponse](c, "ListPairs", ListPairsRequest{})
}

// AddPair validates and appends a pair.
func (c *Client) AddPair(source, destination string) (*PairResponse, error) {
	return call[PairResponse](c, "AddPair", PairRequest{Source: source, Destination: destination})
}

// UpdatePair validates and replaces the paths of the pair at index.
func (c *Client) UpdatePair(index int, source, destination string) (*PairResponse, error) {
	return call[PairResponse](c, "UpdatePair", PairRequest{Index: index, Source: source, Destination: destination})
}

// RemovePair deletes the pair at index.
func (c *Client) RemovePair(index int) (*RemovePairResponse, error) {
	return call[RemovePairResponse](c, "RemovePair", IndexRequest{Index: index})
}

// MovePair moves the pair at index one position.
func (c *Client) MovePair(index int, up bool) (*MovePairResponse, error) {
	return call[MovePairResponse](c, "MovePair", MovePairRequest{Index: index, Up: up})
}

// TogglePair enables or disables the pair at index.
func (c *Client) TogglePair(index int, enabled bool) (*TogglePairResponse, error) {
	return call[TogglePairResponse](c, "TogglePair", TogglePairRequest{Index: index, Enabled: enabled})
}

// GetSettings returns the persisted settings.
func (c *Client) GetSettings() (*SettingsResponse, error) {
	return call[SettingsResponse](c, "GetSettings", SettingsRequest{})
}

// UpdateSettings replaces the settings value.
func (c *Client) UpdateSettings(settings pairs.Settings) (*SettingsResponse, error) {
	return call[SettingsResponse](c, "UpdateSettings", UpdateSettingsRequest{Settings: settings})
}

// Validate dry-runs path validation.
func (c *Client) Validate(req ValidateRequest) (*ValidateResponse, error) {
	return call[ValidateResponse](c, "Validate", req)
}

// History lists recorded runs.
func (c *Client) History(req HistoryRequest) (*HistoryResponse, error) {
	return call[HistoryResponse](c, "History", req)
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	return call[LogTailResponse](c, "LogTail", req)
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}
