package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/matt-g-everett/framecast/playback"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

// Client talks to one ComfyUI server. Jobs are submitted over HTTP; results
// come back over a websocket as a binary preview image followed by an
// "executed" message naming the prompt. Each prompt is tagged with a
// sequence number at submission and the image is delivered to the sink
// under that number.
type Client struct {
	Name string

	baseURL    *url.URL
	clientID   string
	sequencer  *playback.Sequencer
	sink       playback.FrameSink
	httpClient *http.Client

	locker      xsync.Mutex
	conn        *websocket.Conn
	prompts     map[string]uint64
	latestImage []byte
	onDrained   func(ctx context.Context)

	submitted atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
}

// NewClient creates an instance of a Client for the server at serverURL
// (http or https).
func NewClient(
	name string,
	serverURL string,
	sequencer *playback.Sequencer,
	sink playback.FrameSink,
) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse the server URL '%s': %w", serverURL, err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported scheme '%s' in '%s'", u.Scheme, serverURL)
	}

	return &Client{
		Name:       name,
		baseURL:    u,
		clientID:   uuid.NewString(),
		sequencer:  sequencer,
		sink:       sink,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		prompts:    map[string]uint64{},
	}, nil
}

// ClientID returns the id this client registers with the server.
func (c *Client) ClientID() string {
	return c.clientID
}

func (c *Client) websocketURL() string {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u = *u.JoinPath("ws")
	u.RawQuery = url.Values{"clientId": {c.clientID}}.Encode()
	return u.String()
}

// Connect opens the websocket.
func (c *Client) Connect(ctx context.Context) error {
	wsURL := c.websocketURL()
	logger.Debugf(ctx, "%s: connecting to %s", c.Name, wsURL)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("unable to connect to '%s': %w", wsURL, err)
	}

	c.locker.Do(ctx, func() {
		c.conn = conn
	})
	logger.Infof(ctx, "%s: connected", c.Name)
	return nil
}

// Close closes the websocket, if open.
func (c *Client) Close(ctx context.Context) error {
	conn := xsync.DoR1(ctx, &c.locker, func() *websocket.Conn {
		conn := c.conn
		c.conn = nil
		return conn
	})
	if conn == nil {
		return nil
	}

	deadline := time.Now().Add(100 * time.Millisecond)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		logger.Debugf(ctx, "%s: unable to send the close frame: %v", c.Name, err)
	}
	return conn.Close()
}

// Queue takes the next sequence number and submits the workflow under it.
// If submission fails the sequence number is never delivered.
func (c *Client) Queue(ctx context.Context, workflow Workflow) (uint64, error) {
	seq := c.sequencer.Next()

	body, err := json.Marshal(map[string]any{
		"prompt":    workflow,
		"client_id": c.clientID,
	})
	if err != nil {
		return seq, fmt.Errorf("unable to serialize the prompt: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.JoinPath("prompt").String(), bytes.NewReader(body))
	if err != nil {
		return seq, fmt.Errorf("unable to build the request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return seq, fmt.Errorf("unable to queue the prompt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			logger.Debugf(ctx, "%s: unable to read the rejection body: %v", c.Name, err)
		}
		return seq, fmt.Errorf("the server rejected the prompt: %s: %s", resp.Status, bytes.TrimSpace(b))
	}

	var result struct {
		PromptID string `json:"prompt_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return seq, fmt.Errorf("unable to parse the queue response: %w", err)
	}
	if result.PromptID == "" {
		return seq, fmt.Errorf("the queue response has no prompt_id")
	}

	c.locker.Do(ctx, func() {
		c.prompts[result.PromptID] = seq
	})
	c.submitted.Inc()
	logger.Debugf(ctx, "%s: queued prompt %s as frame %d", c.Name, result.PromptID, seq)
	return seq, nil
}

// ReadLoop processes websocket messages until the connection closes or ctx
// is cancelled.
func (c *Client) ReadLoop(ctx context.Context) error {
	conn := xsync.DoR1(ctx, &c.locker, func() *websocket.Conn {
		return c.conn
	})
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if e, ok := err.(*websocket.CloseError); ok && e.Code == websocket.CloseNormalClosure {
				return nil
			}
			return fmt.Errorf("unable to read from the websocket: %w", err)
		}

		switch kind {
		case websocket.BinaryMessage:
			c.handleBinary(ctx, data)
		case websocket.TextMessage:
			c.handleText(ctx, data)
		}
	}
}

func (c *Client) handleBinary(ctx context.Context, data []byte) {
	image, ok := parsePreview(data)
	if !ok {
		logger.Tracef(ctx, "%s: ignoring a binary message of %d bytes", c.Name, len(data))
		return
	}
	c.locker.Do(ctx, func() {
		c.latestImage = image
	})
}

func (c *Client) handleText(ctx context.Context, data []byte) {
	msg, err := parseMessage(data)
	if err != nil {
		logger.Errorf(ctx, "%s: unknown message '%s': %v", c.Name, data, err)
		return
	}

	switch msg.Type {
	case "status":
		if qr := msg.Data.Status.ExecInfo.QueueRemaining; qr != nil && *qr == 0 {
			c.queueDrained(ctx)
		}
	case "execution_error":
		c.failed.Inc()
		c.locker.Do(ctx, func() {
			delete(c.prompts, msg.Data.PromptID)
		})
		logger.Errorf(ctx, "%s: execution error in prompt %s: %s", c.Name, msg.Data.PromptID, msg.Data.ExceptionMessage)
		c.queueDrained(ctx)
	case "executed":
		if msg.Data.PromptID != "" {
			c.deliver(ctx, msg.Data.PromptID)
		}
	}
}

func (c *Client) deliver(ctx context.Context, promptID string) {
	var (
		seq   uint64
		image []byte
		found bool
	)
	c.locker.Do(ctx, func() {
		seq, found = c.prompts[promptID]
		delete(c.prompts, promptID)
		image = c.latestImage
	})
	if !found {
		logger.Tracef(ctx, "%s: prompt %s is not ours or was already delivered", c.Name, promptID)
		return
	}
	if image == nil {
		logger.Warnf(ctx, "%s: prompt %s finished without a preview image", c.Name, promptID)
		return
	}

	c.delivered.Inc()
	c.sink.OnFrameReceivedFrom(ctx, c.Name, image, seq)
}

func (c *Client) queueDrained(ctx context.Context) {
	fn := xsync.DoR1(ctx, &c.locker, func() func(context.Context) {
		return c.onDrained
	})
	if fn != nil {
		fn(ctx)
	}
}

// Pending returns the number of submitted prompts not delivered yet.
func (c *Client) Pending() int {
	return xsync.DoR1(context.TODO(), &c.locker, func() int {
		return len(c.prompts)
	})
}

// Counters returns how many prompts were submitted, delivered and failed.
func (c *Client) Counters() (submitted, delivered, failed uint64) {
	return c.submitted.Load(), c.delivered.Load(), c.failed.Load()
}

// Run connects and keeps the server busy: one job is queued right away and
// another one every time the server reports an empty queue.
func (c *Client) Run(ctx context.Context, nextJob func() (Workflow, error)) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}

	ctx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()
	observability.Go(ctx, func() {
		<-ctx.Done()
		c.Close(context.WithoutCancel(ctx))
	})

	queue := func(ctx context.Context) {
		observability.Go(ctx, func() {
			workflow, err := nextJob()
			if err != nil {
				logger.Errorf(ctx, "%s: unable to prepare the next job: %v", c.Name, err)
				return
			}
			if _, err := c.Queue(ctx, workflow); err != nil {
				logger.Errorf(ctx, "%s: %v", c.Name, err)
			}
		})
	}
	c.locker.Do(ctx, func() {
		c.onDrained = queue
	})

	queue(ctx)
	return c.ReadLoop(ctx)
}
