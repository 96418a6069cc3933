package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
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

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Loom.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Loom.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Loom.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit enqueues a video for analysis.
func (c *Client) Submit(videoID, sourceURL string) (*SubmitResponse, error) {
	var resp SubmitResponse
	req := SubmitRequest{VideoID: videoID, SourceURL: sourceURL}
	if err := c.client.Call("Loom.Submit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobList returns jobs optionally filtered by statuses.
func (c *Client) JobList(statuses []string) (*JobListResponse, error) {
	var resp JobListResponse
	req := JobListRequest{Statuses: statuses}
	if err := c.client.Call("Loom.JobList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobDescribe returns details for a single job.
func (c *Client) JobDescribe(id int64) (*JobDescribeResponse, error) {
	var resp JobDescribeResponse
	req := JobDescribeRequest{ID: id}
	if err := c.client.Call("Loom.JobDescribe", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobCancel requests cancellation of a job.
func (c *Client) JobCancel(id int64, reason string) (*JobCancelResponse, error) {
	var resp JobCancelResponse
	req := JobCancelRequest{ID: id, Reason: reason}
	if err := c.client.Call("Loom.JobCancel", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobClear removes all jobs.
func (c *Client) JobClear() (*JobClearResponse, error) {
	var resp JobClearResponse
	if err := c.client.Call("Loom.JobClear", JobClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobClearCompleted removes completed and cancelled jobs.
func (c *Client) JobClearCompleted() (*JobClearCompletedResponse, error) {
	var resp JobClearCompletedResponse
	if err := c.client.Call("Loom.JobClearCompleted", JobClearCompletedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobClearFailed removes failed and partially failed jobs.
func (c *Client) JobClearFailed() (*JobClearFailedResponse, error) {
	var resp JobClearFailedResponse
	if err := c.client.Call("Loom.JobClearFailed", JobClearFailedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobRetry requeues failed jobs.
func (c *Client) JobRetry(ids []int64) (*JobRetryResponse, error) {
	var resp JobRetryResponse
	req := JobRetryRequest{IDs: ids}
	if err := c.client.Call("Loom.JobRetry", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JobHealth returns queue diagnostics.
func (c *Client) JobHealth() (*JobHealthResponse, error) {
	var resp JobHealthResponse
	if err := c.client.Call("Loom.JobHealth", JobHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Metrics returns per-dependency resilience metrics.
func (c *Client) Metrics() (*MetricsResponse, error) {
	var resp MetricsResponse
	if err := c.client.Call("Loom.Metrics", MetricsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Loom.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Loom.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
