// Package rpc talks to the remote node that dry-runs staged transactions and
// reports live cells.
package rpc

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	model "txbench/Model"
	"txbench/errors"
	"txbench/helper"
	"txbench/metrics"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Config struct {
	URL     string
	User    string
	Pass    string
	Timeout time.Duration
}

// Client is a JSON-RPC 2.0 client for the node's verification endpoints.
type Client struct {
	url     string
	user    string
	pass    string
	timeout time.Duration
	http    *http.Client
	id      atomic.Uint64
	logger  zerolog.Logger
}

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	return &Client{
		url:     cfg.URL,
		user:    cfg.User,
		pass:    cfg.Pass,
		timeout: cfg.Timeout,
		http:    &http.Client{},
		logger:  logger.With().Str("component", "rpc").Logger(),
	}
}

// HTTPClient exposes the transport so tests can intercept it.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	Id      uint64 `json:"id"`
}

type rpcResponse struct {
	Id     uint64               `json:"id"`
	Result *jsoniter.RawMessage `json:"result"`
	Error  *rpcError            `json:"error"`
}

type rpcError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

func (c *Client) request(ctx context.Context, method string, params []any, result any) error {
	start := time.Now()
	defer metrics.ObserveDuration(metrics.RPCDuration.WithLabelValues(method), start)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		Id:      c.id.Add(1),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(errors.RemoteUnavailable, err, "json-rpc marshal %s", method)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(errors.RemoteUnavailable, err, "json-rpc request %s", method)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" || c.pass != "" {
		req.SetBasicAuth(c.user, c.pass)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(errors.RemoteUnavailable, err, "json-rpc transport %s", method)
	}
	// the body must be drained and closed for the connection to be reused
	defer res.Body.Close()
	resBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrap(errors.RemoteUnavailable, err, "json-rpc read response %s", method)
	}
	if res.StatusCode != http.StatusOK {
		return errors.New(errors.RemoteUnavailable, "json-rpc %s: status %s", method, res.Status)
	}

	var rpcres rpcResponse
	if err := json.Unmarshal(resBytes, &rpcres); err != nil {
		return errors.Wrap(errors.RemoteUnavailable, err, "json-rpc unmarshal response %s", method)
	}
	if rpcres.Id != body.Id {
		return errors.New(errors.RemoteUnavailable, "json-rpc %s: wrong id returned: %d vs %d", method, rpcres.Id, body.Id)
	}
	if rpcres.Error != nil {
		c.logger.Debug().Str("method", method).Int64("code", rpcres.Error.Code).Msg(rpcres.Error.Message)
		return errors.New(errors.RemoteRejected, "%s rejected: %s (code %d)", method, rpcres.Error.Message, rpcres.Error.Code)
	}
	if rpcres.Result == nil {
		return errors.New(errors.RemoteUnavailable, "json-rpc %s: missing result", method)
	}
	if err := json.Unmarshal(*rpcres.Result, result); err != nil {
		return errors.Wrap(errors.RemoteUnavailable, err, "json-rpc unmarshal result %s: %s", method, string(*rpcres.Result))
	}
	return nil
}

type dryRunResult struct {
	Cycles string `json:"cycles"`
}

// DryRun asks the node to execute tx without committing it and returns the
// cycles consumed. A node refusing the transaction yields errors.RemoteRejected.
func (c *Client) DryRun(ctx context.Context, tx *model.Transaction) (uint64, error) {
	var res dryRunResult
	if err := c.request(ctx, "dry_run_transaction", []any{tx.View()}, &res); err != nil {
		return 0, err
	}
	cycles, err := strconv.ParseUint(helper.StripHexPrefix(res.Cycles), 16, 64)
	if err != nil {
		return 0, errors.Wrap(errors.RemoteUnavailable, err, "dry_run_transaction: invalid cycles %q", res.Cycles)
	}
	return cycles, nil
}

type liveCellResult struct {
	Cell   *model.CellOutputView `json:"cell"`
	Status string                `json:"status"`
}

const statusLive = "live"

// ResolveCell looks op up among the node's live cells. Dead and unknown cells
// resolve to nil.
func (c *Client) ResolveCell(ctx context.Context, op model.OutPoint) (*model.CellOutput, error) {
	var res liveCellResult
	if err := c.request(ctx, "get_live_cell", []any{op.View()}, &res); err != nil {
		return nil, err
	}
	if res.Status != statusLive || res.Cell == nil {
		return nil, nil
	}
	cell, err := res.Cell.ToCellOutput()
	if err != nil {
		return nil, errors.Wrap(errors.RemoteUnavailable, err, "get_live_cell %s", op)
	}
	return &cell, nil
}

// Ensure interface compliance.
var _ model.CellResolver = (*Client)(nil)
