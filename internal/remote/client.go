// Package remote evaluates models served by an external process over HTTP.
// The served model satisfies the batch-trainable contract through /fit and
// /predict endpoints, which lets models written in other statistical
// environments participate in a benchmark suite unchanged.
package remote

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is a batch-trainable model whose fit and predict operations are
// executed by a remote model server.
type Client struct {
	name string
	base string
	rest *resty.Client
}

// NewClient builds a client for the model server at base.
func NewClient(name, base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	return &Client{name: name, base: base, rest: r}
}

// Name implements model.Model.
func (c *Client) Name() string { return c.name }

type fitReq struct {
	Stimuli [][]float64 `json:"stimuli"`
	Actions []float64   `json:"actions"`
}

type statusResp struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Fit implements model.BatchTrainable by delegating training to the server.
func (c *Client) Fit(stimuli [][]float64, actions []float64) error {
	resp := &statusResp{}
	httpResp, err := c.rest.R().
		SetBody(fitReq{Stimuli: stimuli, Actions: actions}).
		SetResult(resp).
		Post(c.base + "/fit")
	if err != nil {
		return fmt.Errorf("fit request failed: %w", err)
	}
	if httpResp.StatusCode() != 200 {
		return fmt.Errorf("model server: status %d, body: %s", httpResp.StatusCode(), httpResp.String())
	}
	if resp.Code != 0 {
		return fmt.Errorf("model server: %d %s", resp.Code, resp.Msg)
	}
	return nil
}

type predictReq struct {
	Stimuli [][]float64 `json:"stimuli"`
}

type predictResp struct {
	Code        int       `json:"code"`
	Msg         string    `json:"msg"`
	Predictions []float64 `json:"predictions"`
}

// PredictBatch implements model.BatchTrainable.
func (c *Client) PredictBatch(stimuli [][]float64) ([]float64, error) {
	resp := &predictResp{}
	httpResp, err := c.rest.R().
		SetBody(predictReq{Stimuli: stimuli}).
		SetResult(resp).
		Post(c.base + "/predict")
	if err != nil {
		return nil, fmt.Errorf("predict request failed: %w", err)
	}
	if httpResp.StatusCode() != 200 {
		return nil, fmt.Errorf("model server: status %d, body: %s", httpResp.StatusCode(), httpResp.String())
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("model server: %d %s", resp.Code, resp.Msg)
	}
	if len(resp.Predictions) != len(stimuli) {
		return nil, fmt.Errorf("model server returned %d predictions for %d stimuli", len(resp.Predictions), len(stimuli))
	}
	return resp.Predictions, nil
}
