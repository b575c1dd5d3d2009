// internal/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"flowsync-core/flowcell"
	"flowsync-core/histogram"
	"flowsync-core/rundir"

	wire "flowsync/pkg/api"
)

// DefaultTimeout bounds a single request; the per-run deadline is the
// caller's context.
const DefaultTimeout = 30 * time.Second

// Client talks to the flow-cell tracking service REST API. It implements
// flowcell.Service.
type Client struct {
	base             *url.URL
	token            string
	project          string
	operator         string
	minIndexFraction float64
	hc               *http.Client
}

// Config carries the connection settings for NewClient.
type Config struct {
	BaseURL          string
	Token            string
	Project          string // project UUID scoping all requests
	Operator         string
	MinIndexFraction float64
	Timeout          time.Duration
}

// NewClient validates the connection settings and returns a ready client.
func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: unsupported scheme %q", u.Scheme)
	}
	if _, err := uuid.Parse(cfg.Project); err != nil {
		return nil, fmt.Errorf("api: project must be a UUID: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base:             u,
		token:            cfg.Token,
		project:          cfg.Project,
		operator:         cfg.Operator,
		minIndexFraction: cfg.MinIndexFraction,
		hc:               &http.Client{Timeout: timeout},
	}, nil
}

// Find resolves a flow cell by its identity key.
// GET api/flowcells/{project}/resolve/{instrument}/{run_number}/{flowcell}/
func (c *Client) Find(ctx context.Context, key flowcell.Key) (*flowcell.State, error) {
	p := fmt.Sprintf("api/flowcells/%s/resolve/%s/%d/%s/",
		c.project, url.PathEscape(key.Instrument), key.RunNumber, url.PathEscape(key.Flowcell))
	var fc wire.FlowCellV1
	if err := c.do(ctx, http.MethodGet, p, nil, &fc); err != nil {
		return nil, err
	}
	return stateOf(&fc), nil
}

// Create registers a new flow cell record.
// POST api/flowcells/{project}/
func (c *Client) Create(ctx context.Context, d *rundir.Descriptor, status flowcell.Status) (*flowcell.State, error) {
	p := fmt.Sprintf("api/flowcells/%s/", c.project)
	var fc wire.FlowCellV1
	if err := c.do(ctx, http.MethodPost, p, c.flowCellOf(d, status), &fc); err != nil {
		return nil, err
	}
	return stateOf(&fc), nil
}

// Update rewrites the reads and sequencing status of an existing record.
// GET then PUT api/flowcells/{project}/{uuid}/
func (c *Client) Update(ctx context.Context, id string, d *rundir.Descriptor, status flowcell.Status) (*flowcell.State, error) {
	p := fmt.Sprintf("api/flowcells/%s/%s/", c.project, id)
	// Merge into the stored record: conversion/delivery state, labels and
	// operator are owned by the service and must survive the rewrite.
	var cur wire.FlowCellV1
	if err := c.do(ctx, http.MethodGet, p, nil, &cur); err != nil {
		return nil, err
	}
	cur.PlannedReads = rundir.SegmentString(d.PlannedReads)
	cur.CurrentReads = rundir.SegmentString(d.CurrentReads)
	cur.StatusSequencing = string(status)
	var fc wire.FlowCellV1
	if err := c.do(ctx, http.MethodPut, p, cur, &fc); err != nil {
		return nil, err
	}
	return stateOf(&fc), nil
}

// SubmitHistograms posts each histogram as its own record. The service
// replaces prior entries for the same lane and index read.
// POST api/indexhistos/{project}/{flowcell_uuid}/
func (c *Client) SubmitHistograms(ctx context.Context, id string, hs []histogram.Histogram) error {
	p := fmt.Sprintf("api/indexhistos/%s/%s/", c.project, id)
	for _, h := range hs {
		body := wire.LaneIndexHistogramV1{
			Flowcell:         id,
			Lane:             h.Lane,
			IndexReadNo:      h.IndexRead,
			SampleSize:       h.SampleSize,
			MinIndexFraction: c.minIndexFraction,
			Histogram:        h.Counts,
		}
		if err := c.do(ctx, http.MethodPost, p, body, nil); err != nil {
			return err
		}
	}
	return nil
}

// flowCellOf renders a descriptor into the wire form submitted on create.
func (c *Client) flowCellOf(d *rundir.Descriptor, status flowcell.Status) wire.FlowCellV1 {
	return wire.FlowCellV1{
		RunDate:           d.Date,
		RunNumber:         d.RunNumber,
		Slot:              d.FlowcellSlot,
		VendorID:          d.Flowcell,
		Label:             d.ExperimentName,
		SequencingMachine: d.Instrument,
		NumLanes:          d.LaneCount,
		Operator:          c.operator,
		RTAVersion:        d.RTAVersion,
		StatusSequencing:  string(status),
		StatusConversion:  "initial",
		StatusDelivery:    "initial",
		DeliveryType:      "seq",
		PlannedReads:      rundir.SegmentString(d.PlannedReads),
		CurrentReads:      rundir.SegmentString(d.CurrentReads),
	}
}

func stateOf(fc *wire.FlowCellV1) *flowcell.State {
	return &flowcell.State{
		UUID:           fc.UUID,
		Status:         flowcell.Status(fc.StatusSequencing),
		HistogramCount: fc.IndexHistogramSize,
		NumLanes:       fc.NumLanes,
		PlannedReads:   fc.PlannedReads,
	}
}

// do issues one request and decodes the response into out when non-nil.
// Error mapping: 404 means no record, 5xx and transport failures mean the
// service is unavailable, any other non-2xx is a rejection.
func (c *Client) do(ctx context.Context, method, p string, in, out any) error {
	ref, err := url.Parse(p)
	if err != nil {
		return fmt.Errorf("api: build url: %w", err)
	}
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.ResolveReference(ref).String(), body)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return &flowcell.UnavailableError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return flowcell.ErrNotFound
	case resp.StatusCode >= 500:
		return &flowcell.UnavailableError{Err: fmt.Errorf("%s %s: %s", method, p, resp.Status)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &flowcell.RejectedError{Code: resp.StatusCode, Msg: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &flowcell.UnavailableError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
