// Package coordinator implements the participant transport over the
// coordinator's HTTP API.
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/absmach/flparticipant/participant"
	pkgerrors "github.com/absmach/flparticipant/pkg/errors"
	"github.com/absmach/flparticipant/pkg/fl"
)

var (
	_ participant.AnonymousClient   = (*anonymousClient)(nil)
	_ participant.CoordinatorClient = (*sessionClient)(nil)
)

type rendezvousReq struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name,omitempty"`
}

type rendezvousRes struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

type startTrainingRes struct {
	AggregatorURL string `json:"aggregator_url"`
	Token         string `json:"token"`
}

type anonymousClient struct {
	cfg    Config
	client *http.Client
}

// NewAnonymousClient returns a client that can only perform the rendezvous.
func NewAnonymousClient(cfg Config) (participant.AnonymousClient, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("coordinator url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("coordinator url %q: %w", cfg.URL, pkgerrors.ErrInvalidValue)
	}
	if err := cfg.UploadFormat.validate(); err != nil {
		return nil, err
	}
	cfg.URL = strings.TrimSuffix(cfg.URL, "/")

	return &anonymousClient{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
	}, nil
}

func (c *anonymousClient) Rendezvous(ctx context.Context) (participant.CoordinatorClient, error) {
	data, err := json.Marshal(rendezvousReq{ParticipantID: c.cfg.ParticipantID, Name: c.cfg.Name})
	if err != nil {
		return nil, err
	}

	body, err := processRequest(ctx, c.client, http.MethodPost, c.cfg.URL+"/rendezvous", CTJSON, credentials{}, data)
	if err != nil {
		return nil, err
	}

	var res rendezvousRes
	if err := decode(body, &res); err != nil {
		return nil, err
	}
	if res.SessionID == "" {
		return nil, fmt.Errorf("rendezvous: session id: %w", pkgerrors.ErrMissingValue)
	}

	return &sessionClient{
		cfg:    c.cfg,
		creds:  credentials{session: res.SessionID, token: res.Token},
		client: c.client,
	}, nil
}

type sessionClient struct {
	cfg    Config
	creds  credentials
	client *http.Client
}

func (c *sessionClient) Heartbeat(ctx context.Context) (fl.HeartbeatResponse, error) {
	body, err := processRequest(ctx, c.client, http.MethodGet, c.cfg.URL+"/heartbeat", CTJSON, c.creds, nil)
	if err != nil {
		return fl.HeartbeatResponse{}, err
	}

	var res fl.HeartbeatResponse
	if err := decode(body, &res); err != nil {
		return fl.HeartbeatResponse{}, err
	}

	return res, nil
}

func (c *sessionClient) StartTraining(ctx context.Context) (participant.AggregatorClient, error) {
	body, err := processRequest(ctx, c.client, http.MethodPost, c.cfg.URL+"/start_training", CTJSON, c.creds, nil)
	if err != nil {
		return nil, err
	}

	var res startTrainingRes
	if err := decode(body, &res); err != nil {
		return nil, err
	}
	if res.AggregatorURL == "" {
		return nil, fmt.Errorf("start training: aggregator url: %w", pkgerrors.ErrMissingValue)
	}

	return &aggregatorClient{
		url:    strings.TrimSuffix(res.AggregatorURL, "/"),
		format: c.cfg.UploadFormat,
		creds:  credentials{session: c.creds.session, token: res.Token},
		client: c.client,
	}, nil
}

// Fork opens a dedicated connection pool for the same session.
func (c *sessionClient) Fork() (participant.CoordinatorClient, error) {
	return &sessionClient{
		cfg:    c.cfg,
		creds:  c.creds,
		client: newHTTPClient(c.cfg.Timeout),
	}, nil
}
