package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	statusEndpoint = "/status"
	roundsEndpoint = "/rounds"
	nudgeEndpoint  = "/nudge"
)

type Status struct {
	ParticipantID string    `json:"participant_id"`
	Name          string    `json:"name"`
	Phase         string    `json:"phase"`
	Round         int       `json:"round"`
	RoundsDone    uint64    `json:"rounds_done"`
	Notifications uint64    `json:"notifications"`
	Timestamp     time.Time `json:"timestamp"`
}

type Round struct {
	Round          int            `json:"round"`
	Initialization bool           `json:"initialization"`
	NumSamples     int            `json:"num_samples"`
	Metrics        map[string]any `json:"metrics,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	CompletedAt    time.Time      `json:"completed_at"`
}

type RoundPage struct {
	PageMetadata
	Total  uint64  `json:"total"`
	Rounds []Round `json:"rounds"`
}

func (sdk *flSDK) Status() (Status, error) {
	url := sdk.participantURL + statusEndpoint

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return Status{}, err
	}

	var s Status
	if err := json.Unmarshal(body, &s); err != nil {
		return Status{}, err
	}

	return s, nil
}

func (sdk *flSDK) Rounds(offset, limit uint64) (RoundPage, error) {
	queries := make([]string, 0)
	if offset > 0 {
		queries = append(queries, fmt.Sprintf("offset=%d", offset))
	}
	if limit > 0 {
		queries = append(queries, fmt.Sprintf("limit=%d", limit))
	}
	query := ""
	if len(queries) > 0 {
		query = "?" + strings.Join(queries, "&")
	}
	url := sdk.participantURL + roundsEndpoint + query

	body, err := sdk.processRequest(http.MethodGet, url, nil, http.StatusOK)
	if err != nil {
		return RoundPage{}, err
	}

	var p RoundPage
	if err := json.Unmarshal(body, &p); err != nil {
		return RoundPage{}, err
	}

	return p, nil
}

func (sdk *flSDK) Nudge() error {
	url := sdk.participantURL + nudgeEndpoint

	if _, err := sdk.processRequest(http.MethodPost, url, nil, http.StatusAccepted); err != nil {
		return err
	}

	return nil
}
