package sdk

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	CTJSON string = "application/json"

	defTimeout = 10 * time.Second
)

type PageMetadata struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// SDK talks to the HTTP API of a running participant.
type SDK interface {
	// Status returns the current phase and round of the participant.
	//
	// example:
	//  status, _ := sdk.Status()
	//  fmt.Println(status.Phase)
	Status() (Status, error)

	// Rounds lists the rounds the participant uploaded, oldest first.
	//
	// example:
	//  page, _ := sdk.Rounds(0, 10)
	//  fmt.Println(page.Total)
	Rounds(offset uint64, limit uint64) (RoundPage, error)

	// Nudge asks the participant to poll its coordinator now.
	//
	// example:
	//  _ = sdk.Nudge()
	Nudge() error
}

type flSDK struct {
	participantURL string
	client         *http.Client
}

type Config struct {
	ParticipantURL  string
	TLSVerification bool
	Timeout         time.Duration
}

func NewSDK(cfg Config) SDK {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defTimeout
	}

	return &flSDK{
		participantURL: cfg.ParticipantURL,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *flSDK) processRequest(method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		return []byte{}, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return body, nil
}
