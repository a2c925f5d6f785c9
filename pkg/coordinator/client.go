package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	pkgerrors "github.com/absmach/flparticipant/pkg/errors"
	"github.com/fxamacker/cbor/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	CTJSON = "application/json"
	CTCBOR = "application/cbor"

	SessionHeader = "X-Session-ID"

	defTimeout = 30 * time.Second
)

// Format selects the encoding of uploaded training results.
type Format string

const (
	JSON Format = "json"
	CBOR Format = "cbor"
)

func (f Format) contentType() string {
	if f == CBOR {
		return CTCBOR
	}

	return CTJSON
}

func (f Format) validate() error {
	switch f {
	case JSON, CBOR, "":
		return nil
	default:
		return fmt.Errorf("upload format %q: %w", f, pkgerrors.ErrInvalidValue)
	}
}

func (f Format) marshal(v any) ([]byte, error) {
	switch f {
	case CBOR:
		return cbor.Marshal(v)
	default:
		return json.Marshal(v)
	}
}

type Config struct {
	URL           string
	ParticipantID string
	Name          string
	Timeout       time.Duration
	UploadFormat  Format
}

// credentials authenticate a request against a coordinator or aggregator
// session.
type credentials struct {
	session string
	token   string
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()

	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(transport),
	}
}

func processRequest(ctx context.Context, client *http.Client, method, reqURL, contentType string, creds credentials, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	if len(data) > 0 {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", CTJSON)
	if creds.token != "" {
		req.Header.Set("Authorization", "Bearer "+creds.token)
	}
	if creds.session != "" {
		req.Header.Set(SessionHeader, creds.session)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Join(pkgerrors.ErrUnexpectedStatus, fmt.Errorf("%s %s: unexpected response code: %d", method, reqURL, resp.StatusCode))
	}

	return body, nil
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Join(pkgerrors.ErrInvalidData, err)
	}

	return nil
}
