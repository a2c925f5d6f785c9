package coordinator

import (
	"context"
	"net/http"

	"github.com/absmach/flparticipant/participant"
	"github.com/absmach/flparticipant/pkg/fl"
)

var _ participant.AggregatorClient = (*aggregatorClient)(nil)

type aggregatorClient struct {
	url    string
	format Format
	creds  credentials
	client *http.Client
}

func (c *aggregatorClient) Download(ctx context.Context) (fl.TrainingInput, error) {
	body, err := processRequest(ctx, c.client, http.MethodGet, c.url+"/download", CTJSON, c.creds, nil)
	if err != nil {
		return fl.TrainingInput{}, err
	}

	var input fl.TrainingInput
	if err := decode(body, &input); err != nil {
		return fl.TrainingInput{}, err
	}

	return input, nil
}

func (c *aggregatorClient) Upload(ctx context.Context, result fl.TrainingResult) error {
	data, err := c.format.marshal(result)
	if err != nil {
		return err
	}

	_, err = processRequest(ctx, c.client, http.MethodPost, c.url+"/upload", c.format.contentType(), c.creds, data)

	return err
}
