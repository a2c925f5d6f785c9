package api

import (
	"context"
	"errors"

	pkgerrors "github.com/absmach/flparticipant/pkg/errors"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"
)

func statusEndpoint(svc Service) endpoint.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		if _, ok := request.(statusReq); !ok {
			return statusResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}

		return statusResponse{Status: svc.Status()}, nil
	}
}

func nudgeEndpoint(svc Service) endpoint.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		if _, ok := request.(statusReq); !ok {
			return nudgeResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		svc.Nudge()

		return nudgeResponse{}, nil
	}
}

func listRoundsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listRoundsReq)
		if !ok {
			return roundsPageResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return roundsPageResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		page, err := svc.ListRounds(ctx, req.offset, req.limit)
		if err != nil {
			return roundsPageResponse{}, err
		}

		return roundsPageResponse{RoundPage: page}, nil
	}
}
