package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/absmach/flparticipant/participant"
	"github.com/absmach/flparticipant/pkg/api"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Service is the part of the participant exposed over HTTP.
type Service interface {
	Status() participant.Status
	Nudge()
	ListRounds(ctx context.Context, offset, limit uint64) (participant.RoundPage, error)
}

func MakeHandler(svc Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Get("/status", otelhttp.NewHandler(kithttp.NewServer(
		statusEndpoint(svc),
		decodeStatusReq,
		api.EncodeResponse,
		opts...,
	), "get-status").ServeHTTP)
	mux.Post("/nudge", otelhttp.NewHandler(kithttp.NewServer(
		nudgeEndpoint(svc),
		decodeStatusReq,
		api.EncodeResponse,
		opts...,
	), "nudge").ServeHTTP)
	mux.Get("/rounds", otelhttp.NewHandler(kithttp.NewServer(
		listRoundsEndpoint(svc),
		decodeListRoundsReq,
		api.EncodeResponse,
		opts...,
	), "list-rounds").ServeHTTP)

	mux.Get("/health", supermq.Health("fl-participant", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeStatusReq(_ context.Context, _ *http.Request) (any, error) {
	return statusReq{}, nil
}

func decodeListRoundsReq(_ context.Context, r *http.Request) (any, error) {
	o, err := apiutil.ReadNumQuery[uint64](r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	l, err := apiutil.ReadNumQuery[uint64](r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return listRoundsReq{
		offset: o,
		limit:  l,
	}, nil
}
