package api

import (
	"github.com/absmach/flparticipant/pkg/api"
	apiutil "github.com/absmach/supermq/api/http/util"
)

type statusReq struct{}

type listRoundsReq struct {
	offset, limit uint64
}

func (req listRoundsReq) validate() error {
	if req.limit == 0 || req.limit > api.MaxLimitSize {
		return apiutil.ErrLimitSize
	}

	return nil
}
