package api

import (
	"net/http"

	"github.com/absmach/flparticipant/participant"
	"github.com/absmach/supermq"
)

var (
	_ supermq.Response = (*statusResponse)(nil)
	_ supermq.Response = (*nudgeResponse)(nil)
	_ supermq.Response = (*roundsPageResponse)(nil)
)

type statusResponse struct {
	participant.Status
}

func (s statusResponse) Code() int {
	return http.StatusOK
}

func (s statusResponse) Headers() map[string]string {
	return map[string]string{}
}

func (s statusResponse) Empty() bool {
	return false
}

type nudgeResponse struct{}

func (n nudgeResponse) Code() int {
	return http.StatusAccepted
}

func (n nudgeResponse) Headers() map[string]string {
	return map[string]string{}
}

func (n nudgeResponse) Empty() bool {
	return true
}

type roundsPageResponse struct {
	participant.RoundPage
}

func (r roundsPageResponse) Code() int {
	return http.StatusOK
}

func (r roundsPageResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r roundsPageResponse) Empty() bool {
	return false
}
