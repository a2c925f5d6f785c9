package fl

import pkgerrors "github.com/absmach/flparticipant/pkg/errors"

var ErrMalformedResult = pkgerrors.ErrMalformedResult
