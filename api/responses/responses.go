package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
	"github.com/angelmondragon/shootpay-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.Ok(data))
}

// WriteResult writes a settlement Result as-is. Failures were already logged by the
// service that produced them, so only the status is derived here.
func WriteResult[T any](w http.ResponseWriter, status int, result types.Result[T]) {
	if !result.Success {
		code := pkgerrors.CodeInternal
		if result.Error != nil {
			code = pkgerrors.Code(result.Error.Code)
		}
		status = pkgerrors.MetadataFor(code).HTTPStatus
	}
	writeJSON(w, status, result)
}

// WriteError writes err in the failed Result shape and logs it with its diagnostics.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	if logg != nil {
		ctx = logg.WithFields(ctx, pkgerrors.Diagnostics(err))
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "request failed", err)
		} else {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "request rejected")
		}
	}

	writeJSON(w, meta.HTTPStatus, types.Fail[any](typed))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent, so an encode failure can only be dropped.
	_ = json.NewEncoder(w).Encode(payload)
}
