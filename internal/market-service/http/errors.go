package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/radieske/matka-exchange/internal/market-service/dto"
	"github.com/radieske/matka-exchange/internal/market-service/repo"
	"github.com/radieske/matka-exchange/internal/matka/bet"
	"github.com/radieske/matka-exchange/internal/matka/errs"
	"github.com/radieske/matka-exchange/internal/matka/market"
	"github.com/radieske/matka-exchange/internal/matka/settlement"
)

// Kinds da camada HTTP, fora da taxonomia de admissão
const (
	kindBadRequest   = "BAD_REQUEST"
	kindValidation   = "VALIDATION"
	kindUnauthorized = "UNAUTHORIZED"
	kindForbidden    = "FORBIDDEN"
	kindBetNotFound  = "BET_NOT_FOUND"
	kindBetNotPlaced = "BET_NOT_PLACED"
	kindDuplicate    = "DUPLICATE"
	kindPhaseOpen    = "PHASE_OPEN"
	kindInternal     = "INTERNAL"
)

type httpError struct {
	status int
	body   dto.ErrorBody
}

func (e *httpError) Error() string { return e.body.Message }

func errBadRequest(msg string) error {
	return &httpError{status: http.StatusBadRequest, body: dto.ErrorBody{Kind: kindBadRequest, Message: msg}}
}

func errUnauthorized() error {
	return &httpError{status: http.StatusUnauthorized, body: dto.ErrorBody{Kind: kindUnauthorized, Message: "missing X-User-ID"}}
}

func errForbidden(msg string) error {
	return &httpError{status: http.StatusForbidden, body: dto.ErrorBody{Kind: kindForbidden, Message: msg}}
}

// statusOf mapeia a taxonomia de admissão: inexistente 404, transitório 503, o resto 422
func statusOf(k errs.Kind) int {
	switch k {
	case errs.KindMarketNotFound:
		return http.StatusNotFound
	case errs.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnprocessableEntity
	}
}

// classify converte qualquer erro em status + corpo {"error":{kind,message,details}}
func classify(err error) (int, dto.ErrorBody) {
	var (
		he  *httpError
		ae  *errs.AdmissionError
		ves validator.ValidationErrors
	)
	switch {
	case errors.As(err, &he):
		return he.status, he.body
	case errors.As(err, &ae):
		return statusOf(ae.Kind), dto.ErrorBody{Kind: string(ae.Kind), Message: ae.Message, Details: ae.Details}
	case errors.As(err, &ves):
		fields := make(map[string]any, len(ves))
		for _, fe := range ves {
			fields[fe.Field()] = fe.Tag()
		}
		return http.StatusBadRequest, dto.ErrorBody{Kind: kindBadRequest, Message: "invalid payload", Details: fields}
	case errors.Is(err, market.ErrNotFound):
		return http.StatusNotFound, dto.ErrorBody{Kind: string(errs.KindMarketNotFound), Message: "market not found"}
	case errors.Is(err, bet.ErrNotFound):
		return http.StatusNotFound, dto.ErrorBody{Kind: kindBetNotFound, Message: "bet not found"}
	case errors.Is(err, bet.ErrNotPlaced):
		return http.StatusConflict, dto.ErrorBody{Kind: kindBetNotPlaced, Message: err.Error()}
	case errors.Is(err, repo.ErrDuplicate):
		return http.StatusConflict, dto.ErrorBody{Kind: kindDuplicate, Message: err.Error()}
	case errors.Is(err, market.ErrPhaseOpen):
		return http.StatusUnprocessableEntity, dto.ErrorBody{Kind: kindPhaseOpen, Message: err.Error()}
	case errors.Is(err, market.ErrInvalidMarket), errors.Is(err, settlement.ErrInvalidDeclaration):
		return http.StatusUnprocessableEntity, dto.ErrorBody{Kind: kindValidation, Message: err.Error()}
	}
	return http.StatusInternalServerError, dto.ErrorBody{Kind: kindInternal, Message: "internal error"}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		s.Log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeJSON(w, status, dto.ErrorResponse{Error: body})
}

func errorResponse(err error) dto.ErrorResponse {
	_, body := classify(err)
	return dto.ErrorResponse{Error: body}
}
