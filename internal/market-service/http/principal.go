package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/radieske/matka-exchange/internal/matka/admission"
	"github.com/radieske/matka-exchange/internal/matka/book"
)

// Headers preenchidos pelo api-gateway; o serviço não valida credenciais
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

type principalKey struct{}

func withPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := admission.Principal{
			ID:   strings.TrimSpace(r.Header.Get(HeaderUserID)),
			Role: strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

func principalFrom(ctx context.Context) admission.Principal {
	p, _ := ctx.Value(principalKey{}).(admission.Principal)
	return p
}

// requireOperator barra as rotas /admin para quem não é operador
func requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := principalFrom(r.Context())
		if p.ID == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse(errUnauthorized()))
			return
		}
		if !book.IsOperator(p.Role) {
			writeJSON(w, http.StatusForbidden, errorResponse(errForbidden("operator role required")))
			return
		}
		next.ServeHTTP(w, r)
	})
}
