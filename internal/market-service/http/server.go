package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/matka-exchange/internal/market-service/repo"
	"github.com/radieske/matka-exchange/internal/matka/admission"
	"github.com/radieske/matka-exchange/internal/matka/bet"
	"github.com/radieske/matka-exchange/internal/matka/book"
	"github.com/radieske/matka-exchange/internal/matka/market"
	"github.com/radieske/matka-exchange/internal/matka/query"
	"github.com/radieske/matka-exchange/pkg/contracts/events"
)

// Store é o subconjunto do repositório usado diretamente pelos handlers
type Store interface {
	CreateCategory(ctx context.Context, name string) (*repo.Category, error)
	ListCategories(ctx context.Context) ([]repo.Category, error)
	CreateMarket(ctx context.Context, m *market.Market) error
	UpdateMarket(ctx context.Context, m *market.Market) error
	GetMarket(ctx context.Context, id int64) (*market.Market, error)
	SetSuspend(ctx context.Context, id int64, scope market.SuspendScope, on bool) error
	SetMessage(ctx context.Context, id int64, text string) error
	SetActive(ctx context.Context, id int64, active bool) error
	SoftDelete(ctx context.Context, id int64) error
	VoidBet(ctx context.Context, id uuid.UUID) (*bet.Bet, error)
}

type Publisher interface {
	PublishBetPlaced(ctx context.Context, evs ...events.BetPlaced) error
	PublishResultDeclared(ctx context.Context, e events.ResultDeclared) error
}

type Notifier interface {
	NotifyBookChanged(ctx context.Context, e events.BookChanged) error
}

// Deps agrupa as dependências do Server
type Deps struct {
	Log        *zap.Logger
	Store      Store
	Admission  *admission.Service
	Book       *book.Service
	Query      *query.Service
	Publisher  Publisher
	Notifier   Notifier // opcional
	Visibility book.Visibility
	Location   *time.Location
	WS         http.HandlerFunc // opcional
}

// Server expõe a API pública de mercados e apostas e as rotas administrativas
type Server struct {
	Deps
	now func() time.Time
}

func NewServer(d Deps) *Server {
	if d.Visibility == "" {
		d.Visibility = book.VisibilityAll
	}
	return &Server{Deps: d, now: time.Now}
}

// Router monta as rotas /v1 com o principal extraído dos headers
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(withPrincipal)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/markets", s.listMarkets)         // ?tz=
		r.Get("/markets/{id}", s.getMarket)      // ?tz=
		r.Post("/markets/{id}/bets", s.placeBet) // submissão de apostas
		r.Get("/markets/{id}/bets", s.listBets)  // ?date=&bettor=&limit=&tz=
		r.Get("/markets/{id}/book", s.getBook)   // ?phase=&betType=&date=
		if s.WS != nil {
			r.Get("/ws", s.WS)
		}

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireOperator)
			r.Get("/categories", s.listCategories)
			r.Post("/categories", s.createCategory)
			r.Post("/markets", s.createMarket)
			r.Put("/markets/{id}", s.updateMarket)
			r.Delete("/markets/{id}", s.deleteMarket)
			r.Post("/markets/{id}/suspend", s.suspendMarket)
			r.Post("/markets/{id}/message", s.setMessage)
			r.Post("/markets/{id}/status", s.setStatus)
			r.Post("/markets/{id}/results", s.declareResult)
			r.Post("/bets/{id}/void", s.voidBet)
		})
	})
	return r
}

// notifyBook avisa os websockets; falha só é logada
func (s *Server) notifyBook(ctx context.Context, e events.BookChanged) {
	if s.Notifier == nil {
		return
	}
	e.UpdatedAt = s.now().UTC()
	if err := s.Notifier.NotifyBookChanged(ctx, e); err != nil {
		s.Log.Warn("notify book changed", zap.Int64("market_id", e.MarketID), zap.Error(err))
	}
}

func marketID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadRequest("invalid market id")
	}
	return id, nil
}

func decode(r *http.Request, v interface{ Validate() error }) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadRequest("bad json")
	}
	return v.Validate()
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
