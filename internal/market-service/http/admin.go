package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/matka-exchange/internal/market-service/dto"
	"github.com/radieske/matka-exchange/internal/matka/errs"
	"github.com/radieske/matka-exchange/internal/matka/market"
	"github.com/radieske/matka-exchange/internal/matka/query"
	"github.com/radieske/matka-exchange/internal/matka/settlement"
	"github.com/radieske/matka-exchange/pkg/contracts/events"
)

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	list, err := s.Store.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var req dto.CategoryRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.Store.CreateCategory(r.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// createMarket valida a tabela de tipos antes de gravar
func (s *Server) createMarket(w http.ResponseWriter, r *http.Request) {
	var req dto.MarketRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	m := &market.Market{Active: true}
	req.Apply(m)
	if err := m.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	m.NormalizeBetTypes()
	if err := s.Store.CreateMarket(r.Context(), m); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Log.Info("market created", zap.Int64("market_id", m.ID), zap.String("slug", m.Slug))
	writeJSON(w, http.StatusCreated, m)
}

// updateMarket troca título, horários, categoria, taxas e active; apostas já aceitas mantêm a taxa
func (s *Server) updateMarket(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req dto.MarketRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.Store.GetMarket(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req.Apply(m)
	if err := m.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	m.NormalizeBetTypes()
	if err := s.Store.UpdateMarket(r.Context(), m); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeMarket(w, r, id)
}

func (s *Server) deleteMarket(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Store.SoftDelete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Log.Info("market deleted", zap.Int64("market_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// suspendMarket: {type: open|close|all, status}; "all" escreve as três flags
func (s *Server) suspendMarket(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req dto.SuspendRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Store.SetSuspend(r.Context(), id, market.SuspendScope(req.Type), *req.Status); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Log.Info("market suspend toggled",
		zap.Int64("market_id", id),
		zap.String("scope", req.Type),
		zap.Bool("suspended", *req.Status))
	s.writeMarket(w, r, id)
}

func (s *Server) setMessage(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req dto.MessageRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Store.SetMessage(r.Context(), id, req.Message); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeMarket(w, r, id)
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req dto.StatusRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Store.SetActive(r.Context(), id, *req.Active); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeMarket(w, r, id)
}

// declareResult valida a patti e publica result_declared; o settlement-worker liquida.
// Sem drawDate, vale o dia cujo corte da fase cai hoje (mercado noturno: o de ontem).
func (s *Server) declareResult(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req dto.DeclareResultRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.Store.GetMarket(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now := s.now()
	phase, _ := market.ParsePhase(req.Phase)
	date, err := s.optionalDate(req.DrawDate)
	if err == nil && date == "" {
		date, err = market.DeclarationDate(m, phase, now, s.Location)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d := settlement.Declaration{
		MarketID:   id,
		DrawDate:   date,
		Phase:      phase,
		Patti:      req.Patti,
		DeclaredBy: principalFrom(r.Context()).ID,
	}
	if err := d.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	// resultado só depois do corte: nenhuma aposta da fase entra depois da declaração
	if err := market.CheckDeclarable(m, d.Phase, d.DrawDate, now, s.Location); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.Publisher.PublishResultDeclared(r.Context(), events.ResultDeclared{
		MarketID:   d.MarketID,
		DrawDate:   d.DrawDate,
		Phase:      string(d.Phase),
		Patti:      d.Patti,
		DeclaredBy: d.DeclaredBy,
		Ts:         now.UTC(),
	}); err != nil {
		s.writeError(w, r, errs.Transient("publish result_declared", err))
		return
	}
	s.Log.Info("result declared",
		zap.Int64("market_id", id),
		zap.String("draw_date", d.DrawDate),
		zap.String("phase", string(d.Phase)),
		zap.String("patti", d.Patti))

	writeJSON(w, http.StatusAccepted, dto.DeclareResultResponse{
		MarketID: id,
		DrawDate: d.DrawDate,
		Phase:    string(d.Phase),
		Patti:    d.Patti,
		Status:   "ACCEPTED",
	})
}

// voidBet anula uma aposta PLACED e tira a aposta do book
func (s *Server) voidBet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, errBadRequest("invalid bet id"))
		return
	}
	b, err := s.Store.VoidBet(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.Log.Info("bet voided",
		zap.String("bet_id", id.String()),
		zap.String("by", principalFrom(r.Context()).ID))
	s.notifyBook(r.Context(), events.BookChanged{
		MarketID: b.MarketID,
		Phase:    string(b.Phase),
		BetType:  b.BetType,
		DrawDate: b.DrawDate,
		Reason:   "bet_void",
	})
	writeJSON(w, http.StatusOK, query.Summarize(*b, s.Location))
}

func (s *Server) writeMarket(w http.ResponseWriter, r *http.Request, id int64) {
	m, err := s.Store.GetMarket(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
