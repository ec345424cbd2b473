package httpapi

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/radieske/matka-exchange/internal/market-service/dto"
	"github.com/radieske/matka-exchange/internal/matka/admission"
	"github.com/radieske/matka-exchange/internal/matka/bet"
	"github.com/radieske/matka-exchange/internal/matka/book"
	"github.com/radieske/matka-exchange/internal/matka/market"
	"github.com/radieske/matka-exchange/internal/matka/query"
	"github.com/radieske/matka-exchange/pkg/contracts/events"
)

// listMarkets retorna os mercados ativos no fuso pedido (?tz=)
func (s *Server) listMarkets(w http.ResponseWriter, r *http.Request) {
	tz, err := s.Query.Timezone(r.URL.Query().Get("tz"))
	if err != nil {
		s.writeError(w, r, errBadRequest(err.Error()))
		return
	}
	list, err := s.Query.ListMarkets(r.Context(), tz, s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// getMarket retorna o estado de um mercado com os cortes de cada fase
func (s *Server) getMarket(w http.ResponseWriter, r *http.Request) {
	id, err := marketID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tz, err := s.Query.Timezone(r.URL.Query().Get("tz"))
	if err != nil {
		s.writeError(w, r, errBadRequest(err.Error()))
		return
	}
	st, err := s.Query.MarketState(r.Context(), id, tz, s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// placeBet admite a submissão e publica um bet_placed por aposta
func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if p.ID == "" {
		s.writeError(w, r, errUnauthorized())
		return
	}
	id, err := marketID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req dto.PlaceBetRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	phase, ok := market.ParsePhase(req.Phase)
	if !ok {
		phase = market.Phase(req.Phase) // a admissão rejeita com o erro tipado
	}
	bets, err := s.Admission.PlaceBet(r.Context(), p, admission.Request{
		MarketID: id,
		Phase:    phase,
		BetType:  req.BetType,
		Outcomes: req.Outcomes,
		Stake:    req.Stake,
	}, s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	evs := make([]events.BetPlaced, len(bets))
	out := dto.PlaceBetResponse{SubmissionID: bets[0].SubmissionID.String(), Bets: make([]query.BetSummary, len(bets))}
	for i, b := range bets {
		evs[i] = betPlacedEvent(b)
		out.Bets[i] = query.Summarize(b, s.Location)
	}
	// apostas já commitadas: falha de publicação não desfaz a admissão
	if err := s.Publisher.PublishBetPlaced(r.Context(), evs...); err != nil {
		s.Log.Warn("publish bet_placed",
			zap.String("submission_id", out.SubmissionID),
			zap.Int("bets", len(evs)),
			zap.Error(err))
	}
	s.notifyBook(r.Context(), events.BookChanged{
		MarketID: id,
		Phase:    string(phase),
		BetType:  bets[0].BetType,
		DrawDate: bets[0].DrawDate,
		Reason:   "bet_placed",
	})

	writeJSON(w, http.StatusCreated, out)
}

func betPlacedEvent(b bet.Bet) events.BetPlaced {
	return events.BetPlaced{
		BetID:        b.ID.String(),
		SubmissionID: b.SubmissionID.String(),
		UserID:       b.BettorID,
		MarketID:     b.MarketID,
		Phase:        string(b.Phase),
		BetType:      b.BetType,
		Outcome:      b.Outcome,
		Stake:        b.Stake,
		Rate:         b.Rate.String(),
		Payout:       b.Payout,
		DrawDate:     b.DrawDate,
	}
}

// listBets: operadores veem todas (e podem filtrar por ?bettor=), os demais só as próprias
func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if p.ID == "" {
		s.writeError(w, r, errUnauthorized())
		return
	}
	id, err := marketID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	tz, err := s.Query.Timezone(q.Get("tz"))
	if err != nil {
		s.writeError(w, r, errBadRequest(err.Error()))
		return
	}

	date, err := s.optionalDate(q.Get("date"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f := query.BetFilter{BettorID: p.ID, DrawDate: date}
	if book.IsOperator(p.Role) {
		f.BettorID = q.Get("bettor")
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, errBadRequest("invalid limit"))
			return
		}
		f.Limit = n
	}

	list, err := s.Query.ListBets(r.Context(), id, f, tz)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// getBook recalcula o book da partição (mercado, fase, tipo, dia)
func (s *Server) getBook(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if !s.Visibility.Allows(p.Role) {
		s.writeError(w, r, errForbidden("book is restricted to operators"))
		return
	}
	id, err := marketID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	phase, ok := market.ParsePhase(q.Get("phase"))
	if !ok {
		phase = market.Phase(q.Get("phase"))
	}
	date, err := s.optionalDate(q.Get("date"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	b, err := s.Book.ComputeBook(r.Context(), book.Query{
		MarketID: id,
		Phase:    phase,
		BetType:  q.Get("betType"),
		DrawDate: date,
	}, s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// optionalDate aceita vazio ou YYYY-MM-DD
func (s *Server) optionalDate(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	if _, err := market.ParseDrawDate(raw, s.Location); err != nil {
		return "", errBadRequest("date must be YYYY-MM-DD")
	}
	return raw, nil
}
