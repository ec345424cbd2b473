package market

import (
	"errors"
	"fmt"
	"time"

	"github.com/radieske/matka-exchange/internal/matka/errs"
)

// DateLayout é o formato do draw date (dia civil no fuso de referência)
const DateLayout = "2006-01-02"

// Cutoffs são os instantes absolutos de fechamento de cada fase num dia
type Cutoffs struct {
	Open  time.Time `json:"open"`
	Close time.Time `json:"close"`
	Jodi  time.Time `json:"jodi"`
}

// ReferenceDate é a meia-noite de now no fuso de referência
func ReferenceDate(now time.Time, loc *time.Location) time.Time {
	l := now.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}

// DrawDate formata o dia civil de now no fuso de referência
func DrawDate(now time.Time, loc *time.Location) string {
	return ReferenceDate(now, loc).Format(DateLayout)
}

// ParseDrawDate interpreta "YYYY-MM-DD" no fuso de referência
func ParseDrawDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, loc)
}

func atClock(ref time.Time, clock string, loc *time.Location) (time.Time, error) {
	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	r := ref.In(loc)
	return time.Date(r.Year(), r.Month(), r.Day(), h, m, 0, 0, loc), nil
}

// ResolveCutoff combina o HH:mm da fase com o dia de referência.
// Para CLOSE/JODI, se o resultado não for depois do corte de OPEN
// (mercado noturno), o corte vai para o dia civil seguinte.
func ResolveCutoff(m *Market, phase Phase, referenceDate time.Time, loc *time.Location) (time.Time, error) {
	open, err := atClock(referenceDate, m.OpenTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("open_time: %w", err)
	}
	switch phase {
	case PhaseOpen:
		return open, nil
	case PhaseClose, PhaseJodi:
		cl, err := atClock(referenceDate, m.CloseTime, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("close_time: %w", err)
		}
		if !cl.After(open) {
			cl = time.Date(cl.Year(), cl.Month(), cl.Day()+1, cl.Hour(), cl.Minute(), 0, 0, loc)
		}
		return cl, nil
	}
	return time.Time{}, fmt.Errorf("unknown phase %q", phase)
}

// ResolveCutoffs resolve as três fases de uma vez
func ResolveCutoffs(m *Market, referenceDate time.Time, loc *time.Location) (Cutoffs, error) {
	open, err := ResolveCutoff(m, PhaseOpen, referenceDate, loc)
	if err != nil {
		return Cutoffs{}, err
	}
	cl, err := ResolveCutoff(m, PhaseClose, referenceDate, loc)
	if err != nil {
		return Cutoffs{}, err
	}
	return Cutoffs{Open: open, Close: cl, Jodi: cl}, nil
}

// Gate decide se a fase aceita apostas em now, retornando o motivo tipado.
// É o único ponto onde corte e flags de suspensão são avaliados.
func Gate(m *Market, phase Phase, now time.Time, loc *time.Location) error {
	if m == nil || m.Deleted {
		return errs.New(errs.KindMarketNotFound, "market not found", nil)
	}
	if m.AllSuspended {
		return errs.New(errs.KindMarketSuspended, "market is suspended", map[string]any{"marketId": m.ID})
	}
	if !m.Active {
		return errs.New(errs.KindMarketSuspended, "market is inactive", map[string]any{"marketId": m.ID})
	}
	if m.PhaseSuspended(phase) {
		return errs.New(errs.KindPhaseSuspended, fmt.Sprintf("%s phase is suspended", phase), map[string]any{
			"phase":         phase,
			"suspendedFlag": string(phase.gate()),
		})
	}
	cutoff, err := ResolveCutoff(m, phase, ReferenceDate(now, loc), loc)
	if err != nil {
		// horário inválido: falha fechada
		return errs.New(errs.KindPhaseClosed, "market schedule is invalid", map[string]any{
			"phase":  phase,
			"reason": err.Error(),
		})
	}
	if !now.Before(cutoff) {
		return errs.New(errs.KindPhaseClosed, fmt.Sprintf("%s betting closed at %s", phase, cutoff.Format("15:04")), map[string]any{
			"phase":  phase,
			"cutoff": cutoff.Format(time.RFC3339),
			"now":    now.In(loc).Format(time.RFC3339),
		})
	}
	return nil
}

// IsPhaseOpenForBetting é Gate reduzido a bool
func IsPhaseOpenForBetting(m *Market, phase Phase, now time.Time, loc *time.Location) bool {
	return Gate(m, phase, now, loc) == nil
}

// ErrPhaseOpen: o corte da fase ainda não passou no draw date pedido
var ErrPhaseOpen = errors.New("phase still open for betting")

// CheckDeclarable exige now >= corte da fase no draw date. CLOSE cobre
// JODI, que fecha no mesmo instante.
func CheckDeclarable(m *Market, phase Phase, drawDate string, now time.Time, loc *time.Location) error {
	ref, err := ParseDrawDate(drawDate, loc)
	if err != nil {
		return err
	}
	cutoff, err := ResolveCutoff(m, phase, ref, loc)
	if err != nil {
		return err
	}
	if now.Before(cutoff) {
		return fmt.Errorf("%w: %s of %s closes at %s", ErrPhaseOpen, phase, drawDate, cutoff.Format(time.RFC3339))
	}
	return nil
}

// DeclarationDate é o draw date cujo corte da fase cai no dia civil de now.
// Num mercado noturno o CLOSE de ontem fecha hoje de madrugada.
func DeclarationDate(m *Market, phase Phase, now time.Time, loc *time.Location) (string, error) {
	today := ReferenceDate(now, loc)
	cutoff, err := ResolveCutoff(m, phase, today, loc)
	if err != nil {
		return "", err
	}
	if ReferenceDate(cutoff, loc).After(today) {
		today = today.AddDate(0, 0, -1)
	}
	return today.Format(DateLayout), nil
}
