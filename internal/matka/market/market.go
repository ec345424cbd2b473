// Package market modela o registro de mercado Matka e o relógio de fases.
package market

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/matka-exchange/internal/matka/digits"
)

// Phase é a janela de apostas dentro de um mercado
type Phase string

const (
	PhaseOpen  Phase = "OPEN"
	PhaseClose Phase = "CLOSE"
	PhaseJodi  Phase = "JODI"
)

// ParsePhase aceita "open", " Close ", "JODI"...
func ParsePhase(s string) (Phase, bool) {
	p := Phase(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PhaseOpen, PhaseClose, PhaseJodi:
		return p, true
	}
	return "", false
}

// gate retorna a fase cujo corte e flag de suspensão valem para p.
// JODI é o concatenado de open+close, então fecha junto com CLOSE.
func (p Phase) gate() Phase {
	if p == PhaseJodi {
		return PhaseClose
	}
	return p
}

// AcceptsBetType informa se o tipo de aposta é jogável na fase
func (p Phase) AcceptsBetType(betType string) bool {
	isJodi := digits.Normalize(betType) == digits.Jodi
	if p == PhaseJodi {
		return isJodi
	}
	return !isJodi
}

// BetTypeConfig é a taxa fixa de pagamento e os limites de stake de um tipo de aposta
type BetTypeConfig struct {
	Rate     decimal.Decimal `json:"rate"`
	MinStake int64           `json:"minStake"`
	MaxStake int64           `json:"maxStake"`
}

// SuspendScope é o alvo de um toggle de suspensão
type SuspendScope string

const (
	SuspendOpen  SuspendScope = "open"
	SuspendClose SuspendScope = "close"
	SuspendAll   SuspendScope = "all"
)

// Market é o evento diário de apostas
type Market struct {
	ID             int64                    `json:"id"`
	CategoryID     int64                    `json:"categoryId"`
	CategoryName   string                   `json:"categoryName"`
	Title          string                   `json:"title"`
	Slug           string                   `json:"slug"`
	OpenTime       string                   `json:"openTime"`  // HH:mm no fuso de referência
	CloseTime      string                   `json:"closeTime"` // HH:mm no fuso de referência
	BetTypes       map[string]BetTypeConfig `json:"betTypes"`
	Active         bool                     `json:"active"`
	Deleted        bool                     `json:"deleted"`
	OpenSuspended  bool                     `json:"openSuspended"`
	CloseSuspended bool                     `json:"closeSuspended"`
	AllSuspended   bool                     `json:"allSuspended"`
	Message        string                   `json:"message"`
	Today          *DrawResult              `json:"today,omitempty"`
	Yesterday      *DrawResult              `json:"yesterday,omitempty"`
	CreatedAt      time.Time                `json:"createdAt"`
	UpdatedAt      time.Time                `json:"updatedAt"`
}

var (
	ErrInvalidMarket = errors.New("invalid market")
	ErrNotFound      = errors.New("market not found")
)

// Validate checa horários e a tabela de tipos de aposta
func (m *Market) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalidMarket)
	}
	if _, _, err := ParseClock(m.OpenTime); err != nil {
		return fmt.Errorf("%w: open_time: %v", ErrInvalidMarket, err)
	}
	if _, _, err := ParseClock(m.CloseTime); err != nil {
		return fmt.Errorf("%w: close_time: %v", ErrInvalidMarket, err)
	}
	if len(m.BetTypes) == 0 {
		return fmt.Errorf("%w: at least one bet type required", ErrInvalidMarket)
	}
	seen := map[string]bool{}
	for key, cfg := range m.BetTypes {
		norm := digits.Normalize(key)
		if !digits.Known(norm) {
			return fmt.Errorf("%w: unknown bet type %q", ErrInvalidMarket, key)
		}
		if seen[norm] {
			return fmt.Errorf("%w: bet type %q configured twice", ErrInvalidMarket, norm)
		}
		seen[norm] = true
		if !cfg.Rate.IsPositive() {
			return fmt.Errorf("%w: bet type %q rate must be positive", ErrInvalidMarket, norm)
		}
		if cfg.MinStake < 0 || cfg.MinStake > cfg.MaxStake {
			return fmt.Errorf("%w: bet type %q requires 0 <= minStake <= maxStake", ErrInvalidMarket, norm)
		}
	}
	return nil
}

// NormalizeBetTypes reescreve as chaves na forma canônica
func (m *Market) NormalizeBetTypes() {
	out := make(map[string]BetTypeConfig, len(m.BetTypes))
	for k, v := range m.BetTypes {
		out[digits.Normalize(k)] = v
	}
	m.BetTypes = out
}

// BetType resolve a chave sem diferenciar maiúsculas e retorna a forma canônica
func (m *Market) BetType(key string) (string, BetTypeConfig, bool) {
	want := digits.Normalize(key)
	for k, cfg := range m.BetTypes {
		if digits.Normalize(k) == want {
			return want, cfg, true
		}
	}
	return "", BetTypeConfig{}, false
}

// BetTypeKeys lista os tipos configurados em ordem alfabética
func (m *Market) BetTypeKeys() []string {
	keys := make([]string, 0, len(m.BetTypes))
	for k := range m.BetTypes {
		keys = append(keys, digits.Normalize(k))
	}
	sort.Strings(keys)
	return keys
}

// PhaseSuspended considera a flag da fase (JODI usa a de CLOSE)
func (m *Market) PhaseSuspended(p Phase) bool {
	switch p.gate() {
	case PhaseOpen:
		return m.OpenSuspended
	case PhaseClose:
		return m.CloseSuspended
	}
	return false
}

// SetSuspend aplica o toggle; "all" liga/desliga todas as flags
func (m *Market) SetSuspend(scope SuspendScope, on bool) error {
	switch scope {
	case SuspendOpen:
		m.OpenSuspended = on
	case SuspendClose:
		m.CloseSuspended = on
	case SuspendAll:
		m.OpenSuspended = on
		m.CloseSuspended = on
		m.AllSuspended = on
	default:
		return fmt.Errorf("invalid suspend scope %q", scope)
	}
	return nil
}

func (m *Market) SetMessage(text string) { m.Message = text }

func (m *Market) SetActive(active bool) { m.Active = active }

func (m *Market) SoftDelete() { m.Deleted = true }

// Slugify gera o slug a partir do título (espaços viram hífens)
func Slugify(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), "-")
}

// ParseClock interpreta "HH:mm" (24h)
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:mm, got %q", s)
	}
	return t.Hour(), t.Minute(), nil
}
