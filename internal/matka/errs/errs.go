// Package errs define a taxonomia de rejeições da admissão de apostas.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifica o motivo da rejeição de forma legível por máquina
type Kind string

const (
	KindMarketNotFound  Kind = "MARKET_NOT_FOUND"
	KindMarketSuspended Kind = "MARKET_SUSPENDED"
	KindPhaseSuspended  Kind = "PHASE_SUSPENDED"
	KindPhaseClosed     Kind = "PHASE_CLOSED"
	KindInvalidBetType  Kind = "INVALID_BET_TYPE"
	KindInvalidOutcome  Kind = "INVALID_OUTCOME"
	KindStakeTooLow     Kind = "STAKE_TOO_LOW"
	KindStakeTooHigh    Kind = "STAKE_TOO_HIGH"
	KindTransient       Kind = "TRANSIENT"
)

// AdmissionError carrega o tipo, uma mensagem e detalhes para o front-end
type AdmissionError struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AdmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AdmissionError) Unwrap() error { return e.Err }

// Is compara apenas o Kind, então errors.Is(err, errs.ErrPhaseClosed) funciona
func (e *AdmissionError) Is(target error) bool {
	var t *AdmissionError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable: só falhas transitórias podem ser reenviadas
func (e *AdmissionError) Retryable() bool { return e.Kind == KindTransient }

// Sentinelas para uso com errors.Is
var (
	ErrMarketNotFound  = &AdmissionError{Kind: KindMarketNotFound}
	ErrMarketSuspended = &AdmissionError{Kind: KindMarketSuspended}
	ErrPhaseSuspended  = &AdmissionError{Kind: KindPhaseSuspended}
	ErrPhaseClosed     = &AdmissionError{Kind: KindPhaseClosed}
	ErrInvalidBetType  = &AdmissionError{Kind: KindInvalidBetType}
	ErrInvalidOutcome  = &AdmissionError{Kind: KindInvalidOutcome}
	ErrStakeTooLow     = &AdmissionError{Kind: KindStakeTooLow}
	ErrStakeTooHigh    = &AdmissionError{Kind: KindStakeTooHigh}
	ErrTransient       = &AdmissionError{Kind: KindTransient}
)

// New cria um AdmissionError com detalhes opcionais
func New(kind Kind, msg string, details map[string]any) *AdmissionError {
	return &AdmissionError{Kind: kind, Message: msg, Details: details}
}

// Transient embrulha uma falha de storage ou timeout
func Transient(op string, err error) *AdmissionError {
	return &AdmissionError{
		Kind:    KindTransient,
		Message: op + " failed, safe to retry",
		Err:     err,
	}
}

// KindOf extrai o Kind de qualquer erro da cadeia; "" se não houver
func KindOf(err error) Kind {
	var ae *AdmissionError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
