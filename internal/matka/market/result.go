package market

import "github.com/radieske/matka-exchange/internal/matka/digits"

// DrawResult guarda as pattis declaradas de um dia do mercado
type DrawResult struct {
	DrawDate   string `json:"drawDate"`
	OpenPatti  string `json:"openPatti,omitempty"`
	ClosePatti string `json:"closePatti,omitempty"`
}

// Patti retorna a patti declarada para OPEN ou CLOSE
func (r *DrawResult) Patti(p Phase) string {
	if r == nil {
		return ""
	}
	switch p {
	case PhaseOpen:
		return r.OpenPatti
	case PhaseClose:
		return r.ClosePatti
	}
	return ""
}

// Ank é o dígito single da fase declarada
func (r *DrawResult) Ank(p Phase) (string, bool) {
	patti := r.Patti(p)
	if patti == "" {
		return "", false
	}
	return digits.Ank(patti)
}

// Jodi só existe quando OPEN e CLOSE já foram declarados
func (r *DrawResult) Jodi() (string, bool) {
	open, ok := r.Ank(PhaseOpen)
	if !ok {
		return "", false
	}
	closeAnk, ok := r.Ank(PhaseClose)
	if !ok {
		return "", false
	}
	return open + closeAnk, true
}
