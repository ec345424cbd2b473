package dto

import "github.com/radieske/matka-exchange/internal/matka/query"

type PlaceBetResponse struct {
	SubmissionID string             `json:"submissionId"`
	Bets         []query.BetSummary `json:"bets"`
}

type DeclareResultResponse struct {
	MarketID int64  `json:"marketId"`
	DrawDate string `json:"drawDate"`
	Phase    string `json:"phase"`
	Patti    string `json:"patti"`
	Status   string `json:"status"` // ACCEPTED: a liquidação é assíncrona
}

type ErrorBody struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
