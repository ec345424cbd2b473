package dto

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/radieske/matka-exchange/internal/matka/market"
)

var validate = validator.New()

// PlaceBetRequest: fase, tipo, stake e resultados são checados pela admissão,
// que devolve o erro tipado; aqui só o tamanho do payload.
type PlaceBetRequest struct {
	Phase    string   `json:"phase"`
	BetType  string   `json:"betType"`
	Outcomes []string `json:"outcomes" validate:"max=1000"`
	Stake    int64    `json:"stake"`
}

func (r *PlaceBetRequest) Validate() error { return validate.Struct(r) }

type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=80"`
}

func (r *CategoryRequest) Validate() error { return validate.Struct(r) }

type BetTypeRequest struct {
	Rate     decimal.Decimal `json:"rate"`
	MinStake int64           `json:"minStake" validate:"gte=0"`
	MaxStake int64           `json:"maxStake" validate:"gtefield=MinStake"`
}

// MarketRequest serve para criar e para atualizar um mercado
type MarketRequest struct {
	CategoryID int64                     `json:"categoryId" validate:"gte=0"`
	Title      string                    `json:"title" validate:"required,max=120"`
	OpenTime   string                    `json:"openTime" validate:"required,datetime=15:04"`
	CloseTime  string                    `json:"closeTime" validate:"required,datetime=15:04"`
	BetTypes   map[string]BetTypeRequest `json:"betTypes" validate:"required,min=1,dive,keys,required,endkeys"`
	Active     *bool                     `json:"active,omitempty"`
}

func (r *MarketRequest) Validate() error { return validate.Struct(r) }

// Apply copia os campos editáveis para m
func (r *MarketRequest) Apply(m *market.Market) {
	m.CategoryID = r.CategoryID
	m.Title = r.Title
	m.Slug = market.Slugify(r.Title)
	m.OpenTime = r.OpenTime
	m.CloseTime = r.CloseTime
	m.BetTypes = make(map[string]market.BetTypeConfig, len(r.BetTypes))
	for k, bt := range r.BetTypes {
		m.BetTypes[k] = market.BetTypeConfig{Rate: bt.Rate, MinStake: bt.MinStake, MaxStake: bt.MaxStake}
	}
	if r.Active != nil {
		m.Active = *r.Active
	}
}

type SuspendRequest struct {
	Type   string `json:"type" validate:"required,oneof=open close all"`
	Status *bool  `json:"status" validate:"required"`
}

func (r *SuspendRequest) Validate() error { return validate.Struct(r) }

type MessageRequest struct {
	Message string `json:"message" validate:"max=500"`
}

func (r *MessageRequest) Validate() error { return validate.Struct(r) }

type StatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (r *StatusRequest) Validate() error { return validate.Struct(r) }

// DeclareResultRequest: drawDate vazio usa o dia corrente do mercado
type DeclareResultRequest struct {
	Phase    string `json:"phase" validate:"required,oneof=OPEN CLOSE open close"`
	Patti    string `json:"patti" validate:"required,len=3,numeric"`
	DrawDate string `json:"drawDate" validate:"omitempty,datetime=2006-01-02"`
}

func (r *DeclareResultRequest) Validate() error { return validate.Struct(r) }
