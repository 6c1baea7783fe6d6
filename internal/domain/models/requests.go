package models

// Requests for the market HTTP endpoints. Defined in domain for consistency and reuse.

type MarketDataRequest struct {
	Type  string `param:"type" json:"type" validate:"omitempty,oneof=crypto equity fund stock"`
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=250"`
}

type AssetAnalysisRequest struct {
	Type string `param:"type" json:"type" validate:"required,oneof=crypto equity fund stock"`
	ID   string `param:"id" json:"id" validate:"required,min=1,max=64"`
}

type ForceUpdateRequest struct {
	Wait bool `query:"wait" json:"wait"`
}

type TrainRequest struct {
	Market string `json:"market" default:"crypto" validate:"oneof=crypto equity fund"`
	Limit  int    `json:"limit" default:"20" validate:"gte=1,lte=100"`
}
