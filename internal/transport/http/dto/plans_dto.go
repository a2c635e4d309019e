package dto

type PlanResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Price        int      `json:"price"`
	TipsIncluded int      `json:"tipsIncluded"`
	DurationDays int      `json:"durationDays,omitempty"`
	Features     []string `json:"features,omitempty"`
	IsPopular    bool     `json:"isPopular"`
}

type PlanListResponse struct {
	Success bool           `json:"success"`
	Plans   []PlanResponse `json:"plans"`
}

type PlanItemResponse struct {
	Success bool         `json:"success"`
	Plan    PlanResponse `json:"plan"`
}
