package dto

type TipOdd struct {
	House  string  `json:"house"`
	Value  float64 `json:"value"`
	IsBest bool    `json:"isBest"`
}

type TipCreateRequest struct {
	Category    string   `json:"category"`
	League      string   `json:"league"`
	Teams       string   `json:"teams"`
	MatchDate   string   `json:"matchDate"`
	MatchTime   string   `json:"matchTime"`
	Prediction  string   `json:"prediction"`
	Confidence  int      `json:"confidence"`
	IsPremium   bool     `json:"isPremium"`
	Description string   `json:"description"`
	Odds        []TipOdd `json:"odds"`
}

type TipUpdateRequest struct {
	ID          string   `json:"id"`
	Category    *string  `json:"category"`
	League      *string  `json:"league"`
	Teams       *string  `json:"teams"`
	MatchDate   *string  `json:"matchDate"`
	MatchTime   *string  `json:"matchTime"`
	Prediction  *string  `json:"prediction"`
	Confidence  *int     `json:"confidence"`
	IsPremium   *bool    `json:"isPremium"`
	Description *string  `json:"description"`
	Odds        []TipOdd `json:"odds"`
	Status      *string  `json:"status"`
	Result      *string  `json:"result"`
}

// TipResponse is the public view of a tip. For premium tips the caller has not
// purchased, Locked is true and the paid fields are blanked.
type TipResponse struct {
	ID          string   `json:"id"`
	Category    string   `json:"category"`
	League      string   `json:"league"`
	Teams       string   `json:"teams"`
	MatchDate   string   `json:"matchDate"`
	MatchTime   string   `json:"matchTime"`
	Prediction  string   `json:"prediction,omitempty"`
	Confidence  int      `json:"confidence"`
	IsPremium   bool     `json:"isPremium"`
	Locked      bool     `json:"locked"`
	Description string   `json:"description,omitempty"`
	Odds        []TipOdd `json:"odds,omitempty"`
	Status      string   `json:"status"`
	Result      *string  `json:"result,omitempty"`
}

type TipListResponse struct {
	Success bool          `json:"success"`
	Date    string        `json:"date"`
	Tips    []TipResponse `json:"tips"`
}

type TipItemResponse struct {
	Success bool        `json:"success"`
	Tip     TipResponse `json:"tip"`
}

// TipAccessResponse is the access-check contract for a single tip. Denied
// premium tips go out with status 403, hasAccess false and the paid fields
// blanked.
type TipAccessResponse struct {
	Success   bool        `json:"success"`
	Tip       TipResponse `json:"tip"`
	HasAccess bool        `json:"hasAccess"`
	Reason    string      `json:"reason,omitempty"`
}
