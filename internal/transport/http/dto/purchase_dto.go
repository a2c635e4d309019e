package dto

type TipPurchaseRequest struct {
	UserEmail string `json:"userId"`
	TipID     string `json:"tipId"`
}

type PackageUsed struct {
	ID            int64  `json:"id"`
	PlanID        string `json:"planId"`
	Name          string `json:"name"`
	TipsRemaining int    `json:"tipsRemaining"`
}

type TipPurchaseResponse struct {
	Success     bool        `json:"success"`
	Message     string      `json:"message"`
	PurchaseID  int64       `json:"purchaseId"`
	PackageUsed PackageUsed `json:"packageUsed"`
}

type PurchasedTip struct {
	Tip           TipResponse `json:"tip"`
	PurchasedAt   string      `json:"purchasedAt"`
	PricePaid     int         `json:"pricePaid"`
	PackageName   string      `json:"packageName"`
	TransactionID string      `json:"transactionId"`
}

type PurchasedTipsResponse struct {
	Success bool           `json:"success"`
	Tips    []PurchasedTip `json:"tips"`
	Total   int            `json:"total"`
}

type BalanceResponse struct {
	Success       bool             `json:"success"`
	TipsRemaining int              `json:"tipsRemaining"`
	Packages      []BalancePackage `json:"packages"`
}

type BalancePackage struct {
	ID            int64  `json:"id"`
	PlanID        string `json:"planId"`
	Name          string `json:"name"`
	TipsIncluded  int    `json:"tipsIncluded"`
	TipsRemaining int    `json:"tipsRemaining"`
	PurchasedAt   string `json:"purchasedAt"`
}
