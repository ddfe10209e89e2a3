package tinyemail

// CampaignItem is one entry in the campaign listing. Delivery counters live
// on the wrapper; only the name sits in the nested campaign object.
type CampaignItem struct {
	Campaign     CampaignInfo `json:"campaign"`
	Status       string       `json:"status"`
	Sent         int64        `json:"sent"`
	Delivered    int64        `json:"delivered"`
	TotalOpen    int64        `json:"totalOpen"`
	Open         int64        `json:"open"`
	TotalClicked int64        `json:"totalClicked"`
	Clicked      int64        `json:"clicked"`
	Unsubscribed int64        `json:"unsubscribed"`
	Spam         int64        `json:"spam"`
}

// CampaignInfo holds the campaign metadata
type CampaignInfo struct {
	Name string `json:"name"`
}

// Qualifies reports whether the campaign counts toward metrics: finished
// sending and past the test-send volume floor.
func (c CampaignItem) Qualifies() bool {
	return c.Status == "COMPLETED" && c.Sent > 100
}

// CampaignPage is one page of the listing envelope
type CampaignPage struct {
	Content []CampaignItem `json:"content"`
	Last    bool           `json:"last"`
}

type campaignListResponse struct {
	Campaigns CampaignPage `json:"campaigns"`
}
