package domain

type TopSeller struct {
	Name        string  `json:"name"`
	NetQuantity float64 `json:"net_quantity"`
}

type DailyBreakdown struct {
	Date      string  `json:"date"`
	Revenue   float64 `json:"revenue"`
	COGS      float64 `json:"cogs"`
	WasteCost float64 `json:"waste_cost"`
	Profit    float64 `json:"profit"`
}

type KindAnalytics struct {
	Kind           Kind             `json:"kind"`
	Revenue        float64          `json:"revenue"`
	COGS           float64          `json:"cogs"`
	WasteCost      float64          `json:"waste_cost"`
	Profit         float64          `json:"profit"`
	Loss           float64          `json:"loss"`
	TotalPurchases float64          `json:"total_purchases"`
	SalesCount     int              `json:"sales_count"`
	ItemsCount     int              `json:"items_count"`
	TopSellers     []TopSeller      `json:"top_sellers"`
	LowStock       []Item           `json:"low_stock"`
	LowStockCount  int              `json:"low_stock_count"`
	Daily          []DailyBreakdown `json:"daily"`
}

type AnalyticsReport struct {
	Range     DateRange     `json:"range"`
	CostBasis string        `json:"cost_basis"`
	LossScope string        `json:"loss_scope"`
	Shop      KindAnalytics `json:"shop"`
	Laser     KindAnalytics `json:"laser"`
	Combined  KindAnalytics `json:"combined"`
}

// ForKind returns the per-kind section of the report.
func (r AnalyticsReport) ForKind(kind Kind) KindAnalytics {
	if kind == KindLaserMaterial {
		return r.Laser
	}
	return r.Shop
}

type AssistantRequest struct {
	Message string `json:"message"`
}

type AssistantReply struct {
	Reply  string `json:"reply"`
	Source string `json:"source"`
	Cached bool   `json:"cached"`
}

// AssistantSnapshot is the read-only context handed to the assistant.
type AssistantSnapshot struct {
	Analytics      AnalyticsReport `json:"analytics"`
	ShopProducts   []Item          `json:"shop_products"`
	LaserMaterials []Item          `json:"laser_materials"`
	Transactions   []LedgerEntry   `json:"recent_transactions"`
}
