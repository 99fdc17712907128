package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"venomshop/backend/internal/domain"
	"venomshop/backend/internal/report"
)

var kindAliases = map[string]domain.Kind{
	"shop_product":   domain.KindShopProduct,
	"shop":           domain.KindShopProduct,
	"laser_material": domain.KindLaserMaterial,
	"laser":          domain.KindLaserMaterial,
}

func parseKind(raw string) (domain.Kind, error) {
	kind, ok := kindAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("unknown inventory kind %q", raw)
	}
	return kind, nil
}

func (a *API) kindParam(c *gin.Context) (domain.Kind, bool) {
	kind, err := parseKind(c.Param("kind"))
	if err != nil {
		badRequest(c, err)
		return "", false
	}
	return kind, true
}

func (a *API) idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		badRequest(c, fmt.Errorf("invalid item id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

// queryRange reads from/to query parameters. A date-only "to" covers the whole day.
func queryRange(c *gin.Context) (domain.DateRange, bool, error) {
	rawFrom, rawTo := c.Query("from"), c.Query("to")
	from, err := domain.ParseDate(rawFrom, false)
	if err != nil {
		return domain.DateRange{}, false, err
	}
	to, err := domain.ParseDate(rawTo, true)
	if err != nil {
		return domain.DateRange{}, false, err
	}
	present := strings.TrimSpace(rawFrom) != "" || strings.TrimSpace(rawTo) != ""
	return domain.DateRange{From: from, To: to}, present, nil
}

func (a *API) handleListItems(c *gin.Context) {
	kind, ok := a.kindParam(c)
	if !ok {
		return
	}

	items, err := a.service.ListItems(c.Request.Context(), kind)
	if err != nil {
		writeError(c, err)
		return
	}
	if term := strings.TrimSpace(c.Query("q")); term != "" {
		filtered := make([]domain.Item, 0, len(items))
		for _, item := range items {
			if item.Matches(term) {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (a *API) handleAddItem(c *gin.Context) {
	kind, ok := a.kindParam(c)
	if !ok {
		return
	}

	var req domain.ItemCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	item, err := a.service.AddItem(c.Request.Context(), kind, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": item})
}

func (a *API) handleRestock(c *gin.Context) {
	kind, ok := a.kindParam(c)
	if !ok {
		return
	}

	var req domain.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := a.service.ReceiveStock(c.Request.Context(), kind, req)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

func (a *API) handleGetItem(c *gin.Context) {
	kind, ok := a.kindParam(c)
	if !ok {
		return
	}
	id, ok := a.idParam(c)
	if !ok {
		return
	}

	item, err := a.service.FindItemByID(c.Request.Context(), kind, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (a *API) handleUpdateItem(c *gin.Context) {
	kind, ok := a.kindParam(c)
	if !ok {
		return
	}
	id, ok := a.idParam(c)
	if !ok {
		return
	}

	var req domain.ItemUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	item, err := a.service.UpdateItem(c.Request.Context(), kind, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (a *API) handleDeleteItem(c *gin.Context) {
	kind, ok := a.kindParam(c)
	if !ok {
		return
	}
	id, ok := a.idParam(c)
	if !ok {
		return
	}

	if err := a.service.DeleteItem(c.Request.Context(), kind, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) handleItemLookup(c *gin.Context) {
	kind, err := parseKind(c.Query("kind"))
	if err != nil {
		badRequest(c, err)
		return
	}
	purchasePrice, err := strconv.ParseFloat(strings.TrimSpace(c.Query("purchase_price")), 64)
	if err != nil {
		badRequest(c, errors.New("purchase_price must be a number"))
		return
	}

	item, err := a.service.FindItemByIdentity(c.Request.Context(), domain.Identity{
		Kind:          kind,
		Name:          c.Query("name"),
		Side:          domain.Side(c.Query("side")),
		PurchasePrice: purchasePrice,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

// transactionPayload mirrors domain.TransactionRequest with a free-form date.
type transactionPayload struct {
	Kind          string   `json:"kind"`
	Type          string   `json:"type"`
	ItemID        int64    `json:"item_id"`
	Quantity      float64  `json:"quantity"`
	UnitPrice     *float64 `json:"unit_price"`
	CustomerName  string   `json:"customer_name"`
	CustomerPhone string   `json:"customer_phone"`
	Notes         string   `json:"notes"`
	Date          string   `json:"date"`
}

func (a *API) handleRecordTransaction(c *gin.Context) {
	var payload transactionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err)
		return
	}
	kind, err := parseKind(payload.Kind)
	if err != nil {
		badRequest(c, err)
		return
	}
	date, err := domain.ParseDate(payload.Date, false)
	if err != nil {
		writeError(c, err)
		return
	}

	req := domain.TransactionRequest{
		Kind:          kind,
		Type:          domain.TxType(strings.ToLower(strings.TrimSpace(payload.Type))),
		ItemID:        payload.ItemID,
		Quantity:      payload.Quantity,
		UnitPrice:     payload.UnitPrice,
		CustomerName:  payload.CustomerName,
		CustomerPhone: payload.CustomerPhone,
		Notes:         payload.Notes,
	}
	if !date.IsZero() {
		req.Date = &date
	}

	tx, err := a.service.RecordTransaction(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": tx})
}

func (a *API) handleListTransactions(c *gin.Context) {
	var kind *domain.Kind
	if raw := strings.TrimSpace(c.Query("kind")); raw != "" {
		parsed, err := parseKind(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		kind = &parsed
	}
	r, _, err := queryRange(c)
	if err != nil {
		writeError(c, err)
		return
	}

	entries, err := a.service.SearchTransactions(c.Request.Context(), kind, r, c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": entries})
}

func (a *API) analyticsRange(c *gin.Context) (*domain.DateRange, bool) {
	r, present, err := queryRange(c)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if !present {
		return nil, true
	}
	return &r, true
}

func (a *API) handleAnalytics(c *gin.Context) {
	r, ok := a.analyticsRange(c)
	if !ok {
		return
	}

	result, err := a.service.Analytics(c.Request.Context(), r)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *API) handleExport(c *gin.Context) {
	r, ok := a.analyticsRange(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	result, err := a.service.Analytics(ctx, r)
	if err != nil {
		writeError(c, err)
		return
	}
	entries, err := a.service.ListTransactions(ctx, nil, result.Range)
	if err != nil {
		writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, result, entries); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(result.Range)))
	c.Data(http.StatusOK, report.ContentType, buf.Bytes())
}

func (a *API) handleGetDateRange(c *gin.Context) {
	r, err := a.service.DateRange(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"range": r})
}

type dateRangePayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (a *API) handleSaveDateRange(c *gin.Context) {
	var payload dateRangePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err)
		return
	}
	from, err := domain.ParseDate(payload.From, false)
	if err != nil {
		writeError(c, err)
		return
	}
	to, err := domain.ParseDate(payload.To, true)
	if err != nil {
		writeError(c, err)
		return
	}

	saved, err := a.service.SaveDateRange(c.Request.Context(), domain.DateRange{From: from, To: to})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"range": saved})
}

func (a *API) handleAsk(c *gin.Context) {
	var req domain.AssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	reply, err := a.service.Ask(c.Request.Context(), req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}
