package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sciezka-prawa/sciezka-backend/internal/http/response"
	"github.com/sciezka-prawa/sciezka-backend/internal/services"
)

type BillHandler struct {
	bills services.BillService
}

func NewBillHandler(bills services.BillService) *BillHandler {
	return &BillHandler{bills: bills}
}

// GET /api/bills
func (h *BillHandler) ListBills(c *gin.Context) {
	q := services.BillQuery{
		Status:        c.Query("status"),
		Category:      c.Query("category"),
		SubmitterType: c.Query("submitter_type"),
		Tag:           c.Query("tag"),
		Ministry:      c.Query("ministry"),
		Query:         c.Query("q"),
		Sort:          c.Query("sort"),
	}
	var err error
	if q.Term, err = queryInt(c, "term", 0); err != nil {
		response.RespondAPIError(c, err, "invalid_term")
		return
	}
	if q.Page, err = queryInt(c, "page", 1); err != nil {
		response.RespondAPIError(c, err, "invalid_page")
		return
	}
	if q.PageSize, err = queryInt(c, "page_size", 0); err != nil {
		response.RespondAPIError(c, err, "invalid_page_size")
		return
	}
	page, err := h.bills.List(dbc(c), q)
	if err != nil {
		response.RespondAPIError(c, err, "list_bills_failed")
		return
	}
	response.RespondOK(c, page)
}

// GET /api/bills/stats
func (h *BillHandler) Stats(c *gin.Context) {
	stats, err := h.bills.Stats(dbc(c))
	if err != nil {
		response.RespondAPIError(c, err, "bill_stats_failed")
		return
	}
	response.RespondOK(c, stats)
}

// GET /api/bills/:id
func (h *BillHandler) GetBill(c *gin.Context) {
	id, err := uuidParam(c, "id", "invalid_bill_id")
	if err != nil {
		response.RespondAPIError(c, err, "invalid_bill_id")
		return
	}
	bill, err := h.bills.Get(dbc(c), id)
	if err != nil {
		response.RespondAPIError(c, err, "get_bill_failed")
		return
	}
	response.RespondOK(c, gin.H{"bill": bill})
}

// GET /api/bills/:id/events
func (h *BillHandler) ListEvents(c *gin.Context) {
	id, err := uuidParam(c, "id", "invalid_bill_id")
	if err != nil {
		response.RespondAPIError(c, err, "invalid_bill_id")
		return
	}
	events, err := h.bills.Events(dbc(c), id)
	if err != nil {
		response.RespondAPIError(c, err, "list_bill_events_failed")
		return
	}
	response.RespondOK(c, gin.H{"events": events})
}
