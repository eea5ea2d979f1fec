package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-concert-checkin/internal/application"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/ticket"
)

type TicketHandler struct {
	ticketService TicketServiceInterface
}

func NewTicketHandler(ticketService TicketServiceInterface) *TicketHandler {
	return &TicketHandler{ticketService: ticketService}
}

type PurchaseTicketRequest struct {
	HolderName string `json:"holder_name" validate:"required,notblank,max=200" example:"Alice"`
}

type TicketResponse struct {
	Code        string  `json:"code" example:"3f2b8c1e-9d4a-4e7b-8f1a-2c3d4e5f6a7b"`
	HolderName  string  `json:"holder_name" example:"Alice"`
	ConcertID   string  `json:"concert_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Status      string  `json:"status" example:"issued"`
	CheckedIn   bool    `json:"checked_in" example:"false"`
	CheckedInAt *string `json:"checked_in_at,omitempty" example:"2025-05-01T18:30:00Z"`
}

type CheckInResponse struct {
	Result   string `json:"result" example:"admitted"`
	Admitted bool   `json:"admitted" example:"true"`
	Message  string `json:"message" example:"入場できます"`
}

func toTicketResponse(t *ticket.Ticket) *TicketResponse {
	return &TicketResponse{
		Code:        t.Code,
		HolderName:  t.HolderName,
		ConcertID:   t.ConcertID,
		Status:      string(t.Status()),
		CheckedIn:   t.CheckedIn,
		CheckedInAt: formatTime(t.CheckedInAt),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// Purchase godoc
// @Summary チケットを購入
// @Description 指定コンサートのチケットを発行し、入場コードを返します
// @Tags tickets
// @Accept json
// @Produce json
// @Param id path string true "コンサートID"
// @Param request body PurchaseTicketRequest true "購入者情報"
// @Success 201 {object} TicketResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 503 {object} api.ErrorResponse
// @Router /concerts/{id}/tickets [post]
func (h *TicketHandler) Purchase(c echo.Context) error {
	var req PurchaseTicketRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	t, err := h.ticketService.PurchaseTicket(c.Request().Context(), application.PurchaseTicketInput{
		ConcertID:  c.Param("id"),
		HolderName: req.HolderName,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toTicketResponse(t))
}

// GetStatus godoc
// @Summary チケットの状態を取得
// @Description 入場コードからチケットの状態を取得します（状態は変更しません）
// @Tags tickets
// @Produce json
// @Param code path string true "入場コード"
// @Success 200 {object} TicketResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /tickets/{code} [get]
func (h *TicketHandler) GetStatus(c echo.Context) error {
	view, err := h.ticketService.GetTicketStatus(c.Request().Context(), c.Param("code"))
	if err != nil {
		return err
	}
	status := ticket.StatusIssued
	if view.CheckedIn {
		status = ticket.StatusCheckedIn
	}
	return c.JSON(http.StatusOK, &TicketResponse{
		Code:        view.Code,
		HolderName:  view.HolderName,
		ConcertID:   view.ConcertID,
		Status:      string(status),
		CheckedIn:   view.CheckedIn,
		CheckedInAt: formatTime(view.CheckedInAt),
	})
}

// CheckIn godoc
// @Summary 入場チェック
// @Description 入場コードを確認し、未使用なら入場済みにします。入場済みと存在しないコードは区別して返します
// @Tags tickets
// @Produce json
// @Param code path string true "入場コード"
// @Success 200 {object} CheckInResponse
// @Failure 404 {object} CheckInResponse
// @Failure 409 {object} CheckInResponse
// @Failure 503 {object} api.ErrorResponse
// @Router /tickets/{code}/check-in [post]
func (h *TicketHandler) CheckIn(c echo.Context) error {
	outcome, err := h.ticketService.CheckIn(c.Request().Context(), c.Param("code"))
	if err != nil {
		return err
	}

	switch outcome {
	case application.CheckInAdmitted:
		return c.JSON(http.StatusOK, CheckInResponse{Result: string(outcome), Admitted: true, Message: "入場できます"})
	case application.CheckInAlreadyUsed:
		return c.JSON(http.StatusConflict, CheckInResponse{Result: string(outcome), Message: "このチケットは入場済みです"})
	case application.CheckInNotFound:
		return c.JSON(http.StatusNotFound, CheckInResponse{Result: string(outcome), Message: "チケットが見つかりません"})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
}
