package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-concert-checkin/internal/application"
	"github.com/sanosuguru/go-concert-checkin/internal/pkg/auth"
	"github.com/sanosuguru/go-concert-checkin/internal/pkg/logger"
)

// AdminHandler は管理者向けのハンドラー
// ログイン以外は AdminAuth ミドルウェアの内側に登録すること
type AdminHandler struct {
	concertService ConcertServiceInterface
	ticketService  TicketServiceInterface
	authenticator  AuthenticatorInterface
}

func NewAdminHandler(concertService ConcertServiceInterface, ticketService TicketServiceInterface, authenticator AuthenticatorInterface) *AdminHandler {
	return &AdminHandler{
		concertService: concertService,
		ticketService:  ticketService,
		authenticator:  authenticator,
	}
}

type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at" example:"2025-05-01T22:00:00Z"`
}

type CreateConcertRequest struct {
	Name  string `json:"name" validate:"required,notblank,max=200" example:"Aurora"`
	Venue string `json:"venue" validate:"required,notblank,max=200" example:"Hall A"`
	Date  string `json:"date" validate:"required,notblank,max=100" example:"2025-05-01"`
}

type TicketSummaryResponse struct {
	HolderName string `json:"holder_name" example:"Alice"`
	Code       string `json:"code" example:"3f2b8c1e-9d4a-4e7b-8f1a-2c3d4e5f6a7b"`
	ConcertID  string `json:"concert_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	CheckedIn  bool   `json:"checked_in" example:"true"`
}

type AttendanceResponse struct {
	ConcertID    string `json:"concert_id"`
	ConcertName  string `json:"concert_name"`
	Sold         int    `json:"sold"`
	CheckedIn    int    `json:"checked_in"`
	NotCheckedIn int    `json:"not_checked_in"`
}

// Login godoc
// @Summary 管理者ログイン
// @Description 管理者パスワードを確認し、管理者APIで使うトークンを発行します
// @Tags admin
// @Accept json
// @Produce json
// @Param request body LoginRequest true "パスワード"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} api.ErrorResponse
// @Router /admin/login [post]
func (h *AdminHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	token, exp, err := h.authenticator.Login(req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		logger.Warn("管理者ログインに失敗", zap.String("remote_ip", c.RealIP()))
		return echo.NewHTTPError(http.StatusUnauthorized, "パスワードが正しくありません")
	case errors.Is(err, auth.ErrAdminDisabled):
		return echo.NewHTTPError(http.StatusForbidden, "管理者ログインは設定されていません")
	case err != nil:
		return err
	}

	logger.Info("管理者がログインしました", zap.String("remote_ip", c.RealIP()))
	return c.JSON(http.StatusOK, LoginResponse{Token: token, ExpiresAt: exp.Format(time.RFC3339)})
}

// CreateConcert godoc
// @Summary コンサートを登録
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateConcertRequest true "コンサート情報"
// @Success 201 {object} ConcertResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 401 {object} api.ErrorResponse
// @Router /admin/concerts [post]
func (h *AdminHandler) CreateConcert(c echo.Context) error {
	var req CreateConcertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	con, err := h.concertService.CreateConcert(c.Request().Context(), application.CreateConcertInput{
		Name:  req.Name,
		Venue: req.Venue,
		Date:  req.Date,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toConcertResponse(con))
}

// ListTickets godoc
// @Summary 販売済みチケット一覧
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} TicketSummaryResponse
// @Failure 401 {object} api.ErrorResponse
// @Router /admin/tickets [get]
func (h *AdminHandler) ListTickets(c echo.Context) error {
	summaries, err := h.ticketService.ListSoldTickets(c.Request().Context())
	if err != nil {
		return err
	}

	responses := make([]TicketSummaryResponse, len(summaries))
	for i, s := range summaries {
		responses[i] = TicketSummaryResponse{
			HolderName: s.HolderName,
			Code:       s.Code,
			ConcertID:  s.ConcertID,
			CheckedIn:  s.CheckedIn,
		}
	}
	return c.JSON(http.StatusOK, responses)
}

// Attendance godoc
// @Summary コンサートの入場状況
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "コンサートID"
// @Success 200 {object} AttendanceResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /admin/concerts/{id}/attendance [get]
func (h *AdminHandler) Attendance(c echo.Context) error {
	a, err := h.ticketService.GetAttendance(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AttendanceResponse{
		ConcertID:    a.ConcertID,
		ConcertName:  a.ConcertName,
		Sold:         a.Sold,
		CheckedIn:    a.CheckedIn,
		NotCheckedIn: a.Sold - a.CheckedIn,
	})
}
