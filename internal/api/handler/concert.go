package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-concert-checkin/internal/domain/concert"
)

type ConcertHandler struct {
	concertService ConcertServiceInterface
}

func NewConcertHandler(concertService ConcertServiceInterface) *ConcertHandler {
	return &ConcertHandler{concertService: concertService}
}

type ConcertResponse struct {
	ID        string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name      string `json:"name" example:"Aurora"`
	Venue     string `json:"venue" example:"Hall A"`
	Date      string `json:"date" example:"2025-05-01"`
	CreatedAt string `json:"created_at" example:"2025-04-01T10:00:00Z"`
}

func toConcertResponse(c *concert.Concert) *ConcertResponse {
	return &ConcertResponse{
		ID:        c.ID,
		Name:      c.Name,
		Venue:     c.Venue,
		Date:      c.Date,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

// List godoc
// @Summary コンサート一覧を取得
// @Description 登録順にコンサートの一覧を取得します
// @Tags concerts
// @Produce json
// @Success 200 {array} ConcertResponse
// @Router /concerts [get]
func (h *ConcertHandler) List(c echo.Context) error {
	concerts, err := h.concertService.ListConcerts(c.Request().Context())
	if err != nil {
		return err
	}

	responses := make([]*ConcertResponse, len(concerts))
	for i, con := range concerts {
		responses[i] = toConcertResponse(con)
	}
	return c.JSON(http.StatusOK, responses)
}

// GetByID godoc
// @Summary コンサートを取得
// @Description 指定IDのコンサートを取得します
// @Tags concerts
// @Produce json
// @Param id path string true "コンサートID"
// @Success 200 {object} ConcertResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /concerts/{id} [get]
func (h *ConcertHandler) GetByID(c echo.Context) error {
	con, err := h.concertService.GetConcert(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toConcertResponse(con))
}
