package handler

import (
	"net/http"
	"strconv"

	"carparts-storefront/internal/apperr"
	"carparts-storefront/internal/dto"
	"carparts-storefront/internal/query"

	"github.com/labstack/echo/v4"
)

type okResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

func ok(c echo.Context, code int, data interface{}) error {
	return c.JSON(code, okResponse{Status: "ok", Data: data})
}

func page[T any](c echo.Context, p *query.Page[T]) error {
	return c.JSON(http.StatusOK, dto.PageResponse{
		Status:     "ok",
		Page:       p.Page,
		PerPage:    p.PageSize,
		Total:      p.Total,
		TotalPages: p.TotalPages,
		Data:       p.Items,
	})
}

// bind decodes the request body, reporting malformed JSON as a validation error.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperr.Validation("Invalid JSON body")
	}
	return nil
}

// idParam parses :id, returning 0 when it is not a positive integer.
func idParam(c echo.Context) int64 {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

func listParams(c echo.Context) query.Params {
	return query.ParseParams(c.QueryParams())
}
