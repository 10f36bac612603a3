package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"scrap/internal/domain"
	"scrap/internal/middleware"
	"scrap/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Kind   string              `json:"kind,omitempty"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	kind := domain.KindOf(err)

	resp := ErrorResponse{Error: err.Error(), Kind: string(kind)}
	if kind == domain.KindInternal {
		log.Printf("[HTTP] %s %s: %v", c.Request.Method, c.FullPath(), err)
		resp.Error = "internal server error"
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}

	c.JSON(code, resp)
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// respondBadRequest reports a malformed request body or query.
func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Kind: string(domain.KindValidation)})
}

// mapErrorToHTTPStatus maps domain error kinds to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// actor returns the authenticated caller, writing 401 when there is none.
func actor(c *gin.Context) (domain.Actor, bool) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required", Kind: "UNAUTHORIZED"})
	}
	return a, ok
}

// page parses the page and limit query parameters.
func page(c *gin.Context) (service.Page, bool) {
	number, err := queryInt(c, "page")
	if err != nil {
		respondBadRequest(c, "page must be an integer")
		return service.Page{}, false
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondBadRequest(c, "limit must be an integer")
		return service.Page{}, false
	}

	p, err := service.NewPage(number, limit)
	if err != nil {
		respondError(c, err)
		return service.Page{}, false
	}
	return p, true
}

func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
