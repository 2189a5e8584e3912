package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"titlehub/internal/api/service"
	"titlehub/internal/api/validation"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondError translates service errors to the HTTP contract: field
// violations and input conflicts are 400, policy denials 403, unknown
// references 404, everything else 500.
func respondError(c *gin.Context, err error) {
	var violations validation.Violations
	if errors.As(err, &violations) {
		c.JSON(http.StatusBadRequest, violations)
		return
	}

	switch {
	case errors.Is(err, service.ErrReviewExists),
		errors.Is(err, service.ErrSlugExists),
		errors.Is(err, service.ErrIdentityConflict),
		errors.Is(err, service.ErrNameInUse),
		errors.Is(err, service.ErrEmailInUse),
		errors.Is(err, service.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrTitleNotFound),
		errors.Is(err, service.ErrReviewNotFound),
		errors.Is(err, service.ErrCommentNotFound),
		errors.Is(err, service.ErrCategoryNotFound),
		errors.Is(err, service.ErrGenreNotFound),
		errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// respondBindingError renders gin binding failures as the same field-map
// shape the explicit validators produce.
func respondBindingError(c *gin.Context, err error) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		var v validation.Violations
		for _, fe := range fieldErrs {
			field := strings.ToLower(fe.Field())
			switch fe.Tag() {
			case "required":
				v.Add(field, field+" is required")
			case "email":
				v.Add(field, field+" must be a valid email address")
			case "slug":
				v.Add(field, field+" may only contain letters, digits, hyphens and underscores")
			case "max":
				v.Add(field, field+" must be at most "+fe.Param()+" characters")
			default:
				v.Add(field, field+" is invalid")
			}
		}
		c.JSON(http.StatusBadRequest, v)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func parsePagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
