package handler

import (
	"net/http"

	"titlehub/internal/api/middleware"
	"titlehub/internal/api/repository"
	"titlehub/internal/api/service"
	"titlehub/internal/api/validation"
	"titlehub/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Handlers bundles the handler set the router mounts under /api/v1.
type Handlers struct {
	Auth     *AuthHandler
	User     *UserHandler
	Category *CategoryHandler
	Genre    *GenreHandler
	Title    *TitleHandler
	Review   *ReviewHandler
	Comment  *CommentHandler
}

// NewRouter builds the gin engine: logging and recovery, identity resolution
// on every request, rate limiting on the auth endpoints, and all resource
// routes under /api/v1.
func NewRouter(cfg *config.Config, handlers Handlers, authService service.AuthService, userRepo repository.UserRepository) *gin.Engine {
	RegisterSlugValidator()

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.GET("/check-conn", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API is alive"})
	})

	api := r.Group("/api/v1")
	api.Use(middleware.Identify(authService, userRepo))

	auth := api.Group("")
	auth.Use(middleware.RateLimit(cfg.AuthRatePerSecond, cfg.AuthRateBurst))
	handlers.Auth.RegisterRoutes(auth)

	handlers.User.RegisterRoutes(api)
	handlers.Category.RegisterRoutes(api)
	handlers.Genre.RegisterRoutes(api)
	handlers.Title.RegisterRoutes(api)

	titles := api.Group("/titles")
	handlers.Review.RegisterRoutes(titles)
	handlers.Comment.RegisterRoutes(titles)

	return r
}

// RegisterSlugValidator adds the "slug" binding tag used by the category and
// genre DTOs. Safe to call more than once.
func RegisterSlugValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return validation.IsSlug(fl.Field().String())
		})
	}
}
