package handler

import (
	"net/http"

	"titlehub/internal/api/dto"
	"titlehub/internal/api/middleware"
	"titlehub/internal/api/models"
	"titlehub/internal/api/permissions"
	"titlehub/internal/api/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRoutes registers the user management routes. "me" is a reserved
// username resolving to the authenticated actor; the router treats it as a
// regular :username segment and the handlers branch on it, which is why the
// name can never be registered.
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("",
			middleware.RequirePermission(permissions.ActionList, permissions.ResourceUser), h.List)
		users.POST("",
			middleware.RequirePermission(permissions.ActionCreate, permissions.ResourceUser), h.Create)
		users.GET("/:username", h.Get)
		users.PATCH("/:username", h.Update)
		users.DELETE("/:username", h.Delete)
	}
}

// allow resolves the target user and whether the request is the self path,
// applying the policy for either case. It writes the error response itself
// when the request is denied.
func (h *UserHandler) allow(c *gin.Context, act permissions.Action) (actor *models.User, self bool, ok bool) {
	actor = middleware.CurrentUser(c)
	if c.Param("username") == "me" {
		if !permissions.Decide(actor, act, permissions.ResourceSelf, "") {
			c.JSON(http.StatusForbidden, gin.H{"error": "authentication required"})
			return nil, true, false
		}
		return actor, true, true
	}
	if !permissions.Decide(actor, act, permissions.ResourceUser, "") {
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
		return nil, false, false
	}
	return actor, false, true
}

// List retrieves users with optional username search
// GET /api/v1/users?search=&page=1&page_size=20
func (h *UserHandler) List(c *gin.Context) {
	page, pageSize := parsePagination(c)

	users, total, err := h.userService.List(c.Request.Context(), c.Query("search"), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *dto.FromModelToUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, dto.NewPaginated(responses, int(total), page, pageSize))
}

// Create registers a user on behalf of an administrator
// POST /api/v1/users
func (h *UserHandler) Create(c *gin.Context) {
	var req dto.CreateUserDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	user, err := h.userService.Create(c.Request.Context(), service.UserInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		Role:      models.Role(req.Role),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromModelToUserResponse(user))
}

// Get retrieves a user profile; GET /users/me returns the actor's own
// GET /api/v1/users/:username
func (h *UserHandler) Get(c *gin.Context) {
	actor, self, ok := h.allow(c, permissions.ActionRetrieve)
	if !ok {
		return
	}
	if self {
		c.JSON(http.StatusOK, dto.FromModelToUserResponse(actor))
		return
	}

	user, err := h.userService.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToUserResponse(user))
}

// Update patches a user profile. On the self path the role field is ignored
// no matter what the payload says.
// PATCH /api/v1/users/:username
func (h *UserHandler) Update(c *gin.Context) {
	actor, self, ok := h.allow(c, permissions.ActionUpdate)
	if !ok {
		return
	}

	if self {
		var req dto.UpdateMeDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindingError(c, err)
			return
		}
		user, err := h.userService.UpdateMe(c.Request.Context(), actor, service.UserUpdate{
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Bio:       req.Bio,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.FromModelToUserResponse(user))
		return
	}

	var req dto.UpdateUserDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	var role *models.Role
	if req.Role != nil {
		r := models.Role(*req.Role)
		role = &r
	}
	user, err := h.userService.UpdateByUsername(c.Request.Context(), c.Param("username"), service.UserUpdate{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		Role:      role,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToUserResponse(user))
}

// Delete removes a user; the self path is not deletable through "me"
// DELETE /api/v1/users/:username
func (h *UserHandler) Delete(c *gin.Context) {
	_, self, ok := h.allow(c, permissions.ActionDelete)
	if !ok {
		return
	}
	if self {
		c.JSON(http.StatusBadRequest, gin.H{"error": `"me" cannot be deleted`})
		return
	}

	if err := h.userService.DeleteByUsername(c.Request.Context(), c.Param("username")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
