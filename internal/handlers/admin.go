package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/keyadjusting/contractor-portal/internal/dto"
	apierrors "github.com/keyadjusting/contractor-portal/internal/errors"
	"github.com/keyadjusting/contractor-portal/internal/models"
	"github.com/keyadjusting/contractor-portal/internal/repository"
	"github.com/keyadjusting/contractor-portal/internal/utils"
	"gorm.io/gorm"
)

// AdminHandler provides the user-administration surface. All routes are
// registered behind the admin resolver.
type AdminHandler struct {
	userRepo repository.UserRepository
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(userRepo repository.UserRepository) *AdminHandler {
	return &AdminHandler{userRepo: userRepo}
}

// ListUsers returns a paginated user listing, optionally filtered by status
// or role.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := repository.UserFilter{
		Page:     params.Page,
		PageSize: params.Limit,
	}
	if status := c.Query("status"); status != "" {
		s := models.AccountStatus(status)
		filter.Status = &s
	}
	if role := c.Query("role"); role != "" {
		r := models.Role(role)
		filter.Role = &r
	}

	users, total, err := h.userRepo.List(filter)
	if err != nil {
		log.Printf("Failed to list users: %v", err)
		apierrors.InternalError(c, "Error listing users")
		return
	}

	out := make([]dto.UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, dto.ToUserDTO(u))
	}

	c.JSON(http.StatusOK, dto.UserListResponse{
		Users:    out,
		Page:     params.Page,
		PageSize: params.Limit,
		Total:    total,
	})
}

// UpdateUser changes a user's account status or role.
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	type UpdateRequest struct {
		Status  *models.AccountStatus `json:"status"`
		Role    *models.Role          `json:"role"`
		IsAdmin *bool                 `json:"is_admin"`
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apierrors.NotFound(c, "User not found")
			return
		}
		log.Printf("Failed to load user %d: %v", userID, err)
		apierrors.InternalError(c, "Error loading user")
		return
	}

	if req.Status != nil {
		user.Status = *req.Status
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.IsAdmin != nil {
		user.IsAdmin = *req.IsAdmin
	}

	if err := h.userRepo.Update(user); err != nil {
		log.Printf("Failed to update user %d: %v", userID, err)
		apierrors.InternalError(c, "Error updating user")
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// DeleteUser removes a user account; refresh tokens and history cascade.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	if err := h.userRepo.Delete(userID); err != nil {
		log.Printf("Failed to delete user %d: %v", userID, err)
		apierrors.InternalError(c, "Error deleting user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}
