package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/keyadjusting/contractor-portal/internal/claims"
	"github.com/keyadjusting/contractor-portal/internal/clickup"
	apierrors "github.com/keyadjusting/contractor-portal/internal/errors"
	"github.com/keyadjusting/contractor-portal/internal/middleware"
)

// ClaimHandler serves claim data fetched from the upstream system. Handlers
// here are thin pass-throughs: fetch, normalize, respond.
type ClaimHandler struct {
	client clickup.ClaimsClient
}

// NewClaimHandler creates a new ClaimHandler.
func NewClaimHandler(client clickup.ClaimsClient) *ClaimHandler {
	return &ClaimHandler{client: client}
}

// GetClaim fetches one claim and returns its normalized snapshot. Snapshots
// are recomputed on every request, never cached.
func (h *ClaimHandler) GetClaim(c *gin.Context) {
	claimID := c.Param("id")

	task, err := h.client.GetTask(c.Request.Context(), claimID)
	if err != nil {
		if errors.Is(err, clickup.ErrNotFound) {
			apierrors.NotFound(c, "Claim not found")
			return
		}
		log.Printf("Failed to fetch claim %s: %v", claimID, err)
		apierrors.InternalError(c, "Error loading claim details")
		return
	}

	comments, err := h.client.GetTaskComments(c.Request.Context(), claimID)
	if err != nil {
		log.Printf("Failed to fetch comments for claim %s: %v", claimID, err)
		comments = nil
	}

	snapshot := claims.BuildSnapshot(task, comments)
	c.JSON(http.StatusOK, snapshot)
}

// ListClaims returns the claim summaries linked to the authenticated
// contractor.
func (h *ClaimHandler) ListClaims(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}
	if identity.ContractorID == "" {
		apierrors.BadRequest(c, "No contractor associated with this account")
		return
	}

	summaries, err := h.client.GetContractorClaims(c.Request.Context(), identity.ContractorID)
	if err != nil {
		log.Printf("Failed to fetch claims for contractor %s: %v", identity.ContractorID, err)
		apierrors.InternalError(c, "Error loading claims")
		return
	}

	c.JSON(http.StatusOK, gin.H{"claims": summaries})
}

// UploadDocument forwards an uploaded file to the claim's attachments.
func (h *ClaimHandler) UploadDocument(c *gin.Context) {
	claimID := c.Param("id")

	file, err := c.FormFile("document")
	if err != nil {
		apierrors.BadRequest(c, "No document provided")
		return
	}

	src, err := file.Open()
	if err != nil {
		log.Printf("Failed to open upload for claim %s: %v", claimID, err)
		apierrors.InternalError(c, "Error reading uploaded document")
		return
	}
	defer src.Close()

	if err := h.client.UploadDocument(c.Request.Context(), claimID, file.Filename, src); err != nil {
		log.Printf("Failed to upload document to claim %s: %v", claimID, err)
		apierrors.InternalError(c, "Unable to upload document")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Document uploaded"})
}
