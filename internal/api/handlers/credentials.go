package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/finexa/fxarb/internal/credentials"
	"github.com/finexa/fxarb/internal/services"
)

type CredentialsHandler struct {
	service *services.CredentialService
}

func NewCredentialsHandler(service *services.CredentialService) *CredentialsHandler {
	return &CredentialsHandler{service: service}
}

type createCredentialRequest struct {
	BrokerName string             `json:"broker_name" binding:"required"`
	Label      string             `json:"label"`
	Fields     credentials.Fields `json:"fields" binding:"required"`
}

func (h *CredentialsHandler) CreateCredential(c *gin.Context) {
	var req createCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid credential payload: "+err.Error())
		return
	}

	view, err := h.service.Create(c.Request.Context(), req.BrokerName, req.Label, req.Fields)
	if err != nil {
		if errors.Is(err, credentials.ErrNoKey) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		badRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *CredentialsHandler) ListCredentials(c *gin.Context) {
	views, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credentials": views, "count": len(views)})
}

func (h *CredentialsHandler) GetCredential(c *gin.Context) {
	view, err := h.service.Get(c.Request.Context(), c.Param("credentialID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CredentialsHandler) ValidateCredential(c *gin.Context) {
	result, err := h.service.Validate(c.Request.Context(), c.Param("credentialID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CredentialsHandler) DeleteCredential(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("credentialID")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
