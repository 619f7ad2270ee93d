package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"sympep-tracker/internal/auth"
	"sympep-tracker/internal/models"
	"sympep-tracker/internal/services"

	"github.com/gin-gonic/gin"
)

type ProposalHandler struct {
	proposals   *services.ProposalService
	numbering   *services.NumberingService
	status      *services.StatusService
	discussions *services.DiscussionService
}

func NewProposalHandler(
	proposals *services.ProposalService,
	numbering *services.NumberingService,
	status *services.StatusService,
	discussions *services.DiscussionService,
) *ProposalHandler {
	return &ProposalHandler{
		proposals:   proposals,
		numbering:   numbering,
		status:      status,
		discussions: discussions,
	}
}

// RegisterRoutes mounts the proposal endpoints on an authenticated group
func (h *ProposalHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/proposals", h.CreateProposal)
	api.POST("/proposals/import", h.ImportProposal)
	api.GET("/proposals", h.ListProposals)
	api.GET("/proposals/:ref", h.GetProposal)
	api.GET("/proposals/:ref/history", h.GetHistory)
	api.GET("/proposals/:ref/discussions", h.ListDiscussions)
	api.POST("/proposals/:ref/discussions", h.AppendDiscussion)

	// Editor decisions
	api.PUT("/proposals/:ref/resolution", auth.EditorOnly(), h.SetResolution)
	api.POST("/proposals/:ref/assign", auth.EditorOnly(), h.AssignNumber)
	api.POST("/proposals/:ref/transitions", auth.EditorOnly(), h.Transition)
	api.POST("/proposals/:ref/supersede", auth.EditorOnly(), h.Supersede)
}

// CreateProposal creates a new Draft proposal
// POST /api/proposals
func (h *ProposalHandler) CreateProposal(c *gin.Context) {
	var req models.CreateProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proposal, err := h.proposals.CreateFromRequest(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, proposal)
}

// ImportProposal creates a Draft proposal from a markdown template
// POST /api/proposals/import
func (h *ProposalHandler) ImportProposal(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxDocumentSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	handle, _ := auth.GetHandle(c)
	proposal, err := h.proposals.Import(c.Request.Context(), body, handle)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, proposal)
}

// ListProposals retrieves proposals with optional status and type filters
// GET /api/proposals
func (h *ProposalHandler) ListProposals(c *gin.Context) {
	var filter models.ProposalFilter

	if s := c.Query("status"); s != "" {
		status := models.ProposalStatus(s)
		if !status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
			return
		}
		filter.Status = status
	}
	if t := c.Query("type"); t != "" {
		proposalType, ok := models.ParseProposalType(t)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown type"})
			return
		}
		filter.Type = proposalType
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			filter.Limit = l
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			filter.Offset = o
		}
	}

	proposals, total, err := h.proposals.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"proposals": proposals,
		"total":     total,
	})
}

// GetProposal retrieves a proposal by number or draft handle
// GET /api/proposals/:ref
func (h *ProposalHandler) GetProposal(c *gin.Context) {
	proposal, err := h.proposals.Get(c.Request.Context(), c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// SetResolution records the resolution link
// PUT /api/proposals/:ref/resolution
func (h *ProposalHandler) SetResolution(c *gin.Context) {
	var req models.ResolutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proposal, err := h.proposals.SetResolution(c.Request.Context(), c.Param("ref"), req.Resolution)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// AssignNumber records the editor's legitimization decision and numbers the proposal
// POST /api/proposals/:ref/assign
func (h *ProposalHandler) AssignNumber(c *gin.Context) {
	var req models.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	editor, _ := auth.GetHandle(c)
	decision := models.Decision{
		Attribution: models.Attribution{Actor: editor, Note: req.Note},
		Approved:    req.Approved,
	}

	number, err := h.numbering.Assign(c.Request.Context(), c.Param("ref"), decision)
	if err != nil {
		respondError(c, err)
		return
	}

	proposal, err := h.proposals.Get(c.Request.Context(), strconv.FormatInt(number, 10))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// Transition moves a proposal to a new status
// POST /api/proposals/:ref/transitions
func (h *ProposalHandler) Transition(c *gin.Context) {
	var req models.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Unknown targets are refused by the state machine like any illegal move
	target := models.ProposalStatus(req.Status)
	proposal, err := h.status.Transition(c.Request.Context(), c.Param("ref"), target, attribution(c, req.Note))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// Supersede marks a proposal as replaced by another numbered proposal
// POST /api/proposals/:ref/supersede
func (h *ProposalHandler) Supersede(c *gin.Context) {
	var req models.SupersedeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proposal, err := h.status.Supersede(c.Request.Context(), c.Param("ref"), req.By, attribution(c, req.Note))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

// GetHistory retrieves the status history of a proposal
// GET /api/proposals/:ref/history
func (h *ProposalHandler) GetHistory(c *gin.Context) {
	history, err := h.status.History(c.Request.Context(), c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": history})
}

// AppendDiscussion links a discussion thread to a proposal
// POST /api/proposals/:ref/discussions
func (h *ProposalHandler) AppendDiscussion(c *gin.Context) {
	var req models.DiscussionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	handle, _ := auth.GetHandle(c)
	discussion, err := h.discussions.Append(c.Request.Context(), c.Param("ref"), req.Link, handle)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, discussion)
}

// ListDiscussions retrieves the discussion links of a proposal
// GET /api/proposals/:ref/discussions
func (h *ProposalHandler) ListDiscussions(c *gin.Context) {
	discussions, err := h.discussions.List(c.Request.Context(), c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"discussions": discussions})
}

func attribution(c *gin.Context, note string) models.Attribution {
	handle, _ := auth.GetHandle(c)
	return models.Attribution{Actor: handle, Note: note}
}

// respondError maps service errors onto HTTP status codes
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyAssigned),
		errors.Is(err, services.ErrIllegalTransition),
		errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, services.ErrMissingResolution):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		log.Printf("[ProposalHandler] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
