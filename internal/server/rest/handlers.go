// Package rest exposes the filevault HTTP API: signup and login for the two
// roles, uploads for operations staff, and the issue/redeem pair for
// single-use download links.
package rest

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/apetrenko/filevault/internal/common"
	"github.com/apetrenko/filevault/internal/logging"
	"github.com/apetrenko/filevault/internal/server/models"
	"github.com/apetrenko/filevault/internal/server/services"
)

// Handlers carries the services the HTTP endpoints delegate to.
type Handlers struct {
	users         *services.UserService
	files         *services.FileService
	capabilities  *services.CapabilityService
	logger        logging.Logger
	publicBaseURL string
}

func NewHandlers(users *services.UserService, files *services.FileService, capabilities *services.CapabilityService, logger logging.Logger, publicBaseURL string) *Handlers {
	return &Handlers{
		users:         users,
		files:         files,
		capabilities:  capabilities,
		logger:        logger.With("module", "rest"),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type fileResponse struct {
	ID           int64  `json:"id"`
	OriginalName string `json:"original_name"`
	Size         int64  `json:"size"`
	ContentType  string `json:"content_type"`
	UploadedAt   string `json:"uploaded_at"`
}

func toFileResponse(f *models.File) fileResponse {
	return fileResponse{
		ID:           f.ID,
		OriginalName: f.OriginalName,
		Size:         f.Size,
		ContentType:  f.ContentType,
		UploadedAt:   f.UploadedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Signup registers a client account and triggers the verification mail.
func (h *Handlers) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signup payload"})
		return
	}

	user, err := h.users.Signup(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"message":  "verification email sent",
	})
}

// VerifyEmail redeems the token from the verification mail link.
func (h *Handlers) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	if err := h.users.VerifyEmail(c.Request.Context(), token); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email verified"})
}

// ClientLogin authenticates a verified client and returns a session token.
func (h *Handlers) ClientLogin(c *gin.Context) {
	h.login(c, models.RoleClient)
}

// OpsLogin authenticates an operations user and returns a session token.
func (h *Handlers) OpsLogin(c *gin.Context) {
	h.login(c, models.RoleOps)
}

func (h *Handlers) login(c *gin.Context, role string) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid login payload"})
		return
	}

	token, err := h.users.Login(c.Request.Context(), req.Username, req.Password, role)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// Upload receives a multipart document from operations staff and stores it.
func (h *Handlers) Upload(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer f.Close()

	file, err := h.files.Upload(c.Request.Context(), header.Filename, header.Size, f, user.ID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	h.logger.Info(c.Request.Context(), "file uploaded", "file_id", file.ID, "name", file.OriginalName, "user_id", user.ID)
	c.JSON(http.StatusCreated, toFileResponse(file))
}

// ListFiles returns the catalogue visible to clients, newest first.
func (h *Handlers) ListFiles(c *gin.Context) {
	files, err := h.files.List(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}

	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	c.JSON(http.StatusOK, gin.H{"files": out})
}

// IssueDownloadLink mints a single-use download link for the requested file,
// bound to the requesting client.
func (h *Handlers) IssueDownloadLink(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	fileID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	envelope, err := h.capabilities.IssueGrant(c.Request.Context(), fileID, user.ID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"download_link": fmt.Sprintf("%s/download-file/%s", h.publicBaseURL, url.PathEscape(envelope)),
	})
}

// Download redeems a download link and streams the file content. The
// envelope in the path is the whole credential; no session is required. The
// precise rejection cause is logged but not exposed: whether a link is
// unknown, tampered with or already used, the client sees the same answer.
// Only expiry is reported distinctly.
func (h *Handlers) Download(c *gin.Context) {
	envelope := c.Param("envelope")

	file, err := h.capabilities.Redeem(c.Request.Context(), envelope)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrGrantExpired):
			c.JSON(http.StatusGone, gin.H{"error": "download link expired"})
		case errors.Is(err, common.ErrMalformedEnvelope),
			errors.Is(err, common.ErrGrantNotFound),
			errors.Is(err, common.ErrGrantAlreadyUsed):
			h.logger.Info(c.Request.Context(), "download link rejected", "cause", err.Error())
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid or already used download link"})
		default:
			h.renderError(c, err)
		}
		return
	}

	rc, err := h.files.OpenContent(c.Request.Context(), file)
	if err != nil {
		h.renderError(c, err)
		return
	}
	defer rc.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": file.OriginalName})
	c.DataFromReader(http.StatusOK, file.Size, file.ContentType, rc, map[string]string{
		"Content-Disposition": disposition,
	})
}

// renderError maps service sentinels to HTTP statuses. Unexpected errors are
// logged with their cause and answered with a generic 500.
func (h *Handlers) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrorEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	case errors.Is(err, common.ErrorUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
	case errors.Is(err, common.ErrorUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
	case errors.Is(err, common.ErrorForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
	case errors.Is(err, common.ErrorNotVerified):
		c.JSON(http.StatusForbidden, gin.H{"error": "email not verified"})
	case errors.Is(err, common.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid verification token"})
	case errors.Is(err, common.ErrorFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
	case errors.Is(err, common.ErrorUnsupportedFileType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{
			"error": "unsupported file type, allowed: " + strings.Join(h.files.AllowedExtensions(), ", "),
		})
	case errors.Is(err, common.ErrorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		h.logger.Error(c.Request.Context(), "request failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
