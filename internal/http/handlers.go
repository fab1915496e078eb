package http

import (
	"io"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/storage"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/vfs"
	"github.com/GriffinCanCode/AgentOS/deskfs/internal/vfs/paste"
)

// MaxUploadSize bounds dropped files and mount images sent in a request
const MaxUploadSize = 256 << 20

// Handlers contains all HTTP handlers
type Handlers struct {
	fs      *vfs.Manager
	metrics *monitoring.Metrics
	logger  *zap.Logger
	started time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(fs *vfs.Manager, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		fs:      fs,
		metrics: metrics,
		logger:  logger,
		started: time.Now(),
	}
}

// Register mounts every route on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/health", h.Health)

	fs := r.Group("/fs")
	fs.GET("/stat", h.Stat)
	fs.GET("/list", h.List)
	fs.GET("/read", h.Read)
	fs.POST("/create", h.Create)
	fs.POST("/move", h.Move)
	fs.POST("/mkdir", h.Mkdir)
	fs.POST("/mount", h.Mount)
	fs.DELETE("/mount", h.Unmount)
	fs.GET("/mounts", h.Mounts)
	fs.POST("/paste", h.SetPaste)
	fs.GET("/paste", h.GetPaste)
	fs.POST("/drop", h.Drop)
	fs.POST("/reset", h.Reset)
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"uptime":  time.Since(h.started).Round(time.Second).String(),
		"mounts":  len(h.fs.Mounts()),
		"watched": len(h.fs.WatchedFolders()),
		"metrics": h.metrics.Snapshot(),
	}
	if status, ok := h.fs.SourceStatus(); ok {
		resp["source"] = status
	}
	c.JSON(http.StatusOK, resp)
}

// Stat describes one entry without reading its contents. Content types
// are sniffed by Read.
func (h *Handlers) Stat(c *gin.Context) {
	path, ok := h.pathQuery(c)
	if !ok {
		return
	}

	entry, err := h.fs.Store().Stat(c.Request.Context(), path)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// List returns the children of a directory
func (h *Handlers) List(c *gin.Context) {
	path, ok := h.pathQuery(c)
	if !ok {
		return
	}

	entries, err := h.fs.Store().ReadDir(c.Request.Context(), path)
	if err != nil {
		h.fail(c, err)
		return
	}
	if entries == nil {
		entries = []storage.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "entries": entries})
}

// Read streams a file with its sniffed content type
func (h *Handlers) Read(c *gin.Context) {
	path, ok := h.pathQuery(c)
	if !ok {
		return
	}

	data, err := h.fs.Store().ReadFile(c.Request.Context(), path)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}

type createRequest struct {
	Name      string `json:"name" binding:"required"`
	Directory string `json:"directory" binding:"required"`
	Folder    bool   `json:"folder"`
	Data      []byte `json:"data"`
}

// Create makes a file or folder under a collision-free name
func (h *Handlers) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var (
		name string
		err  error
	)
	if req.Folder {
		name, err = h.fs.CreateDirectory(ctx, req.Name, req.Directory)
	} else {
		name, err = h.fs.CreateFile(ctx, req.Name, req.Directory, req.Data)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"name": name,
		"path": paths.Join(req.Directory, name),
	})
}

type moveRequest struct {
	Source    string `json:"source" binding:"required"`
	Directory string `json:"directory" binding:"required"`
}

// Move relocates an entry under a collision-free name
func (h *Handlers) Move(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name, err := h.fs.Move(c.Request.Context(), req.Source, req.Directory)
	if err != nil {
		h.fail(c, err)
		return
	}
	if name == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "cannot move an entry into itself"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name": name,
		"path": paths.Join(req.Directory, name),
	})
}

type pathRequest struct {
	Path string `json:"path" binding:"required"`
}

// Mkdir creates a directory and any missing parents
func (h *Handlers) Mkdir(c *gin.Context) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.fs.MkdirRecursive(c.Request.Context(), req.Path); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"path": paths.Clean(req.Path)})
}

// Mount grafts the archive stored at path onto path
func (h *Handlers) Mount(c *gin.Context) {
	var req pathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.fs.Mount(c.Request.Context(), req.Path); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"path": paths.Clean(req.Path)})
}

// Unmount removes the mount at path; unmounting nothing succeeds
func (h *Handlers) Unmount(c *gin.Context) {
	path, ok := h.pathQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "unmounted": h.fs.Unmount(path)})
}

// Mounts lists mounted archives
func (h *Handlers) Mounts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"mounts": h.fs.Mounts()})
}

type pasteRequest struct {
	Paths []string   `json:"paths"`
	Kind  paste.Kind `json:"kind"`
}

// SetPaste replaces the clipboard intent
func (h *Handlers) SetPaste(c *gin.Context) {
	var req pasteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.fs.SetPasteIntent(req.Paths, req.Kind)
	c.JSON(http.StatusOK, gin.H{"intent": h.fs.PasteIntent()})
}

// GetPaste returns the clipboard intent
func (h *Handlers) GetPaste(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"intent": h.fs.PasteIntent()})
}

// Drop stores an uploaded file in the temp directory
func (h *Handlers) Drop(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	if header.Size > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := header.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxUploadSize))
	if err != nil {
		h.fail(c, err)
		return
	}

	path, err := h.fs.DropFile(c.Request.Context(), header.Filename, data)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"path":      path,
		"size":      len(data),
		"mime_type": mimetype.Detect(data).String(),
	})
}

// Reset wipes the writable layer and every mount
func (h *Handlers) Reset(c *gin.Context) {
	if err := h.fs.Reset(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (h *Handlers) pathQuery(c *gin.Context) (string, bool) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMissingPath.Error()})
		return "", false
	}
	return paths.Clean(path), true
}
