package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	diploma "github.com/porticus-lab/go-diploma"
	"github.com/porticus-lab/go-diploma/config"
	"github.com/porticus-lab/go-diploma/roster"
	"github.com/porticus-lab/go-diploma/templates"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// errExportFailed is the only detail clients get about a failed export; the
// cause is logged.
const errExportFailed = "export failed"

func pingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func abortError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// internalError logs err and answers with a generic message.
func (s *Server) internalError(c *gin.Context, msg string, err error) {
	s.logger.Error(msg, zap.Error(err), zap.String("path", c.FullPath()))
	_ = c.Error(err)
	abortError(c, http.StatusInternalServerError, msg)
}

func (s *Server) getConfig(c *gin.Context) {
	cfg, err := s.store.Load(c.Request.Context())
	if err != nil {
		s.internalError(c, "failed to load configuration", err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) putConfig(c *gin.Context) {
	cfg := config.Defaults()
	if err := c.ShouldBindJSON(&cfg); err != nil {
		abortError(c, http.StatusBadRequest, "invalid configuration: "+err.Error())
		return
	}
	if err := config.Validate(cfg); err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid configuration", "fields": verr.Fields})
			return
		}
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}

	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	if err := s.store.Save(c.Request.Context(), cfg); err != nil {
		s.internalError(c, "failed to save configuration", err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) resetConfig(c *gin.Context) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	cfg, err := s.store.Reset(c.Request.Context())
	if err != nil {
		s.internalError(c, "failed to reset configuration", err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// editConfig loads the configuration, applies fn and saves it when fn
// reports a change.
func (s *Server) editConfig(c *gin.Context, fn func(*config.Configuration) bool) (config.Configuration, bool) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	ctx := c.Request.Context()
	cfg, err := s.store.Load(ctx)
	if err != nil {
		s.internalError(c, "failed to load configuration", err)
		return cfg, false
	}
	if !fn(&cfg) {
		return cfg, false
	}
	if err := s.store.Save(ctx, cfg); err != nil {
		s.internalError(c, "failed to save configuration", err)
		return cfg, false
	}
	return cfg, true
}

func (s *Server) addSigner(c *gin.Context) {
	var added config.Signer
	if _, ok := s.editConfig(c, func(cfg *config.Configuration) bool {
		added = cfg.AddSigner()
		return true
	}); !ok {
		return
	}
	c.JSON(http.StatusCreated, added)
}

func (s *Server) updateSigner(c *gin.Context) {
	var patch config.SignerPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		abortError(c, http.StatusBadRequest, "invalid signer: "+err.Error())
		return
	}
	if patch.Role != nil && *patch.Role == "" {
		abortError(c, http.StatusBadRequest, "role must not be empty")
		return
	}

	id := c.Param("id")
	found := false
	cfg, ok := s.editConfig(c, func(cfg *config.Configuration) bool {
		found = cfg.UpdateSigner(id, patch)
		return found
	})
	if c.IsAborted() {
		return
	}
	if !ok || !found {
		abortError(c, http.StatusNotFound, "signer not found")
		return
	}
	for _, sg := range cfg.Signers {
		if sg.ID == id {
			c.JSON(http.StatusOK, sg)
			return
		}
	}
}

func (s *Server) removeSigner(c *gin.Context) {
	id := c.Param("id")
	found := false
	_, ok := s.editConfig(c, func(cfg *config.Configuration) bool {
		found = cfg.RemoveSigner(id)
		return found
	})
	if c.IsAborted() {
		return
	}
	if !ok || !found {
		abortError(c, http.StatusNotFound, "signer not found")
		return
	}
	c.Status(http.StatusNoContent)
}

type designView struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Palette  templates.Palette `json:"palette"`
}

func (s *Server) listDesigns(c *gin.Context) {
	ds := templates.Designs()
	out := make([]designView, 0, len(ds))
	for _, d := range ds {
		out = append(out, designView{ID: d.ID, Name: d.Name, Category: d.Category, Palette: d.Palette})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) rosterTemplate(c *gin.Context) {
	var buf bytes.Buffer
	if err := roster.WriteTemplate(&buf); err != nil {
		s.internalError(c, "failed to build template", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "plantilla_estudiantes.xlsx"))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (s *Server) importRoster(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		abortError(c, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	students, err := roster.Import(file)
	if err != nil {
		s.logger.Info("roster import rejected", zap.String("file", header.Filename), zap.Error(err))
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"students": students,
		"count":    len(students),
		"valid":    len(students.Valid()),
	})
}

type previewRequest struct {
	Config  *config.Configuration `json:"config"`
	Student *roster.Student       `json:"student"`
	Zoom    float64               `json:"zoom" binding:"omitempty,gt=0,lte=4"`
}

// loadOrUse returns cfg when given, the stored configuration otherwise.
func (s *Server) loadOrUse(c *gin.Context, cfg *config.Configuration) (config.Configuration, bool) {
	if cfg != nil {
		if err := config.Validate(*cfg); err != nil {
			abortError(c, http.StatusBadRequest, err.Error())
			return config.Configuration{}, false
		}
		return *cfg, true
	}
	stored, err := s.store.Load(c.Request.Context())
	if err != nil {
		s.internalError(c, "failed to load configuration", err)
		return config.Configuration{}, false
	}
	return stored, true
}

func (s *Server) preview(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortError(c, http.StatusBadRequest, "invalid preview request: "+err.Error())
		return
	}
	cfg, ok := s.loadOrUse(c, req.Config)
	if !ok {
		return
	}
	st := roster.PreviewSample(cfg.Level)
	if req.Student != nil {
		st = *req.Student
	}

	doc, err := s.renderer.Render(cfg, st, templates.RenderOptions{Zoom: req.Zoom})
	if err != nil {
		s.internalError(c, "failed to render preview", err)
		return
	}
	c.Header("X-Diploma-Design", doc.Design)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc.HTML))
}

type exportRequest struct {
	Mode     string                `json:"mode" binding:"required"`
	Students roster.Roster         `json:"students"`
	Index    int                   `json:"index" binding:"gte=0"`
	Config   *config.Configuration `json:"config"`
}

type exportView struct {
	ID       string `json:"id"`
	Mode     string `json:"mode"`
	State    string `json:"state"`
	Current  int    `json:"current"`
	Total    int    `json:"total"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}

func viewJob(id string, j *diploma.Job) exportView {
	cur, total := j.Progress()
	v := exportView{ID: id, Mode: string(j.Mode()), State: j.State().String(), Current: cur, Total: total}
	switch j.State() {
	case diploma.StateCompleted:
		v.Filename = j.Result().Filename
	case diploma.StateFailed:
		v.Error = errExportFailed
	case diploma.StateCancelled:
		v.Error = "export cancelled"
	}
	return v
}

func (s *Server) startExport(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid export request: "+err.Error())
		return
	}
	mode, err := diploma.ParseMode(req.Mode)
	if err != nil {
		abortError(c, http.StatusBadRequest, err.Error())
		return
	}
	if mode == diploma.ModeSingle && len(req.Students) > 0 && req.Index >= len(req.Students) {
		abortError(c, http.StatusBadRequest, diploma.ErrInvalidIndex.Error())
		return
	}
	cfg, ok := s.loadOrUse(c, req.Config)
	if !ok {
		return
	}

	// The job outlives the request.
	started := time.Now()
	job := s.exporter.Start(context.WithoutCancel(c.Request.Context()), diploma.Request{
		Mode:     mode,
		Config:   cfg,
		Students: req.Students,
		Index:    req.Index,
	})
	id := s.jobs.add(job)
	go s.metrics.observeJob(job, started)

	s.logger.Info("export started", zap.String("id", id), zap.String("mode", string(mode)), zap.Int("students", len(req.Students)))
	c.Header("Location", "/api/exports/"+id)
	c.JSON(http.StatusAccepted, viewJob(id, job))
}

func (s *Server) lookupJob(c *gin.Context) (string, *diploma.Job, bool) {
	id := c.Param("id")
	j, ok := s.jobs.get(id)
	if !ok {
		abortError(c, http.StatusNotFound, "export not found")
		return id, nil, false
	}
	return id, j, true
}

func (s *Server) exportStatus(c *gin.Context) {
	id, j, ok := s.lookupJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, viewJob(id, j))
}

func (s *Server) exportFile(c *gin.Context) {
	id, j, ok := s.lookupJob(c)
	if !ok {
		return
	}
	if j.State() != diploma.StateCompleted {
		c.AbortWithStatusJSON(http.StatusConflict, viewJob(id, j))
		return
	}
	res := j.Result()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	c.Data(http.StatusOK, res.ContentType, res.Bytes())
}

func (s *Server) cancelExport(c *gin.Context) {
	id, j, ok := s.lookupJob(c)
	if !ok {
		return
	}
	j.Cancel()
	c.JSON(http.StatusAccepted, viewJob(id, j))
}
