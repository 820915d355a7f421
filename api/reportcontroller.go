package api

import (
	"errors"
	"net/http"

	"weeklyreport/config"
	"weeklyreport/storage"
	"weeklyreport/types"

	"github.com/gin-gonic/gin"
)

// RegisterReportRoutes registers read-only access to the saved artifacts.
func RegisterReportRoutes(r *gin.Engine, store *storage.Store, cfg *config.Config) {
	h := &reportHandler{store: store, cfg: cfg}
	r.GET("/api/articles", h.articles)
	r.GET("/api/summaries/latest", h.latestSummaries)
	r.GET("/api/scripts", h.listScripts)
	r.GET("/api/scripts/latest", h.latestScript)
}

type reportHandler struct {
	store *storage.Store
	cfg   *config.Config
}

func (h *reportHandler) articles(c *gin.Context) {
	var articles []types.Article
	path, err := h.store.LoadLatestJSON(h.cfg.RawDir, storage.Articles, &articles)
	if err != nil {
		respondLoadError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "articles": articles})
}

func (h *reportHandler) latestSummaries(c *gin.Context) {
	var summaries []types.Summary
	path, err := h.store.LoadLatestJSON(h.cfg.OutputDir, storage.Summaries, &summaries)
	if err != nil {
		respondLoadError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "summaries": summaries})
}

func (h *reportHandler) listScripts(c *gin.Context) {
	scripts, err := h.store.List(h.cfg.OutputDir, storage.Script)
	if err != nil {
		respondLoadError(c, err)
		return
	}
	if scripts == nil {
		scripts = []storage.Artifact{}
	}
	c.JSON(http.StatusOK, gin.H{"scripts": scripts})
}

func (h *reportHandler) latestScript(c *gin.Context) {
	path, text, err := h.store.LoadLatestText(h.cfg.OutputDir, storage.Script)
	if err != nil {
		respondLoadError(c, err)
		return
	}
	c.Header("X-Artifact-Path", path)
	c.Data(http.StatusOK, storage.Script.ContentType, []byte(text))
}

func respondLoadError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
