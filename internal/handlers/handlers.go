package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/skin-check/internal/picker"
	"github.com/example/skin-check/internal/render"
	"github.com/example/skin-check/internal/session"
	"github.com/example/skin-check/internal/usecase"
)

// SubmissionInFlightNotice is returned while a classification request is outstanding.
const SubmissionInFlightNotice = "A classification is already in progress."

// API serves the local session to a UI shell.
type API struct {
	Session     *session.Session
	Permission  picker.PermissionRequester
	GalleryRoot string
	Submissions *usecase.SubmissionController
	Logger      *zap.Logger
}

type selectRequest struct {
	Path string `json:"path"`
}

type stateResponse struct {
	Snapshot session.Snapshot `json:"snapshot"`
	View     render.View      `json:"view"`
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, api *API) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, api.state())
	})

	router.POST("/select", api.handleSelect)
	router.POST("/submit", api.handleSubmit)

	router.GET("/metrics", func(c *gin.Context) {
		summary, err := api.Submissions.GetMetricsSummary(c.Request.Context())
		if errors.Is(err, usecase.ErrJournalDisabled) {
			c.JSON(http.StatusNotFound, gin.H{"error": "attempt journal is disabled"})
			return
		}
		if err != nil {
			api.Logger.Error("failed to aggregate metrics", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate metrics"})
			return
		}
		c.JSON(http.StatusOK, summary)
	})
}

func (api *API) handleSelect(c *gin.Context) {
	var req selectRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
	}

	manager := usecase.NewSelectionManager(
		api.Session,
		api.Permission,
		picker.FilePicker{Path: req.Path, Root: api.GalleryRoot},
		api.Logger,
	)

	sel, err := manager.RequestImage(c.Request.Context())
	switch {
	case errors.Is(err, usecase.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": usecase.PermissionDeniedNotice})
		return
	case errors.Is(err, picker.ErrNotImage):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "the selected file is not an image"})
		return
	case errors.Is(err, picker.ErrOutsideGallery):
		c.JSON(http.StatusForbidden, gin.H{"error": "the selected file is outside the gallery"})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to select image"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"selected": sel.Status == usecase.Selected,
		"state":    api.state(),
	})
}

func (api *API) handleSubmit(c *gin.Context) {
	wait := c.Query("wait") == "true"

	ctx := c.Request.Context()
	if !wait {
		ctx = context.WithoutCancel(ctx)
	}

	done, err := api.Submissions.Start(ctx)
	switch {
	case errors.Is(err, usecase.ErrNoImageSelected):
		c.JSON(http.StatusConflict, gin.H{"error": usecase.NoImageNotice})
		return
	case errors.Is(err, usecase.ErrSubmissionInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": SubmissionInFlightNotice})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to start submission"})
		return
	}

	if !wait {
		c.JSON(http.StatusAccepted, api.state())
		return
	}

	completion := <-done
	c.JSON(http.StatusOK, gin.H{
		"stale": errors.Is(completion.Err, usecase.ErrStaleResponse),
		"state": api.state(),
	})
}

func (api *API) state() stateResponse {
	snap := api.Session.Snapshot()
	return stateResponse{Snapshot: snap, View: render.Format(snap)}
}
