package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bookshare/internal/http-api/service"
)

type DashboardHandler struct {
	svc       service.DashboardService
	heartbeat time.Duration
}

func NewDashboardHandler(svc service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc, heartbeat: 25 * time.Second}
}

func (h *DashboardHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Snapshot)
	rg.GET("/stream", h.Stream)
}

func (h *DashboardHandler) Snapshot(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	d, err := h.svc.Snapshot(ctx, a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Stream pushes the dashboard as server-sent events until the client goes
// away. Only the latest undelivered dashboard is kept.
func (h *DashboardHandler) Stream(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	updates := make(chan *service.Dashboard, 1)
	failures := make(chan error, 1)

	// The callback must not block: cancel waits for the watchers to exit.
	stop, err := h.svc.Watch(c.Request.Context(), a, func(d *service.Dashboard, err error) {
		if err != nil {
			select {
			case failures <- err:
			default:
			}
			return
		}
		select {
		case <-updates:
		default:
		}
		updates <- d
	})
	if err != nil {
		respondError(c, err)
		return
	}
	defer stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ping := time.NewTicker(h.heartbeat)
	defer ping.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case d := <-updates:
			c.SSEvent("dashboard", d)
			return true
		case err := <-failures:
			c.Error(err)
			c.SSEvent("error", gin.H{"error": "dashboard stream interrupted"})
			return false
		case <-ping.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
}
