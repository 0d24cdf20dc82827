package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nn1-dev/club-api/internal/database"
	"github.com/nn1-dev/club-api/internal/middleware"
	"github.com/nn1-dev/club-api/internal/modules/community/broadcast"
	"github.com/nn1-dev/club-api/internal/modules/community/signup"
	"github.com/nn1-dev/club-api/internal/pkg/cron"
	"github.com/nn1-dev/club-api/internal/pkg/outbox"
	"github.com/nn1-dev/club-api/internal/pkg/pagination"
	"github.com/nn1-dev/club-api/internal/pkg/response"
)

const statusTimeout = 2 * time.Second

// registerRoutes mounts every endpoint. ctx outlives requests and backs manual cron runs.
func (a *App) registerRoutes(ctx context.Context, authn *middleware.Authenticator, signupH *signup.Handler, broadcastH *broadcast.Handler) {
	r := a.router
	authMW := middleware.Auth(authn)

	r.NoRoute(response.NotFound)
	r.NoMethod(func(c *gin.Context) {
		response.Fail(c, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	r.GET("/status", a.status)

	api := r.Group("")
	writes := api.Group("")
	if a.rc != nil {
		api.Use(middleware.RateLimit(a.rc.Raw(), middleware.DefaultRateLimit))
		writes = api.Group("", middleware.Idempotence(a.rc.Raw()))
	}

	signupH.RegisterRoutes(api, authMW)
	// A repeated broadcast would mail everyone twice.
	broadcastH.RegisterRoutes(writes, authMW)

	ops := api.Group("", authMW)
	ops.GET("/cron", func(c *gin.Context) {
		response.OK(c, a.sched.List())
	})
	ops.GET("/cron/:name", func(c *gin.Context) {
		st, err := a.sched.Status(c.Param("name"))
		if err != nil {
			response.NotFound(c)
			return
		}
		response.OK(c, st)
	})
	ops.POST("/cron/run/:name", a.runCronJob(ctx))
	ops.GET("/outbox", a.listOutbox)
	ops.DELETE("/outbox/:id", a.deleteOutboxEntry)
}

// POST /cron/run/:name?wait=true
// Without wait the job runs in the background under ctx and the call returns 202.
func (a *App) runCronJob(ctx context.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if c.Query("wait") != "true" {
			if err := a.sched.Run(ctx, name); err != nil {
				a.cronError(c, err)
				return
			}
			response.Success(c, http.StatusAccepted, gin.H{"started": name})
			return
		}
		runErr := a.sched.RunNow(c.Request.Context(), name)
		if errors.Is(runErr, cron.ErrJobNotFound) {
			response.NotFound(c)
			return
		}
		st, err := a.sched.Status(name)
		if err != nil {
			a.cronError(c, err)
			return
		}
		// A failed run shows up as status "reject".
		response.OK(c, st)
	}
}

func (a *App) cronError(c *gin.Context, err error) {
	if errors.Is(err, cron.ErrJobNotFound) {
		response.NotFound(c)
		return
	}
	response.InternalError(c, err)
}

// GET /status
func (a *App) status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), statusTimeout)
	defer cancel()

	dbOK := database.Ping(ctx, a.db) == nil
	data := gin.H{"database": dbOK}
	if a.rc != nil {
		data["redis"] = a.rc.Ping(ctx) == nil
	}
	if !dbOK {
		c.JSON(http.StatusServiceUnavailable, response.Envelope{Status: response.StatusError, Data: data})
		return
	}
	response.OK(c, data)
}

// GET /outbox?status=pending&page=1&size=20
func (a *App) listOutbox(c *gin.Context) {
	q := pagination.FromContext(c)
	if a.outbox == nil {
		items, meta := pagination.Slice([]*outbox.Entry{}, q)
		response.OK(c, gin.H{"items": items, "pagination": meta})
		return
	}
	status := outbox.Status(c.Query("status"))
	switch status {
	case "", outbox.StatusPending, outbox.StatusSent, outbox.StatusFailed:
	default:
		response.BadRequest(c, "")
		return
	}
	entries, err := a.outbox.List(c.Request.Context(), status)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items, meta := pagination.Slice(entries, q)
	response.OK(c, gin.H{"items": items, "pagination": meta})
}

// DELETE /outbox/:id
func (a *App) deleteOutboxEntry(c *gin.Context) {
	if a.outbox == nil {
		response.NotFound(c)
		return
	}
	entry, err := a.outbox.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if entry == nil {
		response.NotFound(c)
		return
	}
	if err := a.outbox.Delete(c.Request.Context(), entry.ID); err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, entry)
}
