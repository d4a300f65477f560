package middleware

import (
	"github.com/gin-gonic/gin"

	"clinicstock/internal/core/apperror"
	appctx "clinicstock/internal/core/context"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorName = "X-Actor-Name"
)

// Actor middleware extracts the acting staff member from request headers.
// Identity is managed by the surrounding clinic system; the engine trusts
// the gateway and only records actor IDs on ledger rows and transitions.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := c.GetHeader(HeaderActorID)
		if actorID == "" {
			c.Next()
			return
		}

		actor := &appctx.ActorContext{
			ActorID: actorID,
			Name:    c.GetHeader(HeaderActorName),
		}

		ctx := appctx.WithActor(c.Request.Context(), actor)
		c.Request = c.Request.WithContext(ctx)
		c.Set("actor_id", actorID)

		c.Next()
	}
}

// RequireActor rejects requests without an actor header. Mounted on
// mutating routes: every movement and transition must be attributable.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if appctx.GetActorID(c.Request.Context()) == "" {
			_ = c.Error(apperror.NewValidation("X-Actor-ID header is required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
