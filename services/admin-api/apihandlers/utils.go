package apihandlers

import (
	"github.com/gin-gonic/gin"

	jwthandling "github.com/joannku/unity-scheduler/pkg/jwt-handling"
)

func experimenterID(c *gin.Context) string {
	token, ok := c.Get("validatedToken")
	if !ok {
		return ""
	}
	claims, ok := token.(*jwthandling.ExperimenterClaims)
	if !ok {
		return ""
	}
	return claims.ExperimenterID
}
