package middleware

import (
	"errors"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"

	"smallbiznis-license/pkg/errutil"
	"smallbiznis-license/pkg/i18n"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Recovery(p *i18n.Printer) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		zapLog := zap.L().With(
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.String("request_id", GetRequestID(c)),
			zap.Any("error", recovered),
		)

		if brokenConnection(recovered) {
			zapLog.Warn("connection broken during request")
			c.Abort()
			return
		}

		zapLog.Error("panic recovered", zap.String("stack", string(debug.Stack())))

		body := errutil.BaseError{Code: errutil.StatusInternal, Message: p.Sprintf(i18n.InternalError)}.Body()
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}

func brokenConnection(recovered any) bool {
	err, ok := recovered.(error)
	if !ok {
		return false
	}

	var ne *net.OpError
	if !errors.As(err, &ne) {
		return false
	}

	var se *os.SyscallError
	if !errors.As(ne.Err, &se) {
		return false
	}

	msg := strings.ToLower(se.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
