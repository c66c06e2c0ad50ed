package middleware

import (
	"smallbiznis-license/pkg/errutil"
	"smallbiznis-license/pkg/i18n"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error renders the last handler error. BaseError keeps its code and message,
// anything else becomes a 500 with the localized generic message.
func Error(p *i18n.Printer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		zapLog := zap.L().With(
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.String("request_id", GetRequestID(c)),
		)

		base, ok := errutil.As(err)
		if !ok {
			base = errutil.BaseError{
				Code:    errutil.StatusInternal,
				Message: p.Sprintf(i18n.InternalError),
				Err:     err,
			}
		}

		status := base.Code.HTTPStatus()
		switch {
		case status >= 500:
			zapLog.Error("request failed", zap.String("code", string(base.Code)), zap.Error(base.Err))
		case base.Err != nil:
			zapLog.Warn("request rejected", zap.String("code", string(base.Code)), zap.Error(base.Err))
		}

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(status, base.Body())
	}
}
