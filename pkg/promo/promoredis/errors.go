package promoredis

import (
	"net/http"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/errx"
)

var queueErrors = errx.NewRegistry("PROMO_REDIS")

var (
	CodeMarshal   = queueErrors.Register("MARSHAL_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to encode delivery")
	CodeUnmarshal = queueErrors.Register("UNMARSHAL_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to decode delivery")
	CodeEnqueue   = queueErrors.Register("ENQUEUE_FAILED", errx.TypeExternal, http.StatusInternalServerError, "Failed to enqueue delivery")
	CodeDequeue   = queueErrors.Register("DEQUEUE_FAILED", errx.TypeExternal, http.StatusInternalServerError, "Failed to dequeue delivery")
	CodeRead      = queueErrors.Register("READ_FAILED", errx.TypeExternal, http.StatusInternalServerError, "Failed to read delivery state")
	CodeWrite     = queueErrors.Register("WRITE_FAILED", errx.TypeExternal, http.StatusInternalServerError, "Failed to write delivery state")
	CodeRetry     = queueErrors.Register("RETRY_FAILED", errx.TypeExternal, http.StatusInternalServerError, "Failed to schedule delivery retry")
	CodePromote   = queueErrors.Register("PROMOTE_FAILED", errx.TypeExternal, http.StatusInternalServerError, "Failed to promote scheduled deliveries")
)
