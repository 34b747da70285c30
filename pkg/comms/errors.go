package comms

import (
	"net/http"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/errx"
)

var commsErrors = errx.NewRegistry("COMMS")

var (
	ErrInvalidPhone   = commsErrors.Register("INVALID_PHONE", errx.TypeValidation, http.StatusBadRequest, "Invalid phone number")
	ErrInvalidCountry = commsErrors.Register("INVALID_COUNTRY_CODE", errx.TypeValidation, http.StatusBadRequest, "Invalid country code")
	ErrTemplateParse  = commsErrors.Register("TEMPLATE_PARSE", errx.TypeValidation, http.StatusBadRequest, "Failed to parse message template")
	ErrTemplateRender = commsErrors.Register("TEMPLATE_RENDER", errx.TypeInternal, http.StatusInternalServerError, "Failed to render message template")
	ErrNoTemplate     = commsErrors.Register("TEMPLATE_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Message template not found")
)
