package promo

import (
	"net/http"

	"github.com/RafalW3bCraft/garage-management-system-sub003/pkg/errx"
)

var promoErrors = errx.NewRegistry("PROMO")

var (
	CodeDeliveryNotFound = promoErrors.Register("DELIVERY_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Delivery not found")
	CodeInvalidCampaign  = promoErrors.Register("INVALID_CAMPAIGN", errx.TypeValidation, http.StatusBadRequest, "Campaign needs a body and at least one recipient")
	CodeAlreadyRunning   = promoErrors.Register("ALREADY_RUNNING", errx.TypeConflict, http.StatusConflict, "Dispatcher is already running")
)

func ErrDeliveryNotFound() *errx.Error { return promoErrors.New(CodeDeliveryNotFound) }
func ErrInvalidCampaign() *errx.Error  { return promoErrors.New(CodeInvalidCampaign) }
func ErrAlreadyRunning() *errx.Error   { return promoErrors.New(CodeAlreadyRunning) }
