package routes

import (
	"errors"

	"github.com/Apetorku/StayGlobal-sub001/services"
	"github.com/Apetorku/StayGlobal-sub001/utils"
	"github.com/kataras/iris/v12"
)

// handleServiceError maps the typed service errors onto HTTP statuses so
// every handler reports failures the same way.
func handleServiceError(err error, ctx iris.Context) {
	var (
		validationErr services.ValidationError
		forbiddenErr  services.ForbiddenError
		conflictErr   services.ConflictError
		notFoundErr   services.NotFoundError
		fraudErr      services.FraudSignal
		gatewayErr    services.PaymentGatewayError
	)

	switch {
	case errors.As(err, &validationErr):
		utils.CreateError(iris.StatusBadRequest, "Validation Error", validationErr.Msg, ctx)
	case errors.As(err, &forbiddenErr):
		utils.CreateError(iris.StatusForbidden, "Forbidden", forbiddenErr.Msg, ctx)
	case errors.As(err, &conflictErr):
		utils.CreateError(iris.StatusConflict, "Conflict", conflictErr.Msg, ctx)
	case errors.As(err, &notFoundErr):
		utils.CreateError(iris.StatusNotFound, "Not Found", notFoundErr.Msg, ctx)
	case errors.As(err, &fraudErr):
		utils.CreateError(iris.StatusConflict, "Payment Mismatch", fraudErr.Msg, ctx)
	case errors.As(err, &gatewayErr):
		utils.CreateError(iris.StatusBadGateway, "Payment Gateway Error", gatewayErr.Msg, ctx)
	default:
		utils.CreateInternalServerError(ctx)
	}
}
