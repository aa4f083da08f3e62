package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	bindorders "github.com/omniphi/orchestrator/pkg/api/bind/orders"
	apierr "github.com/omniphi/orchestrator/pkg/api/types/errors"
	kordb "github.com/omniphi/orchestrator/pkg/domain/order/db"
)

// GetOrderHandler exposes the progress of a provisioning order,
// so the caller of the provision trigger can poll what became of it.
func GetOrderHandler(dborder kordb.OrderInterface) echo.HandlerFunc {

	return func(c echo.Context) error {

		c.Response().Header().Add("Content-Type", "application/json")

		correlationId := c.Param("correlationId")
		ctx := c.Request().Context()

		result, err := dborder.Get(ctx, []string{correlationId})
		if err != nil {
			return apierr.InternalServerError(err)
		}

		order, ok := result[correlationId]
		if !ok {
			return apierr.NotFound()
		}

		return c.JSON(http.StatusOK, bindorders.ComposeDetail(order))
	}
}
