package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	bindorders "github.com/omniphi/orchestrator/pkg/api/bind/orders"
	bindsetups "github.com/omniphi/orchestrator/pkg/api/bind/setups"
	apierr "github.com/omniphi/orchestrator/pkg/api/types/errors"
	apisetups "github.com/omniphi/orchestrator/pkg/api/types/setups"
	"github.com/omniphi/orchestrator/pkg/domain"
	kordb "github.com/omniphi/orchestrator/pkg/domain/order/db"
	ksudb "github.com/omniphi/orchestrator/pkg/domain/setup/db"
	kstrings "github.com/omniphi/orchestrator/pkg/utils/strings"
)

func SetupRegisterHandler(dbsetup ksudb.SetupInterface) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		ctx := req.Context()
		if strings.ToLower(req.Header.Get("content-type")) != "application/json" {
			return apierr.BadRequest(
				"unexpected content type. it shoule be application/json", nil,
			)
		}

		specInReq := new(apisetups.SetupSpec)
		if err := json.NewDecoder(req.Body).Decode(specInReq); err != nil {
			return apierr.BadRequest(
				"can not understand the requested json", err,
			)
		}

		spec, err := domain.SetupRequestSpec{
			WalletAddress:  specInReq.WalletAddress,
			DisplayName:    specInReq.DisplayName,
			CommissionRate: specInReq.CommissionRate,
			RunMode:        domain.RunMode(specInReq.RunMode),
			Provider:       specInReq.Provider,
		}.Validate()
		if err != nil {
			if errors.Is(err, domain.ErrInvalidSetupRequest) {
				return apierr.BadRequest(err.Error(), err)
			}
			return apierr.InternalServerError(err)
		}

		setup, err := dbsetup.Register(ctx, spec)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		resp := c.Response()
		resp.Header().Add("Content-Type", "application/json")

		return c.JSON(
			http.StatusCreated,
			bindsetups.ComposeDetail(setup),
		)
	}
}

var (
	// Find method parameter error
	errIncorrectQueryStatus  = errors.New("incorrect query param status")
	errIncorrectQueryRunMode = errors.New("incorrect query param runMode")
)

func FindSetupHandler(dbsetup ksudb.SetupInterface) echo.HandlerFunc {

	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		query, err := func(c echo.Context) (domain.SetupFindQuery, error) {

			result := domain.SetupFindQuery{}

			for _, s := range kstrings.SplitIfNotEmpty(c.QueryParam("status"), ",") {
				status, err := domain.AsSetupStatus(s)
				if err != nil {
					return result, errIncorrectQueryStatus
				}
				result.Status = append(result.Status, status)
			}

			if paramRunMode := c.QueryParam("runMode"); paramRunMode != "" {
				runMode, err := domain.AsRunMode(paramRunMode)
				if err != nil {
					return result, errIncorrectQueryRunMode
				}
				result.RunMode = &runMode
			}

			if paramProvider := c.QueryParam("provider"); paramProvider != "" {
				result.Provider = &paramProvider
			}

			if paramWallet := c.QueryParam("wallet"); paramWallet != "" {
				result.WalletAddress = &paramWallet
			}

			return result, nil
		}(c)

		if err != nil {
			return apierr.BadRequest("query specification is incorrect", err)
		}
		ctx := c.Request().Context()

		setupIds, err := dbsetup.Find(ctx, query)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		setups, err := dbsetup.Get(ctx, setupIds)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		resp := make([]apisetups.Detail, 0, len(setups))
		for _, setupId := range setupIds {
			if s, ok := setups[setupId]; ok {
				resp = append(resp, bindsetups.ComposeDetail(s))
			}
		}

		return c.JSON(http.StatusOK, resp)
	}
}

func GetSetupHandler(dbsetup ksudb.SetupInterface) echo.HandlerFunc {

	return func(c echo.Context) error {

		c.Response().Header().Add("Content-Type", "application/json")

		setupId := c.Param("setupId")
		ctx := c.Request().Context()

		result, err := dbsetup.Get(ctx, []string{setupId})
		if err != nil {
			return apierr.InternalServerError(err)
		}

		setup, ok := result[setupId]
		if !ok {
			return apierr.NotFound()
		}

		return c.JSON(http.StatusOK, bindsetups.ComposeDetail(setup))
	}
}

// ProvisionSetupHandler puts a provisioning order for a SetupRequest
// on the queue.
//
// When the SetupRequest already has a queued order, that order comes
// back instead of a new one, so retried triggers stay harmless.
func ProvisionSetupHandler(
	dbsetup ksudb.SetupInterface,
	dborder kordb.OrderInterface,
	setupIdParam string,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		setupId := c.Param(setupIdParam)

		req := new(apisetups.ProvisionRequest)
		if err := c.Bind(req); err != nil {
			return apierr.BadRequest("can not understand the requested json", err)
		}

		setups, err := dbsetup.Get(ctx, []string{setupId})
		if err != nil {
			return apierr.InternalServerError(err)
		}
		if _, ok := setups[setupId]; !ok {
			return apierr.NotFound()
		}

		order, err := dborder.Enqueue(ctx, setupId, req.Redeploy)
		if err != nil {
			if errors.Is(err, domain.ErrMissing) {
				return apierr.NotFound()
			}
			if errors.Is(err, domain.ErrInvalidSetupStateChanging) {
				return apierr.Conflict(
					"setup request does not accept provisioning now",
					apierr.WithError(err),
				)
			}
			return apierr.InternalServerError(err)
		}

		resp := c.Response()
		resp.Header().Add("Content-Type", "application/json")

		return c.JSON(http.StatusAccepted, bindorders.ComposeDetail(order))
	}
}
