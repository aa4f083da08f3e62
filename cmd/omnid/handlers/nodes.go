package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	bindnodes "github.com/omniphi/orchestrator/pkg/api/bind/nodes"
	apierr "github.com/omniphi/orchestrator/pkg/api/types/errors"
	apinodes "github.com/omniphi/orchestrator/pkg/api/types/nodes"
	"github.com/omniphi/orchestrator/pkg/domain"
	kndb "github.com/omniphi/orchestrator/pkg/domain/node/db"
	kstrings "github.com/omniphi/orchestrator/pkg/utils/strings"
)

var (
	// Find method parameter error
	errIncorrectQueryNodeStatus = errors.New("incorrect query param status")
)

func FindNodeHandler(dbnode kndb.NodeInterface) echo.HandlerFunc {

	return func(c echo.Context) error {
		c.Response().Header().Add("Content-Type", "application/json")

		query, err := func(c echo.Context) (domain.NodeFindQuery, error) {

			result := domain.NodeFindQuery{}

			for _, s := range kstrings.SplitIfNotEmpty(c.QueryParam("status"), ",") {
				status, err := domain.AsNodeStatus(s)
				if err != nil {
					return result, errIncorrectQueryNodeStatus
				}
				result.Status = append(result.Status, status)
			}

			if paramSetupId := c.QueryParam("setupId"); paramSetupId != "" {
				result.SetupId = &paramSetupId
			}

			return result, nil
		}(c)

		if err != nil {
			return apierr.BadRequest("query specification is incorrect", err)
		}
		ctx := c.Request().Context()

		nodeIds, err := dbnode.Find(ctx, query)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		nodes, err := dbnode.Get(ctx, nodeIds)
		if err != nil {
			return apierr.InternalServerError(err)
		}

		resp := make([]apinodes.Detail, 0, len(nodes))
		for _, nodeId := range nodeIds {
			if n, ok := nodes[nodeId]; ok {
				resp = append(resp, bindnodes.ComposeDetail(n))
			}
		}

		return c.JSON(http.StatusOK, resp)
	}
}

func GetNodeHandler(dbnode kndb.NodeInterface) echo.HandlerFunc {

	return func(c echo.Context) error {

		c.Response().Header().Add("Content-Type", "application/json")

		nodeId := c.Param("nodeId")
		ctx := c.Request().Context()

		result, err := dbnode.Get(ctx, []string{nodeId})
		if err != nil {
			return apierr.InternalServerError(err)
		}

		node, ok := result[nodeId]
		if !ok {
			return apierr.NotFound()
		}

		return c.JSON(http.StatusOK, bindnodes.ComposeDetail(node))
	}
}
