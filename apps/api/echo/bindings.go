package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the `ordering` query param, e.g. `?ordering=label,-created_at`.
func (ord *Ordering) Bind(ctx echo.Context) {
	if val := ctx.QueryParam(orderingParam); val != "" {
		ord.Orderings = core.ParseOrdering(val)
	}
}

type DestroyMultipleRequest struct {
	IDs []string `query:"id"`
}

// termIndex reads the `:idx` path param.
func termIndex(ctx echo.Context) (int, error) {
	idx, err := strconv.Atoi(ctx.Param("idx"))
	if err != nil {
		return 0, errInvalidIndex
	}
	return idx, nil
}
