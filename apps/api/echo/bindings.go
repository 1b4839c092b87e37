package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cursos/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=field,-other`; a leading "-" sorts descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := strings.TrimSpace(ctx.QueryParam(orderingParam))
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bind decodes the request into i, wrapping echo's error so the handler keeps its 400.
func bind(ctx echo.Context, i interface{}, what string) error {
	if err := ctx.Bind(i); err != nil {
		return errors.Wrap(err, "binding to "+what)
	}
	return nil
}

// respond writes data inside the success envelope.
func respond(ctx echo.Context, code int, data echo.Map) error {
	if data == nil {
		data = echo.Map{}
	}
	data["error"] = false
	return ctx.JSON(code, data)
}

func respondOK(ctx echo.Context) error {
	return respond(ctx, http.StatusOK, nil)
}
