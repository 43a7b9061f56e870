package echoapi

import (
	"math"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core/record"
)

type recordApi struct {
	svc record.Service
}

func registerRecordAPI(g *echo.Group, svc record.Service) {
	api := recordApi{svc: svc}

	rg := g.Group("/records/:id")
	rg.GET("", api.retrieve)
	rg.PUT("", api.update)
	rg.DELETE("", api.destroy)
	rg.GET("/table", api.table)

	fg := rg.Group("/fields")
	fg.POST("", api.addField)
	fg.PUT("/:fid", api.updateField)
	fg.DELETE("/:fid", api.removeField)
	fg.PUT("/:fid/type", api.changeFieldType)
	fg.PUT("/:fid/move", api.moveField)
	fg.GET("/:fid/candidates", api.candidates)
	fg.POST("/:fid/terms", api.addTerm)
	fg.PUT("/:fid/terms/:idx", api.updateTerm)
	fg.DELETE("/:fid/terms/:idx", api.removeTerm)
}

type (
	ChangeTypeRequest struct {
		Type record.FieldType `json:"type"`
	}

	MoveFieldRequest struct {
		To int `json:"to"`
	}

	// StatResponse is a record.Stat whose value is null when not finite.
	StatResponse struct {
		FieldID string   `json:"field_id"`
		Title   string   `json:"title"`
		Value   *float64 `json:"value"`
	}

	// TableResponse is a record.Table safe for JSON: ±Inf and NaN are rendered as null.
	TableResponse struct {
		Columns []record.FieldSpec       `json:"columns"`
		Rows    []map[string]interface{} `json:"rows"`
		Stats   []StatResponse           `json:"stats"`
	}
)

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func newTableResponse(table record.Table) TableResponse {
	resp := TableResponse{
		Columns: table.Columns,
		Rows:    make([]map[string]interface{}, 0, len(table.Rows)),
		Stats:   make([]StatResponse, 0, len(table.Stats)),
	}
	for _, row := range table.Rows {
		out := make(map[string]interface{}, len(row))
		for k, v := range row {
			if n, ok := v.(float64); ok && !record.IsFinite(n) {
				out[k] = nil
				continue
			}
			out[k] = v
		}
		resp.Rows = append(resp.Rows, out)
	}
	for _, stat := range table.Stats {
		resp.Stats = append(resp.Stats, StatResponse{FieldID: stat.FieldID, Title: stat.Title, Value: finite(stat.Value)})
	}
	return resp
}

// Handlers

func (api *recordApi) retrieve(ctx echo.Context) error {
	rec, err := api.svc.GetRecord(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding record by ID")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *recordApi) update(ctx echo.Context) error {
	var data record.UpdateRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRecord")
	}

	rec, err := api.svc.UpdateRecord(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *recordApi) destroy(ctx echo.Context) error {
	c := ctx.Request().Context()
	id := ctx.Param("id")
	if _, err := api.svc.GetRecord(c, id); err != nil {
		return errors.Wrap(err, "finding record by ID")
	}
	if err := api.svc.DeleteRecords(c, id); err != nil {
		return errors.Wrap(err, "deleting record")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *recordApi) table(ctx echo.Context) error {
	table, err := api.svc.Table(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing table")
	}
	return ctx.JSON(http.StatusOK, newTableResponse(table))
}

func (api *recordApi) addField(ctx echo.Context) error {
	var data record.NewField
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewField")
	}

	rec, err := api.svc.AddField(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding field")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *recordApi) updateField(ctx echo.Context) error {
	var data record.UpdateField
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateField")
	}

	rec, err := api.svc.UpdateField(ctx.Request().Context(), ctx.Param("id"), ctx.Param("fid"), data)
	if err != nil {
		return errors.Wrap(err, "updating field")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *recordApi) removeField(ctx echo.Context) error {
	rec, err := api.svc.RemoveField(ctx.Request().Context(), ctx.Param("id"), ctx.Param("fid"))
	if err != nil {
		return errors.Wrap(err, "removing field")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *recordApi) changeFieldType(ctx echo.Context) error {
	var data ChangeTypeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangeTypeRequest")
	}

	rec, err := api.svc.ChangeFieldType(ctx.Request().Context(), ctx.Param("id"), ctx.Param("fid"), data.Type)
	if err != nil {
		return errors.Wrap(err, "changing field type")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *recordApi) moveField(ctx echo.Context) error {
	var data MoveFieldRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MoveFieldRequest")
	}

	rec, err := api.svc.MoveField(ctx.Request().Context(), ctx.Param("id"), ctx.Param("fid"), data.To)
	if err != nil {
		return errors.Wrap(err, "moving field")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *recordApi) candidates(ctx echo.Context) error {
	specs, err := api.svc.Candidates(ctx.Request().Context(), ctx.Param("id"), ctx.Param("fid"))
	if err != nil {
		return errors.Wrap(err, "listing candidate fields")
	}
	return ctx.JSON(http.StatusOK, specs)
}

func (api *recordApi) addTerm(ctx echo.Context) error {
	rec, err := api.svc.AddFormulaTerm(ctx.Request().Context(), ctx.Param("id"), ctx.Param("fid"))
	if err != nil {
		return errors.Wrap(err, "adding formula term")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *recordApi) updateTerm(ctx echo.Context) error {
	idx, err := termIndex(ctx)
	if err != nil {
		return err
	}
	var data record.TermUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TermUpdate")
	}

	rec, err := api.svc.UpdateFormulaTerm(ctx.Request().Context(), ctx.Param("id"), ctx.Param("fid"), idx, data)
	if err != nil {
		return errors.Wrap(err, "updating formula term")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *recordApi) removeTerm(ctx echo.Context) error {
	idx, err := termIndex(ctx)
	if err != nil {
		return err
	}

	rec, err := api.svc.RemoveFormulaTerm(ctx.Request().Context(), ctx.Param("id"), ctx.Param("fid"), idx)
	if err != nil {
		return errors.Wrap(err, "removing formula term")
	}
	return ctx.JSON(http.StatusOK, rec)
}
