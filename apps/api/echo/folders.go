package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/core/record"
)

type folderApi struct {
	svc record.Service
}

func registerFolderAPI(g *echo.Group, svc record.Service) {
	api := folderApi{svc: svc}

	fg := g.Group("/folders")
	fg.POST("", api.create)
	fg.GET("", api.query)
	fg.DELETE("", api.destroyMultiple)

	// detail endpoints
	dg := fg.Group("/:id", folderMiddleware(svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/records", api.queryRecords)
	dg.POST("/records", api.createRecord)
}

// Handlers

func (api *folderApi) create(ctx echo.Context) error {
	var data record.NewFolder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFolder")
	}

	folder, err := api.svc.CreateFolder(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating folder")
	}
	return ctx.JSON(http.StatusCreated, folder)
}

func (api *folderApi) query(ctx echo.Context) error {
	filter := new(record.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []record.Folder{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	folders, err := api.svc.QueryFolders(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying folders")
	}
	if folders == nil {
		folders = []record.Folder{}
	}
	return ctx.JSON(http.StatusOK, folders)
}

func (api *folderApi) retrieve(ctx echo.Context) error {
	folder, ok := ctx.Get("object").(record.Folder)
	if !ok {
		return errors.Wrap(errObjNotFoundCtx, "retrieving folder from context")
	}
	return ctx.JSON(http.StatusOK, folder)
}

func (api *folderApi) update(ctx echo.Context) error {
	folder, ok := ctx.Get("object").(record.Folder)
	if !ok {
		return errors.Wrap(errObjNotFoundCtx, "retrieving folder from context")
	}

	var data record.UpdateFolder
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFolder")
	}

	folder, err := api.svc.UpdateFolder(ctx.Request().Context(), folder.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating folder")
	}
	return ctx.JSON(http.StatusOK, folder)
}

func (api *folderApi) destroy(ctx echo.Context) error {
	folder, ok := ctx.Get("object").(record.Folder)
	if !ok {
		return errors.Wrap(errObjNotFoundCtx, "retrieving folder from context")
	}
	if err := api.svc.DeleteFolders(ctx.Request().Context(), folder.ID); err != nil {
		return errors.Wrap(err, "deleting folder")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *folderApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.DeleteFolders(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting folders")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *folderApi) queryRecords(ctx echo.Context) error {
	folder, ok := ctx.Get("object").(record.Folder)
	if !ok {
		return errors.Wrap(errObjNotFoundCtx, "retrieving folder from context")
	}

	filter := new(record.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []record.Record{})
	}
	filter.Clean()
	filter.FolderID = folder.ID
	ordering := new(Ordering)
	ordering.Bind(ctx)

	recs, err := api.svc.QueryRecords(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying records")
	}
	if recs == nil {
		recs = []record.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *folderApi) createRecord(ctx echo.Context) error {
	folder, ok := ctx.Get("object").(record.Folder)
	if !ok {
		return errors.Wrap(errObjNotFoundCtx, "retrieving folder from context")
	}

	var data record.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	data.FolderID = folder.ID

	rec, err := api.svc.CreateRecord(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating record")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

// folderMiddleware loads the folder identified by the `:id` path param into the context.
func folderMiddleware(svc record.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			folder, err := svc.GetFolder(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if record.IsNotFound(err) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding folder by ID")
			}
			ctx.Set("object", folder)
			return next(ctx)
		}
	}
}
