package echoapi

import (
	"io"
	"net/http"
	"os"
	"path"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/services/objectstore"
)

// registerFilesAPI serves the fs backend's signed download URLs.
func registerFilesAPI(g *echo.Group, store *objectstore.FSStore) {
	g.GET("/files/*", func(ctx echo.Context) error {
		p := ctx.Param("*")
		if err := store.Verify(p, ctx.QueryParam("expires"), ctx.QueryParam("sig")); err != nil {
			return err
		}

		file, err := store.Open(p)
		if err != nil {
			if os.IsNotExist(errors.Cause(err)) {
				return errHttpNotFound
			}
			return errors.Wrap(err, "opening file")
		}
		//goland:noinspection GoUnhandledErrorResult
		defer file.Close()

		mtype, err := mimetype.DetectReader(file)
		if err != nil {
			return errors.Wrap(err, "detecting content type")
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return errors.Wrap(err, "rewinding file")
		}
		ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+path.Base(p)+`"`)
		ctx.Response().Header().Set("Cache-Control", "private, no-store")
		return ctx.Stream(http.StatusOK, mtype.String(), file)
	})
}
