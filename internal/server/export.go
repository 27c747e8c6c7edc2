package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/joseph-ayodele/router-ingest/constants"
	"github.com/joseph-ayodele/router-ingest/internal/export"
)

// ExportCSV serves router_queue.csv. No DONE items means no document: 204.
func (a *API) ExportCSV(c echo.Context) error {
	doc, err := a.exports.ExportCSV()
	if errors.Is(err, export.ErrNoDocument) {
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		return err
	}
	setAttachment(c, constants.CSVFilename)
	return c.Blob(http.StatusOK, constants.CSVMimeType, []byte(doc))
}

// ExportXLSX serves the same rows as a workbook.
func (a *API) ExportXLSX(c echo.Context) error {
	buf, err := a.exports.ExportXLSX()
	if errors.Is(err, export.ErrNoDocument) {
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		return err
	}
	setAttachment(c, constants.XLSXFilename)
	return c.Blob(http.StatusOK, constants.XLSXMimeType, buf)
}

func setAttachment(c echo.Context, name string) {
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
}
