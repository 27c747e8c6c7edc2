package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/joseph-ayodele/router-ingest/constants"
	"github.com/joseph-ayodele/router-ingest/internal/common"
	"github.com/joseph-ayodele/router-ingest/internal/queue"
)

const (
	defaultRecordLimit = 50
	maxRecordLimit     = 500
)

var errNoStore = errors.New("no durable store configured")

// SaveItem persists a DONE item to router_queue and removes it from the queue.
func (a *API) SaveItem(c echo.Context) error {
	if a.records == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, errNoStore.Error())
	}
	id, err := parseItemID(c)
	if err != nil {
		return err
	}
	rec, err := a.queue.Save(c.Request().Context(), a.records, id)
	switch {
	case errors.Is(err, queue.ErrItemNotFound):
		return common.NotFoundError("queue item not found")
	case errors.Is(err, queue.ErrItemNotDone):
		return common.ConflictError("only DONE items can be saved", err)
	case err != nil:
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}

// ListRecords lists persisted rows by status, oldest first.
func (a *API) ListRecords(c echo.Context) error {
	if a.records == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, errNoStore.Error())
	}
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	if status == "" {
		status = string(constants.RecordStatusPending)
	}
	limit := defaultRecordLimit
	if l := c.QueryParam("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			return common.InvalidArgumentErrorf("limit must be a positive integer")
		}
		limit = min(parsed, maxRecordLimit)
	}
	recs, err := a.records.ListByStatus(c.Request().Context(), status, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recs)
}
