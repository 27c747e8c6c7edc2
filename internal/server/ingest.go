package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/joseph-ayodele/router-ingest/constants"
	"github.com/joseph-ayodele/router-ingest/internal/async"
	"github.com/joseph-ayodele/router-ingest/internal/common"
	"github.com/joseph-ayodele/router-ingest/internal/entity"
	"github.com/joseph-ayodele/router-ingest/internal/ingest"
	"github.com/joseph-ayodele/router-ingest/internal/queue"
)

type enqueueRequest struct {
	Image    string `json:"image"` // data URL or bare base64
	Filename string `json:"filename"`
}

type enqueueResponse struct {
	ID     uuid.UUID            `json:"id"`
	Status constants.ItemStatus `json:"status"`
}

type fieldEditRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// EnqueueItem accepts a label photo as a multipart "image" file or a JSON data URL.
func (a *API) EnqueueItem(c echo.Context) error {
	img, err := readUpload(c)
	if err != nil {
		return err
	}
	id := a.queue.Enqueue(img)
	return c.JSON(http.StatusCreated, enqueueResponse{ID: id, Status: constants.ItemStatusIdle})
}

func readUpload(c echo.Context) (entity.Image, error) {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		fh, err := c.FormFile("image")
		if err != nil {
			return entity.Image{}, common.InvalidArgumentErrorf("multipart field 'image' is required")
		}
		ext := constants.NormalizeExt(filepath.Ext(fh.Filename))
		if !ingest.AllowedExt(ext) {
			return entity.Image{}, common.InvalidArgumentErrorf("unsupported image extension %q", ext)
		}
		if fh.Size > ingest.MaxImageBytes {
			return entity.Image{}, common.InvalidArgumentErrorf("image too large: %d bytes", fh.Size)
		}
		f, err := fh.Open()
		if err != nil {
			return entity.Image{}, common.WrapError(err, "open upload")
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, ingest.MaxImageBytes+1))
		if err != nil {
			return entity.Image{}, common.WrapError(err, "read upload")
		}
		if len(data) == 0 {
			return entity.Image{}, common.InvalidArgumentErrorf("image is empty")
		}
		return entity.Image{Data: data, MimeType: constants.MimeForExt(ext), Filename: filepath.Base(fh.Filename)}, nil
	}

	var req enqueueRequest
	if err := c.Bind(&req); err != nil {
		return entity.Image{}, common.InvalidArgumentErrorf("invalid request body")
	}
	img, err := ingest.ParseDataURL(req.Image)
	if err != nil {
		return entity.Image{}, common.InvalidArgumentErrorf("image: %v", err)
	}
	img.Filename = req.Filename
	return img, nil
}

// ListItems returns every queued item in insertion order.
func (a *API) ListItems(c echo.Context) error {
	return c.JSON(http.StatusOK, a.queue.Items())
}

func (a *API) GetItem(c echo.Context) error {
	id, err := parseItemID(c)
	if err != nil {
		return err
	}
	it, ok := a.queue.Get(id)
	if !ok {
		return common.NotFoundError("queue item not found")
	}
	return c.JSON(http.StatusOK, it)
}

// RemoveItem deletes an item in any state; unknown ids are ignored.
func (a *API) RemoveItem(c echo.Context) error {
	id, err := parseItemID(c)
	if err != nil {
		return err
	}
	a.queue.Remove(id)
	return c.NoContent(http.StatusNoContent)
}

// UpdateField applies one operator correction to a DONE item.
func (a *API) UpdateField(c echo.Context) error {
	var req fieldEditRequest
	if err := c.Bind(&req); err != nil {
		return common.InvalidArgumentErrorf("invalid request body")
	}
	if err := common.ValidateFieldEdit(c.Param("id"), req.Field, req.Value); err != nil {
		return err
	}
	id := uuid.MustParse(c.Param("id"))
	if a.queue.UpdateField(id, req.Field, req.Value) {
		it, _ := a.queue.Get(id)
		return c.JSON(http.StatusOK, it)
	}
	it, ok := a.queue.Get(id)
	if !ok {
		return common.NotFoundError("queue item not found")
	}
	return common.ConflictError("only DONE items can be edited", errors.New("status "+string(it.Status)))
}

// AnalyzeAll runs one batch over the IDLE items. Closing the request abandons
// the run. With ?async=true the run is handed to the background runner.
func (a *API) AnalyzeAll(c echo.Context) error {
	if c.QueryParam("async") == "true" {
		if a.runner == nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "background analysis is not enabled")
		}
		queued := a.runner.Trigger(async.Job{
			Reason:  "api",
			TraceID: common.RequestIDFromContext(c.Request().Context()),
		})
		return c.JSON(http.StatusAccepted, map[string]bool{"queued": queued})
	}
	sum := a.queue.AnalyzeAll(c.Request().Context())
	return c.JSON(http.StatusOK, batchSummaryJSON(sum))
}

type lastRunBody struct {
	Running  bool              `json:"running"`
	Reason   string            `json:"reason,omitempty"`
	Finished *time.Time        `json:"finished_at,omitempty"`
	Summary  *batchSummaryBody `json:"summary,omitempty"`
}

// LastRun reports the most recent background batch run.
func (a *API) LastRun(c echo.Context) error {
	if a.runner == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "background analysis is not enabled")
	}
	res, running := a.runner.Last()
	body := lastRunBody{Running: running}
	if res != nil {
		sum := batchSummaryJSON(res.Summary)
		body.Reason = res.Job.Reason
		body.Finished = &res.Finished
		body.Summary = &sum
	}
	return c.JSON(http.StatusOK, body)
}

type batchSummaryBody struct {
	Visited   int  `json:"visited"`
	Done      int  `json:"done"`
	Failed    int  `json:"failed"`
	Skipped   int  `json:"skipped"`
	Abandoned bool `json:"abandoned"`
}

func batchSummaryJSON(s queue.BatchSummary) batchSummaryBody {
	return batchSummaryBody{
		Visited:   s.Visited,
		Done:      s.Done,
		Failed:    s.Failed,
		Skipped:   s.Skipped,
		Abandoned: s.Abandoned,
	}
}

func parseItemID(c echo.Context) (uuid.UUID, error) {
	raw := c.Param("id")
	if err := common.NewValidator().Field("id", raw, common.UUID).Error(); err != nil {
		return uuid.Nil, err
	}
	return uuid.MustParse(raw), nil
}
